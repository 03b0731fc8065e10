//go:build !windows

package engine

// newMediaFoundationEngine never succeeds off Windows; MediaFoundation is
// a Windows Runtime API with no equivalent elsewhere. select.go skips this
// Kind entirely on other platforms before ever calling the constructor.
func newMediaFoundationEngine() (Engine, error) {
	return nil, errMediaFoundationUnavailable
}
