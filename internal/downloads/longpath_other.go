//go:build !windows

package downloads

// applyLongPathPrefix is a no-op outside Windows — no other supported
// platform truncates or rejects long paths the way Windows does.
func applyLongPathPrefix(path string) string { return path }
