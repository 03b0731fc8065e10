package engine

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// findBinary searches for name on PATH, then in the common fallback
// locations a package manager or manual install might use. It never
// fails outright — if nothing is found it returns name unchanged, and the
// eventual exec.Command fails with a clear "not found" error instead.
func findBinary(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	for _, dir := range fallbackBinDirs() {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return name
}

// binaryAvailable reports whether name can be located at all, used by
// engine auto-detection to decide whether a backend is a candidate.
func binaryAvailable(name string) bool {
	if _, err := exec.LookPath(name); err == nil {
		return true
	}
	for _, dir := range fallbackBinDirs() {
		if fileExists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

func fallbackBinDirs() []string {
	if runtime.GOOS == "windows" {
		return nil
	}
	return []string{"/usr/bin", "/usr/local/bin", "/opt/homebrew/bin"}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
