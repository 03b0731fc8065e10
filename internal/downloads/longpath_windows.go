//go:build windows

package downloads

import (
	"strings"

	"golang.org/x/sys/windows"
)

// applyLongPathPrefix resolves path to its fully-qualified form via the
// Windows API and prepends the \\?\ extended-length prefix so writes past
// MAX_PATH (260 chars) succeed instead of failing with ERROR_PATH_NOT_FOUND.
// UNC paths get the \\?\UNC\ form instead, per the Windows long-path rules.
func applyLongPathPrefix(path string) string {
	if strings.HasPrefix(path, `\\?\`) {
		return path
	}

	full, err := fullPathName(path)
	if err != nil {
		full = path
	}

	if strings.HasPrefix(full, `\\`) {
		return `\\?\UNC\` + strings.TrimPrefix(full, `\\`)
	}
	return `\\?\` + full
}

func fullPathName(path string) (string, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", err
	}
	buf := make([]uint16, windows.MAX_PATH)
	n, err := windows.GetFullPathName(p, uint32(len(buf)), &buf[0], nil)
	if err != nil {
		return "", err
	}
	if int(n) > len(buf) {
		buf = make([]uint16, n)
		if _, err := windows.GetFullPathName(p, n, &buf[0], nil); err != nil {
			return "", err
		}
	}
	return windows.UTF16ToString(buf), nil
}
