//go:build windows

package engine

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op on Windows — process groups are handled
// differently (job objects), and podliner's Windows subprocess engines
// (ffplay) don't fork children that need group-wide signalling.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills only the process itself; Process.Kill is the
// closest Windows equivalent available without a job-object primitive.
func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}
