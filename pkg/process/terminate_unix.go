//go:build !windows

package process

import (
	"syscall"
	"time"
)

// SendTerminationSignal sends SIGTERM to the process group on Unix systems
func SendTerminationSignal(pid int, isDead bool, timeout time.Duration) error {
	// Negative PID addresses the whole process group, so the entire
	// process tree is terminated, not just the direct child
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// ForceKill sends SIGKILL to the process group; last resort after the
// termination grace period expires
func ForceKill(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
