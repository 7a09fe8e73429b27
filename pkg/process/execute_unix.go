//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes configures Unix-specific process attributes
func setupProcessAttributes(cmd *exec.Cmd) {
	// Put each child in its own process group so that signalling -pid
	// reaches the entire process tree (parent + all children), and so the
	// launcher's own Ctrl+C does not propagate to background services.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
