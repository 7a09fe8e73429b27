//go:build windows

package process

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/processstate"
)

// SendTerminationSignal sends Ctrl+Break to the child's process group on
// Windows; requires the child to have been started with
// CREATE_NEW_PROCESS_GROUP (see setupProcessAttributes)
func SendTerminationSignal(pid int, isDead bool, timeout time.Duration) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	if !isDead {
		isRunning, _ := processstate.IsProcessRunning(pid)
		isDead = !isRunning
	}
	if isDead {
		return nil
	}

	dll, err := syscall.LoadDLL("kernel32.dll")
	if err != nil {
		return fmt.Errorf("failed to load kernel32.dll: %v", err)
	}
	defer dll.Release()

	return sendCtrlBreakToProcess(dll, pid, timeout)
}

// ForceKill terminates the process without ceremony
func ForceKill(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}

// sendCtrlBreakToProcess sends Ctrl+Break with timeout protection
func sendCtrlBreakToProcess(dll *syscall.DLL, pid int, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- generateConsoleCtrlEvent(dll, pid)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send Ctrl+Break to PID %d: %v", pid, err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout sending Ctrl+Break to PID %d after %v", pid, timeout)
	}
}

func generateConsoleCtrlEvent(dll *syscall.DLL, pid int) error {
	proc, err := dll.FindProc("GenerateConsoleCtrlEvent")
	if err != nil {
		return err
	}

	result, _, err := proc.Call(
		uintptr(syscall.CTRL_BREAK_EVENT),
		uintptr(pid),
	)
	if result == 0 {
		return err
	}
	return nil
}
