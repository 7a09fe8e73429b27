package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/logging"
)

// RunForeground executes the command synchronously with inherited console
// output and blocks until it exits or the context is cancelled. Returns
// the child's exit code; a non-zero exit is not an error, a failure to
// spawn or a cancellation is.
func RunForeground(ctx context.Context, execution ExecutionConfig, id string, logger logging.Logger) (int, error) {
	if ctx == nil {
		return 0, errors.NewValidationError("context cannot be nil", nil).WithContext("id", id)
	}

	if err := ValidateExecutionConfig(execution); err != nil {
		logger.Errorf("Execution configuration validation failed, id: %s, error: %v", id, err)
		return 0, errors.NewLaunchError("invalid execution configuration", err).WithContext("id", id)
	}

	if err := ensureExecutable(execution.ExecutablePath); err != nil {
		return 0, errors.NewPermissionError("failed to ensure process is executable", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
	}

	workDir := execution.WorkingDirectory
	if workDir == "" {
		absPath, err := filepath.Abs(execution.ExecutablePath)
		if err != nil {
			return 0, errors.NewIOError("failed to get absolute path", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
		}
		workDir = filepath.Dir(absPath)
	}

	env := os.Environ()
	for _, e := range execution.Environment {
		env = append(env, e)
	}

	cmd := exec.CommandContext(ctx, execution.ExecutablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	setupProcessAttributes(cmd)
	cmd.WaitDelay = execution.WaitDelay

	logger.Infof("Running foreground process, id: %s, executable path: '%s', args: %v", id, execution.ExecutablePath, execution.Args)

	err := cmd.Start()
	if err != nil {
		return 0, errors.NewLaunchError("failed to start the process", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
	}

	err = cmd.Wait()
	if err != nil {
		if ctx.Err() != nil {
			return 0, errors.NewCancelledError("foreground process cancelled", ctx.Err()).WithContext("id", id)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			logger.Warnf("Foreground process exited with code %d, id: %s", exitErr.ExitCode(), id)
			return exitErr.ExitCode(), nil
		}
		return 0, errors.NewInternalError("failed to wait for the process", err).WithContext("id", id)
	}

	logger.Infof("Foreground process completed, id: %s, exit code: 0", id)
	return 0, nil
}
