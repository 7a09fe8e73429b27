package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/logging"
)

type ExecutionConfig struct {
	ExecutablePath   string        `yaml:"executable_path"`
	Args             []string      `yaml:"args,omitempty"`
	Environment      []string      `yaml:"environment,omitempty"`
	WorkingDirectory string        `yaml:"working_directory,omitempty"`
	WaitDelay        time.Duration `yaml:"wait_delay,omitempty"`
}

// LaunchOptions controls where the child's combined output goes.
// LogSink is a file path; empty means the child inherits the launcher's
// console (used for the foreground driver).
type LaunchOptions struct {
	LogSink string
}

// Launch spawns the command detached from the launcher's control flow:
// output redirected to the log sink, own process group, no wait on the
// child. Returns immediately after a successful start.
func Launch(execution ExecutionConfig, options LaunchOptions, id string, logger logging.Logger) (*os.Process, error) {
	if err := ValidateExecutionConfig(execution); err != nil {
		logger.Errorf("Execution configuration validation failed, id: %s, error: %v", id, err)
		return nil, errors.NewLaunchError("invalid execution configuration", err).WithContext("id", id)
	}

	// Check if the process is executable, and make it executable if it's not
	if err := ensureExecutable(execution.ExecutablePath); err != nil {
		return nil, errors.NewPermissionError("failed to ensure process is executable", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
	}

	workDir := execution.WorkingDirectory
	if workDir == "" {
		absPath, err := filepath.Abs(execution.ExecutablePath)
		if err != nil {
			return nil, errors.NewIOError("failed to get absolute path", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
		}
		workDir = filepath.Dir(absPath)
	}

	logger.Debugf("Launching process: id: %s, executable path: '%s', args: %v, working directory: '%s', log sink: '%s'",
		id, execution.ExecutablePath, execution.Args, workDir, options.LogSink)

	env := os.Environ()
	for _, e := range execution.Environment {
		env = append(env, e)
	}

	cmd := exec.Command(execution.ExecutablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = env

	// Platform-specific setup is handled in execute_unix.go or execute_windows.go
	setupProcessAttributes(cmd)

	var sink *os.File
	if options.LogSink != "" {
		if err := os.MkdirAll(filepath.Dir(options.LogSink), 0755); err != nil {
			return nil, errors.NewIOError("failed to create log sink directory", err).WithContext("id", id).WithContext("log_sink", options.LogSink)
		}
		var err error
		sink, err = os.OpenFile(options.LogSink, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.NewIOError("failed to open log sink", err).WithContext("id", id).WithContext("log_sink", options.LogSink)
		}
		cmd.Stdout = sink
		cmd.Stderr = sink
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	err := cmd.Start()

	// The child holds its own descriptor after Start; the parent's copy is
	// no longer needed either way.
	if sink != nil {
		sink.Close()
	}

	if err != nil {
		return nil, errors.NewLaunchError("failed to start the process", err).WithContext("id", id).WithContext("executable_path", execution.ExecutablePath)
	}

	logger.Infof("Successfully launched process, id: %s, PID: %d", id, cmd.Process.Pid)

	// Reap the child in the background so it does not linger as a zombie;
	// liveness is tracked separately by the orchestrator.
	go cmd.Wait()

	return cmd.Process, nil
}

// ensureExecutable checks if a file is executable and makes it executable if it's not
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("file does not exist", err).WithContext("path", path)
	}

	// On Windows, files with .exe, .bat, .cmd extensions are inherently executable
	if runtime.GOOS == "windows" {
		ext := filepath.Ext(path)
		if ext == ".exe" || ext == ".bat" || ext == ".cmd" {
			return nil
		}
	}

	mode := info.Mode()
	if mode&0111 != 0 { // Check if any execute bit is set
		return nil
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, mode|0111); err != nil {
			return errors.NewPermissionError("failed to make file executable", err).WithContext("path", path)
		}
	}

	return nil
}
