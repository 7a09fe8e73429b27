package process

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExecutionConfig(t *testing.T) {
	dir := t.TempDir()
	executable := filepath.Join(dir, "service")
	require.NoError(t, os.WriteFile(executable, []byte("#!/bin/sh\n"), 0755))

	tests := []struct {
		name      string
		config    ExecutionConfig
		shouldErr bool
	}{
		{
			name: "valid_minimal",
			config: ExecutionConfig{
				ExecutablePath: executable,
			},
			shouldErr: false,
		},
		{
			name: "valid_with_working_directory",
			config: ExecutionConfig{
				ExecutablePath:   executable,
				WorkingDirectory: dir,
				Args:             []string{"--port", "8001"},
			},
			shouldErr: false,
		},
		{
			name: "valid_with_environment",
			config: ExecutionConfig{
				ExecutablePath: executable,
				Environment:    []string{"MODE=test"},
			},
			shouldErr: false,
		},
		{
			name:      "empty_executable_path",
			config:    ExecutionConfig{},
			shouldErr: true,
		},
		{
			name: "missing_executable",
			config: ExecutionConfig{
				ExecutablePath: filepath.Join(dir, "no-such-binary"),
			},
			shouldErr: true,
		},
		{
			name: "relative_working_directory",
			config: ExecutionConfig{
				ExecutablePath:   executable,
				WorkingDirectory: "relative/dir",
			},
			shouldErr: true,
		},
		{
			name: "working_directory_is_file",
			config: ExecutionConfig{
				ExecutablePath:   executable,
				WorkingDirectory: executable,
			},
			shouldErr: true,
		},
		{
			name: "invalid_environment_format",
			config: ExecutionConfig{
				ExecutablePath: executable,
				Environment:    []string{"MISSING_EQUALS"},
			},
			shouldErr: true,
		},
		{
			name: "negative_wait_delay",
			config: ExecutionConfig{
				ExecutablePath: executable,
				WaitDelay:      -1 * time.Second,
			},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExecutionConfig(tt.config)

			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
