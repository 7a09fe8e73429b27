//go:build !windows

package process

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("test , ", logging.LogFuncs{})
}

func TestLaunch_CapturesOutputToLogSink(t *testing.T) {
	dir := t.TempDir()
	sink := filepath.Join(dir, "logs", "svc.log")

	execution := ExecutionConfig{
		ExecutablePath: "/bin/sh",
		Args:           []string{"-c", "echo service-output"},
	}

	proc, err := Launch(execution, LaunchOptions{LogSink: sink}, "svc", testLogger())
	require.NoError(t, err)
	require.NotNil(t, proc)
	assert.Greater(t, proc.Pid, 0)

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(sink)
		return err == nil && string(data) == "service-output\n"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestLaunch_MissingExecutable(t *testing.T) {
	execution := ExecutionConfig{
		ExecutablePath: filepath.Join(t.TempDir(), "missing"),
	}

	proc, err := Launch(execution, LaunchOptions{}, "svc", testLogger())
	assert.Error(t, err)
	assert.Nil(t, proc)
}

func TestLaunch_DoesNotBlockOnLongRunningChild(t *testing.T) {
	execution := ExecutionConfig{
		ExecutablePath: "/bin/sh",
		Args:           []string{"-c", "sleep 30"},
	}

	started := time.Now()
	proc, err := Launch(execution, LaunchOptions{LogSink: filepath.Join(t.TempDir(), "svc.log")}, "svc", testLogger())
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)

	// Clean up the child
	require.NoError(t, ForceKill(proc.Pid))
}
