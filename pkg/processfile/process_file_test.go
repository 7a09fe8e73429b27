package processfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ProcessFileMockLogger is a simple mock implementation of Logger for testing
type ProcessFileMockLogger struct{}

func (m *ProcessFileMockLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (m *ProcessFileMockLogger) Debugf(format string, args ...interface{})               {}
func (m *ProcessFileMockLogger) Infof(format string, args ...interface{})                {}
func (m *ProcessFileMockLogger) Warnf(format string, args ...interface{})                {}
func (m *ProcessFileMockLogger) Errorf(format string, args ...interface{})               {}

func TestNewProcessFileManager_WithDefaults(t *testing.T) {
	manager := NewProcessFileManager(ProcessFileConfig{}, &ProcessFileMockLogger{})

	assert.NotNil(t, manager)
	assert.Equal(t, DefaultAppName, manager.config.AppName)
}

func TestGeneratePIDFilePath(t *testing.T) {
	config := ProcessFileConfig{
		BaseDirectory: "/tmp/run",
		AppName:       "test-launcher",
	}

	manager := NewProcessFileManager(config, &ProcessFileMockLogger{})
	path := manager.GeneratePIDFilePath("engine")

	assert.Equal(t, filepath.Join("/tmp/run", "test-launcher", "engine.pid"), path)
}

func TestWriteReadRemovePIDFile(t *testing.T) {
	config := ProcessFileConfig{
		BaseDirectory: t.TempDir(),
		AppName:       "test-launcher",
	}
	manager := NewProcessFileManager(config, &ProcessFileMockLogger{})

	require.NoError(t, manager.WritePIDFile("engine", 12345))

	pid, err := manager.ReadPIDFile("engine")
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)

	require.NoError(t, manager.RemovePIDFile("engine"))

	_, err = manager.ReadPIDFile("engine")
	assert.Error(t, err)

	// Removing again is a no-op
	assert.NoError(t, manager.RemovePIDFile("engine"))
}

func TestReadPIDFile_InvalidContent(t *testing.T) {
	base := t.TempDir()
	config := ProcessFileConfig{
		BaseDirectory: base,
		AppName:       "test-launcher",
	}
	manager := NewProcessFileManager(config, &ProcessFileMockLogger{})

	require.NoError(t, os.MkdirAll(filepath.Join(base, "test-launcher"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "test-launcher", "engine.pid"), []byte("not-a-pid\n"), 0644))

	_, err := manager.ReadPIDFile("engine")
	assert.Error(t, err)
}
