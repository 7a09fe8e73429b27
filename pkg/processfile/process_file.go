package processfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/logging"
)

// Default application name for the launcher's run files
const DefaultAppName = "hsu-launcher"

// ProcessFileConfig holds configuration for per-service PID file generation
type ProcessFileConfig struct {
	// Base directory for PID files. If empty, uses OS-appropriate default
	BaseDirectory string

	// Application name for subdirectory creation
	AppName string
}

// ProcessFileManager writes one PID file per launched service so a crashed
// launcher leaves an inspectable trail of what it started
type ProcessFileManager struct {
	config ProcessFileConfig
	logger logging.Logger
}

// NewProcessFileManager creates a new process file manager with the given configuration
func NewProcessFileManager(config ProcessFileConfig, logger logging.Logger) *ProcessFileManager {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}

	return &ProcessFileManager{
		config: config,
		logger: logger,
	}
}

// GeneratePIDFilePath generates the PID file path for the given service name
func (m *ProcessFileManager) GeneratePIDFilePath(serviceName string) string {
	return filepath.Join(m.getBaseDirectory(), m.config.AppName, serviceName+".pid")
}

// WritePIDFile writes the process PID to the appropriate file for the given service
func (m *ProcessFileManager) WritePIDFile(serviceName string, pid int) error {
	pidFilePath := m.GeneratePIDFilePath(serviceName)
	m.logger.Debugf("Writing PID file, service: %s, pid: %d, path: %s", serviceName, pid, pidFilePath)

	if err := os.MkdirAll(filepath.Dir(pidFilePath), 0755); err != nil {
		return errors.NewIOError("failed to create PID file directory", err).WithContext("pid_file", pidFilePath)
	}

	pidContent := fmt.Sprintf("%d\n", pid)
	if err := os.WriteFile(pidFilePath, []byte(pidContent), 0644); err != nil {
		m.logger.Errorf("Failed to write PID file, service: %s, pid: %d, path: %s, error: %v", serviceName, pid, pidFilePath, err)
		return errors.NewIOError("failed to write PID file", err).WithContext("pid_file", pidFilePath).WithContext("pid", pid)
	}

	return nil
}

// ReadPIDFile reads the PID recorded for the given service
func (m *ProcessFileManager) ReadPIDFile(serviceName string) (int, error) {
	pidFilePath := m.GeneratePIDFilePath(serviceName)

	content, err := os.ReadFile(pidFilePath)
	if err != nil {
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", pidFilePath)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, errors.NewValidationError("invalid PID in PID file", err).WithContext("pid_file", pidFilePath).WithContext("content", pidStr)
	}
	if pid <= 0 {
		return 0, errors.NewValidationError("PID must be positive: "+pidStr, nil).WithContext("pid_file", pidFilePath)
	}

	return pid, nil
}

// RemovePIDFile removes the PID file for the given service; missing files
// are not an error (teardown may run after a partial start)
func (m *ProcessFileManager) RemovePIDFile(serviceName string) error {
	pidFilePath := m.GeneratePIDFilePath(serviceName)

	if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("failed to remove PID file", err).WithContext("pid_file", pidFilePath)
	}

	return nil
}

// getBaseDirectory returns the appropriate base directory for PID files
func (m *ProcessFileManager) getBaseDirectory() string {
	if m.config.BaseDirectory != "" {
		return m.config.BaseDirectory
	}

	switch runtime.GOOS {
	case "windows":
		if programData := os.Getenv("PROGRAMDATA"); programData != "" {
			return programData
		}
		return os.TempDir()
	case "darwin":
		return "/tmp"
	default:
		if _, err := os.Stat("/run"); err == nil {
			return "/run"
		}
		return "/tmp"
	}
}
