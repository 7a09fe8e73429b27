package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/core-tools/hsu-launcher-go/pkg/topology"
)

// Run loads a topology file and drives a full launcher run with signal
// handling wired up: the first interrupt begins teardown, repeated
// interrupts during teardown are no-ops.
func Run(configFile string, logger logging.Logger) error {
	logger.Infof("Launcher runner starting...")
	logger.Infof("Using TOPOLOGY FILE: %s", configFile)

	t, err := topology.LoadFromFile(configFile)
	if err != nil {
		return err
	}

	logger.Infof("Topology loaded successfully from %s", configFile)
	logger.Infof("Services: %d, driver: %t, ports: %v", len(t.Services), t.Driver != nil, t.AllPorts())

	orchestrator, err := NewOrchestrator(t, Dependencies{}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig, os.Interrupt)
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}
	defer signal.Stop(sig)

	go func() {
		for receivedSignal := range sig {
			logger.Infof("Launcher runner received signal: %v", receivedSignal)
			cancel()
		}
	}()

	return orchestrator.Run(ctx)
}

// ValidateConfigFile validates a topology file without launching anything.
// Useful for configuration testing and CI validation.
func ValidateConfigFile(configFile string) error {
	_, err := topology.LoadFromFile(configFile)
	return err
}
