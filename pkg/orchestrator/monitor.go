package orchestrator

import (
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/topology"
)

// monitorLiveness continuously verifies that Ready services are still
// running. The observed one-shot "is it actually running" verification is
// generalized to a periodic check for the whole run: a dependent pipeline
// stage cannot be trusted once a dependency vanishes.
func (o *Orchestrator) monitorLiveness() {
	defer close(o.monitorDone)

	interval := o.topology.Launcher.LivenessInterval
	if interval <= 0 {
		interval = topology.DefaultLivenessInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-o.monitorStop:
			return
		case <-ticker.C:
			o.checkLiveness()
		}
	}
}

func (o *Orchestrator) checkLiveness() {
	o.mutex.Lock()
	var readyHandles []*ProcessHandle
	for _, handle := range o.handles {
		if handle.State == HandleStateReady {
			readyHandles = append(readyHandles, handle)
		}
	}
	o.mutex.Unlock()

	for _, handle := range readyHandles {
		running, err := o.deps.IsRunning(handle.PID)
		if err != nil {
			o.logger.Debugf("Liveness check inconclusive, service: %s, PID: %d, error: %v", handle.Spec.Name, handle.PID, err)
			continue
		}
		if running {
			continue
		}

		exitErr := errors.NewUnexpectedExitError(
			"service process disappeared: "+handle.Spec.Name, nil,
		).WithContext("service", handle.Spec.Name).WithContext("pid", handle.PID)

		o.transitionHandle(handle, HandleStateFailed, exitErr)

		if handle.Spec.IsRequired() {
			o.logger.Errorf("Required service exited unexpectedly: %s, PID: %d", handle.Spec.Name, handle.PID)
			o.recordAsyncFailure(exitErr)
		} else {
			o.logger.Warnf("Best-effort service exited unexpectedly: %s, PID: %d", handle.Spec.Name, handle.PID)
		}
	}
}

func (o *Orchestrator) stopMonitor() {
	select {
	case <-o.monitorStop:
		// already stopped
	default:
		close(o.monitorStop)
	}
	<-o.monitorDone
}
