package orchestrator

import (
	"fmt"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/topology"
)

// HandleState represents the lifecycle state of a launched service
type HandleState string

const (
	// HandleStateStarting means the process was spawned but readiness is
	// not yet confirmed
	HandleStateStarting HandleState = "starting"

	// HandleStateReady means the service's readiness probe succeeded
	HandleStateReady HandleState = "ready"

	// HandleStateFailed means launch or readiness failed, or the process
	// exited unexpectedly
	HandleStateFailed HandleState = "failed"

	// HandleStateStopped means the process was terminated during teardown
	HandleStateStopped HandleState = "stopped"
)

// validHandleTransitions defines allowed state transitions
var validHandleTransitions = map[HandleState][]HandleState{
	HandleStateStarting: {HandleStateReady, HandleStateFailed, HandleStateStopped},
	HandleStateReady:    {HandleStateFailed, HandleStateStopped},
	HandleStateFailed:   {HandleStateStopped},
	HandleStateStopped:  {},
}

// ProcessHandle is the mutable record of one launched service, owned
// exclusively by the orchestrator. It is created at launch, transitions
// states only through the orchestrator, and does not outlive the run.
type ProcessHandle struct {
	Spec      *topology.ServiceSpec
	PID       int
	StartedAt time.Time
	State     HandleState
	LastError error
}

func newProcessHandle(spec *topology.ServiceSpec, pid int) *ProcessHandle {
	return &ProcessHandle{
		Spec:      spec,
		PID:       pid,
		StartedAt: time.Now(),
		State:     HandleStateStarting,
	}
}

// transition moves the handle to a new state, enforcing the lifecycle
// Starting → Ready → Failed → Stopped
func (h *ProcessHandle) transition(to HandleState, lastError error) error {
	for _, allowed := range validHandleTransitions[h.State] {
		if allowed == to {
			h.State = to
			if lastError != nil {
				h.LastError = lastError
			}
			return nil
		}
	}

	return errors.NewInternalError(
		fmt.Sprintf("invalid handle transition from '%s' to '%s'", h.State, to),
		nil,
	).WithContext("service", h.Spec.Name)
}

// IsAlive reports whether the handle refers to a process the orchestrator
// still considers running
func (h *ProcessHandle) IsAlive() bool {
	return h.State == HandleStateStarting || h.State == HandleStateReady
}
