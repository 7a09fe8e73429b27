package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/core-tools/hsu-launcher-go/pkg/portreclaim"
	"github.com/core-tools/hsu-launcher-go/pkg/process"
	"github.com/core-tools/hsu-launcher-go/pkg/processfile"
	"github.com/core-tools/hsu-launcher-go/pkg/processstate"
	"github.com/core-tools/hsu-launcher-go/pkg/readiness"
	"github.com/core-tools/hsu-launcher-go/pkg/topology"
)

// RunState represents the current phase of a launcher run
type RunState string

const (
	RunStateIdle              RunState = "idle"
	RunStateReclaiming        RunState = "reclaiming"
	RunStateLaunching         RunState = "launching"
	RunStateAllReady          RunState = "all_ready"
	RunStateRunningForeground RunState = "running_foreground"
	RunStateTerminating       RunState = "terminating"
	RunStateDone              RunState = "done"
)

// LaunchFunc starts a service and returns its PID
type LaunchFunc func(execution process.ExecutionConfig, options process.LaunchOptions, id string, logger logging.Logger) (int, error)

// RunForegroundFunc runs the driver synchronously and returns its exit code
type RunForegroundFunc func(ctx context.Context, execution process.ExecutionConfig, id string, logger logging.Logger) (int, error)

// Dependencies are the orchestrator's collaborators; zero-value fields are
// filled with the real implementations
type Dependencies struct {
	Launch        LaunchFunc
	RunForeground RunForegroundFunc
	Prober        readiness.Prober
	Reclaimer     portreclaim.Reclaimer
	Terminate     func(pid int, isDead bool, timeout time.Duration) error
	ForceKill     func(pid int) error
	IsRunning     func(pid int) (bool, error)
}

func (d *Dependencies) setDefaults(logger logging.Logger) {
	if d.Launch == nil {
		d.Launch = func(execution process.ExecutionConfig, options process.LaunchOptions, id string, logger logging.Logger) (int, error) {
			proc, err := process.Launch(execution, options, id, logger)
			if err != nil {
				return 0, err
			}
			return proc.Pid, nil
		}
	}
	if d.RunForeground == nil {
		d.RunForeground = process.RunForeground
	}
	if d.Prober == nil {
		d.Prober = readiness.NewProber(logger)
	}
	if d.Reclaimer == nil {
		d.Reclaimer = portreclaim.NewReclaimer(logger)
	}
	if d.Terminate == nil {
		d.Terminate = process.SendTerminationSignal
	}
	if d.ForceKill == nil {
		d.ForceKill = process.ForceKill
	}
	if d.IsRunning == nil {
		d.IsRunning = processstate.IsProcessRunning
	}
}

// Orchestrator drives a topology through one run: reclaim stale ports,
// launch services in declared order gated by readiness, run the foreground
// driver, then tear everything down in reverse order. One instance serves
// one run.
type Orchestrator struct {
	topology *topology.Topology
	deps     Dependencies
	logger   logging.Logger
	pidFiles *processfile.ProcessFileManager

	mutex    sync.Mutex
	runState RunState
	handles  []*ProcessHandle // in start order

	teardownOnce sync.Once
	teardownRuns int

	monitorStop chan struct{}
	monitorDone chan struct{}

	// First fatal asynchronous failure (required service died); the
	// channel closes once, the error is read after
	asyncFailureCh   chan struct{}
	asyncFailureOnce sync.Once
	asyncFailure     error

	driverExitCode int
}

func NewOrchestrator(t *topology.Topology, deps Dependencies, logger logging.Logger) (*Orchestrator, error) {
	if t == nil {
		return nil, errors.NewValidationError("topology cannot be nil", nil)
	}
	if err := topology.Validate(t); err != nil {
		return nil, err
	}

	deps.setDefaults(logger)

	pidFiles := processfile.NewProcessFileManager(processfile.ProcessFileConfig{
		BaseDirectory: t.Launcher.RunDirectory,
	}, logger)

	return &Orchestrator{
		topology:       t,
		deps:           deps,
		logger:         logger,
		pidFiles:       pidFiles,
		runState:       RunStateIdle,
		monitorStop:    make(chan struct{}),
		monitorDone:    make(chan struct{}),
		asyncFailureCh: make(chan struct{}),
	}, nil
}

// Run drives the whole lifecycle and blocks until teardown completes.
// Teardown runs exactly once regardless of which phase failed or whether
// the context was cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.NewValidationError("context cannot be nil", nil)
	}

	o.mutex.Lock()
	if o.runState != RunStateIdle {
		o.mutex.Unlock()
		return errors.NewValidationError("orchestrator has already run", nil)
	}
	o.mutex.Unlock()

	go o.monitorLiveness()

	runErr := o.runPhases(ctx)

	o.teardown()
	o.setRunState(RunStateDone)

	if runErr != nil {
		o.logger.Errorf("Run finished with failure: %v", runErr)
	} else {
		o.logger.Infof("Run finished cleanly")
	}

	return runErr
}

func (o *Orchestrator) runPhases(ctx context.Context) error {
	o.setRunState(RunStateReclaiming)
	o.reclaimPorts("startup")

	o.setRunState(RunStateLaunching)
	if err := o.launchServices(ctx); err != nil {
		return err
	}

	o.setRunState(RunStateAllReady)

	o.setRunState(RunStateRunningForeground)
	return o.runForegroundPhase(ctx)
}

func (o *Orchestrator) reclaimPorts(stage string) {
	ports := o.topology.AllPorts()
	if len(ports) == 0 {
		return
	}

	outcomes := o.deps.Reclaimer.Reclaim(ports)
	for port, outcome := range outcomes {
		switch outcome {
		case portreclaim.OutcomeCleared:
			o.logger.Infof("Reclaimed port %d (%s)", port, stage)
		case portreclaim.OutcomeKillFailed:
			// Advisory only; never escalated
			o.logger.Warnf("Could not clear port %d (%s): stale holder survived kill", port, stage)
		default:
			o.logger.Debugf("Port %d not bound (%s)", port, stage)
		}
	}
}

func (o *Orchestrator) launchServices(ctx context.Context) error {
	for i := range o.topology.Services {
		spec := &o.topology.Services[i]

		if err := ctx.Err(); err != nil {
			return errors.NewCancelledError("run interrupted during launch", err).WithContext("service", spec.Name)
		}
		if err := o.asyncErr(); err != nil {
			return err
		}

		if satisfied, missing := o.dependenciesReady(spec); !satisfied {
			if spec.IsRequired() {
				return errors.NewLaunchError(
					fmt.Sprintf("dependency %q of required service %q is not ready", missing, spec.Name),
					nil,
				).WithContext("service", spec.Name).WithContext("dependency", missing)
			}
			o.logger.Warnf("Skipping best-effort service %s: dependency %s is not ready", spec.Name, missing)
			continue
		}

		if err := o.launchOne(ctx, spec); err != nil {
			return err
		}
	}

	if err := o.asyncErr(); err != nil {
		return err
	}

	return nil
}

func (o *Orchestrator) launchOne(ctx context.Context, spec *topology.ServiceSpec) error {
	o.logger.Infof("Launching service: %s", spec.Name)

	pid, err := o.deps.Launch(spec.Execution, process.LaunchOptions{LogSink: spec.LogSink}, spec.Name, o.logger)
	if err != nil {
		if spec.IsRequired() {
			return errors.NewLaunchError("failed to launch required service: "+spec.Name, err).WithContext("service", spec.Name)
		}
		o.logger.Warnf("Failed to launch best-effort service %s: %v", spec.Name, err)
		return nil
	}

	handle := newProcessHandle(spec, pid)
	o.mutex.Lock()
	o.handles = append(o.handles, handle)
	o.mutex.Unlock()

	if err := o.pidFiles.WritePIDFile(spec.Name, pid); err != nil {
		o.logger.Warnf("Failed to write PID file for service %s: %v", spec.Name, err)
	}

	target := readiness.Target{Port: spec.Port, LogSink: spec.LogSink}
	result := o.deps.Prober.WaitReady(ctx, spec.Name, target, spec.Readiness)

	switch result {
	case readiness.ResultReady:
		o.transitionHandle(handle, HandleStateReady, nil)
		o.logger.Infof("Service is ready: %s, PID: %d", spec.Name, pid)
		return nil

	case readiness.ResultCancelled:
		err := errors.NewCancelledError("run interrupted while waiting for readiness", nil).WithContext("service", spec.Name)
		o.transitionHandle(handle, HandleStateFailed, err)
		return err

	default: // timed out
		err := errors.NewReadinessTimeoutError("service never became ready: "+spec.Name, nil).WithContext("service", spec.Name)
		o.transitionHandle(handle, HandleStateFailed, err)
		if spec.IsRequired() {
			return err
		}
		o.logger.Warnf("Best-effort service %s never became ready, continuing", spec.Name)
		return nil
	}
}

func (o *Orchestrator) dependenciesReady(spec *topology.ServiceSpec) (bool, string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	for _, dep := range spec.DependsOn {
		ready := false
		for _, handle := range o.handles {
			if handle.Spec.Name == dep && handle.State == HandleStateReady {
				ready = true
				break
			}
		}
		if !ready {
			return false, dep
		}
	}

	return true, ""
}

type driverResult struct {
	exitCode int
	err      error
}

func (o *Orchestrator) runForegroundPhase(ctx context.Context) error {
	driver := o.topology.Driver
	if driver == nil {
		// Supervision-only mode: no driver declared, run until the
		// operator interrupts or a required service dies
		o.logger.Infof("No foreground driver declared, supervising services until interrupted")
		select {
		case <-ctx.Done():
			o.logger.Infof("Run interrupted, beginning teardown")
			return nil
		case <-o.asyncFailureCh:
			return o.asyncErr()
		}
	}

	driverCtx, cancelDriver := context.WithCancel(ctx)
	defer cancelDriver()

	done := make(chan driverResult, 1)
	go func() {
		exitCode, err := o.deps.RunForeground(driverCtx, driver.Execution, driver.Name, o.logger)
		done <- driverResult{exitCode: exitCode, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			if errors.IsLaunchError(result.err) {
				return errors.NewLaunchError("failed to run foreground driver: "+driver.Name, result.err)
			}
			return result.err
		}
		// The driver's exit code is informational; a failing driver does
		// not mark the run as failed
		o.driverExitCode = result.exitCode
		o.logger.Infof("Foreground driver completed, exit code: %d", result.exitCode)
		return nil

	case <-ctx.Done():
		o.logger.Infof("Run interrupted, terminating foreground driver")
		cancelDriver()
		<-done
		return errors.NewCancelledError("run interrupted while foreground driver was running", ctx.Err())

	case <-o.asyncFailureCh:
		// A required background service vanished; the driver cannot be
		// trusted to finish, terminate it as part of teardown
		o.logger.Errorf("Required service failed while driver was running, terminating driver")
		cancelDriver()
		<-done
		return o.asyncErr()
	}
}

// teardown terminates every tracked handle in reverse start order, then
// sweeps all registered ports one final time. Runs exactly once per run.
func (o *Orchestrator) teardown() {
	o.teardownOnce.Do(func() {
		o.setRunState(RunStateTerminating)
		o.mutex.Lock()
		o.teardownRuns++
		handles := make([]*ProcessHandle, len(o.handles))
		copy(handles, o.handles)
		o.mutex.Unlock()

		o.stopMonitor()

		for i := len(handles) - 1; i >= 0; i-- {
			o.stopHandle(handles[i])
		}

		o.reclaimPorts("teardown")
	})
}

func (o *Orchestrator) stopHandle(handle *ProcessHandle) {
	o.mutex.Lock()
	state := handle.State
	o.mutex.Unlock()

	if state == HandleStateStopped {
		return
	}

	name := handle.Spec.Name
	grace := o.topology.Launcher.TerminationGrace

	running, _ := o.deps.IsRunning(handle.PID)
	if running {
		o.logger.Infof("Terminating service: %s, PID: %d", name, handle.PID)

		if err := o.deps.Terminate(handle.PID, false, grace); err != nil {
			o.logger.Warnf("Termination signal failed for service %s, PID: %d: %v", name, handle.PID, err)
		}

		if !o.waitForExit(handle.PID, grace) {
			o.logger.Warnf("Service %s did not exit within %v, force killing PID %d", name, grace, handle.PID)
			if err := o.deps.ForceKill(handle.PID); err != nil {
				o.logger.Errorf("Force kill failed for service %s, PID: %d: %v", name, handle.PID, err)
			}
		}
	}

	o.transitionHandle(handle, HandleStateStopped, nil)

	if err := o.pidFiles.RemovePIDFile(name); err != nil {
		o.logger.Warnf("Failed to remove PID file for service %s: %v", name, err)
	}

	o.logger.Infof("Service stopped: %s", name)
}

func (o *Orchestrator) waitForExit(pid int, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		running, _ := o.deps.IsRunning(pid)
		if !running {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	running, _ := o.deps.IsRunning(pid)
	return !running
}

func (o *Orchestrator) transitionHandle(handle *ProcessHandle, to HandleState, lastError error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if err := handle.transition(to, lastError); err != nil {
		o.logger.Warnf("Handle transition rejected: %v", err)
	}
}

func (o *Orchestrator) setRunState(state RunState) {
	o.mutex.Lock()
	previous := o.runState
	o.runState = state
	o.mutex.Unlock()

	o.logger.Infof("Run state: %s -> %s", previous, state)
}

// RunState returns the current phase of the run
func (o *Orchestrator) RunState() RunState {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.runState
}

// Handles returns a snapshot of the tracked process handles in start order
func (o *Orchestrator) Handles() []ProcessHandle {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	snapshot := make([]ProcessHandle, 0, len(o.handles))
	for _, handle := range o.handles {
		snapshot = append(snapshot, *handle)
	}
	return snapshot
}

// DriverExitCode returns the foreground driver's exit code; meaningful
// only after a run in which the driver completed
func (o *Orchestrator) DriverExitCode() int {
	return o.driverExitCode
}

func (o *Orchestrator) recordAsyncFailure(err error) {
	o.asyncFailureOnce.Do(func() {
		o.mutex.Lock()
		o.asyncFailure = err
		o.mutex.Unlock()
		close(o.asyncFailureCh)
	})
}

func (o *Orchestrator) asyncErr() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.asyncFailure
}
