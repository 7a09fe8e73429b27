package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/core-tools/hsu-launcher-go/pkg/portreclaim"
	"github.com/core-tools/hsu-launcher-go/pkg/process"
	"github.com/core-tools/hsu-launcher-go/pkg/readiness"
)

// Test doubles for the orchestrator's collaborators. Kept out of the
// _test.go files so every test file can share them.

type fakeEnv struct {
	mu sync.Mutex

	nextPID      int
	launched     []string       // services in launch order
	terminated   []int          // PIDs in termination order
	forceKilled  []int          // PIDs force-killed after the grace period
	running      map[int]bool   // PID -> liveness
	pidOf        map[string]int // service name -> PID
	reclaimCalls [][]int        // port sets per reclaim invocation

	launchErrs   map[string]error            // service name -> launch failure
	probeResults map[string]readiness.Result // service name -> probe outcome

	driverStarted chan struct{}
	driverRan     bool
	driverExit    int
	driverBlocks  bool // driver waits for context cancellation
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		nextPID:       1000,
		running:       make(map[int]bool),
		pidOf:         make(map[string]int),
		launchErrs:    make(map[string]error),
		probeResults:  make(map[string]readiness.Result),
		driverStarted: make(chan struct{}, 1),
	}
}

func (f *fakeEnv) dependencies() Dependencies {
	return Dependencies{
		Launch:        f.launch,
		RunForeground: f.runForeground,
		Prober:        fakeProber{env: f},
		Reclaimer:     fakeReclaimer{env: f},
		Terminate:     f.terminate,
		ForceKill:     f.forceKill,
		IsRunning:     f.isRunning,
	}
}

func (f *fakeEnv) launch(execution process.ExecutionConfig, options process.LaunchOptions, id string, logger logging.Logger) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.launchErrs[id]; err != nil {
		return 0, err
	}

	f.nextPID++
	pid := f.nextPID
	f.launched = append(f.launched, id)
	f.pidOf[id] = pid
	f.running[pid] = true
	return pid, nil
}

func (f *fakeEnv) runForeground(ctx context.Context, execution process.ExecutionConfig, id string, logger logging.Logger) (int, error) {
	f.mu.Lock()
	f.driverRan = true
	blocks := f.driverBlocks
	exit := f.driverExit
	f.mu.Unlock()

	select {
	case f.driverStarted <- struct{}{}:
	default:
	}

	if blocks {
		<-ctx.Done()
		return 0, errors.NewCancelledError("foreground process cancelled", ctx.Err())
	}
	return exit, nil
}

func (f *fakeEnv) terminate(pid int, isDead bool, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.terminated = append(f.terminated, pid)
	f.running[pid] = false
	return nil
}

func (f *fakeEnv) forceKill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.forceKilled = append(f.forceKilled, pid)
	f.running[pid] = false
	return nil
}

func (f *fakeEnv) isRunning(pid int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[pid], nil
}

func (f *fakeEnv) killService(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[f.pidOf[name]] = false
}

func (f *fakeEnv) terminationOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	byPID := make(map[int]string, len(f.pidOf))
	for name, pid := range f.pidOf {
		byPID[pid] = name
	}

	var names []string
	for _, pid := range f.terminated {
		names = append(names, byPID[pid])
	}
	return names
}

type fakeProber struct {
	env *fakeEnv
}

func (p fakeProber) WaitReady(ctx context.Context, id string, target readiness.Target, policy readiness.Policy) readiness.Result {
	if err := ctx.Err(); err != nil {
		return readiness.ResultCancelled
	}

	p.env.mu.Lock()
	defer p.env.mu.Unlock()

	if result, ok := p.env.probeResults[id]; ok {
		return result
	}
	return readiness.ResultReady
}

type fakeReclaimer struct {
	env *fakeEnv
}

func (r fakeReclaimer) Reclaim(ports []int) map[int]portreclaim.Outcome {
	r.env.mu.Lock()
	defer r.env.mu.Unlock()

	r.env.reclaimCalls = append(r.env.reclaimCalls, ports)

	outcomes := make(map[int]portreclaim.Outcome, len(ports))
	for _, port := range ports {
		outcomes[port] = portreclaim.OutcomeNotBound
	}
	return outcomes
}
