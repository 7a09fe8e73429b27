package portreclaim

import (
	"os"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/core-tools/hsu-launcher-go/pkg/processstate"
)

// Outcome reports what happened to a single port during a reclaim pass
type Outcome string

const (
	OutcomeCleared    Outcome = "cleared"
	OutcomeNotBound   Outcome = "not-bound"
	OutcomeKillFailed Outcome = "kill-failed"
)

// Reclaimer frees ports believed to be held by stale processes from a
// previous run. Reclaiming is advisory cleanup: failures are logged and
// reported per-port, never escalated.
type Reclaimer interface {
	Reclaim(ports []int) map[int]Outcome
}

type reclaimer struct {
	logger logging.Logger
}

func NewReclaimer(logger logging.Logger) Reclaimer {
	return &reclaimer{
		logger: logger,
	}
}

// Reclaim terminates any process listening on the given ports. Safe to
// invoke when nothing is listening and safe to invoke repeatedly.
func (r *reclaimer) Reclaim(ports []int) map[int]Outcome {
	outcomes := make(map[int]Outcome, len(ports))

	for _, port := range ports {
		outcomes[port] = r.reclaimPort(port)
	}

	return outcomes
}

func (r *reclaimer) reclaimPort(port int) Outcome {
	pids, err := listeningPIDs(port)
	if err != nil {
		// Lookup tooling unavailable or query failed; treat as unbound
		// rather than blocking startup
		r.logger.Warnf("Failed to query listeners, port: %d, error: %v", port, err)
		return OutcomeNotBound
	}

	if len(pids) == 0 {
		r.logger.Debugf("No listener found, port: %d", port)
		return OutcomeNotBound
	}

	outcome := OutcomeCleared
	for _, pid := range pids {
		r.logger.Infof("Reclaiming port %d from stale process, PID: %d", port, pid)

		if err := killPID(pid); err != nil {
			// The process may have exited between lookup and kill
			if running, _ := processstate.IsProcessRunning(pid); running {
				r.logger.Warnf("Failed to kill stale process, port: %d, PID: %d, error: %v", port, pid, err)
				outcome = OutcomeKillFailed
				continue
			}
		}

		// Give the OS a moment to release the socket
		time.Sleep(100 * time.Millisecond)
	}

	return outcome
}

func killPID(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Kill()
}
