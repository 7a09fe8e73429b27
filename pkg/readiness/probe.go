package readiness

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/logging"
)

// PolicyKind selects the readiness signal for a service
type PolicyKind string

const (
	// PolicyKindPortOpen succeeds on the first accepted TCP connection to
	// the service's port
	PolicyKindPortOpen PolicyKind = "port-open"

	// PolicyKindLogPattern succeeds once the service's log sink contains a
	// designated substring
	PolicyKindLogPattern PolicyKind = "log-pattern"

	// PolicyKindFixedDelay waits a configured duration unconditionally;
	// least precise, for services with no better signal
	PolicyKindFixedDelay PolicyKind = "fixed-delay"
)

// Policy bounds the readiness wait: polling interval, attempt budget and
// the success predicate
type Policy struct {
	Kind        PolicyKind    `yaml:"kind"`
	Interval    time.Duration `yaml:"interval,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
	Pattern     string        `yaml:"pattern,omitempty"` // log-pattern only
	Delay       time.Duration `yaml:"delay,omitempty"`   // fixed-delay only
}

const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultMaxAttempts = 60
	DefaultDialTimeout = 1 * time.Second
)

// Result of a readiness wait. Exceeding the attempt budget is reported,
// not raised: the orchestrator decides whether a timeout is fatal.
type Result string

const (
	ResultReady     Result = "ready"
	ResultTimedOut  Result = "timed-out"
	ResultCancelled Result = "cancelled"
)

// Target identifies what the probe observes
type Target struct {
	Port    int    // for port-open
	LogSink string // for log-pattern
}

type Prober interface {
	WaitReady(ctx context.Context, id string, target Target, policy Policy) Result
}

type prober struct {
	logger logging.Logger
}

func NewProber(logger logging.Logger) Prober {
	return &prober{
		logger: logger,
	}
}

// SetPolicyDefaults fills unset polling bounds
func SetPolicyDefaults(policy *Policy) {
	if policy.Interval == 0 {
		policy.Interval = DefaultInterval
	}
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.DialTimeout == 0 {
		policy.DialTimeout = DefaultDialTimeout
	}
}

// ValidatePolicy validates a readiness policy against its target
func ValidatePolicy(policy Policy, target Target) error {
	switch policy.Kind {
	case PolicyKindPortOpen:
		if target.Port <= 0 || target.Port > 65535 {
			return errors.NewValidationError("port-open readiness requires a port between 1 and 65535", nil)
		}

	case PolicyKindLogPattern:
		if policy.Pattern == "" {
			return errors.NewValidationError("log-pattern readiness requires a pattern", nil)
		}
		if target.LogSink == "" {
			return errors.NewValidationError("log-pattern readiness requires a log sink", nil)
		}

	case PolicyKindFixedDelay:
		if policy.Delay <= 0 {
			return errors.NewValidationError("fixed-delay readiness requires a positive delay", nil)
		}

	default:
		return errors.NewValidationError("unsupported readiness policy kind: "+string(policy.Kind), nil)
	}

	if policy.Interval < 0 {
		return errors.NewValidationError("readiness interval cannot be negative", nil)
	}
	if policy.MaxAttempts < 0 {
		return errors.NewValidationError("readiness max attempts cannot be negative", nil)
	}

	return nil
}

// WaitReady polls until the target satisfies the policy's predicate, the
// attempt budget runs out, or the context is cancelled. Never blocks
// beyond interval*attempts and stays responsive to cancellation so
// teardown can begin immediately.
func (p *prober) WaitReady(ctx context.Context, id string, target Target, policy Policy) Result {
	SetPolicyDefaults(&policy)

	if policy.Kind == PolicyKindFixedDelay {
		return p.waitFixedDelay(ctx, id, policy.Delay)
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if p.checkOnce(id, target, policy) {
			p.logger.Infof("Readiness confirmed, id: %s, kind: %s, attempt: %d", id, policy.Kind, attempt)
			return ResultReady
		}

		select {
		case <-ctx.Done():
			p.logger.Warnf("Readiness wait cancelled, id: %s, attempt: %d", id, attempt)
			return ResultCancelled
		case <-time.After(policy.Interval):
		}
	}

	p.logger.Warnf("Readiness attempt budget exhausted, id: %s, kind: %s, attempts: %d", id, policy.Kind, policy.MaxAttempts)
	return ResultTimedOut
}

func (p *prober) waitFixedDelay(ctx context.Context, id string, delay time.Duration) Result {
	p.logger.Infof("Waiting fixed delay, id: %s, delay: %v", id, delay)
	select {
	case <-ctx.Done():
		p.logger.Warnf("Fixed delay wait cancelled, id: %s", id)
		return ResultCancelled
	case <-time.After(delay):
		return ResultReady
	}
}

func (p *prober) checkOnce(id string, target Target, policy Policy) bool {
	switch policy.Kind {
	case PolicyKindPortOpen:
		address := fmt.Sprintf("127.0.0.1:%d", target.Port)
		conn, err := net.DialTimeout("tcp", address, policy.DialTimeout)
		if err != nil {
			p.logger.Debugf("Port not yet open, id: %s, address: %s", id, address)
			return false
		}
		conn.Close()
		return true

	case PolicyKindLogPattern:
		data, err := os.ReadFile(target.LogSink)
		if err != nil {
			p.logger.Debugf("Log sink not yet readable, id: %s, sink: %s", id, target.LogSink)
			return false
		}
		return strings.Contains(string(data), policy.Pattern)

	default:
		return false
	}
}
