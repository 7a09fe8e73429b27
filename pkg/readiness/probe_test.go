package readiness

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("test , ", logging.LogFuncs{})
}

func TestWaitReady_PortOpen(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port

	prober := NewProber(testLogger())
	result := prober.WaitReady(context.Background(), "svc", Target{Port: port}, Policy{
		Kind:        PolicyKindPortOpen,
		Interval:    10 * time.Millisecond,
		MaxAttempts: 5,
	})

	assert.Equal(t, ResultReady, result)
}

func TestWaitReady_PortOpen_TimesOut(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	prober := NewProber(testLogger())
	result := prober.WaitReady(context.Background(), "svc", Target{Port: port}, Policy{
		Kind:        PolicyKindPortOpen,
		Interval:    10 * time.Millisecond,
		MaxAttempts: 3,
		DialTimeout: 100 * time.Millisecond,
	})

	assert.Equal(t, ResultTimedOut, result)
}

func TestWaitReady_PortOpen_BecomesReadyLate(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	go func() {
		time.Sleep(150 * time.Millisecond)
		listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return
		}
		time.Sleep(2 * time.Second)
		listener.Close()
	}()

	prober := NewProber(testLogger())
	result := prober.WaitReady(context.Background(), "svc", Target{Port: port}, Policy{
		Kind:        PolicyKindPortOpen,
		Interval:    50 * time.Millisecond,
		MaxAttempts: 40,
	})

	assert.Equal(t, ResultReady, result)
}

func TestWaitReady_LogPattern(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "svc.log")
	require.NoError(t, os.WriteFile(sink, []byte("starting up...\nlistening on 8001\n"), 0644))

	prober := NewProber(testLogger())
	result := prober.WaitReady(context.Background(), "svc", Target{LogSink: sink}, Policy{
		Kind:        PolicyKindLogPattern,
		Pattern:     "listening on",
		Interval:    10 * time.Millisecond,
		MaxAttempts: 5,
	})

	assert.Equal(t, ResultReady, result)
}

func TestWaitReady_LogPattern_TimesOutWithoutPattern(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "svc.log")
	require.NoError(t, os.WriteFile(sink, []byte("starting up...\n"), 0644))

	prober := NewProber(testLogger())
	result := prober.WaitReady(context.Background(), "svc", Target{LogSink: sink}, Policy{
		Kind:        PolicyKindLogPattern,
		Pattern:     "listening on",
		Interval:    10 * time.Millisecond,
		MaxAttempts: 3,
	})

	assert.Equal(t, ResultTimedOut, result)
}

func TestWaitReady_FixedDelay(t *testing.T) {
	prober := NewProber(testLogger())

	started := time.Now()
	result := prober.WaitReady(context.Background(), "svc", Target{}, Policy{
		Kind:  PolicyKindFixedDelay,
		Delay: 100 * time.Millisecond,
	})

	assert.Equal(t, ResultReady, result)
	assert.GreaterOrEqual(t, time.Since(started), 100*time.Millisecond)
}

func TestWaitReady_CancellationIsImmediate(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	prober := NewProber(testLogger())

	started := time.Now()
	result := prober.WaitReady(ctx, "svc", Target{Port: port}, Policy{
		Kind:        PolicyKindPortOpen,
		Interval:    10 * time.Second, // would block for minutes without cancellation
		MaxAttempts: 100,
	})

	assert.Equal(t, ResultCancelled, result)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		target    Target
		shouldErr bool
	}{
		{"valid_port_open", Policy{Kind: PolicyKindPortOpen}, Target{Port: 8001}, false},
		{"valid_log_pattern", Policy{Kind: PolicyKindLogPattern, Pattern: "ready"}, Target{LogSink: "/var/log/svc.log"}, false},
		{"valid_fixed_delay", Policy{Kind: PolicyKindFixedDelay, Delay: 8 * time.Second}, Target{}, false},
		{"port_open_without_port", Policy{Kind: PolicyKindPortOpen}, Target{}, true},
		{"port_open_port_too_high", Policy{Kind: PolicyKindPortOpen}, Target{Port: 65536}, true},
		{"log_pattern_without_pattern", Policy{Kind: PolicyKindLogPattern}, Target{LogSink: "/var/log/svc.log"}, true},
		{"log_pattern_without_sink", Policy{Kind: PolicyKindLogPattern, Pattern: "ready"}, Target{}, true},
		{"fixed_delay_without_delay", Policy{Kind: PolicyKindFixedDelay}, Target{}, true},
		{"unknown_kind", Policy{Kind: "http"}, Target{Port: 8001}, true},
		{"negative_interval", Policy{Kind: PolicyKindPortOpen, Interval: -time.Second}, Target{Port: 8001}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolicy(tt.policy, tt.target)

			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
