//go:build !windows

package portreclaim

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"testing"

	"github.com/core-tools/hsu-launcher-go/pkg/logging"
	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("test , ", logging.LogFuncs{})
}

func TestReclaim_UnboundPort(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	reclaimer := NewReclaimer(testLogger())

	outcomes := reclaimer.Reclaim([]int{port})
	assert.Equal(t, OutcomeNotBound, outcomes[port])
}

func TestReclaim_Idempotent(t *testing.T) {
	port1, err := freeport.GetFreePort()
	require.NoError(t, err)
	port2, err := freeport.GetFreePort()
	require.NoError(t, err)

	reclaimer := NewReclaimer(testLogger())
	ports := []int{port1, port2}

	reclaimer.Reclaim(ports)

	// Second pass must not error and must report not-bound for every port
	outcomes := reclaimer.Reclaim(ports)
	assert.Len(t, outcomes, 2)
	for _, outcome := range outcomes {
		assert.Equal(t, OutcomeNotBound, outcome)
	}
}

func TestReclaim_EmptyPortSet(t *testing.T) {
	reclaimer := NewReclaimer(testLogger())

	outcomes := reclaimer.Reclaim(nil)
	assert.Empty(t, outcomes)
}

func TestListeningPIDs_FindsOwnListener(t *testing.T) {
	if _, err := exec.LookPath("lsof"); err != nil {
		t.Skip("lsof not available")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port

	pids, err := listeningPIDs(port)
	require.NoError(t, err)
	assert.Contains(t, pids, os.Getpid(), fmt.Sprintf("expected own PID among listeners of port %d", port))
}

func TestListeningPIDs_NothingBound(t *testing.T) {
	if _, err := exec.LookPath("lsof"); err != nil {
		t.Skip("lsof not available")
	}

	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	pids, err := listeningPIDs(port)
	require.NoError(t, err)
	assert.Empty(t, pids)
}
