//go:build !windows

package portreclaim

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// listeningPIDs returns the PIDs of processes holding a listening TCP
// socket on the given port, using lsof the same way the shell-level
// cleanup did (lsof -t -i tcp:PORT)
func listeningPIDs(port int) ([]int, error) {
	path, err := exec.LookPath("lsof")
	if err != nil {
		return nil, fmt.Errorf("lsof not available: %w", err)
	}

	out, err := exec.Command(path, "-t", "-i", fmt.Sprintf("tcp:%d", port), "-s", "TCP:LISTEN").Output()
	if err != nil {
		// lsof exits 1 when nothing matches
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}

	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}

	return pids, nil
}
