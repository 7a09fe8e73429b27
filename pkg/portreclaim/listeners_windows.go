//go:build windows

package portreclaim

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// listeningPIDs returns the PIDs of processes holding a listening TCP
// socket on the given port, parsed from netstat -ano output
func listeningPIDs(port int) ([]int, error) {
	out, err := exec.Command("netstat", "-ano", "-p", "tcp").Output()
	if err != nil {
		return nil, fmt.Errorf("netstat query failed: %w", err)
	}

	suffix := fmt.Sprintf(":%d", port)
	seen := make(map[int]bool)
	var pids []int

	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		// Proto Local-Address Foreign-Address State PID
		if len(fields) < 5 || fields[0] != "TCP" {
			continue
		}
		if !strings.HasSuffix(fields[1], suffix) {
			continue
		}
		if !strings.EqualFold(fields[3], "LISTENING") {
			continue
		}
		pid, err := strconv.Atoi(fields[4])
		if err != nil || pid <= 0 || seen[pid] {
			continue
		}
		seen[pid] = true
		pids = append(pids, pid)
	}

	return pids, nil
}
