package topology

import (
	"os"
	"path/filepath"
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/readiness"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLogDirectory     = "logs"
	DefaultTerminationGrace = 5 * time.Second
	DefaultLivenessInterval = 2 * time.Second
)

// LoadFromFile loads a topology from a YAML file, applies defaults and
// validates it. Pure data; no process is touched here.
func LoadFromFile(filename string) (*Topology, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read topology file", err).WithContext("filename", filename)
	}

	topology, err := Load(data)
	if err != nil {
		return nil, errors.NewConfigError("invalid topology file", err).WithContext("filename", filename)
	}

	return topology, nil
}

// Load parses, defaults and validates a topology from YAML bytes
func Load(data []byte) (*Topology, error) {
	var topology Topology
	if err := yaml.Unmarshal(data, &topology); err != nil {
		return nil, errors.NewConfigError("failed to parse YAML topology", err)
	}

	setDefaults(&topology)

	if err := Validate(&topology); err != nil {
		return nil, err
	}

	return &topology, nil
}

func setDefaults(topology *Topology) {
	if topology.Launcher.LogDirectory == "" {
		topology.Launcher.LogDirectory = DefaultLogDirectory
	}
	if topology.Launcher.TerminationGrace == 0 {
		topology.Launcher.TerminationGrace = DefaultTerminationGrace
	}
	if topology.Launcher.LivenessInterval == 0 {
		topology.Launcher.LivenessInterval = DefaultLivenessInterval
	}

	for i := range topology.Services {
		spec := &topology.Services[i]
		if spec.LogSink == "" {
			spec.LogSink = filepath.Join(topology.Launcher.LogDirectory, spec.Name+".log")
		}
		readiness.SetPolicyDefaults(&spec.Readiness)
	}
}
