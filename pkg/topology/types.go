package topology

import (
	"time"

	"github.com/core-tools/hsu-launcher-go/pkg/process"
	"github.com/core-tools/hsu-launcher-go/pkg/readiness"
)

// ServiceSpec is an immutable descriptor of one background service.
// Constructed once at load time and never mutated afterwards.
type ServiceSpec struct {
	Name      string                  `yaml:"name"`
	Execution process.ExecutionConfig `yaml:"execution"`

	// Port the service listens on; 0 means no port to probe or reclaim
	Port int `yaml:"port,omitempty"`

	// DependsOn names services that must be Ready before this one launches.
	// Referenced specs must appear earlier in the services sequence.
	DependsOn []string `yaml:"depends_on,omitempty"`

	Readiness readiness.Policy `yaml:"readiness"`

	// LogSink is the file capturing the service's combined output. Empty
	// defaults to <log_directory>/<name>.log.
	LogSink string `yaml:"log_sink,omitempty"`

	// Required services escalate launch/readiness failures to the whole
	// run; best-effort services only warn. Defaults to true.
	Required *bool `yaml:"required,omitempty"`
}

// IsRequired reports whether a failure of this service is fatal for the run
func (s *ServiceSpec) IsRequired() bool {
	return s.Required == nil || *s.Required
}

// DriverSpec describes the foreground process run synchronously after all
// background services are ready; its completion ends the active run
type DriverSpec struct {
	Name      string                  `yaml:"name"`
	Execution process.ExecutionConfig `yaml:"execution"`
}

// LauncherOptions holds launcher-level settings
type LauncherOptions struct {
	// ReservedPorts are reclaimed in addition to every spec port, covering
	// well-known ports not modeled as services
	ReservedPorts []int `yaml:"reserved_ports,omitempty"`

	// LogDirectory receives per-service log sinks; defaults to "logs"
	LogDirectory string `yaml:"log_directory,omitempty"`

	// RunDirectory receives per-service PID files; defaults to the
	// OS-appropriate location when empty
	RunDirectory string `yaml:"run_directory,omitempty"`

	// TerminationGrace is how long teardown waits after the termination
	// signal before force-killing
	TerminationGrace time.Duration `yaml:"termination_grace,omitempty"`

	// LivenessInterval is how often Ready services are checked for
	// unexpected exit
	LivenessInterval time.Duration `yaml:"liveness_interval,omitempty"`

	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`
}

// Topology is the ordered, validated set of service specifications plus
// the foreground driver
type Topology struct {
	Launcher LauncherOptions `yaml:"launcher"`
	Services []ServiceSpec   `yaml:"services"`
	Driver   *DriverSpec     `yaml:"driver,omitempty"`
}

// AllPorts returns every port referenced by any spec plus the reserved
// ports, deduplicated, in declaration order
func (t *Topology) AllPorts() []int {
	seen := make(map[int]bool)
	var ports []int

	add := func(port int) {
		if port > 0 && !seen[port] {
			seen[port] = true
			ports = append(ports, port)
		}
	}

	for _, port := range t.Launcher.ReservedPorts {
		add(port)
	}
	for i := range t.Services {
		add(t.Services[i].Port)
	}

	return ports
}

// ServiceByName returns the spec with the given name, if declared
func (t *Topology) ServiceByName(name string) (*ServiceSpec, bool) {
	for i := range t.Services {
		if t.Services[i].Name == name {
			return &t.Services[i], true
		}
	}
	return nil, false
}
