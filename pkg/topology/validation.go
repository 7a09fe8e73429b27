package topology

import (
	"fmt"

	"github.com/core-tools/hsu-launcher-go/pkg/errors"
	"github.com/core-tools/hsu-launcher-go/pkg/readiness"
)

// Validate checks the whole topology: service names, ports, readiness
// policies and the dependency invariant that every reference resolves to
// a spec declared earlier in the sequence (which also rules out cycles)
func Validate(topology *Topology) error {
	if topology == nil {
		return errors.NewConfigError("topology cannot be nil", nil)
	}

	if len(topology.Services) == 0 && topology.Driver == nil {
		return errors.NewConfigError("topology declares no services and no driver", nil)
	}

	for _, port := range topology.Launcher.ReservedPorts {
		if err := ValidatePort(port); err != nil {
			return errors.NewConfigError("invalid reserved port", err)
		}
	}
	if topology.Launcher.TerminationGrace < 0 {
		return errors.NewConfigError("termination grace cannot be negative", nil)
	}
	if topology.Launcher.LivenessInterval < 0 {
		return errors.NewConfigError("liveness interval cannot be negative", nil)
	}

	declared := make(map[string]bool, len(topology.Services))

	for i := range topology.Services {
		spec := &topology.Services[i]

		if err := ValidateServiceName(spec.Name); err != nil {
			return errors.NewConfigError(fmt.Sprintf("invalid service at index %d", i), err)
		}

		if declared[spec.Name] {
			return errors.NewConfigError("duplicate service name: "+spec.Name, nil)
		}

		if spec.Port != 0 {
			if err := ValidatePort(spec.Port); err != nil {
				return errors.NewConfigError("invalid port for service: "+spec.Name, err)
			}
		}

		if spec.Execution.ExecutablePath == "" {
			return errors.NewConfigError("executable path is required for service: "+spec.Name, nil)
		}

		// Forward and cyclic references are both rejected by requiring
		// every dependency to be declared earlier
		for _, dep := range spec.DependsOn {
			if dep == spec.Name {
				return errors.NewConfigError("service depends on itself: "+spec.Name, nil)
			}
			if !declared[dep] {
				return errors.NewConfigError(
					fmt.Sprintf("service %q depends on %q which is not declared earlier in the topology", spec.Name, dep),
					nil,
				)
			}
		}

		target := readiness.Target{Port: spec.Port, LogSink: spec.LogSink}
		if err := readiness.ValidatePolicy(spec.Readiness, target); err != nil {
			return errors.NewConfigError("invalid readiness policy for service: "+spec.Name, err)
		}

		declared[spec.Name] = true
	}

	if topology.Driver != nil {
		if err := ValidateServiceName(topology.Driver.Name); err != nil {
			return errors.NewConfigError("invalid driver name", err)
		}
		if topology.Driver.Execution.ExecutablePath == "" {
			return errors.NewConfigError("executable path is required for driver: "+topology.Driver.Name, nil)
		}
	}

	return nil
}

// ValidateServiceName validates service name format and constraints
func ValidateServiceName(name string) error {
	if name == "" {
		return errors.NewValidationError("service name cannot be empty", nil)
	}

	if len(name) > 64 {
		return errors.NewValidationError("service name cannot exceed 64 characters", nil)
	}

	for _, char := range name {
		if !isValidNameChar(char) {
			return errors.NewValidationError("service name contains invalid characters: only letters, numbers, hyphens, and underscores are allowed", nil)
		}
	}

	return nil
}

// ValidatePort validates port number
func ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535", nil)
	}
	return nil
}

// Helper function to check if character is valid for service names
func isValidNameChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '-' || char == '_'
}
