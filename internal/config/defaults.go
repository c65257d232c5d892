package config

import (
	"time"

	"smokectl/internal/components"
	"smokectl/internal/probe"
)

const (
	DefaultTimeout         = 120 * time.Second
	DefaultInterval        = 5 * time.Second
	DefaultGracePeriod     = 2 * time.Second
	DefaultTeardownTimeout = 5 * time.Second
)

// DefaultConfig returns the built-in configuration. Component checks are
// not repeated here; they come from the components catalogue.
func DefaultConfig() SmokectlConfig {
	waitReady := false
	return SmokectlConfig{
		Timeout:         Duration(DefaultTimeout),
		Interval:        Duration(DefaultInterval),
		GracePeriod:     Duration(DefaultGracePeriod),
		TeardownTimeout: Duration(DefaultTeardownTimeout),
		ProbeTimeout:    Duration(probe.DefaultTimeout),
		WaitReady:       &waitReady,
		Forwarder:       ForwarderKubectl,
		Discovery:       DiscoveryClientGo,
		Components:      map[string]ComponentOverride{},
	}
}

// Specs returns the check definitions for kinds with this configuration's
// overrides applied.
func (c SmokectlConfig) Specs(kinds []components.Kind) []components.CheckSpec {
	specs := make([]components.CheckSpec, 0, len(kinds))
	for _, k := range kinds {
		spec := k.Spec()
		if o, ok := c.Components[string(k)]; ok {
			spec = o.apply(spec)
		}
		specs = append(specs, spec)
	}
	return specs
}

// WaitsForReady reports the effective waitReady setting.
func (c SmokectlConfig) WaitsForReady() bool {
	return c.WaitReady != nil && *c.WaitReady
}

func (o ComponentOverride) apply(spec components.CheckSpec) components.CheckSpec {
	if o.LabelSelector != nil {
		spec.LabelSelector = *o.LabelSelector
	}
	if o.PreferredPort != nil {
		spec.PreferredPort = *o.PreferredPort
	}
	if o.FallbackService != "" {
		spec.Fallback.ServiceName = o.FallbackService
	}
	if o.FallbackPort != 0 {
		spec.Fallback.Port = o.FallbackPort
	}
	if o.HealthPath != "" {
		spec.HealthPath = o.HealthPath
	}
	return spec
}
