package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Forwarder backends.
const (
	ForwarderKubectl  = "kubectl"
	ForwarderClientGo = "client-go"
)

// Discovery backends.
const (
	DiscoveryClientGo = "client-go"
	DiscoveryKubectl  = "kubectl"
)

// SmokectlConfig is the top-level configuration structure for smokectl.
type SmokectlConfig struct {
	Timeout         Duration `yaml:"timeout,omitempty"`
	Interval        Duration `yaml:"interval,omitempty"`
	GracePeriod     Duration `yaml:"gracePeriod,omitempty"`
	TeardownTimeout Duration `yaml:"teardownTimeout,omitempty"`
	ProbeTimeout    Duration `yaml:"probeTimeout,omitempty"`
	WaitReady       *bool    `yaml:"waitReady,omitempty"`
	Forwarder       string   `yaml:"forwarder,omitempty"`
	Discovery       string   `yaml:"discovery,omitempty"`

	// Components refines built-in component checks, keyed by component name.
	Components map[string]ComponentOverride `yaml:"components,omitempty"`
}

// ComponentOverride replaces individual fields of a built-in check.
// LabelSelector is a pointer so that an explicit empty selector can turn
// discovery off.
type ComponentOverride struct {
	LabelSelector   *string `yaml:"labelSelector,omitempty"`
	PreferredPort   *int    `yaml:"preferredPort,omitempty"`
	FallbackService string  `yaml:"fallbackService,omitempty"`
	FallbackPort    int     `yaml:"fallbackPort,omitempty"`
	HealthPath      string  `yaml:"healthPath,omitempty"`
}

// Duration accepts either a bare number of seconds or a Go duration string.
type Duration time.Duration

// Seconds builds a Duration from whole seconds.
func Seconds(n int) Duration {
	return Duration(time.Duration(n) * time.Second)
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be seconds or a duration string", value.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
