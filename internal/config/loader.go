package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/labels"

	"smokectl/internal/components"
	"smokectl/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/smokectl"
	projectConfigDir = ".smokectl"
	configFileName   = "config.yaml"
)

// ErrInvalidConfig wraps every validation problem.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig layers default, user, project and, when explicitPath is not
// empty, explicit settings and validates the result.
func LoadConfig(explicitPath string) (SmokectlConfig, error) {
	config := DefaultConfig()

	for _, layer := range []struct {
		name string
		path func() (string, error)
	}{
		{"user", getUserConfigPath},
		{"project", getProjectConfigPath},
	} {
		path, err := layer.path()
		if err != nil {
			// Optional layer, keep going without it.
			logging.Warn("Config", "Could not determine %s config path: %v", layer.name, err)
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		overlay, err := loadConfigFromFile(path)
		if err != nil {
			return SmokectlConfig{}, fmt.Errorf("error loading %s config from %s: %w", layer.name, path, err)
		}
		logging.Debug("Config", "Loaded %s config from %s", layer.name, path)
		config = mergeConfigs(config, overlay)
	}

	if explicitPath != "" {
		overlay, err := loadConfigFromFile(explicitPath)
		if err != nil {
			return SmokectlConfig{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
		logging.Debug("Config", "Loaded config from %s", explicitPath)
		config = mergeConfigs(config, overlay)
	}

	if err := config.Validate(); err != nil {
		return SmokectlConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a SmokectlConfig from a YAML file. Unknown keys
// are rejected so typos do not pass silently.
func loadConfigFromFile(filePath string) (SmokectlConfig, error) {
	var config SmokectlConfig
	f, err := os.Open(filePath)
	if err != nil {
		return SmokectlConfig{}, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return SmokectlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
func mergeConfigs(base, overlay SmokectlConfig) SmokectlConfig {
	merged := base

	if overlay.Timeout != 0 {
		merged.Timeout = overlay.Timeout
	}
	if overlay.Interval != 0 {
		merged.Interval = overlay.Interval
	}
	if overlay.GracePeriod != 0 {
		merged.GracePeriod = overlay.GracePeriod
	}
	if overlay.TeardownTimeout != 0 {
		merged.TeardownTimeout = overlay.TeardownTimeout
	}
	if overlay.ProbeTimeout != 0 {
		merged.ProbeTimeout = overlay.ProbeTimeout
	}
	if overlay.WaitReady != nil {
		merged.WaitReady = overlay.WaitReady
	}
	if overlay.Forwarder != "" {
		merged.Forwarder = overlay.Forwarder
	}
	if overlay.Discovery != "" {
		merged.Discovery = overlay.Discovery
	}

	merged.Components = make(map[string]ComponentOverride, len(base.Components)+len(overlay.Components))
	for name, o := range base.Components {
		merged.Components[name] = o
	}
	for name, o := range overlay.Components {
		merged.Components[name] = mergeOverride(merged.Components[name], o)
	}

	return merged
}

func mergeOverride(base, overlay ComponentOverride) ComponentOverride {
	if overlay.LabelSelector != nil {
		base.LabelSelector = overlay.LabelSelector
	}
	if overlay.PreferredPort != nil {
		base.PreferredPort = overlay.PreferredPort
	}
	if overlay.FallbackService != "" {
		base.FallbackService = overlay.FallbackService
	}
	if overlay.FallbackPort != 0 {
		base.FallbackPort = overlay.FallbackPort
	}
	if overlay.HealthPath != "" {
		base.HealthPath = overlay.HealthPath
	}
	return base
}

// Validate reports every problem found, not just the first.
func (c SmokectlConfig) Validate() error {
	var errs error

	for _, d := range []struct {
		name  string
		value Duration
	}{
		{"timeout", c.Timeout},
		{"interval", c.Interval},
		{"gracePeriod", c.GracePeriod},
		{"teardownTimeout", c.TeardownTimeout},
		{"probeTimeout", c.ProbeTimeout},
	} {
		if d.value <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}

	switch c.Forwarder {
	case ForwarderKubectl, ForwarderClientGo:
	default:
		errs = multierr.Append(errs, fmt.Errorf("forwarder must be %q or %q, got %q", ForwarderKubectl, ForwarderClientGo, c.Forwarder))
	}
	switch c.Discovery {
	case DiscoveryClientGo, DiscoveryKubectl:
	default:
		errs = multierr.Append(errs, fmt.Errorf("discovery must be %q or %q, got %q", DiscoveryClientGo, DiscoveryKubectl, c.Discovery))
	}

	names := make([]string, 0, len(c.Components))
	for name := range c.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o := c.Components[name]
		if _, err := components.ParseKind(name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("components: %w", err))
			continue
		}
		errs = multierr.Append(errs, o.validate(name))
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}

func (o ComponentOverride) validate(name string) error {
	var errs error
	if o.LabelSelector != nil && *o.LabelSelector != "" {
		if _, err := labels.Parse(*o.LabelSelector); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("components.%s.labelSelector: %w", name, err))
		}
	}
	if o.PreferredPort != nil && !validPort(*o.PreferredPort, true) {
		errs = multierr.Append(errs, fmt.Errorf("components.%s.preferredPort: %d out of range", name, *o.PreferredPort))
	}
	if o.FallbackPort != 0 && !validPort(o.FallbackPort, false) {
		errs = multierr.Append(errs, fmt.Errorf("components.%s.fallbackPort: %d out of range", name, o.FallbackPort))
	}
	if o.HealthPath != "" && !strings.HasPrefix(o.HealthPath, "/") {
		errs = multierr.Append(errs, fmt.Errorf("components.%s.healthPath: %q must start with /", name, o.HealthPath))
	}
	return errs
}

func validPort(p int, allowZero bool) bool {
	if p == 0 {
		return allowZero
	}
	return p > 0 && p <= 65535
}
