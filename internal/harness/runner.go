package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"smokectl/internal/components"
	"smokectl/internal/discovery"
	"smokectl/internal/kube"
	"smokectl/internal/portforwarding"
	"smokectl/internal/probe"
	"smokectl/internal/retry"
	"smokectl/pkg/logging"
)

// ErrComponentPanic marks a check that crashed.
var ErrComponentPanic = errors.New("component check panicked")

// TunnelOpener runs fn against a temporary local forward to a service.
type TunnelOpener interface {
	WithTunnel(ctx context.Context, namespace, service string, remotePort int, fn func(t portforwarding.Tunnel) error) error
}

// ProberFactory builds the prober for a probe kind and health path.
type ProberFactory func(kind probe.Kind, path string) (probe.Prober, error)

// DefaultProbers returns a ProberFactory using probe.New with timeout.
func DefaultProbers(timeout time.Duration) ProberFactory {
	return func(kind probe.Kind, path string) (probe.Prober, error) {
		return probe.New(kind, path, timeout)
	}
}

// Runner checks components one after another.
type Runner struct {
	Lister   kube.ServiceLister
	Tunnels  TunnelOpener
	Probers  ProberFactory
	Retry    *retry.Orchestrator
	Interval time.Duration
}

// NewRunner wires a Runner on the wall clock.
func NewRunner(lister kube.ServiceLister, tunnels TunnelOpener, probers ProberFactory, interval time.Duration) *Runner {
	return &Runner{
		Lister:   lister,
		Tunnels:  tunnels,
		Probers:  probers,
		Retry:    retry.New(),
		Interval: interval,
	}
}

// Run checks every spec in order and always returns a complete report.
// A failing or crashing component never stops the ones after it.
func (r *Runner) Run(ctx context.Context, specs []components.CheckSpec, namespace string, timeout time.Duration) RunReport {
	report := RunReport{AllPassed: true}
	for _, spec := range specs {
		logging.Info("Harness", "--- Testing %s ---", spec.Name)
		res := r.Check(ctx, spec, namespace, timeout)
		report.Results = append(report.Results, res)
		report.AllPassed = report.AllPassed && res.Passed
	}
	return report
}

// Check evaluates a single component.
func (r *Runner) Check(ctx context.Context, spec components.CheckSpec, namespace string, timeout time.Duration) (res CheckResult) {
	subsystem := "Harness-" + spec.Name
	start := r.Retry.Clock.Now()
	res.Component = spec.Name

	defer func() {
		if rec := recover(); rec != nil {
			res.Passed = false
			res.Err = fmt.Errorf("%w: %v", ErrComponentPanic, rec)
			logging.Error(subsystem, res.Err, "Unexpected error")
		}
		res.Duration = r.Retry.Clock.Since(start)
		if res.Passed {
			logging.Info(subsystem, "[%s] %s", spec.Name, res.Status())
		} else {
			logging.Error(subsystem, res.Err, "[%s] %s", spec.Name, res.Status())
		}
	}()

	target, discovered, discoveryErr := r.resolve(ctx, spec, namespace)
	res.Target, res.Discovered = target, discovered
	if discovered {
		logging.Info(subsystem, "Discovered service %s", target)
	} else {
		logging.Info(subsystem, "Using service %s", target)
	}

	prober, err := r.Probers(spec.Probe, spec.HealthPath)
	if err != nil {
		res.Err = err
		return res
	}

	out := r.Retry.Until(ctx, spec.Name, timeout, r.Interval, func(ctx context.Context) error {
		return r.Tunnels.WithTunnel(ctx, namespace, target.ServiceName, target.Port, func(t portforwarding.Tunnel) error {
			err := prober.Probe(ctx, t.Host, t.LocalPort)
			var statusErr *probe.StatusError
			if errors.As(err, &statusErr) {
				logging.Warn(subsystem, "Unexpected status %d from %s", statusErr.StatusCode, spec.HealthPath)
			}
			return err
		})
	})

	res.Passed = out.Passed
	res.Attempts = out.Attempts
	if !out.Passed {
		res.Err = multierr.Append(discoveryErr, out.LastErr)
	}
	return res
}

// resolve discovers the target of spec. Discovery is best effort: errors
// are logged and returned alongside the fallback target.
func (r *Runner) resolve(ctx context.Context, spec components.CheckSpec, namespace string) (discovery.Target, bool, error) {
	if !spec.Discovers() {
		target, _ := discovery.ResolveOrFallback(nil, spec.PreferredPort, spec.Fallback)
		return target, false, nil
	}

	descriptors, err := r.Lister.ListServices(ctx, namespace, spec.LabelSelector)
	if err != nil {
		logging.WarnErr("Harness-"+spec.Name, err, "Service discovery for %q failed, falling back to %s", spec.LabelSelector, spec.Fallback.ServiceName)
		target, _ := discovery.ResolveOrFallback(nil, spec.PreferredPort, spec.Fallback)
		return target, false, fmt.Errorf("discovering %s: %w", spec.Name, err)
	}

	target, discovered := discovery.ResolveOrFallback(descriptors, spec.PreferredPort, spec.Fallback)
	return target, discovered, nil
}
