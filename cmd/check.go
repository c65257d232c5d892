package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"smokectl/internal/components"
	"smokectl/internal/config"
	"smokectl/internal/harness"
	"smokectl/internal/kube"
	"smokectl/internal/portforwarding"
	"smokectl/internal/reporting"
	"smokectl/pkg/logging"
)

// checkOptions holds the root command's flags.
type checkOptions struct {
	kubeconfig  string
	kubeContext string
	configPath  string
	components  []string
	timeout     int
	interval    int
	grace       int
	waitReady   bool
	forwarder   string
	discovery   string
	metricsFile string
	debug       bool
}

func (o *checkOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file (defaults to $KUBECONFIG, then ~/.kube/config)")
	f.StringVar(&o.kubeContext, "context", "", "Kubeconfig context to use instead of the current one")
	f.StringVar(&o.configPath, "config", "", "Additional configuration file, applied after the user and project config")
	f.StringSliceVar(&o.components, "components", nil, fmt.Sprintf("Components to check, repeatable or comma separated (default all: %s)", strings.Join(components.Names(), ", ")))
	f.IntVar(&o.timeout, "timeout", int(config.DefaultTimeout.Seconds()), "Per-component timeout in seconds")
	f.IntVar(&o.interval, "interval", int(config.DefaultInterval.Seconds()), "Pause between probe attempts in seconds")
	f.IntVar(&o.grace, "grace", int(config.DefaultGracePeriod.Seconds()), "Seconds to give a new port-forward before probing")
	f.BoolVar(&o.waitReady, "wait-ready", false, "Poll the forwarded port until it accepts connections instead of sleeping for the grace period")
	f.StringVar(&o.forwarder, "forwarder", "", "Port-forward backend: kubectl or client-go (default kubectl)")
	f.StringVar(&o.discovery, "discovery", "", "Service discovery backend: client-go or kubectl (default client-go)")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics for the run to this path")
	cmd.PersistentFlags().BoolVar(&o.debug, "debug", false, "Enable debug logging")
}

// apply overlays the flags the user actually set onto cfg.
func (o *checkOptions) apply(cmd *cobra.Command, cfg config.SmokectlConfig) config.SmokectlConfig {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = config.Seconds(o.timeout)
	}
	if flags.Changed("interval") {
		cfg.Interval = config.Seconds(o.interval)
	}
	if flags.Changed("grace") {
		cfg.GracePeriod = config.Seconds(o.grace)
	}
	if flags.Changed("wait-ready") {
		waitReady := o.waitReady
		cfg.WaitReady = &waitReady
	}
	if flags.Changed("forwarder") {
		cfg.Forwarder = o.forwarder
	}
	if flags.Changed("discovery") {
		cfg.Discovery = o.discovery
	}
	return cfg
}

func (o *checkOptions) clientConfig() kube.ClientConfig {
	return kube.ClientConfig{KubeconfigPath: o.kubeconfig, Context: o.kubeContext}
}

// buildRunner assembles the harness for cfg. Replaced in tests.
var buildRunner = func(cfg config.SmokectlConfig, client kube.ClientConfig) *harness.Runner {
	var (
		clientset  kubernetes.Interface
		restConfig *rest.Config
		clientErr  error
	)
	if cfg.Discovery == config.DiscoveryClientGo || cfg.Forwarder == config.ForwarderClientGo {
		clientset, restConfig, clientErr = kube.NewClientset(client)
		if clientErr != nil {
			logging.Error("Smokectl", clientErr, "Cannot reach the cluster, every check using client-go will fail")
		}
	}

	var lister kube.ServiceLister
	switch {
	case cfg.Discovery == config.DiscoveryKubectl:
		lister = kube.NewKubectlLister(client)
	case clientErr != nil:
		lister = unreachableCluster{err: clientErr}
	default:
		lister = kube.NewClientGoLister(clientset)
	}

	var forwarder portforwarding.Forwarder
	switch {
	case cfg.Forwarder != config.ForwarderClientGo:
		forwarder = portforwarding.NewKubectlForwarder(client)
	case clientErr != nil:
		forwarder = unreachableCluster{err: clientErr}
	default:
		forwarder = portforwarding.NewClientGoForwarder(clientset, restConfig)
	}

	tunnels := portforwarding.NewManager(forwarder)
	tunnels.GracePeriod = cfg.GracePeriod.Std()
	tunnels.WaitReady = cfg.WaitsForReady()
	tunnels.TeardownTimeout = cfg.TeardownTimeout.Std()

	return harness.NewRunner(lister, tunnels, harness.DefaultProbers(cfg.ProbeTimeout.Std()), cfg.Interval.Std())
}

// unreachableCluster stands in for client-go backends when no client could
// be built, so the run still produces a result per component.
type unreachableCluster struct {
	err error
}

func (u unreachableCluster) ListServices(context.Context, string, string) ([]kube.ServiceDescriptor, error) {
	return nil, u.err
}

func (u unreachableCluster) Start(context.Context, portforwarding.Request) (portforwarding.Session, error) {
	return nil, fmt.Errorf("%w: %w", portforwarding.ErrTunnelSetup, u.err)
}

// loadCheckConfig resolves the effective configuration from files and flags.
func loadCheckConfig(cmd *cobra.Command, opts *checkOptions) (config.SmokectlConfig, []components.Kind, error) {
	kinds, err := components.Select(opts.components)
	if err != nil {
		return config.SmokectlConfig{}, nil, err
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return config.SmokectlConfig{}, nil, err
	}
	cfg = opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return config.SmokectlConfig{}, nil, err
	}
	return cfg, kinds, nil
}

func runChecks(cmd *cobra.Command, opts *checkOptions, namespace string) error {
	cfg, kinds, err := loadCheckConfig(cmd, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	specs := cfg.Specs(kinds)
	logging.Info("Smokectl", "Checking %d component(s) in namespace %s (timeout %s each)", len(specs), namespace, cfg.Timeout)

	runner := buildRunner(cfg, opts.clientConfig())
	report := runner.Run(ctx, specs, namespace, cfg.Timeout.Std())

	if err := reporting.NewConsoleReporter(cmd.OutOrStdout()).Summary(report); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	if opts.metricsFile != "" {
		if err := reporting.WriteMetricsFile(opts.metricsFile, namespace, report, time.Now()); err != nil {
			logging.WarnErr("Smokectl", err, "Metrics were not exported")
		} else {
			logging.Debug("Smokectl", "Wrote metrics to %s", opts.metricsFile)
		}
	}

	if ctx.Err() != nil {
		logging.Warn("Smokectl", "Run was interrupted")
	}
	if !report.AllPassed {
		return ErrChecksFailed
	}
	return nil
}
