package portforwarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smokectl/pkg/logging"
)

const (
	DefaultGracePeriod     = 2 * time.Second
	DefaultTeardownTimeout = 5 * time.Second

	readyPollInterval = 100 * time.Millisecond
)

// freePortFn is a seam for tests.
var freePortFn = FreePort

// Manager opens one tunnel per WithTunnel call.
type Manager struct {
	Forwarder Forwarder
	// GracePeriod is the fixed wait after start, or the readiness poll
	// bound when WaitReady is set. Zero means DefaultGracePeriod.
	GracePeriod time.Duration
	WaitReady   bool
	// TeardownTimeout is how long Stop waits before forcing. Zero means
	// DefaultTeardownTimeout.
	TeardownTimeout time.Duration
}

// NewManager returns a Manager with default timings.
func NewManager(f Forwarder) *Manager {
	return &Manager{Forwarder: f}
}

// WithTunnel forwards a free local port to service:remotePort, runs fn
// against it and tears the forward down before returning, also when fn
// fails or panics. fn's error is returned unchanged.
func (m *Manager) WithTunnel(ctx context.Context, namespace, service string, remotePort int, fn func(t Tunnel) error) error {
	subsystem := "Tunnel-" + service

	localPort, err := freePortFn()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTunnelSetup, err)
	}

	req := Request{Namespace: namespace, Service: service, LocalPort: localPort, RemotePort: remotePort}
	session, err := m.Forwarder.Start(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrTunnelSetup) {
			err = fmt.Errorf("%w: %w", ErrTunnelSetup, err)
		}
		return err
	}
	defer func() {
		if stopErr := session.Stop(m.teardownTimeout()); stopErr != nil {
			logging.WarnErr(subsystem, stopErr, "Tunnel %s did not shut down cleanly", req)
		} else {
			logging.Debug(subsystem, "Tunnel %s closed", req)
		}
	}()

	if err := m.awaitReady(ctx, session, req); err != nil {
		return err
	}
	logging.Debug(subsystem, "Tunnel %s ready", req)

	return fn(Tunnel{
		Host:        LocalHost,
		LocalPort:   localPort,
		RemotePort:  remotePort,
		ServiceName: service,
	})
}

func (m *Manager) awaitReady(ctx context.Context, s Session, req Request) error {
	grace := m.gracePeriod()

	if m.WaitReady {
		addr := Tunnel{Host: LocalHost, LocalPort: req.LocalPort}.Address()
		if err := waitForListener(ctx, s, addr, readyPollInterval, grace); err != nil {
			return fmt.Errorf("%w: %s not accepting connections: %w", ErrTunnelSetup, addr, err)
		}
		return nil
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-s.Done():
		return fmt.Errorf("%w: %s: %w", ErrTunnelSetup, req, exitError(s))
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTunnelSetup, ctx.Err())
	}
}

func (m *Manager) gracePeriod() time.Duration {
	if m.GracePeriod > 0 {
		return m.GracePeriod
	}
	return DefaultGracePeriod
}

func (m *Manager) teardownTimeout() time.Duration {
	if m.TeardownTimeout > 0 {
		return m.TeardownTimeout
	}
	return DefaultTeardownTimeout
}
