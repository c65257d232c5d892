package portforwarding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"smokectl/internal/kube"
	"smokectl/pkg/logging"
)

const (
	// stderrTail bounds how much kubectl stderr is kept for diagnostics.
	stderrTail = 4096
	// killWait bounds the wait for the process after SIGKILL.
	killWait = 2 * time.Second
	// pipeWaitDelay bounds output copying once kubectl has exited, so
	// orphaned children holding the pipes cannot block Wait.
	pipeWaitDelay = time.Second
)

// KubectlForwarder runs `kubectl port-forward` as a child process.
type KubectlForwarder struct {
	Binary string
	Client kube.ClientConfig
}

// NewKubectlForwarder returns a forwarder using the kubectl binary found
// via $KUBECTL or PATH.
func NewKubectlForwarder(client kube.ClientConfig) *KubectlForwarder {
	return &KubectlForwarder{Binary: kube.KubectlBinary(), Client: client}
}

// Args returns the kubectl arguments for req.
func (f *KubectlForwarder) Args(req Request) []string {
	args := f.Client.GlobalArgs(req.Namespace)
	return append(args, "port-forward", "svc/"+req.Service, portPair(req.LocalPort, req.RemotePort))
}

// Start launches kubectl. The process is not bound to ctx; it lives until
// Stop is called or it exits on its own.
func (f *KubectlForwarder) Start(_ context.Context, req Request) (Session, error) {
	subsystem := "PortForward-" + req.Service
	binary := f.Binary
	if binary == "" {
		binary = kube.KubectlBinary()
	}

	cmd := exec.Command(binary, f.Args(req)...)
	stderr := &tailBuffer{max: stderrTail}
	cmd.Stdout = lineLogger{subsystem: subsystem}
	cmd.Stderr = io.MultiWriter(stderr, lineLogger{subsystem: subsystem})
	cmd.WaitDelay = pipeWaitDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting %s: %w", ErrTunnelSetup, binary, err)
	}
	logging.Debug(subsystem, "Started %s (pid %d) for %s", binary, cmd.Process.Pid, req)

	s := &processSession{cmd: cmd, stderr: stderr, done: make(chan struct{})}
	go s.wait()
	return s, nil
}

type processSession struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	done   chan struct{}
	err    error
}

func (s *processSession) wait() {
	s.err = s.cmd.Wait()
	close(s.done)
}

func (s *processSession) Done() <-chan struct{} { return s.done }

func (s *processSession) Err() error {
	select {
	case <-s.done:
	default:
		return nil
	}
	tail := s.stderr.String()
	switch {
	case s.err != nil && tail != "":
		return fmt.Errorf("kubectl port-forward: %w: %s", s.err, tail)
	case s.err != nil:
		return fmt.Errorf("kubectl port-forward: %w", s.err)
	case tail != "":
		return fmt.Errorf("kubectl port-forward exited: %s", tail)
	default:
		return nil
	}
}

// Stop sends SIGTERM and escalates to SIGKILL after timeout.
func (s *processSession) Stop(timeout time.Duration) error {
	select {
	case <-s.done:
		return nil
	default:
	}

	pid := s.cmd.Process.Pid
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logging.Debug("PortForward", "SIGTERM to pid %d failed: %v", pid, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-timer.C:
	}

	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("%w: killing pid %d: %w", ErrTunnelTeardown, pid, err)
	}
	select {
	case <-s.done:
		return fmt.Errorf("%w: pid %d ignored SIGTERM for %s and was killed", ErrTunnelTeardown, pid, timeout)
	case <-time.After(killWait):
		return fmt.Errorf("%w: pid %d still running after SIGKILL", ErrTunnelTeardown, pid)
	}
}
