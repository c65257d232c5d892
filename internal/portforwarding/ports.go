package portforwarding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"smokectl/pkg/logging"
)

// FreePort asks the kernel for an unused loopback port and releases it
// again, so the caller can hand it to a forwarder.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(LocalHost, "0"))
	if err != nil {
		return 0, fmt.Errorf("allocating local port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForListener polls addr every interval until it accepts a TCP
// connection, the session ends, or timeout elapses.
func waitForListener(ctx context.Context, s Session, addr string, interval, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		select {
		case <-s.Done():
			return false, exitError(s)
		default:
		}
		d := net.Dialer{Timeout: interval}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false, nil
		}
		conn.Close()
		return true, nil
	})
}

// exitError describes an ended session even when it ended without error.
func exitError(s Session) error {
	if err := s.Err(); err != nil {
		return fmt.Errorf("forward exited: %w", err)
	}
	return errors.New("forward exited")
}

// lineLogger forwards output from a forward backend to the debug log,
// one record per line.
type lineLogger struct {
	subsystem string
}

func (w lineLogger) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSuffix(string(p), "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			logging.Debug(w.subsystem, "%s", line)
		}
	}
	return len(p), nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

func portPair(local, remote int) string {
	return strconv.Itoa(local) + ":" + strconv.Itoa(remote)
}
