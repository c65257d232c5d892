package portforwarding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// LocalHost is the only address tunnels listen on.
const LocalHost = "127.0.0.1"

var (
	// ErrTunnelSetup means a forward could not be started or never became usable.
	ErrTunnelSetup = errors.New("tunnel setup failed")
	// ErrTunnelTeardown means a forward did not stop cleanly.
	ErrTunnelTeardown = errors.New("tunnel teardown failed")
)

// Request describes a single forward from a local port to a service port.
type Request struct {
	Namespace  string
	Service    string
	LocalPort  int
	RemotePort int
}

func (r Request) String() string {
	return fmt.Sprintf("%s:%d -> %s/%s:%d", LocalHost, r.LocalPort, r.Namespace, r.Service, r.RemotePort)
}

// Forwarder starts forwards. Start returns once the forward has been
// launched; it does not wait for readiness.
type Forwarder interface {
	Start(ctx context.Context, req Request) (Session, error)
}

// Session is a running forward.
type Session interface {
	// Done is closed once the forward has terminated.
	Done() <-chan struct{}
	// Err reports why the forward terminated. It is nil while running.
	Err() error
	// Stop terminates the forward, waiting at most timeout for it to exit
	// before forcing it.
	Stop(timeout time.Duration) error
}

// Tunnel is the local endpoint handed to WithTunnel callbacks.
type Tunnel struct {
	Host        string
	LocalPort   int
	RemotePort  int
	ServiceName string
}

// Address returns host:port of the local end.
func (t Tunnel) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.LocalPort))
}
