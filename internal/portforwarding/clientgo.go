package portforwarding

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"

	"smokectl/internal/kube"
	"smokectl/pkg/logging"
)

// ClientGoForwarder forwards through the API server without a kubectl
// binary. Services are forwarded via one of their ready backing pods.
type ClientGoForwarder struct {
	Clientset  kubernetes.Interface
	RESTConfig *rest.Config
}

// NewClientGoForwarder returns a forwarder for the given cluster.
func NewClientGoForwarder(clientset kubernetes.Interface, restConfig *rest.Config) *ClientGoForwarder {
	return &ClientGoForwarder{Clientset: clientset, RESTConfig: restConfig}
}

func (f *ClientGoForwarder) Start(ctx context.Context, req Request) (Session, error) {
	subsystem := "PortForward-" + req.Service

	ep, err := kube.ResolveServicePod(ctx, f.Clientset, req.Namespace, req.Service, req.RemotePort)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTunnelSetup, err)
	}

	// POST https://<server>/api/v1/namespaces/<namespace>/pods/<pod>/portforward
	reqURL := f.Clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(req.Namespace).
		Name(ep.PodName).
		SubResource("portforward").
		URL()

	transport, upgrader, err := spdy.RoundTripperFor(f.RESTConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: creating SPDY round tripper: %w", ErrTunnelSetup, err)
	}
	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, reqURL)

	stopCh := make(chan struct{})
	readyCh := make(chan struct{})
	out := lineLogger{subsystem: subsystem}

	fw, err := portforward.NewOnAddresses(dialer, []string{LocalHost}, []string{portPair(req.LocalPort, ep.Port)}, stopCh, readyCh, out, out)
	if err != nil {
		return nil, fmt.Errorf("%w: creating port forwarder: %w", ErrTunnelSetup, err)
	}

	logging.Debug(subsystem, "Forwarding %s via pod %s port %d", req, ep.PodName, ep.Port)

	s := &streamSession{stop: stopCh, done: make(chan struct{})}
	go func() {
		s.err = fw.ForwardPorts()
		close(s.done)
	}()
	return s, nil
}

type streamSession struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error
}

func (s *streamSession) Done() <-chan struct{} { return s.done }

func (s *streamSession) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *streamSession) Stop(timeout time.Duration) error {
	s.stopOnce.Do(func() { close(s.stop) })

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: port forwarder still running %s after stop", ErrTunnelTeardown, timeout)
	}
}
