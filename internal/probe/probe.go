// Package probe holds the single-attempt liveness checks run through a
// tunnel. A probe never retries; callers decide what a failure means.
package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single probe attempt.
const DefaultTimeout = 5 * time.Second

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned %d", e.URL, e.StatusCode)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Kind selects a probe implementation.
type Kind string

const (
	KindTCP   Kind = "tcp"
	KindHTTP  Kind = "http"
	KindHTTPS Kind = "https"
)

// ParseKind parses a probe kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindTCP, KindHTTP, KindHTTPS:
		return k, nil
	default:
		return "", fmt.Errorf("unknown probe kind %q (want tcp, http or https)", s)
	}
}

// Prober checks a single endpoint once. A nil error means healthy.
type Prober interface {
	Probe(ctx context.Context, host string, port int) error
}

// New returns the prober for kind. path is ignored for TCP.
func New(kind Kind, path string, timeout time.Duration) (Prober, error) {
	switch kind {
	case KindTCP:
		return &TCP{Timeout: timeout}, nil
	case KindHTTP:
		return &HTTP{Path: path, Timeout: timeout}, nil
	case KindHTTPS:
		return &HTTP{Path: path, Timeout: timeout, TLS: true}, nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q", kind)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// TCP succeeds when a TCP connection can be established.
type TCP struct {
	Timeout time.Duration
}

// Probe implements Prober.
func (p *TCP) Probe(ctx context.Context, host string, port int) error {
	dialer := &net.Dialer{Timeout: timeoutOrDefault(p.Timeout)}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn.Close()
}

// HTTP succeeds when GET on Path answers 200. With TLS set the request goes
// over HTTPS and the server certificate is not verified; target
// environments use self-signed certificates.
type HTTP struct {
	Path    string
	Timeout time.Duration
	TLS     bool
}

// URL returns the address probed for host and port.
func (p *HTTP) URL(host string, port int) string {
	scheme := "http"
	if p.TLS {
		scheme = "https"
	}
	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)), path)
}

func (p *HTTP) client() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true
	if p.TLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed targets
	}
	return &http.Client{
		Timeout:   timeoutOrDefault(p.Timeout),
		Transport: transport,
	}
}

// Probe implements Prober.
func (p *HTTP) Probe(ctx context.Context, host string, port int) error {
	url := p.URL(host, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client().Do(req)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}
