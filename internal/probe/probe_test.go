package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"tcp": KindTCP, "HTTP": KindHTTP, " https ": KindHTTPS} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("grpc")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	p, err := New(KindTCP, "/ignored", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &TCP{}, p)

	p, err = New(KindHTTPS, "/minio/health/live", 0)
	require.NoError(t, err)
	if assert.IsType(t, &HTTP{}, p) {
		assert.True(t, p.(*HTTP).TLS)
	}

	_, err = New(Kind("udp"), "", 0)
	assert.Error(t, err)
}

func TestTCP_Probe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port

	p := &TCP{Timeout: time.Second}
	assert.NoError(t, p.Probe(context.Background(), "127.0.0.1", port))

	require.NoError(t, l.Close())
	assert.Error(t, p.Probe(context.Background(), "127.0.0.1", port))
}

func TestHTTP_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			w.WriteHeader(http.StatusOK)
		case "/redirect":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()
	host, port := hostPort(t, srv.URL)

	ok := &HTTP{Path: "/status", Timeout: time.Second}
	assert.NoError(t, ok.Probe(context.Background(), host, port))

	unavailable := &HTTP{Path: "/other", Timeout: time.Second}
	err := unavailable.Probe(context.Background(), host, port)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	var statusErr *StatusError
	if assert.ErrorAs(t, err, &statusErr) {
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	}

	// Only 200 counts as healthy.
	noContent := &HTTP{Path: "redirect", Timeout: time.Second}
	assert.ErrorIs(t, noContent.Probe(context.Background(), host, port), ErrUnexpectedStatus)
}

func TestHTTPS_ProbeAcceptsSelfSignedCertificates(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/minio/health/live" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	host, port := hostPort(t, srv.URL)

	p, err := New(KindHTTPS, "/minio/health/live", time.Second)
	require.NoError(t, err)
	assert.NoError(t, p.Probe(context.Background(), host, port))

	// Plain HTTP against a TLS listener is a failure, not a pass.
	plain := &HTTP{Path: "/minio/health/live", Timeout: time.Second}
	assert.Error(t, plain.Probe(context.Background(), host, port))
}

func TestHTTP_ProbeConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	p := &HTTP{Path: "/status", Timeout: time.Second}
	err = p.Probe(context.Background(), "127.0.0.1", port)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnexpectedStatus)
}

func TestHTTP_URL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/status", (&HTTP{Path: "/status"}).URL("localhost", 8080))
	assert.Equal(t, "https://localhost:443/", (&HTTP{TLS: true}).URL("localhost", 443))
}
