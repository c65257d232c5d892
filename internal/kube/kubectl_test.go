package kube

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rqliteServiceList = `{
  "apiVersion": "v1",
  "items": [
    {
      "metadata": {"name": "storagebox-rqlite-headless"},
      "spec": {"clusterIP": "None", "ports": [{"name": "http", "port": 4001}]}
    },
    {
      "metadata": {"name": "storagebox-rqlite"},
      "spec": {"clusterIP": "10.43.2.9", "ports": [{"name": "http", "port": 80}, {"name": "raft", "port": 4002}]}
    },
    {
      "metadata": {"name": "storagebox-rqlite-seeds"},
      "spec": {"clusterIP": "None"}
    }
  ],
  "kind": "List"
}`

func TestDecodeServiceList(t *testing.T) {
	got, err := DecodeServiceList([]byte(rqliteServiceList))
	require.NoError(t, err)

	assert.Equal(t, []ServiceDescriptor{
		{Name: "storagebox-rqlite-headless", Headless: true, Ports: []ServicePort{{Number: 4001, Name: "http"}}},
		{Name: "storagebox-rqlite", Headless: false, Ports: []ServicePort{{Number: 80, Name: "http"}, {Number: 4002, Name: "raft"}}},
		{Name: "storagebox-rqlite-seeds", Headless: true},
	}, got)
}

func TestDecodeServiceList_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "error: the server doesn't have a resource type"},
		{"missing name", `{"items":[{"metadata":{},"spec":{"clusterIP":"None"}}]}`},
		{"port without number", `{"items":[{"metadata":{"name":"x"},"spec":{"ports":[{"name":"http"}]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeServiceList([]byte(tt.data))
			assert.ErrorIs(t, err, ErrQuery)
		})
	}
}

func TestDecodeServiceList_EmptyOutput(t *testing.T) {
	got, err := DecodeServiceList([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKubectlLister_BuildsArguments(t *testing.T) {
	var gotName string
	var gotArgs []string
	lister := &KubectlLister{
		Binary: "kubectl-test",
		Client: ClientConfig{KubeconfigPath: "/tmp/kubeconfig", Context: "kind-storagebox"},
		Run: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			gotName = name
			gotArgs = args
			return []byte(`{"items":[]}`), nil, nil
		},
	}

	got, err := lister.ListServices(context.Background(), "storagebox", "app.kubernetes.io/name=nfs-server")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "kubectl-test", gotName)
	assert.Equal(t, []string{
		"--kubeconfig", "/tmp/kubeconfig",
		"--context", "kind-storagebox",
		"-n", "storagebox",
		"get", "svc",
		"-l", "app.kubernetes.io/name=nfs-server",
		"-o", "json",
	}, gotArgs)
}

func TestKubectlLister_ErrorClassification(t *testing.T) {
	exitErr := exitError(t)

	tests := []struct {
		name    string
		stderr  string
		err     error
		wantErr error
	}{
		{"unable to connect", "Unable to connect to the server: dial tcp 127.0.0.1:6443: connect: connection refused", exitErr, ErrClusterUnreachable},
		{"forbidden", `Error from server (Forbidden): services is forbidden`, exitErr, ErrQuery},
		{"binary missing", "", exec.ErrNotFound, ErrClusterUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &KubectlLister{
				Binary: "kubectl",
				Run: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
					return nil, []byte(tt.stderr), tt.err
				},
			}
			_, err := lister.ListServices(context.Background(), "storagebox", "app=x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKubectlBinary(t *testing.T) {
	t.Setenv("KUBECTL", "")
	assert.Equal(t, "kubectl", KubectlBinary())

	t.Setenv("KUBECTL", "/opt/bin/kubectl")
	assert.Equal(t, "/opt/bin/kubectl", KubectlBinary())
}

// exitError produces a real *exec.ExitError by running a command that fails.
func exitError(t *testing.T) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit 1").Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Skipf("cannot produce an exit error on this platform: %v", err)
	}
	return err
}
