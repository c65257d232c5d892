package kube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"smokectl/pkg/logging"
)

// KubectlTimeout bounds a single kubectl invocation.
const KubectlTimeout = 30 * time.Second

// KubectlBinary returns the kubectl binary to use, honouring $KUBECTL.
func KubectlBinary() string {
	if bin := os.Getenv("KUBECTL"); bin != "" {
		return bin
	}
	return "kubectl"
}

// CommandRunner runs a command and returns its stdout and stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

// RunCommand is the default CommandRunner.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	err := cmd.Run()
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), err
}

// KubectlLister lists services by running `kubectl get svc -o json`.
type KubectlLister struct {
	Binary string
	Client ClientConfig
	Run    CommandRunner
}

// NewKubectlLister returns a lister invoking the kubectl binary from $KUBECTL.
func NewKubectlLister(client ClientConfig) *KubectlLister {
	return &KubectlLister{
		Binary: KubectlBinary(),
		Client: client,
		Run:    RunCommand,
	}
}

// GlobalArgs returns the kubectl flags selecting kubeconfig, context and namespace.
func (c ClientConfig) GlobalArgs(namespace string) []string {
	var args []string
	if c.KubeconfigPath != "" {
		args = append(args, "--kubeconfig", c.KubeconfigPath)
	}
	if c.Context != "" {
		args = append(args, "--context", c.Context)
	}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	return args
}

// ListServices implements ServiceLister.
func (l *KubectlLister) ListServices(ctx context.Context, namespace, labelSelector string) ([]ServiceDescriptor, error) {
	subsystem := "KubectlListServices-" + namespace

	args := l.Client.GlobalArgs(namespace)
	args = append(args, "get", "svc")
	if labelSelector != "" {
		args = append(args, "-l", labelSelector)
	}
	args = append(args, "-o", "json")

	ctx, cancel := context.WithTimeout(ctx, KubectlTimeout)
	defer cancel()

	logging.Debug(subsystem, "exec: %s %s", l.Binary, strings.Join(args, " "))
	stdout, stderr, err := l.Run(ctx, l.Binary, args...)
	if err != nil {
		stderrStr := strings.TrimSpace(string(stderr))
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil && !isConnectionFailure(stderrStr) {
			return nil, fmt.Errorf("%w: kubectl get svc failed: %w. Stderr: %s", ErrQuery, err, stderrStr)
		}
		return nil, fmt.Errorf("%w: kubectl get svc failed: %w. Stderr: %s", ErrClusterUnreachable, err, stderrStr)
	}

	descriptors, err := DecodeServiceList(stdout)
	if err != nil {
		return nil, err
	}
	logging.Debug(subsystem, "Selector %q matched %d service(s)", labelSelector, len(descriptors))
	return descriptors, nil
}

// isConnectionFailure recognises kubectl's messages for an unreachable API server.
func isConnectionFailure(stderr string) bool {
	for _, marker := range []string{
		"Unable to connect to the server",
		"connection refused",
		"no such host",
		"i/o timeout",
		"dial tcp",
	} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

type kubectlServiceList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Spec struct {
			ClusterIP string `json:"clusterIP"`
			Ports     []struct {
				Name string `json:"name"`
				Port *int   `json:"port"`
			} `json:"ports"`
		} `json:"spec"`
	} `json:"items"`
}

// DecodeServiceList decodes the output of `kubectl get svc -o json`. Empty
// output is treated as an empty list.
func DecodeServiceList(data []byte) ([]ServiceDescriptor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []ServiceDescriptor{}, nil
	}

	var list kubectlServiceList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to parse service list: %w", ErrQuery, err)
	}

	descriptors := make([]ServiceDescriptor, 0, len(list.Items))
	for i, item := range list.Items {
		if item.Metadata.Name == "" {
			return nil, fmt.Errorf("%w: service list item %d has no metadata.name", ErrQuery, i)
		}
		desc := ServiceDescriptor{
			Name:     item.Metadata.Name,
			Headless: item.Spec.ClusterIP == "None",
		}
		for _, p := range item.Spec.Ports {
			if p.Port == nil {
				return nil, fmt.Errorf("%w: service %q declares a port without a number", ErrQuery, item.Metadata.Name)
			}
			desc.Ports = append(desc.Ports, ServicePort{Number: *p.Port, Name: p.Name})
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}
