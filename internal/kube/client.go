package kube

import (
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth" // Important for various auth providers
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// DefaultRequestTimeout bounds every API request made through clients built
// by this package.
const DefaultRequestTimeout = 15 * time.Second

// ClientConfig identifies the cluster to talk to.
type ClientConfig struct {
	// KubeconfigPath is an explicit kubeconfig file. When empty the standard
	// loading rules apply ($KUBECONFIG, then ~/.kube/config).
	KubeconfigPath string
	// Context overrides the kubeconfig's current context when set.
	Context string
}

// RESTConfig loads the REST configuration for cfg.
func RESTConfig(cfg ClientConfig) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.KubeconfigPath != "" {
		loadingRules.ExplicitPath = cfg.KubeconfigPath
	}
	configOverrides := &clientcmd.ConfigOverrides{CurrentContext: cfg.Context}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, configOverrides)

	restConfig, err := kubeConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get REST config (kubeconfig %q, context %q): %w",
			ErrClusterUnreachable, cfg.KubeconfigPath, cfg.Context, err)
	}
	restConfig.Timeout = DefaultRequestTimeout
	return restConfig, nil
}

// NewClientset creates a Kubernetes clientset for cfg.
func NewClientset(cfg ClientConfig) (kubernetes.Interface, *rest.Config, error) {
	restConfig, err := RESTConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to create Kubernetes clientset: %w", ErrClusterUnreachable, err)
	}
	return clientset, restConfig, nil
}
