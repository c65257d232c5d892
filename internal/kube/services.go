package kube

import (
	"context"
	"fmt"

	"smokectl/pkg/logging"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
)

// ServiceLister lists the services of a namespace matching a label selector.
type ServiceLister interface {
	ListServices(ctx context.Context, namespace, labelSelector string) ([]ServiceDescriptor, error)
}

// ClientGoLister lists services through the Kubernetes API.
type ClientGoLister struct {
	clientset kubernetes.Interface
}

// NewClientGoLister returns a lister backed by clientset.
func NewClientGoLister(clientset kubernetes.Interface) *ClientGoLister {
	return &ClientGoLister{clientset: clientset}
}

// ListServices implements ServiceLister.
func (l *ClientGoLister) ListServices(ctx context.Context, namespace, labelSelector string) ([]ServiceDescriptor, error) {
	subsystem := "KubeListServices-" + namespace

	selector, err := labels.Parse(labelSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid label selector %q: %w", ErrQuery, labelSelector, err)
	}

	logging.Debug(subsystem, "Listing services with selector %q", selector.String())
	list, err := l.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		return nil, classifyAPIError(err, fmt.Sprintf("listing services in %q", namespace))
	}

	descriptors := make([]ServiceDescriptor, 0, len(list.Items))
	for i := range list.Items {
		descriptors = append(descriptors, descriptorFromService(&list.Items[i]))
	}
	logging.Debug(subsystem, "Selector %q matched %d service(s)", labelSelector, len(descriptors))
	return descriptors, nil
}
