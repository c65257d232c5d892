package kube

import (
	corev1 "k8s.io/api/core/v1"
)

// ServicePort is a single port declared on a service.
type ServicePort struct {
	Number int
	Name   string
}

// ServiceDescriptor is the point-in-time view of a service used for target
// resolution. Descriptors are never modified after construction.
type ServiceDescriptor struct {
	Name     string
	Headless bool
	Ports    []ServicePort
}

// HasPorts reports whether the service declares at least one port.
func (d ServiceDescriptor) HasPorts() bool {
	return len(d.Ports) > 0
}

// descriptorFromService projects a core/v1 Service onto a ServiceDescriptor.
func descriptorFromService(svc *corev1.Service) ServiceDescriptor {
	desc := ServiceDescriptor{
		Name:     svc.Name,
		Headless: svc.Spec.ClusterIP == corev1.ClusterIPNone,
	}
	for _, p := range svc.Spec.Ports {
		desc.Ports = append(desc.Ports, ServicePort{Number: int(p.Port), Name: p.Name})
	}
	return desc
}
