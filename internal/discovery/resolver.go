// Package discovery picks the service and port a component check should
// tunnel to, given the services a label selector matched.
package discovery

import (
	"fmt"

	"smokectl/internal/kube"
)

// Target is the single service/port pair chosen for one check attempt.
// Port is 0 when the chosen service declares no ports.
type Target struct {
	ServiceName string
	Port        int
}

// String renders the target as service:port.
func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.ServiceName, t.Port)
}

// Resolve selects one target from descriptors.
//
// Non-headless services win over headless ones. When every service is
// headless, those declaring ports are preferred. A preferredPort > 0 returns
// the first candidate exposing exactly that port; otherwise the first
// candidate and its first port are returned. The boolean is false when
// descriptors is empty.
func Resolve(descriptors []kube.ServiceDescriptor, preferredPort int) (Target, bool) {
	candidates := candidatesOf(descriptors)
	if len(candidates) == 0 {
		return Target{}, false
	}

	if preferredPort > 0 {
		for _, svc := range candidates {
			for _, p := range svc.Ports {
				if p.Number == preferredPort {
					return Target{ServiceName: svc.Name, Port: preferredPort}, true
				}
			}
		}
	}

	first := candidates[0]
	target := Target{ServiceName: first.Name}
	if first.HasPorts() {
		target.Port = first.Ports[0].Number
	}
	return target, true
}

func candidatesOf(descriptors []kube.ServiceDescriptor) []kube.ServiceDescriptor {
	var clusterIP, headlessWithPorts []kube.ServiceDescriptor
	for _, d := range descriptors {
		switch {
		case !d.Headless:
			clusterIP = append(clusterIP, d)
		case d.HasPorts():
			headlessWithPorts = append(headlessWithPorts, d)
		}
	}

	if len(clusterIP) > 0 {
		return clusterIP
	}
	if len(headlessWithPorts) > 0 {
		return headlessWithPorts
	}
	return descriptors
}

// Fallback is the static target used when label discovery finds nothing.
type Fallback struct {
	ServiceName string
	Port        int
}

// ResolveOrFallback resolves descriptors and fills the gaps from fallback:
// the whole target when nothing was resolved, the port alone when the
// resolved service declares none. The boolean reports whether discovery
// produced the service name.
func ResolveOrFallback(descriptors []kube.ServiceDescriptor, preferredPort int, fallback Fallback) (Target, bool) {
	target, ok := Resolve(descriptors, preferredPort)
	if !ok {
		return Target{ServiceName: fallback.ServiceName, Port: fallback.Port}, false
	}
	if target.Port == 0 {
		target.Port = fallback.Port
	}
	return target, true
}
