// Package kube is the boundary between smokectl and the Kubernetes control plane.
//
// It answers one question for the rest of the harness: which services in a
// namespace match a label selector, and what do they expose. Results are
// returned as ServiceDescriptor values, a small typed projection of
// core/v1 Service objects (name, headless flag, declared ports).
//
// # Listers
//
// Two ServiceLister implementations are provided:
//
//   - ClientGoLister talks to the API server through client-go. It is built
//     from a kubeconfig path and optional context with NewClientset.
//   - KubectlLister shells out to `kubectl get svc -l <selector> -o json` and
//     decodes the subset of fields the harness needs. The binary defaults to
//     "kubectl" and can be overridden through the KUBECTL environment variable.
//
// # Error Handling
//
// Every error returned by a lister wraps one of two sentinels:
//
//   - ErrClusterUnreachable: the control plane could not be reached at all
//     (transport failure, timeout, unusable kubeconfig, missing binary).
//   - ErrQuery: the call completed but was rejected or produced data that
//     could not be decoded (API status errors, malformed selectors, bad JSON).
//
// An empty match is not an error; listers return an empty slice.
//
// # Pods
//
// ResolveServicePod picks a running, ready pod behind a service and the
// container port a service port routes to (numeric or named target ports).
// The client-go port-forward backend uses it because the API server forwards
// to pods, not services.
package kube
