package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"
)

// PodEndpoint is a pod and container port standing in for a service port.
type PodEndpoint struct {
	PodName string
	Port    int
}

// ResolveServicePod maps servicePort of a service onto a ready backing pod
// and the container port the service routes it to. Port-forwarding through
// the API server targets pods, so service forwards go through one of them.
func ResolveServicePod(ctx context.Context, clientset kubernetes.Interface, namespace, serviceName string, servicePort int) (PodEndpoint, error) {
	svc, err := clientset.CoreV1().Services(namespace).Get(ctx, serviceName, metav1.GetOptions{})
	if err != nil {
		return PodEndpoint{}, classifyAPIError(err, fmt.Sprintf("getting service %s/%s", namespace, serviceName))
	}

	pod, err := readyPodForService(ctx, clientset, svc)
	if err != nil {
		return PodEndpoint{}, err
	}

	port, err := targetPort(svc, pod, servicePort)
	if err != nil {
		return PodEndpoint{}, err
	}
	return PodEndpoint{PodName: pod.Name, Port: port}, nil
}

// targetPort finds the container port behind servicePort. Services without
// a matching port entry are forwarded to servicePort unchanged.
func targetPort(svc *corev1.Service, pod *corev1.Pod, servicePort int) (int, error) {
	for _, sp := range svc.Spec.Ports {
		if int(sp.Port) != servicePort {
			continue
		}
		switch {
		case sp.TargetPort.Type == intstr.String && sp.TargetPort.StrVal != "":
			for _, c := range pod.Spec.Containers {
				for _, cp := range c.Ports {
					if cp.Name == sp.TargetPort.StrVal {
						return int(cp.ContainerPort), nil
					}
				}
			}
			return 0, fmt.Errorf("pod %s has no container port named %q (service %s port %d)",
				pod.Name, sp.TargetPort.StrVal, svc.Name, servicePort)
		case sp.TargetPort.IntVal != 0:
			return int(sp.TargetPort.IntVal), nil
		default:
			return servicePort, nil
		}
	}
	return servicePort, nil
}

func readyPodForService(ctx context.Context, clientset kubernetes.Interface, svc *corev1.Service) (*corev1.Pod, error) {
	namespace, serviceName := svc.Namespace, svc.Name

	if len(svc.Spec.Selector) == 0 {
		return nil, fmt.Errorf("service %s/%s has no selector, cannot find backing pods", namespace, serviceName)
	}

	selector := labels.SelectorFromSet(svc.Spec.Selector)
	podList, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		return nil, classifyAPIError(err, fmt.Sprintf("listing pods for service %s/%s", namespace, serviceName))
	}
	if len(podList.Items) == 0 {
		return nil, fmt.Errorf("no pods found for service %s/%s with selector %s", namespace, serviceName, selector.String())
	}

	for i := range podList.Items {
		if isPodReady(&podList.Items[i]) {
			return &podList.Items[i], nil
		}
	}
	return nil, fmt.Errorf("no ready pods found for service %s/%s (selector: %s)", namespace, serviceName, selector.String())
}

func isPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}

	ready := false
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			ready = true
			break
		}
	}
	if !ready {
		return false
	}

	// Running but container statuses not yet reported, still initializing.
	if len(pod.Status.ContainerStatuses) == 0 && len(pod.Spec.Containers) > 0 {
		return false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			return false
		}
	}
	return true
}
