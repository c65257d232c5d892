package kube

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

var (
	// ErrClusterUnreachable is wrapped by errors caused by the control plane
	// not being reachable at all.
	ErrClusterUnreachable = errors.New("cluster unreachable")
	// ErrQuery is wrapped by errors where the control plane answered but the
	// request failed or the answer could not be decoded.
	ErrQuery = errors.New("service query failed")
)

// classifyAPIError wraps err from a client-go call with the matching sentinel.
func classifyAPIError(err error, what string) error {
	if err == nil {
		return nil
	}

	if apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err) ||
		apierrors.IsServiceUnavailable(err) || apierrors.IsTooManyRequests(err) {
		return fmt.Errorf("%w: %s: %w", ErrClusterUnreachable, what, err)
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		return fmt.Errorf("%w: %s: %w", ErrQuery, what, err)
	}

	// client-go only returns non-status errors when the request never got an
	// answer (dial failures, TLS errors, client-side timeouts).
	return fmt.Errorf("%w: %s: %w", ErrClusterUnreachable, what, err)
}
