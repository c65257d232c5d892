// Package portforwarding opens short-lived local tunnels to Kubernetes
// services for smokectl probes.
//
// A tunnel lives for exactly one probe attempt. Manager.WithTunnel allocates
// a free loopback port, starts a forward through a Forwarder backend, waits
// until the forward is usable, runs the caller's function against the local
// endpoint and tears the forward down again on every exit path, including a
// panic in the callback.
//
// # Backends
//
// Two Forwarder implementations exist:
//   - KubectlForwarder spawns `kubectl port-forward svc/NAME LOCAL:REMOTE`
//     and stops it with SIGTERM, escalating to SIGKILL after the teardown
//     timeout.
//   - ClientGoForwarder streams over SPDY through the API server to a ready
//     pod backing the service, listening on 127.0.0.1 only.
//
// # Readiness
//
// By default the manager waits a fixed grace period after the forward has
// started. With WaitReady set it instead polls the local port until it
// accepts a TCP connection, bounded by the same grace period. A forward that
// exits before it is ready fails with ErrTunnelSetup.
//
// # Teardown
//
// Teardown problems are reported as ErrTunnelTeardown warnings in the log
// and never replace the callback's result.
//
// Managers hold no mutable state, so independent WithTunnel calls may run
// concurrently.
package portforwarding
