// Package harness runs component checks and collects their verdicts.
//
// For every component the Runner resolves a target once (label discovery
// with a static fallback), then retries "open tunnel, probe, close tunnel"
// under the per-component deadline. Components run strictly in order and
// are isolated from each other: a discovery failure falls back to the
// static target, and an error or panic only fails that component.
package harness
