package harness

import (
	"time"

	"smokectl/internal/discovery"
)

// CheckResult is the verdict for one component.
type CheckResult struct {
	Component string
	Passed    bool
	// Target is the service and port that were probed.
	Target discovery.Target
	// Discovered is false when the static fallback target was used.
	Discovered bool
	Attempts   int
	Duration   time.Duration
	// Err is the last failure seen; nil when Passed.
	Err error
}

// Status returns PASS or FAIL.
func (r CheckResult) Status() string {
	if r.Passed {
		return "PASS"
	}
	return "FAIL"
}

// RunReport collects the results of one run in check order.
type RunReport struct {
	Results   []CheckResult
	AllPassed bool
}

// Failed returns the names of components that did not pass.
func (r RunReport) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if !res.Passed {
			names = append(names, res.Component)
		}
	}
	return names
}
