package harness

import (
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
)

// Result contains the outcome of a scenario run.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool

	// Reports holds one report per step, in step order. Steps that do not
	// produce a report (enqueue) hold nil.
	Reports []*engine.Report

	// Errors lists failed expectations and assertions.
	Errors []string

	// Dump is the store dump of the scenario's golden tables, taken after
	// the last step.
	Dump string
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Reports: []*engine.Report{},
		Errors:  []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddReport appends a step's report.
func (r *Result) AddReport(report *engine.Report) {
	r.Reports = append(r.Reports, report)
}

// Report returns the report of step i, or nil.
func (r *Result) Report(i int) *engine.Report {
	if i < 0 || i >= len(r.Reports) {
		return nil
	}
	return r.Reports[i]
}
