package engine

import (
	"fmt"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// Outcome records what happened to one item of a run.
type Outcome struct {
	// Key is the scanned code or "kind/id" the item was started from.
	Key    string       `json:"key"`
	Kind   catalog.Kind `json:"kind"`
	ID     int64        `json:"id,omitempty"`
	Status Status       `json:"status"`
	Code   OutcomeCode  `json:"code,omitempty"`
	Error  string       `json:"error,omitempty"`

	// Counters for committed items.
	Stubs   int `json:"stubs,omitempty"`
	Links   int `json:"links,omitempty"`
	Dropped int `json:"dropped,omitempty"`
}

// Report summarizes one engine operation.
type Report struct {
	RunID      string    `json:"run_id"`
	Operation  string    `json:"operation"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Items      []Outcome `json:"items"`

	// Interrupted is set when the context was cancelled before every item
	// was processed.
	Interrupted bool `json:"interrupted,omitempty"`
}

func (r *Report) add(o Outcome) {
	r.Items = append(r.Items, o)
}

func (r *Report) count(s Status) int {
	n := 0
	for _, o := range r.Items {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Committed returns the number of items that reached the store.
func (r *Report) Committed() int { return r.count(StatusCommitted) }

// Skipped returns the number of items the provider had nothing usable for.
func (r *Report) Skipped() int { return r.count(StatusSkipped) }

// Failed returns the number of items that failed.
func (r *Report) Failed() int { return r.count(StatusFailed) }

// Summary is a one-line description suitable for logs.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%s: %d committed, %d skipped, %d failed",
		r.Operation, r.Committed(), r.Skipped(), r.Failed())
	if r.Interrupted {
		s += " (interrupted)"
	}
	return s
}
