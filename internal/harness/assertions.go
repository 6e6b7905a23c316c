package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
	"github.com/zanemmiller2/pi-comic-scanner/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Report   *engine.Report // Report of the step involved, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Report != nil {
		fmt.Fprintf(&buf, "\n%s:\n", e.Report.Summary())
		for i, o := range e.Report.Items {
			fmt.Fprintf(&buf, "  [%d] %s %s", i+1, o.Key, o.Status)
			if o.Code != engine.CodeNone {
				fmt.Fprintf(&buf, " %s", o.Code)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides what store and provider assertions read.
type AssertionContext struct {
	Ctx      context.Context
	Store    *store.Store
	Provider *testutil.FakeProvider
}

// assertOutcome checks that a step's report holds an item with the given
// key, status and code. An empty code only matches committed items.
func assertOutcome(result *Result, a Assertion) error {
	report := result.Report(a.Step)
	if report == nil {
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: fmt.Sprintf("a report for step %d", a.Step),
			Actual:   "step produced no report",
		}
	}

	for _, o := range report.Items {
		if o.Key != a.Key {
			continue
		}
		if string(o.Status) == a.Status && string(o.Code) == a.Code {
			return nil
		}
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: fmt.Sprintf("%s %s %s", a.Key, a.Status, a.Code),
			Actual:   fmt.Sprintf("%s %s %s: %s", o.Key, o.Status, o.Code, o.Error),
			Report:   report,
		}
	}

	return &AssertionError{
		Type:     AssertOutcome,
		Expected: fmt.Sprintf("item %s in step %d", a.Key, a.Step),
		Actual:   "not found in report",
		Report:   report,
	}
}

// assertRowCount checks the exact number of rows in a table.
func assertRowCount(ctx context.Context, st *store.Store, a Assertion) error {
	n, err := st.CountRows(ctx, a.Table)
	if err != nil {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("count rows of %s", a.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d row(s) in %s", a.Count, a.Table),
			Actual:   fmt.Sprintf("%d row(s)", n),
		}
	}
	return nil
}

// assertRowState checks whether an entity row is absent, a stub or complete.
func assertRowState(ctx context.Context, st *store.Store, a Assertion) error {
	kind, err := catalog.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	state, err := st.State(ctx, kind, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertRowState,
			Expected: fmt.Sprintf("read %s/%d", kind, a.ID),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if state.String() != a.State {
		return &AssertionError{
			Type:     AssertRowState,
			Expected: fmt.Sprintf("%s/%d is %s", kind, a.ID, a.State),
			Actual:   state.String(),
		}
	}
	return nil
}

// assertQueueLength checks the number of scans left in the acquisition queue.
func assertQueueLength(ctx context.Context, st *store.Store, a Assertion) error {
	queued, err := st.DequeueAll(ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertQueueLength,
			Expected: "read the acquisition queue",
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if len(queued) != a.Count {
		raws := make([]string, len(queued))
		for i, sc := range queued {
			raws[i] = sc.Raw() + "@" + sc.ScannedOn
		}
		return &AssertionError{
			Type:     AssertQueueLength,
			Expected: fmt.Sprintf("%d queued scan(s)", a.Count),
			Actual:   fmt.Sprintf("%d: %v", len(queued), raws),
		}
	}
	return nil
}

// assertProviderHits checks how often a lookup target was requested.
func assertProviderHits(p *testutil.FakeProvider, a Assertion) error {
	if hits := p.Hits(a.Target); hits != a.Count {
		return &AssertionError{
			Type:     AssertProviderHits,
			Expected: fmt.Sprintf("%d request(s) for %s", a.Count, a.Target),
			Actual:   fmt.Sprintf("%d", hits),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// Assertions other than outcome need actx.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		needsStore := assertion.Type == AssertRowCount || assertion.Type == AssertRowState || assertion.Type == AssertQueueLength
		switch {
		case needsStore && (actx == nil || actx.Store == nil):
			err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
		case assertion.Type == AssertProviderHits && (actx == nil || actx.Provider == nil):
			err = fmt.Errorf("assertion[%d]: provider_hits requires a provider", i)
		default:
			switch assertion.Type {
			case AssertOutcome:
				err = assertOutcome(result, assertion)
			case AssertRowCount:
				err = assertRowCount(actx.Ctx, actx.Store, assertion)
			case AssertRowState:
				err = assertRowState(actx.Ctx, actx.Store, assertion)
			case AssertQueueLength:
				err = assertQueueLength(actx.Ctx, actx.Store, assertion)
			case AssertProviderHits:
				err = assertProviderHits(actx.Provider, assertion)
			default:
				err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
			}
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
