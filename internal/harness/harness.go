package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
	"github.com/zanemmiller2/pi-comic-scanner/internal/provider"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
	"github.com/zanemmiller2/pi-comic-scanner/internal/testutil"
)

// Harness holds the per-scenario environment.
type Harness struct {
	store    *store.Store
	provider *testutil.FakeProvider
	syncer   *engine.Syncer
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh database in a temporary directory
// and its own fake provider, both released when t finishes.
//
// Execution flow:
// 1. Register provider fixtures and seed the acquisition queue
// 2. Execute steps, checking each step's expect clause
// 3. Evaluate assertions against the reports and the store
// 4. Dump the golden tables
//
// A returned error means the scenario could not be executed at all;
// failed expectations and assertions are reported in the result.
func Run(t testing.TB, scenario *Scenario) (*Result, error) {
	t.Helper()

	now, err := scenario.Clock()
	if err != nil {
		return nil, err
	}
	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}

	ticks := testutil.NewTickingClock(now, time.Second)
	st, err := store.Open(filepath.Join(t.TempDir(), "scenario.db"), store.WithClock(ticks.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	fake := testutil.NewFakeProvider(t)
	client := provider.NewClient(fake.URL(), provider.Signer{PublicKey: "pub", PrivateKey: "priv"})
	clock := engine.NewFixedClock(now)

	h := &Harness{
		store:    st,
		provider: fake,
		syncer: engine.New(st, client,
			engine.WithClock(clock),
			engine.WithRunIDs(testutil.NewFixedRunID(runID))),
	}

	ctx := t.Context()
	h.registerFixtures(t, scenario.Provider)
	if err := h.seedQueue(ctx, scenario.Queue); err != nil {
		return nil, fmt.Errorf("failed to seed queue: %w", err)
	}

	result := NewResult()
	for i := range scenario.Steps {
		step := &scenario.Steps[i]
		report, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		result.AddReport(report)
		checkExpect(i, step, report, result)
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Provider: fake}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	if len(scenario.Golden) > 0 {
		var b strings.Builder
		if err := st.Dump(ctx, &b, scenario.Golden...); err != nil {
			return nil, fmt.Errorf("failed to dump golden tables: %w", err)
		}
		result.Dump = b.String()
	}

	return result, nil
}

func (h *Harness) registerFixtures(t testing.TB, fixtures []Fixture) {
	t.Helper()
	for _, f := range fixtures {
		if f.Status != 0 {
			h.provider.SetStatus(f.Target(), f.Status)
			continue
		}
		records := make([]json.RawMessage, 0, len(f.Records))
		for _, name := range f.Records {
			records = append(records, testutil.Record(t, name))
		}
		if f.Code != "" {
			h.provider.SetCode(f.Code, records...)
			continue
		}
		h.provider.SetRecord(f.endpoint(), f.ID, records...)
	}
}

func (h *Harness) seedQueue(ctx context.Context, queue []QueuedScan) error {
	for _, q := range queue {
		if err := h.enqueue(ctx, q.Code, q.Date); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) enqueue(ctx context.Context, raw, date string) error {
	sc, err := catalog.ParseScannedCode(raw)
	if err != nil {
		return err
	}
	sc.ScannedOn = date
	_, err = h.store.Enqueue(ctx, sc)
	return err
}

// executeStep runs one operation. Enqueue produces no report.
func (h *Harness) executeStep(ctx context.Context, step *Step) (*engine.Report, error) {
	var kind catalog.Kind
	if step.Kind != "" {
		k, err := catalog.ParseKind(step.Kind)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	switch step.Op {
	case OpSyncCode:
		return h.syncer.SyncByCode(ctx, step.Code), nil
	case OpSyncID:
		return h.syncer.SyncIDs(ctx, "sync-id", kind, step.IDs), nil
	case OpSyncRelated:
		return h.syncer.SyncRelated(ctx, step.Issue, kind)
	case OpSyncPurchased:
		return h.syncer.SyncPurchased(ctx)
	case OpSweep:
		return h.syncer.SweepStale(ctx, kind)
	case OpEnqueue:
		return nil, h.enqueue(ctx, step.Code, step.Date)
	case OpAcquire:
		p, err := pipelineFor(step)
		if err != nil {
			return nil, err
		}
		return h.syncer.Acquire(ctx, h.store, p)
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func pipelineFor(step *Step) (*engine.Pipeline, error) {
	return engine.PipelineFor(step.Decision, step.Purchase)
}

// checkExpect compares a step's report with its expect clause.
func checkExpect(index int, step *Step, report *engine.Report, result *Result) {
	exp := step.Expect
	if exp == nil {
		return
	}
	if report == nil {
		result.AddError(fmt.Sprintf("steps[%d]: %s produces no report to check", index, step.Op))
		return
	}

	check := func(name string, want *int, got int) {
		if want != nil && *want != got {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %d %s, got %d (%s)",
				index, step.Op, *want, name, got, report.Summary()))
		}
	}
	check("committed", exp.Committed, report.Committed())
	check("skipped", exp.Skipped, report.Skipped())
	check("failed", exp.Failed, report.Failed())
	if exp.Interrupted != report.Interrupted {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected interrupted=%t, got %t",
			index, step.Op, exp.Interrupted, report.Interrupted))
	}
}
