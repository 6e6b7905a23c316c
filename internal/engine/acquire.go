package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// AcquisitionSource is the durable queue scanned codes arrive in.
// Implemented by *store.Store.
type AcquisitionSource interface {
	// DequeueAll returns every queued code in enqueue order without removing it.
	DequeueAll(ctx context.Context) ([]catalog.ScannedCode, error)
	// Remove deletes every queued row for a raw "PREFIX-CODE" string.
	Remove(ctx context.Context, raw string) (int64, error)
}

// Acquire drains the acquisition source through the pipeline. Every code
// is queued first (settling date conflicts), then each queued code is
// looked up, resolved and committed before the next one starts. A
// committed code is removed from the source; anything else stays queued
// for a later run.
func (s *Syncer) Acquire(ctx context.Context, src AcquisitionSource, p *Pipeline) (*Report, error) {
	codes, err := src.DequeueAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}

	r := s.newReport("acquire")
	for _, sc := range codes {
		p.Queue(sc)
	}
	slog.Info("acquisition queue loaded", "scans", len(codes), "codes", p.Len(), "conflicts", len(p.Conflicts()))

	for _, e := range p.Entries(StageQueued) {
		if ctx.Err() != nil {
			r.Interrupted = true
			break
		}
		r.add(s.acquireOne(ctx, src, p, e))
	}
	return s.finish(r), nil
}

func (s *Syncer) acquireOne(ctx context.Context, src AcquisitionSource, p *Pipeline, e Entry) Outcome {
	ext, err := s.fetchCode(ctx, e.Code)
	if err != nil {
		return s.commitOutcome(ctx, e.Raw(), catalog.KindIssue, nil, err)
	}
	if err := p.Resolve(e.Code, ext); err != nil {
		return Outcome{Key: e.Raw(), Kind: catalog.KindIssue, Status: StatusSkipped, Error: err.Error()}
	}

	if issue, ok := ext.Entity.(*catalog.Issue); ok {
		if purchase := p.purchaseFor(issue); purchase != nil {
			issue.Purchase = purchase
		}
	}

	o := s.commitOutcome(ctx, e.Raw(), catalog.KindIssue, ext, nil)
	if o.Status != StatusCommitted {
		return o
	}
	if err := p.Commit(e.Code); err != nil {
		slog.Warn("pipeline commit", "code", e.Code, "error", err)
	}

	// A code scanned under several prefixes leaves the queue under all of
	// them. A row left behind is looked up again next run and merges as a
	// no-op.
	for _, raw := range e.Raws() {
		if _, err := src.Remove(ctx, raw); err != nil {
			slog.Warn("scanned code not removed from queue", "code", raw, "error", err)
		}
	}
	return o
}
