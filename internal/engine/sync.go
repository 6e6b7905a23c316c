package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/extract"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
)

// Provider fetches exactly one raw record per lookup. Anything else is a
// *provider.LookupError.
type Provider interface {
	LookupByCode(ctx context.Context, code string) (json.RawMessage, error)
	LookupByID(ctx context.Context, kind catalog.Kind, id int64) (json.RawMessage, error)
}

// Sweep defaults.
const (
	DefaultPageSize = 5
	DefaultMaxPages = 1
	DefaultMaxAge   = 365 * 24 * time.Hour
)

// Syncer runs records from the provider through extraction, stub
// resolution, upsert and linking, one item at a time.
//
// Syncer is not safe for concurrent use. Items are processed strictly in
// order and each is fully committed before the next starts.
type Syncer struct {
	store    *store.Store
	provider Provider
	resolver *Resolver
	linker   *Linker
	runIDs   RunIDGenerator
	clock    Clock

	pageSize int
	maxPages int
	maxAge   time.Duration
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRunIDs replaces the UUIDv7 run id generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(s *Syncer) { s.runIDs = g }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Syncer) { s.clock = c }
}

// WithSweep sets the sweep page size, page limit and staleness age. Zero
// values keep the defaults.
func WithSweep(pageSize, maxPages int, maxAge time.Duration) Option {
	return func(s *Syncer) {
		if pageSize > 0 {
			s.pageSize = pageSize
		}
		if maxPages > 0 {
			s.maxPages = maxPages
		}
		if maxAge > 0 {
			s.maxAge = maxAge
		}
	}
}

// New creates a Syncer over the given store and provider.
func New(s *store.Store, p Provider, opts ...Option) *Syncer {
	sy := &Syncer{
		store:    s,
		provider: p,
		resolver: NewResolver(s),
		linker:   NewLinker(s),
		runIDs:   UUIDv7Generator{},
		clock:    SystemClock{},
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		maxAge:   DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(sy)
	}
	return sy
}

func (s *Syncer) newReport(op string) *Report {
	return &Report{
		RunID:     s.runIDs.Generate(),
		Operation: op,
		StartedAt: s.clock.Now(),
		Items:     []Outcome{},
	}
}

func (s *Syncer) finish(r *Report) *Report {
	r.FinishedAt = s.clock.Now()
	slog.Info("run finished", "run_id", r.RunID, "operation", r.Operation,
		"committed", r.Committed(), "skipped", r.Skipped(), "failed", r.Failed())
	return r
}

// SyncByCode looks up an issue by scanned code and commits it.
func (s *Syncer) SyncByCode(ctx context.Context, code string) *Report {
	r := s.newReport("sync-code")
	ext, err := s.fetchCode(ctx, code)
	r.add(s.commitOutcome(ctx, code, catalog.KindIssue, ext, err))
	return s.finish(r)
}

// SyncByID looks up one record by kind and id and commits it. A stub row
// becomes a complete row; a complete row is merged with the fresh record.
func (s *Syncer) SyncByID(ctx context.Context, kind catalog.Kind, id int64) *Report {
	return s.SyncIDs(ctx, "sync-id", kind, []int64{id})
}

// SyncIDs syncs each id of one kind in order. Cancellation is checked
// between items.
func (s *Syncer) SyncIDs(ctx context.Context, op string, kind catalog.Kind, ids []int64) *Report {
	r := s.newReport(op)
	for _, id := range ids {
		if ctx.Err() != nil {
			r.Interrupted = true
			break
		}
		r.add(s.syncOne(ctx, kind, id))
	}
	return s.finish(r)
}

// SyncRelated syncs every entity of the given kind an issue links to.
func (s *Syncer) SyncRelated(ctx context.Context, issueID int64, kind catalog.Kind) (*Report, error) {
	ids, err := s.store.RelatedIDs(ctx, issueID, kind)
	if err != nil {
		return nil, err
	}
	return s.SyncIDs(ctx, "sync-related", kind, ids), nil
}

// SyncPurchased refreshes every owned issue.
func (s *Syncer) SyncPurchased(ctx context.Context) (*Report, error) {
	ids, err := s.store.PurchasedIssueIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.SyncIDs(ctx, "sync-purchased", catalog.KindIssue, ids), nil
}

func (s *Syncer) syncOne(ctx context.Context, kind catalog.Kind, id int64) Outcome {
	key := string(kind) + "/" + strconv.FormatInt(id, 10)
	if !kind.Valid() {
		return Outcome{Key: key, Kind: kind, ID: id, Status: StatusFailed, Code: CodeExtract,
			Error: fmt.Sprintf("unknown kind %q", kind)}
	}
	ext, err := s.fetchID(ctx, kind, id)
	o := s.commitOutcome(ctx, key, kind, ext, err)
	if o.ID == 0 {
		o.ID = id
	}
	if o.Status != StatusCommitted && o.Code != CodeCancelled {
		if err := s.store.MarkAttempted(ctx, kind, id); err != nil {
			slog.Warn("sync attempt not recorded", "key", key, "error", err)
		}
	}
	return o
}

func (s *Syncer) fetchCode(ctx context.Context, code string) (*extract.Extraction, error) {
	raw, err := s.provider.LookupByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return extractRecord(catalog.KindIssue, raw)
}

func (s *Syncer) fetchID(ctx context.Context, kind catalog.Kind, id int64) (*extract.Extraction, error) {
	raw, err := s.provider.LookupByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	ext, err := extractRecord(kind, raw)
	if err != nil {
		return nil, err
	}
	if got := ext.Entity.Base().ID; got != id {
		return nil, &ExtractError{Kind: kind, Err: fmt.Errorf("asked for id %d, record has id %d", id, got)}
	}
	return ext, nil
}

func extractRecord(kind catalog.Kind, raw json.RawMessage) (*extract.Extraction, error) {
	ext, err := extract.Extract(kind, raw)
	if err != nil {
		return nil, &ExtractError{Kind: kind, Err: err}
	}
	return ext, nil
}

// commitOutcome commits ext, or turns the fetch error into an outcome.
func (s *Syncer) commitOutcome(ctx context.Context, key string, kind catalog.Kind, ext *extract.Extraction, err error) Outcome {
	o := Outcome{Key: key, Kind: kind}
	if err == nil {
		o.ID = ext.Entity.Base().ID
		err = s.Commit(ctx, ext, &o)
	}
	if err != nil {
		o.Code = Classify(err)
		o.Status = o.Code.Status()
		o.Error = err.Error()
		level := slog.LevelWarn
		if o.Status == StatusFailed {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "item not committed", "key", key, "kind", kind, "code", o.Code, "error", err)
		return o
	}
	o.Status = StatusCommitted
	return o
}

// Commit writes one extracted record: stubs for everything it references,
// the record itself, then its join rows. Only a failed upsert of the record
// is returned as an error; stub and link failures are logged and counted.
// The optional outcome receives the counters.
func (s *Syncer) Commit(ctx context.Context, ext *extract.Extraction, o *Outcome) error {
	res := s.resolver.MaterializeStubs(ctx, ext.Refs)
	clearUnresolved(ext.Entity, res)

	if err := s.store.Upsert(ctx, ext.Entity); err != nil {
		return err
	}

	if issue, ok := ext.Entity.(*catalog.Issue); ok && issue.Purchase != nil {
		if err := s.store.UpsertPurchase(ctx, issue.ID, *issue.Purchase); err != nil {
			slog.Warn("purchase overlay not written", "id", issue.ID, "error", err)
		}
	}

	stats := s.linker.LinkAll(ctx, ext.Entity, ext.Refs, res)
	slog.Debug("record committed", "kind", ext.Entity.Kind(), "id", ext.Entity.Base().ID,
		"stubs", res.Created, "links", stats.Inserted, "dropped", len(ext.Dropped))

	if o != nil {
		o.Stubs = res.Created
		o.Links = stats.Inserted
		o.Dropped = len(ext.Dropped)
	}
	return nil
}
