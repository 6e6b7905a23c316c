package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/extract"
)

// Stage is the acquisition state of one scanned code.
type Stage int

const (
	// StageQueued means the code is waiting for a provider lookup.
	StageQueued Stage = iota + 1
	// StageResolved means the record has been fetched and extracted.
	StageResolved
	// StageCommitted means the record has been written to the store.
	StageCommitted
)

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageResolved:
		return "resolved"
	case StageCommitted:
		return "committed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

var (
	// ErrAlreadyResolved is returned when a code is resolved twice.
	ErrAlreadyResolved = errors.New("already resolved")
	// ErrAlreadyCommitted is returned when a code is committed twice.
	ErrAlreadyCommitted = errors.New("already committed")
	// ErrNotQueued is returned for a code the pipeline has never seen.
	ErrNotQueued = errors.New("not queued")
	// ErrNotResolved is returned when committing a code still queued.
	ErrNotResolved = errors.New("not resolved")
)

// Entry is one scanned code moving through the pipeline.
type Entry struct {
	Code      string
	Prefix    string
	ScannedOn string
	Stage     Stage

	// Prefixes lists every prefix the code was queued under, first one
	// first. Prefix is Prefixes[0].
	Prefixes []string

	// Extraction is held in memory once the code is resolved.
	Extraction *extract.Extraction
}

// Raw returns the scanned form "PREFIX-CODE".
func (e Entry) Raw() string { return e.Prefix + "-" + e.Code }

// Raws returns the scanned form under every prefix the code was queued with.
func (e Entry) Raws() []string {
	if len(e.Prefixes) == 0 {
		return []string{e.Raw()}
	}
	raws := make([]string, len(e.Prefixes))
	for i, prefix := range e.Prefixes {
		raws[i] = prefix + "-" + e.Code
	}
	return raws
}

// Conflict describes the same code queued with two different scan dates.
// Kept is the date held before the incoming scan; Chosen is filled in
// once the conflict is settled.
type Conflict struct {
	Code     string `json:"code"`
	Kept     string `json:"kept"`
	Incoming string `json:"incoming"`
	Chosen   string `json:"chosen,omitempty"`
}

// DecisionFunc picks the scan date to keep for a conflicting code. It
// must return c.Kept or c.Incoming.
type DecisionFunc func(c Conflict) string

// KeepFirst keeps the date that was queued first.
func KeepFirst(c Conflict) string { return c.Kept }

// KeepLatest keeps the later of the two dates.
func KeepLatest(c Conflict) string {
	if c.Incoming > c.Kept {
		return c.Incoming
	}
	return c.Kept
}

// PurchaseFunc returns the ownership overlay for a resolved issue, or nil
// to record none.
type PurchaseFunc func(issue *catalog.Issue) *catalog.Purchase

// PurchaseAs records every acquired issue as owned in the given format,
// with date and price taken from the issue record.
func PurchaseAs(format catalog.PurchaseFormat) PurchaseFunc {
	return func(issue *catalog.Issue) *catalog.Purchase {
		return catalog.DefaultPurchase(issue, format)
	}
}

// ParseDecision returns the DecisionFunc named "first" or "latest". An
// empty name is "first".
func ParseDecision(name string) (DecisionFunc, error) {
	switch name {
	case "", "first":
		return KeepFirst, nil
	case "latest":
		return KeepLatest, nil
	}
	return nil, fmt.Errorf("unknown decision %q (want first or latest)", name)
}

// ParsePurchase returns PurchaseAs for a purchase format name. An empty
// name or "none" returns nil: no overlay is recorded.
func ParsePurchase(name string) (PurchaseFunc, error) {
	if name == "" || name == "none" {
		return nil, nil
	}
	format, err := catalog.ParsePurchaseFormat(name)
	if err != nil {
		return nil, err
	}
	return PurchaseAs(format), nil
}

// PipelineFor builds a pipeline from a decision name and a purchase
// format name, as accepted by ParseDecision and ParsePurchase.
func PipelineFor(decision, purchase string) (*Pipeline, error) {
	decide, err := ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	buy, err := ParsePurchase(purchase)
	if err != nil {
		return nil, err
	}
	return NewPipeline(WithDecision(decide), WithPurchase(buy)), nil
}

// Pipeline tracks scanned codes through queued, resolved and committed.
// Entries keep the order in which their codes were first queued.
//
// Thread-safety: Pipeline is safe for concurrent use, although the engine
// drives it from a single goroutine.
type Pipeline struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	order     []string
	conflicts []Conflict
	decide    DecisionFunc
	purchase  PurchaseFunc
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithDecision sets how conflicting scan dates are settled. The default
// is KeepFirst.
func WithDecision(f DecisionFunc) PipelineOption {
	return func(p *Pipeline) { p.decide = f }
}

// WithPurchase sets the overlay recorded for each committed issue. By
// default none is recorded.
func WithPurchase(f PurchaseFunc) PipelineOption {
	return func(p *Pipeline) { p.purchase = f }
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		entries: make(map[string]*Entry),
		decide:  KeepFirst,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Queue adds a scanned code. Queuing a known code with the same date is a
// no-op; with a different date the DecisionFunc picks the date to keep and
// the conflict is recorded. Returns the conflict if one occurred.
func (p *Pipeline) Queue(sc catalog.ScannedCode) *Conflict {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[sc.Code]
	if !ok {
		p.entries[sc.Code] = &Entry{
			Code:      sc.Code,
			Prefix:    sc.Prefix,
			ScannedOn: sc.ScannedOn,
			Stage:     StageQueued,
			Prefixes:  []string{sc.Prefix},
		}
		p.order = append(p.order, sc.Code)
		return nil
	}
	if !slices.Contains(e.Prefixes, sc.Prefix) {
		e.Prefixes = append(e.Prefixes, sc.Prefix)
	}

	if e.ScannedOn == sc.ScannedOn {
		slog.Debug("duplicate scan", "code", sc.Code, "scanned_on", sc.ScannedOn)
		return nil
	}

	c := Conflict{Code: sc.Code, Kept: e.ScannedOn, Incoming: sc.ScannedOn}
	chosen := p.decide(c)
	if chosen != c.Kept && chosen != c.Incoming {
		slog.Warn("decision returned an unknown date, keeping the first", "code", sc.Code, "date", chosen)
		chosen = c.Kept
	}
	e.ScannedOn = chosen
	c.Chosen = chosen
	p.conflicts = append(p.conflicts, c)
	slog.Info("scan date conflict settled", "code", sc.Code, "kept", c.Kept, "incoming", c.Incoming, "chosen", chosen)
	return &c
}

// Resolve attaches the extracted record to a queued code.
func (p *Pipeline) Resolve(code string, ext *extract.Extraction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[code]
	if !ok {
		return fmt.Errorf("resolve %s: %w", code, ErrNotQueued)
	}
	if e.Stage >= StageResolved {
		slog.Warn("code already resolved", "code", code, "stage", e.Stage)
		return fmt.Errorf("resolve %s: %w", code, ErrAlreadyResolved)
	}
	e.Extraction = ext
	e.Stage = StageResolved
	return nil
}

// Commit marks a resolved code as written.
func (p *Pipeline) Commit(code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[code]
	if !ok {
		return fmt.Errorf("commit %s: %w", code, ErrNotQueued)
	}
	switch e.Stage {
	case StageQueued:
		return fmt.Errorf("commit %s: %w", code, ErrNotResolved)
	case StageCommitted:
		slog.Warn("code already committed", "code", code)
		return fmt.Errorf("commit %s: %w", code, ErrAlreadyCommitted)
	}
	e.Stage = StageCommitted
	return nil
}

// Get returns a copy of the entry for code.
func (p *Pipeline) Get(code string) (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[code]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns copies of the entries in the given stage, in queue
// order. A zero stage returns every entry.
func (p *Pipeline) Entries(stage Stage) []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := []Entry{}
	for _, code := range p.order {
		e := p.entries[code]
		if stage == 0 || e.Stage == stage {
			out = append(out, *e)
		}
	}
	return out
}

// Len returns the number of distinct codes.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Conflicts returns every settled date conflict in the order they arose.
func (p *Pipeline) Conflicts() []Conflict {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Conflict, len(p.conflicts))
	copy(out, p.conflicts)
	return out
}

// purchaseFor returns the overlay for issue, if a PurchaseFunc is set.
func (p *Pipeline) purchaseFor(issue *catalog.Issue) *catalog.Purchase {
	if p.purchase == nil {
		return nil
	}
	return p.purchase(issue)
}
