package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
	"github.com/zanemmiller2/pi-comic-scanner/internal/testutil"
)

// DefaultNow is the engine clock of scenarios that do not set one.
var DefaultNow = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

// DefaultRunID is the run ID of scenarios that do not set one.
const DefaultRunID = "run-scenario"

// Scenario defines one end-to-end run.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	RunID       string       `yaml:"run_id,omitempty"`
	Now         string       `yaml:"now,omitempty"`
	Provider    []Fixture    `yaml:"provider,omitempty"`
	Queue       []QueuedScan `yaml:"queue,omitempty"`
	Steps       []Step       `yaml:"steps"`
	Assertions  []Assertion  `yaml:"assertions,omitempty"`
	Golden      []string     `yaml:"golden,omitempty"`
}

// Fixture registers what the fake provider answers for one lookup target.
// Exactly one of Code or Endpoint/ID names the target.
type Fixture struct {
	Code     string   `yaml:"code,omitempty"`
	Endpoint string   `yaml:"endpoint,omitempty"`
	ID       int64    `yaml:"id,omitempty"`
	Records  []string `yaml:"records,omitempty"`
	Status   int      `yaml:"status,omitempty"`
}

// Target returns the lookup target the fixture answers. Endpoint may name
// the kind, its endpoint or its table.
func (f Fixture) Target() string {
	if f.Code != "" {
		return testutil.CodeTarget(f.Code)
	}
	return testutil.IDTarget(f.endpoint(), f.ID)
}

func (f Fixture) endpoint() string {
	if kind, err := catalog.ParseKind(f.Endpoint); err == nil {
		return kind.Endpoint()
	}
	return f.Endpoint
}

// QueuedScan is a scanned code present in the acquisition queue before
// the first step.
type QueuedScan struct {
	Code string `yaml:"code"`
	Date string `yaml:"date"`
}

// Step is one engine operation.
type Step struct {
	Op string `yaml:"op"`

	// sync_code, enqueue
	Code string `yaml:"code,omitempty"`
	// enqueue
	Date string `yaml:"date,omitempty"`
	// sync_id, sync_related, sweep
	Kind string `yaml:"kind,omitempty"`
	// sync_id
	IDs []int64 `yaml:"ids,omitempty"`
	// sync_related
	Issue int64 `yaml:"issue,omitempty"`
	// acquire: first or latest
	Decision string `yaml:"decision,omitempty"`
	// acquire: physical, digital or empty for none
	Purchase string `yaml:"purchase,omitempty"`

	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect checks the counters of a step's report. Nil fields are not
// checked.
type StepExpect struct {
	Committed   *int `yaml:"committed,omitempty"`
	Skipped     *int `yaml:"skipped,omitempty"`
	Failed      *int `yaml:"failed,omitempty"`
	Interrupted bool `yaml:"interrupted,omitempty"`
}

// Assertion is checked against the result and the store after the last
// step.
type Assertion struct {
	Type string `yaml:"type"`

	// outcome
	Step   int    `yaml:"step,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Status string `yaml:"status,omitempty"`
	Code   string `yaml:"code,omitempty"`

	// row_count
	Table string `yaml:"table,omitempty"`

	// row_state
	Kind  string `yaml:"kind,omitempty"`
	ID    int64  `yaml:"id,omitempty"`
	State string `yaml:"state,omitempty"`

	// provider_hits
	Target string `yaml:"target,omitempty"`

	// row_count, queue_length, provider_hits
	Count int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpSyncCode      = "sync_code"
	OpSyncID        = "sync_id"
	OpSyncRelated   = "sync_related"
	OpSyncPurchased = "sync_purchased"
	OpSweep         = "sweep"
	OpEnqueue       = "enqueue"
	OpAcquire       = "acquire"
)

// Assertion types.
const (
	AssertOutcome      = "outcome"
	AssertRowCount     = "row_count"
	AssertRowState     = "row_state"
	AssertQueueLength  = "queue_length"
	AssertProviderHits = "provider_hits"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// Clock returns the scenario's engine time.
func (s *Scenario) Clock() (time.Time, error) {
	if s.Now == "" {
		return DefaultNow, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s.Now); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("now: %q is neither RFC 3339 nor a date", s.Now)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 && len(s.Golden) == 0 {
		return fmt.Errorf("assertions or golden tables are required")
	}
	if _, err := s.Clock(); err != nil {
		return err
	}

	for i, f := range s.Provider {
		if err := validateFixture(i, f); err != nil {
			return err
		}
	}
	for i, q := range s.Queue {
		if _, err := catalog.ParseScannedCode(q.Code); err != nil {
			return fmt.Errorf("queue[%d]: %w", i, err)
		}
		if q.Date == "" {
			return fmt.Errorf("queue[%d]: date is required", i)
		}
	}
	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateFixture(index int, f Fixture) error {
	switch {
	case f.Code != "" && f.Endpoint != "":
		return fmt.Errorf("provider[%d]: code and endpoint are exclusive", index)
	case f.Code == "" && (f.Endpoint == "" || f.ID <= 0):
		return fmt.Errorf("provider[%d]: code or endpoint with a positive id is required", index)
	case f.Status != 0 && len(f.Records) > 0:
		return fmt.Errorf("provider[%d]: status and records are exclusive", index)
	case f.Status != 0 && (f.Status < 100 || f.Status > 599):
		return fmt.Errorf("provider[%d]: status %d is not an HTTP status", index, f.Status)
	}
	if f.Endpoint != "" {
		if _, err := catalog.ParseKind(f.Endpoint); err != nil {
			return fmt.Errorf("provider[%d]: %w", index, err)
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	switch step.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpSyncCode:
		if step.Code == "" {
			return fmt.Errorf("steps[%d]: code is required for sync_code", index)
		}
	case OpSyncID:
		if len(step.IDs) == 0 {
			return fmt.Errorf("steps[%d]: ids are required for sync_id", index)
		}
	case OpSyncRelated:
		if step.Issue <= 0 {
			return fmt.Errorf("steps[%d]: issue is required for sync_related", index)
		}
	case OpSyncPurchased:
	case OpSweep:
	case OpEnqueue:
		if _, err := catalog.ParseScannedCode(step.Code); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
		if step.Date == "" {
			return fmt.Errorf("steps[%d]: date is required for enqueue", index)
		}
	case OpAcquire:
		if _, err := engine.PipelineFor(step.Decision, step.Purchase); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	switch step.Op {
	case OpSyncID, OpSyncRelated, OpSweep:
		if step.Kind == "" {
			return fmt.Errorf("steps[%d]: kind is required for %s", index, step.Op)
		}
		if _, err := catalog.ParseKind(step.Kind); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertOutcome:
		if a.Step < 0 || a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for outcome", index)
		}
		switch engine.Status(a.Status) {
		case engine.StatusCommitted, engine.StatusSkipped, engine.StatusFailed:
		default:
			return fmt.Errorf("assertions[%d]: unknown status %q", index, a.Status)
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
	case AssertRowState:
		if _, err := catalog.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.ID <= 0 {
			return fmt.Errorf("assertions[%d]: id is required for row_state", index)
		}
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for row_state", index)
		}
	case AssertQueueLength:
	case AssertProviderHits:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for provider_hits", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
