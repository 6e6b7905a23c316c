package testutil

// FixedRunID generates the same run id every time.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this
// generator never runs out, so a scenario can start any number of runs
// and still produce byte-identical reports.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator.
//
// The id is typically set in the scenario YAML:
//
//	run_id: "run-00000000-0000-0000-0000-000000000001"
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
//
// Implements engine.RunIDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
