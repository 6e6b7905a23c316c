// Package harness runs end-to-end sync scenarios against a fresh store and
// a fake provider.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: sync_code_issue
//	description: "A scanned code creates the issue and its references"
//	run_id: run-scenario
//	now: 2020-06-01T00:00:00Z
//	provider:
//	  - code: "75960608936900111"
//	    records: [issue_1.json]
//	  - endpoint: series
//	    id: 100
//	    status: 500
//	queue:
//	  - code: 00111-75960608936900111
//	    date: 2024-03-01
//	steps:
//	  - op: sync_code
//	    code: "75960608936900111"
//	    expect: { committed: 1 }
//	assertions:
//	  - type: outcome
//	    step: 0
//	    key: "75960608936900111"
//	    status: committed
//	  - type: row_count
//	    table: Issues_has_Creators
//	    count: 1
//	golden: [Issues_has_Creators, Series_has_Issues]
//
// Provider records name files from the testutil fixture set. A fixture
// with a status answers that bare HTTP status; a code fixture with no
// records answers an empty result.
//
// # Steps
//
//   - sync_code: look up one retail code
//   - sync_id: look up ids of one kind
//   - sync_related: refresh the rows of one kind linked to an issue
//   - sync_purchased: refresh every owned issue
//   - sweep: refresh stale and stub rows of one kind
//   - enqueue: add a raw scanned code to the acquisition queue
//   - acquire: drain the acquisition queue
//
// # Assertion Types
//
//   - outcome: an item of a step's report has the given status and code
//   - row_count: a table holds exactly N rows
//   - row_state: an entity row is missing, a stub or complete
//   - queue_length: the acquisition queue holds exactly N scans
//   - provider_hits: a lookup target was requested exactly N times
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run ID, a fixed engine clock and a
// ticking store clock, so two runs of the same scenario produce the same
// reports and the same store dump. Tables listed under golden are dumped
// and compared against testdata/golden/<name>.golden.
package harness
