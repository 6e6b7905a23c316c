package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
)

func intp(n int) *int { return &n }

// TestScenarios runs every scenario under testdata/scenarios and compares
// its golden tables.
func TestScenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Provider: []Fixture{
			{Code: "75960608936900111", Records: []string{"issue_1.json"}},
		},
		Steps: []Step{
			{Op: OpSyncCode, Code: "75960608936900111", Expect: &StepExpect{Committed: intp(1)}},
		},
		Assertions: []Assertion{
			{Type: AssertRowCount, Table: "Issues", Count: 1},
		},
	}

	result, err := Run(t, scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Reports, 1)
	assert.Equal(t, DefaultRunID, result.Reports[0].RunID)
	assert.Equal(t, DefaultNow, result.Reports[0].StartedAt)
	assert.Empty(t, result.Dump, "no golden tables were named")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "deterministic",
		Description: "Same scenario, same reports and dump",
		RunID:       "run-det",
		Provider: []Fixture{
			{Code: "75960608936900111", Records: []string{"issue_1.json"}},
			{Endpoint: "series", ID: 100, Records: []string{"series_100.json"}},
		},
		Steps: []Step{
			{Op: OpSyncCode, Code: "75960608936900111"},
			{Op: OpSweep, Kind: "series"},
		},
		Golden: []string{"Series", "Issues", "Series_has_Creators"},
	}

	first, err := Run(t, scenario)
	require.NoError(t, err)
	second, err := Run(t, scenario)
	require.NoError(t, err)

	assert.NotEmpty(t, first.Dump)
	assert.Equal(t, first.Dump, second.Dump)
	assert.Equal(t, first.Reports, second.Reports)
	assert.Equal(t, "run-det", first.Reports[1].RunID)
}

func TestRun_FreshDatabasePerRun(t *testing.T) {
	scenario := &Scenario{
		Name:        "fresh",
		Description: "Queue starts empty every run",
		Steps: []Step{
			{Op: OpEnqueue, Code: "00111-75960608936900111", Date: "2024-03-01"},
		},
		Assertions: []Assertion{{Type: AssertQueueLength, Count: 1}},
	}

	for range 2 {
		result, err := Run(t, scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "errors: %v", result.Errors)
		require.Len(t, result.Reports, 1)
		assert.Nil(t, result.Reports[0], "enqueue produces no report")
	}
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "expect_mismatch",
		Description: "An unregistered code is skipped, not committed",
		Steps: []Step{
			{Op: OpSyncCode, Code: "75960608936900111", Expect: &StepExpect{Committed: intp(1), Skipped: intp(0)}},
			{Op: OpEnqueue, Code: "00111-75960608936900111", Date: "2024-03-01", Expect: &StepExpect{}},
		},
		Golden: []string{"Issues"},
	}

	result, err := Run(t, scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected 1 committed, got 0")
	assert.Contains(t, result.Errors[1], "expected 0 skipped, got 1")
	assert.Contains(t, result.Errors[2], "produces no report")
	assert.Empty(t, result.Dump)
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := &Scenario{
		Name:        "failed_assertions",
		Description: "Every assertion type can fail",
		Provider: []Fixture{
			{Endpoint: "series", ID: 100, Status: 500},
		},
		Steps: []Step{
			{Op: OpSyncID, Kind: "series", IDs: []int64{100}},
		},
		Assertions: []Assertion{
			{Type: AssertOutcome, Step: 0, Key: "series/100", Status: "committed"},
			{Type: AssertOutcome, Step: 0, Key: "series/999", Status: "committed"},
			{Type: AssertRowCount, Table: "Series", Count: 1},
			{Type: AssertRowCount, Table: "Villains", Count: 0},
			{Type: AssertRowState, Kind: "series", ID: 100, State: "complete"},
			{Type: AssertQueueLength, Count: 2},
			{Type: AssertProviderHits, Target: "series/100", Count: 2},
		},
	}

	result, err := Run(t, scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], "series/100 failed TRANSPORT")
	assert.Contains(t, result.Errors[1], "not found in report")
	assert.Contains(t, result.Errors[2], "1 row(s) in Series")
	assert.Contains(t, result.Errors[3], "query error")
	assert.Contains(t, result.Errors[4], "Actual: absent")
	assert.Contains(t, result.Errors[5], "2 queued scan(s)")
	assert.Contains(t, result.Errors[6], "2 request(s) for series/100")
}

func TestRun_AcquireOptions(t *testing.T) {
	scenario := &Scenario{
		Name:        "acquire_digital",
		Description: "Acquire records a digital purchase with the earliest scan",
		Provider: []Fixture{
			{Code: "75960608936900111", Records: []string{"issue_1.json"}},
		},
		Queue: []QueuedScan{
			{Code: "00111-75960608936900111", Date: "2024-03-02"},
			{Code: "00111-75960608936900111", Date: "2024-03-01"},
		},
		Steps: []Step{
			{Op: OpAcquire, Decision: "first", Purchase: "digital", Expect: &StepExpect{Committed: intp(1)}},
		},
		Assertions: []Assertion{
			{Type: AssertQueueLength, Count: 0},
			{Type: AssertRowCount, Table: "PurchasedComics", Count: 1},
		},
		Golden: []string{"PurchasedComics"},
	}

	result, err := Run(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Dump, `purchase_format="digital"`)
}

func TestRun_InvalidGoldenTable(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_golden",
		Description: "Unknown golden table",
		Steps:       []Step{{Op: OpSyncPurchased}},
		Golden:      []string{"Villains"},
	}

	_, err := Run(t, scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dump golden tables")
}

func TestRun_StepError(t *testing.T) {
	scenario := &Scenario{
		Name:        "step_error",
		Description: "A malformed enqueue stops the run",
		Steps:       []Step{{Op: OpEnqueue, Code: "bad", Date: "2024-03-01"}},
		Golden:      []string{"scanned_codes"},
	}

	_, err := Run(t, scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (enqueue)")
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)

	result.AddError("boom")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"boom"}, result.Errors)
}

func TestResult_Report(t *testing.T) {
	result := NewResult()
	report := &engine.Report{Operation: "sweep"}
	result.AddReport(nil)
	result.AddReport(report)

	assert.Nil(t, result.Report(0))
	assert.Same(t, report, result.Report(1))
	assert.Nil(t, result.Report(2))
	assert.Nil(t, result.Report(-1))
}
