package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/migrate"
)

func testResult() *Result {
	r := NewResult()
	r.Report = &compat.Report{
		Level: compat.Breaking,
		Findings: []compat.Finding{
			{Level: compat.Breaking, Scope: "object o", Message: "object removed"},
			{Level: compat.Additive, Scope: "object p", Message: "object added"},
			{Level: compat.Additive, Scope: "object q", Message: "object added"},
		},
		Required: compat.BumpMajor,
	}
	r.Plan = &migrate.Plan{
		SQL:      "-- header\n\nCREATE TABLE IF NOT EXISTS \"p\" (\n);\n",
		Warnings: []string{"[destructive] object o: object removed: table \"o\" is not dropped"},
		Meta: migrate.Meta{
			SafeCount:        2,
			DestructiveCount: 1,
			Findings: []migrate.Finding{
				{Safety: migrate.Destructive, Scope: "object o", Message: "object removed: table \"o\" is not dropped"},
			},
		},
	}
	return r
}

func TestEvaluateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		pass      bool
	}{
		{"finding found", Assertion{Type: AssertFindingContains, Message: "[breaking] object o: object removed"}, true},
		{"finding is exact", Assertion{Type: AssertFindingContains, Message: "object removed"}, false},
		{"warning found", Assertion{Type: AssertWarningContains, Message: "[destructive] object o: object removed: table \"o\" is not dropped"}, true},
		{"warning missing", Assertion{Type: AssertWarningContains, Message: "[destructive] object p"}, false},
		{"all findings", Assertion{Type: AssertFindingCount, Count: 3}, true},
		{"findings by level", Assertion{Type: AssertFindingCount, Level: "additive", Count: 2}, true},
		{"zero of level", Assertion{Type: AssertFindingCount, Level: "non_functional", Count: 0}, true},
		{"wrong count", Assertion{Type: AssertFindingCount, Level: "breaking", Count: 2}, false},
		{"sql found", Assertion{Type: AssertMigrationContains, SQL: `CREATE TABLE IF NOT EXISTS "p"`}, true},
		{"sql missing", Assertion{Type: AssertMigrationContains, SQL: "DROP TABLE"}, false},
		{"safe count", Assertion{Type: AssertMigrationCount, Safety: "safe_auto_apply", Count: 2}, true},
		{"manual count", Assertion{Type: AssertMigrationCount, Safety: "manual_review", Count: 0}, true},
		{"destructive count", Assertion{Type: AssertMigrationCount, Safety: "destructive", Count: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := evaluateAssertion(testResult(), tt.assertion)
			if tt.pass {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.assertion.Type, ae.Type)
		})
	}
}

func TestEvaluateAssertion_UnknownType(t *testing.T) {
	err := evaluateAssertion(testResult(), Assertion{Type: "trace_order"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown assertion type "trace_order"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFindingCount,
		Expected: "2 breaking findings",
		Actual:   "1 breaking findings",
		Context:  []string{"[breaking] object o: object removed"},
	}

	assert.Equal(t, "Assertion failed: finding_count\n"+
		"  Expected: 2 breaking findings\n"+
		"  Actual: 1 breaking findings\n"+
		"\nSearched:\n"+
		"  [1] [breaking] object o: object removed\n", err.Error())
}

func TestAssertionError_NoContext(t *testing.T) {
	err := &AssertionError{Type: AssertFindingContains, Expected: "x", Actual: "not found"}
	assert.NotContains(t, err.Error(), "Searched")
}

func TestMigrationCountContext(t *testing.T) {
	err := evaluateAssertion(testResult(), Assertion{Type: AssertMigrationCount, Safety: "destructive", Count: 0})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "0 destructive changes", ae.Expected)
	assert.Equal(t, "1 destructive changes", ae.Actual)
	assert.Equal(t, []string{"[destructive] object o: object removed: table \"o\" is not dropped"}, ae.Context)
}
