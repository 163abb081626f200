package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ontogen/internal/migrate"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Context  []string // Findings or warnings the assertion searched
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Context) > 0 {
		fmt.Fprintf(&buf, "\nSearched:\n")
		for i, line := range e.Context {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}

	return buf.String()
}

// evaluateAssertion dispatches on the assertion type.
func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFindingContains:
		return assertContains(a.Type, result.Report.Messages(), a.Message)
	case AssertWarningContains:
		return assertContains(a.Type, result.Plan.Warnings, a.Message)
	case AssertFindingCount:
		return assertFindingCount(result, a)
	case AssertMigrationContains:
		return assertMigrationContains(result, a)
	case AssertMigrationCount:
		return assertMigrationCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertContains checks that lines holds want exactly.
func assertContains(kind string, lines []string, want string) error {
	if slices.Contains(lines, want) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: want,
		Actual:   "not found",
		Context:  lines,
	}
}

func assertFindingCount(result *Result, a Assertion) error {
	count := 0
	for _, f := range result.Report.Findings {
		if a.Level == "" || f.Level.String() == a.Level {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	what := "findings"
	if a.Level != "" {
		what = a.Level + " findings"
	}
	return &AssertionError{
		Type:     AssertFindingCount,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", count, what),
		Context:  result.Report.Messages(),
	}
}

func assertMigrationContains(result *Result, a Assertion) error {
	if strings.Contains(result.Plan.SQL, a.SQL) {
		return nil
	}
	return &AssertionError{
		Type:     AssertMigrationContains,
		Expected: fmt.Sprintf("migration SQL containing %q", a.SQL),
		Actual:   "not found",
		Context:  strings.Split(strings.TrimRight(result.Plan.SQL, "\n"), "\n"),
	}
}

func assertMigrationCount(result *Result, a Assertion) error {
	var count int
	switch migrate.Safety(a.Safety) {
	case migrate.SafeAutoApply:
		count = result.Plan.Meta.SafeCount
	case migrate.ManualReview:
		count = result.Plan.Meta.ManualCount
	case migrate.Destructive:
		count = result.Plan.Meta.DestructiveCount
	}
	if count == a.Count {
		return nil
	}

	context := make([]string, len(result.Plan.Meta.Findings))
	for i, f := range result.Plan.Meta.Findings {
		context[i] = f.String()
	}
	return &AssertionError{
		Type:     AssertMigrationCount,
		Expected: fmt.Sprintf("%d %s changes", a.Count, a.Safety),
		Actual:   fmt.Sprintf("%d %s changes", count, a.Safety),
		Context:  context,
	}
}
