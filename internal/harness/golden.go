package harness

import (
	"regexp"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/migrate"
)

// Snapshot captures the verdict of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Level        string            `json:"level"`
	RequiredBump string            `json:"required_bump"`
	DeclaredBump string            `json:"declared_bump,omitempty"`
	Policy       string            `json:"policy"`
	Findings     []string          `json:"findings"`
	Migration    MigrationSnapshot `json:"migration"`
}

// MigrationSnapshot is the classification part of a migration plan.
type MigrationSnapshot struct {
	SafeCount        int           `json:"safe_count"`
	ManualCount      int           `json:"manual_count"`
	DestructiveCount int           `json:"destructive_count"`
	Flags            migrate.Flags `json:"flags"`
	Warnings         []string      `json:"warnings"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		Level:        result.Report.Level.String(),
		RequiredBump: string(result.Report.Required),
		DeclaredBump: string(result.Declared),
		Policy:       result.PolicyVerdict(),
		Findings:     result.Report.Messages(),
		Migration: MigrationSnapshot{
			SafeCount:        result.Plan.Meta.SafeCount,
			ManualCount:      result.Plan.Meta.ManualCount,
			DestructiveCount: result.Plan.Meta.DestructiveCount,
			Flags:            result.Plan.Meta.Flags,
			Warnings:         result.Plan.Warnings,
		},
	}
}

var irHashRef = regexp.MustCompile(`\(ir [0-9a-f]{12}\)`)

// RedactHashes replaces abbreviated IR hashes in migration SQL, which
// change with every toolchain version, by a fixed marker.
func RedactHashes(sql string) string {
	return irHashRef.ReplaceAllString(sql, "(ir <hash>)")
}

// RunWithGolden executes a scenario and compares its verdict and migration
// SQL against golden files in testdata/golden:
// {scenario.Name}.report.golden and {scenario.Name}.sql.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the output doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the golden files of
// scenarioName without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	files, err := GoldenFiles(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	for _, f := range files {
		g.Assert(t, f.Name, f.Data)
	}

	return nil
}

// GoldenSuffix is the extension of every golden file.
const GoldenSuffix = ".golden"

// GoldenFile is the expected content of one golden file. Name excludes
// GoldenSuffix.
type GoldenFile struct {
	Name string
	Data []byte
}

// GoldenFiles renders the golden files of a result: the canonical JSON
// snapshot ({name}.report) and the redacted migration SQL ({name}.sql).
func GoldenFiles(scenarioName string, result *Result) ([]GoldenFile, error) {
	report, err := ir.MarshalCanonical(NewSnapshot(scenarioName, result))
	if err != nil {
		return nil, err
	}
	return []GoldenFile{
		{Name: scenarioName + ".report", Data: report},
		{Name: scenarioName + ".sql", Data: []byte(RedactHashes(result.Plan.SQL))},
	}, nil
}
