package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario next to a copy of the library ontology
// and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join("testdata", "ontologies", "library.onto"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "library.onto"), src, 0644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
baseline: library.onto
edits:
  - from: 'version "1.0.0"'
    to: 'version "1.0.1"'
strict_enums: false
expect:
  level: non_functional
  required_bump: patch
  policy: pass
assertions:
  - type: finding_count
    count: 0
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "library.onto"), scenario.Baseline)
	assert.Empty(t, scenario.Candidate)
	require.Len(t, scenario.Edits, 1)
	assert.Equal(t, `version "1.0.1"`, scenario.Edits[0].To)
	assert.False(t, scenario.strictEnums())
	assert.Equal(t, Expectation{Level: "non_functional", RequiredBump: "patch", Policy: "pass"}, scenario.Expect)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_StrictEnumsDefaultsToTrue(t *testing.T) {
	path := writeScenario(t, `
name: test
description: "Test"
baseline: library.onto
candidate: library.onto
expect:
  level: non_functional
  required_bump: none
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.True(t, scenario.strictEnums())
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: test
description: "Test"
baseline: library.onto
candidate: library.onto
assertion: []
expect:
  level: additive
  required_bump: minor
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	const head = "name: test\ndescription: \"Test\"\n"
	const expect = "expect:\n  level: additive\n  required_bump: minor\n"

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing name", "description: x\nbaseline: library.onto\ncandidate: library.onto\n" + expect, "name is required"},
		{"missing description", "name: x\nbaseline: library.onto\ncandidate: library.onto\n" + expect, "description is required"},
		{"missing baseline", head + "candidate: library.onto\n" + expect, "baseline is required"},
		{"baseline not found", head + "baseline: nope.onto\ncandidate: library.onto\n" + expect, "baseline file not found"},
		{"candidate not found", head + "baseline: library.onto\ncandidate: nope.onto\n" + expect, "candidate file not found"},
		{"no candidate", head + "baseline: library.onto\n" + expect, "candidate or edits is required"},
		{"empty edit", head + "baseline: library.onto\nedits:\n  - to: x\n" + expect, "edits[0]: from is required"},
		{"bad level", head + "baseline: library.onto\ncandidate: library.onto\nexpect:\n  level: huge\n  required_bump: minor\n", "expect.level"},
		{"bad bump", head + "baseline: library.onto\ncandidate: library.onto\nexpect:\n  level: additive\n  required_bump: giant\n", "expect.required_bump"},
		{"bad policy", head + "baseline: library.onto\ncandidate: library.onto\n" + expect + "  policy: maybe\n", "expect.policy"},
		{"assertion without type", head + "baseline: library.onto\ncandidate: library.onto\n" + expect +
			"assertions:\n  - message: x\n", "assertions[0]: type is required"},
		{"unknown assertion", head + "baseline: library.onto\ncandidate: library.onto\n" + expect +
			"assertions:\n  - type: trace_contains\n", "unknown assertion type"},
		{"finding without message", head + "baseline: library.onto\ncandidate: library.onto\n" + expect +
			"assertions:\n  - type: finding_contains\n", "message is required"},
		{"finding count bad level", head + "baseline: library.onto\ncandidate: library.onto\n" + expect +
			"assertions:\n  - type: finding_count\n    level: huge\n", "assertions[0]"},
		{"negative count", head + "baseline: library.onto\ncandidate: library.onto\n" + expect +
			"assertions:\n  - type: finding_count\n    count: -1\n", "count must be non-negative"},
		{"migration without sql", head + "baseline: library.onto\ncandidate: library.onto\n" + expect +
			"assertions:\n  - type: migration_contains\n", "sql is required"},
		{"unknown safety", head + "baseline: library.onto\ncandidate: library.onto\n" + expect +
			"assertions:\n  - type: migration_count\n    safety: risky\n", "unknown safety"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"book_breaking.yaml",
		"book_evolution.yaml",
		"undeclared_break.yaml",
		"version_only.yaml",
	}, names)
}

func TestFindScenarios_MissingDir(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
