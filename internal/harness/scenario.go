package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/migrate"
)

// Scenario defines a compatibility scenario: a baseline ontology, a
// candidate derived from it, and the verdict expected for the change.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Baseline is the path of the baseline ontology source.
	Baseline string `yaml:"baseline"`

	// Candidate is the path of the candidate ontology source. When empty
	// the candidate is the baseline with Edits applied.
	Candidate string `yaml:"candidate,omitempty"`

	// Edits are textual replacements applied to the candidate source.
	Edits []Edit `yaml:"edits,omitempty"`

	// StrictEnums is recorded in the candidate's compatibility profile.
	// Nil means true.
	StrictEnums *bool `yaml:"strict_enums,omitempty"`

	// Expect is the overall verdict.
	Expect Expectation `yaml:"expect"`

	// Assertions check individual findings and migration output.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Edit replaces the first occurrence of From with To.
type Edit struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Expectation is the verdict a scenario expects.
type Expectation struct {
	// Level is the maximum compatibility level.
	Level string `yaml:"level"`

	// RequiredBump is the version bump the change demands.
	RequiredBump string `yaml:"required_bump"`

	// Policy is "pass" or "fail"; empty skips the version policy check.
	Policy string `yaml:"policy,omitempty"`
}

// Policy verdicts.
const (
	PolicyPass = "pass"
	PolicyFail = "fail"
)

// Assertion validates one aspect of the report or the migration plan.
type Assertion struct {
	// Type specifies the assertion type:
	// - "finding_contains": a compatibility finding equals Message
	// - "finding_count": exactly Count findings, of Level when set
	// - "warning_contains": a migration warning equals Message
	// - "migration_contains": the migration SQL contains SQL
	// - "migration_count": exactly Count migration findings of Safety
	Type string `yaml:"type"`

	Message string `yaml:"message,omitempty"`
	Level   string `yaml:"level,omitempty"`
	SQL     string `yaml:"sql,omitempty"`
	Safety  string `yaml:"safety,omitempty"`
	Count   int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFindingContains   = "finding_contains"
	AssertFindingCount      = "finding_count"
	AssertWarningContains   = "warning_contains"
	AssertMigrationContains = "migration_contains"
	AssertMigrationCount    = "migration_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Baseline and candidate paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Baseline = resolve(base, scenario.Baseline)
	scenario.Candidate = resolve(base, scenario.Candidate)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// strictEnums returns the effective strict_enums setting.
func (s *Scenario) strictEnums() bool {
	return s.StrictEnums == nil || *s.StrictEnums
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Baseline == "" {
		return fmt.Errorf("baseline is required")
	}
	if _, err := os.Stat(s.Baseline); os.IsNotExist(err) {
		return fmt.Errorf("baseline file not found: %s", s.Baseline)
	}
	if s.Candidate != "" {
		if _, err := os.Stat(s.Candidate); os.IsNotExist(err) {
			return fmt.Errorf("candidate file not found: %s", s.Candidate)
		}
	}
	if s.Candidate == "" && len(s.Edits) == 0 {
		return fmt.Errorf("candidate or edits is required")
	}

	for i, e := range s.Edits {
		if e.From == "" {
			return fmt.Errorf("edits[%d]: from is required", i)
		}
	}

	if _, err := compat.ParseLevel(s.Expect.Level); err != nil {
		return fmt.Errorf("expect.level: %w", err)
	}
	switch compat.Bump(s.Expect.RequiredBump) {
	case compat.BumpNone, compat.BumpPatch, compat.BumpMinor, compat.BumpMajor:
	default:
		return fmt.Errorf("expect.required_bump: unknown bump %q", s.Expect.RequiredBump)
	}
	switch s.Expect.Policy {
	case "", PolicyPass, PolicyFail:
	default:
		return fmt.Errorf("expect.policy: must be %q or %q, got %q", PolicyPass, PolicyFail, s.Expect.Policy)
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFindingContains, AssertWarningContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for %s", index, a.Type)
		}
	case AssertFindingCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for finding_count", index)
		}
		if a.Level != "" {
			if _, err := compat.ParseLevel(a.Level); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertMigrationContains:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for migration_contains", index)
		}
	case AssertMigrationCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for migration_count", index)
		}
		switch migrate.Safety(a.Safety) {
		case migrate.SafeAutoApply, migrate.ManualReview, migrate.Destructive:
		default:
			return fmt.Errorf("assertions[%d]: unknown safety %q for migration_count", index, a.Safety)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// FindScenarios returns the scenario files (*.yaml, *.yml) directly in
// dir, sorted by path.
func FindScenarios(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scenario directory: %w", err)
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return paths, nil
}
