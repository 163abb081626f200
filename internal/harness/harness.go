package harness

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/compiler"
	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/migrate"
	"github.com/roach88/ontogen/internal/parser"
)

// Run executes a scenario and returns the result.
//
// Both ontologies go through the full pipeline (parse, validate, build)
// before the compatibility analyzer and the delta migration planner run.
// An ontology that fails to compile is an error, not a failed result:
// the scenario itself is broken.
//
// Execution flow:
// 1. Load the baseline source and derive the candidate source
// 2. Compile both into sealed IR documents
// 3. Analyze compatibility and plan the delta migration
// 4. Check the version policy
// 5. Evaluate the expectation and assertions
func Run(scenario *Scenario) (*Result, error) {
	baseSrc, err := os.ReadFile(scenario.Baseline)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	candSrc := baseSrc
	if scenario.Candidate != "" {
		if candSrc, err = os.ReadFile(scenario.Candidate); err != nil {
			return nil, fmt.Errorf("failed to read candidate: %w", err)
		}
	}
	candidateText, err := applyEdits(string(candSrc), scenario.Edits)
	if err != nil {
		return nil, err
	}

	oldDoc, err := compile(string(baseSrc), true)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	newDoc, err := compile(candidateText, scenario.strictEnums())
	if err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}

	result := Evaluate(oldDoc, newDoc)

	checkExpectation(result, scenario.Expect)
	for _, assertion := range scenario.Assertions {
		if err := evaluateAssertion(result, assertion); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// Evaluate analyzes the change from oldDoc to newDoc without checking any
// expectation.
func Evaluate(oldDoc, newDoc *ir.Document) *Result {
	result := NewResult()
	result.Baseline = oldDoc
	result.Candidate = newDoc
	result.Report = compat.Analyze(oldDoc, newDoc)
	result.Plan = migrate.PlanDelta(oldDoc, newDoc)

	declared, err := compat.DeclaredBump(oldDoc.Ontology.Version, newDoc.Ontology.Version)
	if err != nil {
		result.PolicyErr = err
		return result
	}
	result.Declared = declared
	result.PolicyErr = compat.CheckPolicy(declared, result.Report.Required, result.Report.Findings)
	return result
}

// compile runs the parse, validate and build pipeline on one source.
func compile(src string, strictEnums bool) (*ir.Document, error) {
	ont, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	if err := compiler.Check(ont, compiler.Options{}); err != nil {
		return nil, err
	}
	return compiler.BuildIR(ont, compiler.Config{StrictEnums: strictEnums})
}

// applyEdits replaces the first occurrence of each edit's From in order.
func applyEdits(src string, edits []Edit) (string, error) {
	for i, e := range edits {
		if !strings.Contains(src, e.From) {
			return "", fmt.Errorf("edits[%d]: source does not contain %q", i, e.From)
		}
		src = strings.Replace(src, e.From, e.To, 1)
	}
	return src, nil
}

func checkExpectation(result *Result, expect Expectation) {
	if got := result.Report.Level.String(); got != expect.Level {
		result.AddError(fmt.Sprintf("level: expected %s, got %s", expect.Level, got))
	}
	if got := string(result.Report.Required); got != expect.RequiredBump {
		result.AddError(fmt.Sprintf("required_bump: expected %s, got %s", expect.RequiredBump, got))
	}
	if expect.Policy != "" {
		if got := result.PolicyVerdict(); got != expect.Policy {
			detail := "no violation"
			if result.PolicyErr != nil {
				detail = result.PolicyErr.Error()
			}
			result.AddError(fmt.Sprintf("policy: expected %s, got %s (%s)", expect.Policy, got, detail))
		}
	}
}
