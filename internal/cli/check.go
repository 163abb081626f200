package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/domainerr"
	"github.com/roach88/ontogen/internal/ir"
)

// DocumentRef identifies one side of a comparison.
type DocumentRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	IRHash  string `json:"ir_hash"`
}

func refOf(doc *ir.Document) DocumentRef {
	return DocumentRef{Name: doc.Ontology.Name, Version: doc.Ontology.Version, IRHash: doc.IRHash}
}

// CheckResult is the compatibility verdict of a current ontology against
// its baseline.
type CheckResult struct {
	Baseline            DocumentRef      `json:"baseline"`
	Current             DocumentRef      `json:"current"`
	Level               string           `json:"level"`
	RequiredBump        compat.Bump      `json:"required_bump"`
	DeclaredBump        compat.Bump      `json:"declared_bump,omitempty"`
	Findings            []compat.Finding `json:"findings"`
	ContractsRecomputed bool             `json:"contracts_recomputed"`
	ContractsDrifted    []string         `json:"contracts_drifted,omitempty"`
	Policy              string           `json:"policy"` // "pass" | "fail"
	Violation           string           `json:"violation,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var baselinePath string

	cmd := &cobra.Command{
		Use:   "check [ontology-file]",
		Short: "Check an ontology against its baseline",
		Long: `Compare the current ontology with the recorded baseline IR.

Every difference is classified as non_functional, additive or breaking.
The version bump declared by the two ontology versions must be at least
the bump the changes require: patch, minor or major respectively.
Exits 1 on a policy violation.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runCheck(p, p.ontologyPath(args), baselinePath)
		},
	}

	cmd.Flags().StringVarP(&baselinePath, "baseline", "b", "", "baseline IR file (overrides compatibility.baseline_ir)")

	return cmd
}

func runCheck(p *project, path, baselinePath string) error {
	base, err := p.loadBaseline(baselinePath)
	if err != nil {
		return p.out.Fail(err)
	}
	c, err := p.compile(path)
	if err != nil {
		return p.out.Fail(err)
	}

	result, policyErr := evaluateCheck(base, c.Doc)
	p.log.Info("compatibility checked",
		zap.String("level", result.Level),
		zap.String("required_bump", string(result.RequiredBump)),
		zap.String("declared_bump", string(result.DeclaredBump)),
		zap.Int("findings", len(result.Findings)),
	)
	if result.ContractsRecomputed {
		p.log.Warn("query contracts recomputed from IR", zap.String("baseline", base.IRHash))
		p.out.Warn("baseline has no stored query contracts; they were recomputed and may differ from what clients saw")
	}
	if len(result.ContractsDrifted) > 0 {
		p.log.Warn("stored query contracts drifted from the IR", zap.Strings("objects", result.ContractsDrifted))
		p.out.Warn("stored query contracts differ from the contracts derived from the IR: %s", strings.Join(result.ContractsDrifted, ", "))
	}

	if p.out.Format == "json" {
		if err := p.out.Success(result); err != nil {
			return err
		}
		if policyErr != nil {
			return WrapExitError(ExitFailure, "policy violation", policyErr)
		}
		return nil
	}

	if policyErr != nil {
		p.out.Cross("%s %s -> %s: %s change", result.Current.Name, result.Baseline.Version, result.Current.Version, result.Level)
		return p.out.Fail(policyErr)
	}

	if result.RequiredBump == compat.BumpNone {
		p.out.Check("%s %s is unchanged since the baseline", result.Current.Name, result.Current.Version)
		return nil
	}
	p.out.Check("%s %s -> %s: %s change, declared %s covers required %s",
		result.Current.Name, result.Baseline.Version, result.Current.Version,
		result.Level, result.DeclaredBump, result.RequiredBump)
	printFindings(p.out, result.Findings)
	return nil
}

// evaluateCheck compares two documents and applies the version policy.
// A malformed or backwards version is reported as a policy violation.
func evaluateCheck(base, current *ir.Document) (CheckResult, error) {
	report := compat.Analyze(base, current)
	result := CheckResult{
		Baseline:            refOf(base),
		Current:             refOf(current),
		Level:               report.Level.String(),
		RequiredBump:        report.Required,
		Findings:            report.Findings,
		ContractsRecomputed: report.ContractsRecomputed,
		ContractsDrifted:    report.ContractsDrifted,
		Policy:              "pass",
	}
	if result.Findings == nil {
		result.Findings = []compat.Finding{}
	}

	declared, err := compat.DeclaredBump(base.Ontology.Version, current.Ontology.Version)
	if err == nil {
		result.DeclaredBump = declared
		err = compat.CheckPolicy(declared, report.Required, report.Findings)
	} else if !domainerr.Is(err, domainerr.KindPolicy) {
		err = domainerr.Policy(err.Error(), nil)
	}
	if err != nil {
		result.Policy = "fail"
		result.Violation = err.Error()
	}
	return result, err
}

func printFindings(out *OutputFormatter, findings []compat.Finding) {
	for _, f := range findings {
		fmt.Fprintf(out.Writer, "  %s\n", f.String())
	}
}
