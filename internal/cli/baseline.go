package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/baseline"
	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/domainerr"
)

// BaselineResult reports a recorded baseline.
type BaselineResult struct {
	Path     string       `json:"path"`
	Current  DocumentRef  `json:"current"`
	Previous *DocumentRef `json:"previous,omitempty"`
	Seq      int64        `json:"seq"`
	Created  bool         `json:"created"`
	Level    string       `json:"level,omitempty"`
}

// NewBaselineCommand creates the baseline command.
func NewBaselineCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "baseline [ontology-file]",
		Short: "Record the current ontology as the accepted baseline",
		Long: `Compile the current ontology, write its canonical IR to
compatibility.baseline_ir and append it to the baseline history.

When a baseline already exists the change must pass the version policy,
unless --force is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runBaseline(cmd.Context(), p, p.ontologyPath(args), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "record even when the version policy is violated")

	return cmd
}

func runBaseline(ctx context.Context, p *project, path string, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := p.compile(path)
	if err != nil {
		return p.out.Fail(err)
	}
	target := p.cfg.Compatibility.BaselineIR
	result := BaselineResult{Path: target, Current: refOf(c.Doc)}

	var report *compat.Report
	prev, err := baseline.Load(target)
	switch {
	case err == nil:
		ref := refOf(prev)
		result.Previous = &ref
		check, policyErr := evaluateCheck(prev, c.Doc)
		result.Level = check.Level
		if policyErr != nil && !force {
			return p.out.Fail(policyErr)
		}
		if policyErr != nil {
			p.log.Warn("recording baseline despite policy violation", zap.Error(policyErr))
			p.out.Warn("%v", policyErr)
		}
		report = compat.Analyze(prev, c.Doc)
	case domainerr.Is(err, domainerr.KindIO) && !fileExists(target):
		p.log.Debug("no previous baseline", zap.String("path", target))
	default:
		if !force {
			return p.out.Fail(err)
		}
		p.out.Warn("replacing unreadable baseline: %v", err)
	}

	if err := baseline.Save(target, c.Doc); err != nil {
		return p.out.Fail(err)
	}

	history, err := p.openHistory()
	if err != nil {
		return p.out.Fail(err)
	}
	defer history.Close()

	entry, created, err := history.Record(ctx, c.Doc, report)
	if err != nil {
		return p.out.Fail(err)
	}
	result.Seq = entry.Seq
	result.Created = created
	p.log.Info("baseline recorded",
		zap.String("path", target),
		zap.String("ir_hash", c.Doc.IRHash),
		zap.Int64("seq", entry.Seq),
		zap.Bool("created", created),
	)

	if p.out.Format == "json" {
		return p.out.Success(result)
	}
	if !created {
		p.out.Check("Baseline %s %s already recorded as #%d (ir %s)",
			result.Current.Name, result.Current.Version, entry.Seq, shortHash(entry.IRHash))
		return nil
	}
	p.out.Check("Recorded baseline #%d: %s %s (ir %s)",
		entry.Seq, result.Current.Name, result.Current.Version, shortHash(entry.IRHash))
	return nil
}
