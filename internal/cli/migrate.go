package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/migrate"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Baseline          string
	Output            string
	FailOnDestructive bool
}

// MigrateResult wraps a plan with the documents it spans.
type MigrateResult struct {
	Baseline DocumentRef   `json:"baseline"`
	Current  DocumentRef   `json:"current"`
	Output   string        `json:"output,omitempty"`
	Plan     *migrate.Plan `json:"plan"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate [ontology-file]",
		Short: "Plan the SQL migration from the baseline to the current ontology",
		Long: `Render the Postgres DDL that evolves the baseline schema into the
current one.

Every change is classified safe_auto_apply, manual_review or destructive.
Only safe changes are rendered as executable SQL; the rest are commented
and repeated as warnings on stderr. Tables and columns are never dropped.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runMigrate(p, opts, p.ontologyPath(args))
		},
	}

	cmd.Flags().StringVarP(&opts.Baseline, "baseline", "b", "", "baseline IR file (overrides compatibility.baseline_ir)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the SQL to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.FailOnDestructive, "fail-on-destructive", false, "exit 1 when the plan has destructive changes")

	return cmd
}

func runMigrate(p *project, opts *MigrateOptions, path string) error {
	base, err := p.loadBaseline(opts.Baseline)
	if err != nil {
		return p.out.Fail(err)
	}
	c, err := p.compile(path)
	if err != nil {
		return p.out.Fail(err)
	}

	plan := migrate.PlanDelta(base, c.Doc)
	p.log.Info("migration planned",
		zap.Bool("has_changes", plan.HasChanges),
		zap.Int("safe", plan.Meta.SafeCount),
		zap.Int("manual", plan.Meta.ManualCount),
		zap.Int("destructive", plan.Meta.DestructiveCount),
	)

	if opts.Output != "" {
		if err := writeFile(opts.Output, []byte(plan.SQL)); err != nil {
			_ = p.out.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write migration", err)
		}
		p.out.VerboseLog("Wrote %s (%d bytes)", opts.Output, len(plan.SQL))
	}

	if p.out.Format == "json" {
		if err := p.out.Success(MigrateResult{
			Baseline: refOf(base),
			Current:  refOf(c.Doc),
			Output:   opts.Output,
			Plan:     plan,
		}); err != nil {
			return err
		}
	} else {
		for _, w := range plan.Warnings {
			p.out.Warn("%s", w)
		}
		switch {
		case opts.Output != "":
			p.out.Check("Wrote migration to %s: %d safe, %d manual, %d destructive",
				opts.Output, plan.Meta.SafeCount, plan.Meta.ManualCount, plan.Meta.DestructiveCount)
		case !plan.HasChanges:
			p.out.Check("No schema changes since the baseline")
		default:
			fmt.Fprint(p.out.Writer, plan.SQL)
		}
	}

	if opts.FailOnDestructive && plan.Meta.Flags.DestructiveChanges {
		return NewExitError(ExitFailure, fmt.Sprintf("%d destructive change(s)", plan.Meta.DestructiveCount))
	}
	return nil
}
