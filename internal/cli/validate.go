package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Ontology string                     `json:"ontology,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [ontology-file]",
		Short: "Validate an ontology without building IR",
		Long: `Parse an ontology and check it for referential and structural errors.

Every violation is reported, not just the first. Faster than build for
development feedback. Defaults to project.ontology_file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			if cmd.Flags().Changed("strict") {
				p.cfg.Validation.Strict = strict
			}
			return runValidate(p, p.ontologyPath(args))
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "also reject duplicate state names (overrides validation.strict)")

	return cmd
}

func runValidate(p *project, path string) error {
	c, err := p.parse(path)
	if err != nil {
		return p.out.Fail(err)
	}

	errs := compiler.Validate(c.Ontology, compiler.Options{Strict: p.cfg.Validation.Strict})
	p.log.Debug("validated ontology", zap.String("path", path), zap.Int("errors", len(errs)))

	result := ValidationResult{Valid: len(errs) == 0, Ontology: c.Ontology.Name, Errors: errs}
	if p.out.Format == "json" {
		if err := p.out.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		p.out.Check("%s is valid (%d objects, %d actions, %d events)",
			c.Ontology.Name, len(c.Ontology.Objects), len(c.Ontology.Actions), len(c.Ontology.Events))
	} else {
		p.out.Cross("%s has %d validation error(s)", c.Ontology.Name, len(errs))
		for _, e := range errs {
			fmt.Fprintf(p.out.Writer, "  %s\n", e.Error())
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(errs)))
	}
	return nil
}
