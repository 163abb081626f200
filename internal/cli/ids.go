package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/parser"
)

// newIDGenerator mints ids for `ontogen ids`. Tests swap it for a
// deterministic generator.
var newIDGenerator = func() parser.IDGenerator { return parser.UUIDv7Generator{} }

// IDInsertion describes one id added to the source.
type IDInsertion struct {
	Line int    `json:"line"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// IDsResult summarizes an ids run.
type IDsResult struct {
	File     string        `json:"file"`
	Inserted []IDInsertion `json:"inserted"`
	Written  bool          `json:"written"`
}

// NewIDsCommand creates the ids command.
func NewIDsCommand(rootOpts *RootOptions) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "ids [ontology-file]",
		Short: "Add stable ids to declarations that lack one",
		Long: `Insert an id line into every declaration block that has none.

Ids are what identity is keyed on across versions, so they must be
materialized once and committed. Without --write the updated source is
printed to stdout; with --write the file is rewritten in place. Running it
on a fully materialized file changes nothing.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runIDs(p, p.ontologyPath(args), write)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place")

	return cmd
}

func runIDs(p *project, path string, write bool) error {
	src, err := readSource(path)
	if err != nil {
		return p.out.Fail(err)
	}

	text, inserted := parser.MaterializeMissingIDs(src, newIDGenerator())
	// The result must still parse; ids never repair a broken file.
	if _, err := parser.Parse(text); err != nil {
		return p.out.Fail(err)
	}

	result := IDsResult{File: path, Inserted: make([]IDInsertion, len(inserted))}
	for i, m := range inserted {
		result.Inserted[i] = IDInsertion{Line: m.Line, Kind: m.Kind, Name: m.Name, ID: m.ID}
		p.log.Debug("materialized id",
			zap.Int("line", m.Line),
			zap.String("kind", m.Kind),
			zap.String("name", m.Name),
			zap.String("id", m.ID),
		)
	}

	if write && len(inserted) > 0 {
		if err := writeFile(path, []byte(text)); err != nil {
			_ = p.out.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write ontology", err)
		}
		result.Written = true
	}

	if p.out.Format == "json" {
		return p.out.Success(result)
	}

	if !write {
		fmt.Fprint(p.out.Writer, text)
		for _, m := range result.Inserted {
			p.out.VerboseLog("line %d: %s %s -> %s", m.Line, m.Kind, m.Name, m.ID)
		}
		return nil
	}
	if len(inserted) == 0 {
		p.out.Check("%s: every declaration already has an id", path)
		return nil
	}
	p.out.Check("%s: added %d id(s)", path, len(inserted))
	for _, m := range result.Inserted {
		fmt.Fprintf(p.out.Writer, "  line %d: %s %s -> %s\n", m.Line, m.Kind, m.Name, m.ID)
	}
	return nil
}
