package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ontogen/internal/baseline"
	"github.com/roach88/ontogen/internal/domainerr"
	"github.com/roach88/ontogen/internal/store"
)

// timeLayout renders history timestamps.
const timeLayout = "2006-01-02 15:04:05Z"

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded baselines",
		Long: `List every baseline recorded by "ontogen baseline", oldest first,
with the compatibility level of each step.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runHistoryList(cmd, p)
		},
	}

	cmd.AddCommand(newHistoryShowCommand(rootOpts))
	cmd.AddCommand(newHistoryDiffCommand(rootOpts))

	return cmd
}

func newHistoryShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <ir-hash>",
		Short:         "Print a recorded baseline document",
		Long:          "Print the IR document recorded under an ir_hash. A unique prefix of the hash is enough.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runHistoryShow(cmd, p, args[0])
		},
	}
}

func newHistoryDiffCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "diff <from-hash> <to-hash>",
		Short:         "Compare two recorded baselines",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runHistoryDiff(cmd, p, args[0], args[1])
		},
	}
}

func runHistoryList(cmd *cobra.Command, p *project) error {
	history, err := p.openHistory()
	if err != nil {
		return p.out.Fail(err)
	}
	defer history.Close()

	entries, err := history.List(cmd.Context())
	if err != nil {
		return p.out.Fail(err)
	}

	if p.out.Format == "json" {
		return p.out.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(p.out.Writer, "No baselines recorded")
		return nil
	}
	for _, e := range entries {
		level := e.Level
		if level == "" {
			level = "initial"
		}
		fmt.Fprintf(p.out.Writer, "#%-3d %s  %s %-10s %-14s %s\n",
			e.Seq, shortHash(e.IRHash), e.OntologyName, e.Version, level, e.RecordedAt.UTC().Format(timeLayout))
		if p.out.Verbose {
			for _, f := range e.Findings {
				fmt.Fprintf(p.out.Writer, "       %s\n", f)
			}
		}
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, p *project, hash string) error {
	history, err := p.openHistory()
	if err != nil {
		return p.out.Fail(err)
	}
	defer history.Close()

	doc, err := history.Document(cmd.Context(), hash)
	if err != nil {
		return p.out.Fail(historyLookupError(hash, err))
	}

	if p.out.Format == "json" {
		return p.out.Success(doc)
	}
	pretty, err := baseline.Pretty(doc)
	if err != nil {
		return p.out.Fail(err)
	}
	fmt.Fprintln(p.out.Writer, string(pretty))
	return nil
}

func runHistoryDiff(cmd *cobra.Command, p *project, fromHash, toHash string) error {
	history, err := p.openHistory()
	if err != nil {
		return p.out.Fail(err)
	}
	defer history.Close()

	from, err := history.Document(cmd.Context(), fromHash)
	if err != nil {
		return p.out.Fail(historyLookupError(fromHash, err))
	}
	to, err := history.Document(cmd.Context(), toHash)
	if err != nil {
		return p.out.Fail(historyLookupError(toHash, err))
	}

	// The versions are history, so a policy violation is only reported.
	result, _ := evaluateCheck(from, to)
	if p.out.Format == "json" {
		return p.out.Success(result)
	}
	fmt.Fprintf(p.out.Writer, "%s %s -> %s: %s change (required %s, policy %s)\n",
		result.Current.Name, result.Baseline.Version, result.Current.Version,
		result.Level, result.RequiredBump, result.Policy)
	printFindings(p.out, result.Findings)
	return nil
}

// historyLookupError turns a missing entry into an IO domain error.
func historyLookupError(hash string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainerr.IO(fmt.Sprintf("no baseline recorded with ir_hash %s", hash),
			`run "ontogen history" to list recorded hashes`, err)
	}
	return err
}
