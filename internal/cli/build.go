package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/baseline"
	"github.com/roach88/ontogen/internal/compiler"
	"github.com/roach88/ontogen/internal/migrate"
)

// Build artifact file names inside project.out_dir.
const (
	IRFileName       = "ir.json"
	PrettyIRFileName = "ir.pretty.json"
	SchemaFileName   = "schema.sql"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	OutDir string // overrides project.out_dir
	Pretty bool   // also write an indented copy of the IR
}

// BuildResult summarizes a build.
type BuildResult struct {
	Ontology       string                  `json:"ontology"`
	Version        string                  `json:"version"`
	IRHash         string                  `json:"ir_hash"`
	Objects        int                     `json:"objects"`
	QueryContracts int                     `json:"query_contracts"`
	Files          []string                `json:"files"`
	Warnings       []compiler.CycleWarning `json:"warnings"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build [ontology-file]",
		Short: "Compile an ontology to canonical IR and schema DDL",
		Long: `Compile an ontology to its canonical, hashed IR document.

Writes ir.json (the hashed canonical form) and schema.sql (the full
Postgres schema) to project.out_dir. Cycles in trigger chains and struct
embeddings are reported as warnings.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer p.close()
			return runBuild(p, opts, p.ontologyPath(args))
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", "", "output directory (overrides project.out_dir)")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "also write an indented ir.pretty.json")

	return cmd
}

type artifact struct {
	name string
	data []byte
}

func runBuild(p *project, opts *BuildOptions, path string) error {
	c, err := p.compile(path)
	if err != nil {
		return p.out.Fail(err)
	}
	doc := c.Doc

	outDir := opts.OutDir
	if outDir == "" {
		outDir = p.cfg.Project.OutDir
	}

	encoded, err := doc.Encode()
	if err != nil {
		return p.out.Fail(err)
	}
	artifacts := []artifact{
		{IRFileName, encoded},
		{SchemaFileName, []byte(migrate.RenderSchema(doc))},
	}
	if opts.Pretty {
		pretty, err := baseline.Pretty(doc)
		if err != nil {
			return p.out.Fail(err)
		}
		artifacts = append(artifacts, artifact{PrettyIRFileName, pretty})
	}

	result := BuildResult{
		Ontology:       doc.Ontology.Name,
		Version:        doc.Ontology.Version,
		IRHash:         doc.IRHash,
		Objects:        len(doc.Objects),
		QueryContracts: len(doc.QueryContracts),
		Files:          []string{},
		Warnings:       compiler.AnalyzeCycles(doc),
	}
	for _, a := range artifacts {
		target := filepath.Join(outDir, a.name)
		if err := writeFile(target, a.data); err != nil {
			_ = p.out.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "write build output", err)
		}
		p.out.VerboseLog("Wrote %s (%d bytes)", target, len(a.data))
		result.Files = append(result.Files, target)
	}
	p.log.Info("build complete",
		zap.String("ir_hash", doc.IRHash),
		zap.Strings("files", result.Files),
		zap.Int("warnings", len(result.Warnings)),
	)

	for _, w := range result.Warnings {
		p.out.Warn("%s", w.Message)
	}

	if p.out.Format == "json" {
		return p.out.Success(result)
	}

	p.out.Check("Built %s %s (ir %s)", result.Ontology, result.Version, shortHash(result.IRHash))
	fmt.Fprintf(p.out.Writer, "  %d object(s), %d query contract(s)\n", result.Objects, result.QueryContracts)
	for _, f := range result.Files {
		fmt.Fprintf(p.out.Writer, "  wrote %s\n", f)
	}
	return nil
}

// shortHash abbreviates an IR hash for display.
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
