package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/baseline"
	"github.com/roach88/ontogen/internal/compiler"
	"github.com/roach88/ontogen/internal/config"
	"github.com/roach88/ontogen/internal/domainerr"
	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/parser"
	"github.com/roach88/ontogen/internal/store"
)

// project is the per-invocation state every command starts from.
type project struct {
	cfg *config.Config
	log *zap.Logger
	out *OutputFormatter
}

// newFormatter creates the formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openProject loads the config and sets up logging and output.
// A config error is reported and returned as an ExitCommandError.
func openProject(opts *RootOptions, cmd *cobra.Command) (*project, error) {
	out := newFormatter(opts, cmd)

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	cfg, err := config.Load(dir, opts.ConfigFile)
	if err != nil {
		if outErr := out.Error(ErrCodeConfig, err.Error(), nil); outErr != nil {
			return nil, outErr
		}
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	log := newLogger(opts.Verbose)
	if cfg.File != "" {
		log = log.With(zap.String("config", cfg.File))
	}
	return &project{cfg: cfg, log: log, out: out}, nil
}

// close flushes the logger.
func (p *project) close() {
	_ = p.log.Sync()
}

// ontologyPath returns the ontology named on the command line, or the
// configured one when args is empty.
func (p *project) ontologyPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return p.cfg.Project.OntologyFile
}

// readSource reads an ontology file. Failures are IO domain errors.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domainerr.IO(fmt.Sprintf("ontology %s not found", path),
				"pass the file as an argument or set project.ontology_file", err)
		}
		return "", domainerr.IO(fmt.Sprintf("read ontology %s", path), "check the file permissions", err)
	}
	return string(data), nil
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFile replaces path atomically, creating parent directories.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domainerr.IO(fmt.Sprintf("create directory for %s", path), "check the directory permissions", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return domainerr.IO(fmt.Sprintf("write %s", path), "check the directory permissions", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domainerr.IO(fmt.Sprintf("write %s", path), "check free disk space", err)
	}
	if err := tmp.Close(); err != nil {
		return domainerr.IO(fmt.Sprintf("write %s", path), "check free disk space", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return domainerr.IO(fmt.Sprintf("replace %s", path), "check the file permissions", err)
	}
	return nil
}

// compiled is the outcome of the parse, validate and build stages.
type compiled struct {
	Path     string
	Source   string
	Ontology *ast.Ontology
	Doc      *ir.Document
}

// parse reads and parses path.
func (p *project) parse(path string) (*compiled, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}
	ont, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	p.log.Debug("parsed ontology",
		zap.String("path", path),
		zap.String("ontology", ont.Name),
		zap.Int("objects", len(ont.Objects)),
	)
	return &compiled{Path: path, Source: src, Ontology: ont}, nil
}

// compile parses, validates and builds the sealed IR of path.
func (p *project) compile(path string) (*compiled, error) {
	c, err := p.parse(path)
	if err != nil {
		return nil, err
	}
	if err := compiler.Check(c.Ontology, compiler.Options{Strict: p.cfg.Validation.Strict}); err != nil {
		return nil, err
	}
	doc, err := compiler.BuildIR(c.Ontology, compiler.Config{StrictEnums: p.cfg.Compatibility.StrictEnums})
	if err != nil {
		return nil, err
	}
	c.Doc = doc
	p.log.Debug("built IR",
		zap.String("ir_hash", doc.IRHash),
		zap.String("version", doc.Ontology.Version),
		zap.Int("query_contracts", len(doc.QueryContracts)),
	)
	return c, nil
}

// loadBaseline reads the baseline at path, or the configured one.
func (p *project) loadBaseline(path string) (*ir.Document, error) {
	if path == "" {
		path = p.cfg.Compatibility.BaselineIR
	}
	doc, err := baseline.Load(path)
	if err != nil {
		return nil, err
	}
	p.log.Debug("loaded baseline",
		zap.String("path", path),
		zap.String("ir_hash", doc.IRHash),
		zap.String("version", doc.Ontology.Version),
	)
	return doc, nil
}

// openHistory opens the configured baseline history database.
func (p *project) openHistory() (*store.Store, error) {
	path := p.cfg.Compatibility.HistoryDB
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, domainerr.IO(fmt.Sprintf("create directory for %s", path), "check the directory permissions", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, domainerr.IO(fmt.Sprintf("open history %s", path),
			"check compatibility.history_db or delete a corrupt database", err)
	}
	return s, nil
}
