package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/ontogen/internal/compiler"
	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/parser"
	"github.com/roach88/ontogen/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// buildDocument compiles CommerceSource with the given edits applied.
func buildDocument(t *testing.T, pairs ...string) *ir.Document {
	t.Helper()
	ont, err := parser.Parse(testutil.Edit(testutil.CommerceSource, pairs...))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	doc, err := compiler.BuildIR(ont, compiler.Config{})
	if err != nil {
		t.Fatalf("BuildIR() failed: %v", err)
	}
	return doc
}
