package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateNoChanges(t *testing.T) {
	dir := newTestProject(t, librarySource)
	recordBaseline(t, dir)

	out, _, err := execute(t, "migrate", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "✓ No schema changes since the baseline\n", out)
}

func TestMigrateAddsColumn(t *testing.T) {
	dir := newTestProject(t, librarySource)
	recordBaseline(t, dir)
	writeOntology(t, dir, withISBN(t, "1.1.0"))

	out, stderr, err := execute(t, "migrate", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "-- ontogen delta migration\n")
	assert.Contains(t, out, "-- from: Library 1.0.0")
	assert.Contains(t, out, "-- to:   Library 1.1.0")
	assert.Contains(t, out, `ALTER TABLE "book" ADD COLUMN "isbn" TEXT;`)
	assert.Empty(t, stderr)
}

func TestMigrateOutputFile(t *testing.T) {
	dir := newTestProject(t, librarySource)
	recordBaseline(t, dir)
	writeOntology(t, dir, withISBN(t, "1.1.0"))
	target := filepath.Join(dir, "migrations", "0002.sql")

	out, _, err := execute(t, "migrate", "--dir", dir, "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote migration to "+target+": 1 safe, 0 manual, 0 destructive")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ADD COLUMN "isbn" TEXT;`)
}

func TestMigrateDestructiveChange(t *testing.T) {
	dir := newTestProject(t, librarySource)
	recordBaseline(t, dir)
	writeOntology(t, dir, withoutPages(t))

	out, stderr, err := execute(t, "migrate", "--dir", dir)
	require.NoError(t, err, "destructive changes are warnings by default")
	assert.Contains(t, stderr, `warning: [destructive]`)
	assert.Contains(t, stderr, `column "pages" removed: not dropped`)
	assert.NotContains(t, out, "DROP")

	_, _, err = execute(t, "migrate", "--dir", dir, "--fail-on-destructive")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestMigrateJSON(t *testing.T) {
	dir := newTestProject(t, librarySource)
	recordBaseline(t, dir)
	writeOntology(t, dir, withoutPages(t))

	out, _, err := execute(t, "migrate", "--dir", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Baseline DocumentRef `json:"baseline"`
			Current  DocumentRef `json:"current"`
			Plan     struct {
				HasChanges bool     `json:"has_changes"`
				Warnings   []string `json:"warnings"`
				Meta       struct {
					DestructiveCount int `json:"destructive_count"`
					Flags            struct {
						DestructiveChanges bool `json:"destructive_changes"`
					} `json:"flags"`
				} `json:"meta"`
			} `json:"plan"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Library", resp.Data.Baseline.Name)
	assert.True(t, resp.Data.Plan.HasChanges)
	assert.Equal(t, 1, resp.Data.Plan.Meta.DestructiveCount)
	assert.True(t, resp.Data.Plan.Meta.Flags.DestructiveChanges)
	assert.NotEmpty(t, resp.Data.Plan.Warnings)
}

func TestMigrateMissingBaseline(t *testing.T) {
	dir := newTestProject(t, librarySource)

	_, _, err := execute(t, "migrate", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
