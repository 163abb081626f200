package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/ir"
)

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("baseline not found")

// Entry is one recorded baseline.
type Entry struct {
	Seq          int64     `json:"seq"`
	IRHash       string    `json:"ir_hash"`
	OntologyID   string    `json:"ontology_id"`
	OntologyName string    `json:"ontology_name"`
	Version      string    `json:"version"`
	Level        string    `json:"level,omitempty"`
	RequiredBump string    `json:"required_bump,omitempty"`
	Findings     []string  `json:"findings"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Record appends a sealed document to the history. report is the
// compatibility verdict against the previous baseline, nil for the first.
//
// Recording a document whose ir_hash is already present is a no-op:
// the existing entry is returned with created false.
func (s *Store) Record(ctx context.Context, doc *ir.Document, report *compat.Report) (Entry, bool, error) {
	if doc.IRHash == "" {
		return Entry{}, false, fmt.Errorf("record baseline: document is not sealed")
	}

	body, err := marshalDocument(doc)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record baseline: %w", err)
	}

	e := Entry{
		IRHash:       doc.IRHash,
		OntologyID:   doc.Ontology.ID,
		OntologyName: doc.Ontology.Name,
		Version:      doc.Ontology.Version,
		Findings:     []string{},
		RecordedAt:   s.clock.Now().UTC().Truncate(time.Second),
	}
	if report != nil {
		e.Level = report.Level.String()
		e.RequiredBump = string(report.Required)
		if msgs := report.Messages(); msgs != nil {
			e.Findings = msgs
		}
	}
	findings, err := marshalFindings(e.Findings)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record baseline: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record baseline: begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanEntry(tx.QueryRowContext(ctx, selectEntry+` WHERE ir_hash = ?`, doc.IRHash))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Entry{}, false, fmt.Errorf("record baseline: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM baselines`).Scan(&e.Seq); err != nil {
		return Entry{}, false, fmt.Errorf("record baseline: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO baselines
		(seq, ir_hash, ontology_id, ontology_name, version, level, required_bump, findings, document, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		e.IRHash,
		e.OntologyID,
		e.OntologyName,
		e.Version,
		e.Level,
		e.RequiredBump,
		findings,
		body,
		e.RecordedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record baseline: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, false, fmt.Errorf("record baseline: commit: %w", err)
	}
	return e, true, nil
}

const selectEntry = `
	SELECT seq, ir_hash, ontology_id, ontology_name, version, level, required_bump, findings, recorded_at
	FROM baselines`

// List returns every entry, oldest first.
// Returns an empty slice (not nil) when the history is empty.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query baselines: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baselines: %w", err)
	}
	return entries, nil
}

// Latest returns the most recent entry, or ErrNotFound.
func (s *Store) Latest(ctx context.Context) (Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, selectEntry+` ORDER BY seq DESC LIMIT 1`))
}

// Document returns the stored document with the given ir_hash. A unique
// hash prefix is accepted.
func (s *Store) Document(ctx context.Context, hash string) (*ir.Document, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: empty hash", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT document FROM baselines
		WHERE substr(ir_hash, 1, length(?)) = ?
		ORDER BY seq ASC
		LIMIT 2
	`, hash, hash)
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	switch len(bodies) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	case 1:
		return unmarshalDocument(bodies[0])
	default:
		return nil, fmt.Errorf("hash prefix %s is ambiguous", hash)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		findings   string
		recordedAt string
	)
	err := row.Scan(&e.Seq, &e.IRHash, &e.OntologyID, &e.OntologyName, &e.Version,
		&e.Level, &e.RequiredBump, &findings, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("scan baseline: %w", err)
	}

	if e.Findings, err = unmarshalFindings(findings); err != nil {
		return Entry{}, err
	}
	if e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt); err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at: %w", err)
	}
	return e, nil
}
