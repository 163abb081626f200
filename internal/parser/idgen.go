package parser

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces stable ids for declarations that lack one.
// kind is the canonical declaration keyword (object, field, action_input, ...).
type IDGenerator interface {
	Generate(kind string) string
}

// UUIDv7Generator generates time-sortable ids of the form "<kind>_<uuidv7>".
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids minted
// for one file sort in materialization order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new id for a declaration of the given kind.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate(kind string) string {
	return kind + "_" + uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns "<kind>_<prefix><n>" with a shared counter.
//
// This enables deterministic tests and golden comparisons of materialized
// source text.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator numbering ids from 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id in sequence.
func (g *SequenceGenerator) Generate(kind string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	return fmt.Sprintf("%s_%s%d", kind, g.prefix, g.n)
}
