// Package ir defines the canonical intermediate representation of an
// ontology and its hashing rules.
//
// This package contains types and encoding only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Identity is by id. Names are labels and never join keys.
//   - Every collection is sorted by id before it is hashed.
//   - NO floats and NO nulls in a hashed document
//   - All JSON tags use snake_case
package ir
