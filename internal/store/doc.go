// Package store provides SQLite-backed history of accepted baselines.
//
// Every time a baseline is recorded the store keeps the canonical IR
// document together with the compatibility verdict against the previous
// entry, so `ontogen history` can show how an ontology evolved.
//
// # Critical Patterns
//
// Logical ordering
//   - Entries are ordered by seq INTEGER, NEVER by recorded_at
//   - seq is assigned inside the insert transaction as MAX(seq)+1
//
// Idempotent recording
//   - UNIQUE(ir_hash): recording the same document twice is a no-op
//
// Verified reads
//   - Documents read back are decoded and their ir_hash re-verified
package store
