// Package querycontract derives per-object query contracts from an IR
// document and checks filter requests against them.
//
// A contract lists, for every filterable field of an object, the filter
// operators that field supports:
//
//	string, duration                          eq, in, contains
//	int, long, short, byte, double, float,
//	decimal, date, datetime                   eq, in, gte, lte
//	boolean                                   eq
//	object reference                          eq, in
//	anything else                             eq, in
//
// List and struct fields are never filterable. A custom type filters like
// its base. Stateful objects get an implicit "currentState" filter with
// eq and in.
//
// Contracts are keyed by ids only. Paths come from the object's path (which
// defaults to "/<object id>"), so renaming an object never changes its
// contract. Each contract carries a content hash for drift detection.
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// Equals, OneOf, Contains and Range implement it, so request validation and
// the SQL backend switch over predicates exhaustively.
package querycontract
