// Package harness runs compatibility scenarios against the ontogen core.
//
// A scenario names a baseline ontology and a candidate derived from it,
// then states what the compatibility analyzer and the delta migration
// planner must conclude about the change.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: book_evolution
//	description: "Widening a field and adding an optional one is additive"
//	baseline: ../ontologies/library.onto
//	candidate: ../ontologies/library_v2.onto   # optional
//	edits:                                       # applied to the candidate
//	  - from: 'version "1.0.0"'
//	    to: 'version "1.1.0"'
//	strict_enums: true                           # optional, default true
//	expect:
//	  level: additive
//	  required_bump: minor
//	  policy: pass
//	assertions:
//	  - type: finding_contains
//	    message: "[additive] object obj-book field f-book-isbn: optional field added"
//	  - type: migration_count
//	    safety: safe_auto_apply
//	    count: 2
//
// Paths are relative to the scenario file. When candidate is omitted the
// baseline source is edited instead. Each edit replaces the first
// occurrence of from and fails the scenario when from is absent.
//
// # Assertion Types
//
//   - finding_contains: a compatibility finding equals message
//   - finding_count: exactly count findings, of level when given
//   - warning_contains: a migration warning equals message
//   - migration_contains: the migration SQL contains sql
//   - migration_count: exactly count migration findings of safety
//
// # Golden Snapshots
//
// RunWithGolden compares the report and the migration SQL against files
// under testdata/golden. IR hashes are redacted from the SQL so a snapshot
// survives toolchain version bumps. Regenerate with:
//
//	go test ./internal/harness -update
package harness
