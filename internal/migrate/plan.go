package migrate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/ontogen/internal/compat"
	"github.com/roach88/ontogen/internal/ir"
)

// Safety classifies how a change may be applied.
type Safety string

const (
	// SafeAutoApply changes are rendered as executable SQL.
	SafeAutoApply Safety = "safe_auto_apply"
	// ManualReview changes need a human decision, usually a backfill.
	ManualReview Safety = "manual_review"
	// Destructive changes lose data; they are only warned about.
	Destructive Safety = "destructive"
)

// Finding is one classified schema change.
type Finding struct {
	Safety   Safety `json:"safety"`
	Scope    string `json:"scope"`
	Message  string `json:"message"`
	Backfill bool   `json:"backfill,omitempty"`
}

// String renders a finding for humans.
func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Safety, f.Scope, f.Message)
}

// Flags summarize the safety of a plan.
type Flags struct {
	DestructiveChanges   bool `json:"destructive_changes"`
	BackfillRequired     bool `json:"backfill_required"`
	ManualReviewRequired bool `json:"manual_review_required"`
}

// Meta carries the classification of a plan.
type Meta struct {
	SafeCount        int       `json:"safe_count"`
	ManualCount      int       `json:"manual_count"`
	DestructiveCount int       `json:"destructive_count"`
	Flags            Flags     `json:"flags"`
	Findings         []Finding `json:"findings"`
}

// Plan is a delta migration from a baseline document to a current one.
type Plan struct {
	SQL        string   `json:"sql"`
	Warnings   []string `json:"warnings"`
	HasChanges bool     `json:"has_changes"`
	Meta       Meta     `json:"meta"`
}

// PlanDelta renders the SQL that evolves the schema of oldDoc into the
// schema of newDoc and classifies every change.
//
// Objects and fields are processed in id order, so the output is
// deterministic. Removed tables and columns are never dropped: they are
// reported as destructive findings and warnings only. Rename hints are
// advisory and never change the SQL or the classification.
func PlanDelta(oldDoc, newDoc *ir.Document) *Plan {
	p := &planner{oldDoc: oldDoc, newDoc: newDoc}

	oldObjects := objectsByID(oldDoc)
	newObjects := objectsByID(newDoc)

	var added, removed []string
	for _, id := range unionKeys(oldObjects, newObjects) {
		o, inOld := oldObjects[id]
		n, inNew := newObjects[id]
		scope := "object " + id
		switch {
		case !inOld:
			added = append(added, id)
			p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: fmt.Sprintf("object added: create table %s", quote(TableName(n)))},
				createStatements(newDoc, n)...)
		case !inNew:
			removed = append(removed, id)
			p.record(Finding{Safety: Destructive, Scope: scope, Message: fmt.Sprintf("object removed: table %s is not dropped", quote(TableName(o)))})
		default:
			p.diffObject(o, n)
		}
	}
	p.warnings = append(p.warnings, objectRenameHints(oldDoc, newDoc, removed, added)...)

	return p.plan()
}

type planner struct {
	oldDoc, newDoc *ir.Document
	chunks         []string
	warnings       []string
	findings       []Finding
}

// record adds a finding with the SQL that applies it. Findings that are
// not safe also become warnings.
func (p *planner) record(f Finding, sql ...string) {
	p.findings = append(p.findings, f)
	lines := append([]string{"-- " + f.String()}, sql...)
	p.chunks = append(p.chunks, strings.Join(lines, "\n"))
	if f.Safety != SafeAutoApply {
		p.warnings = append(p.warnings, f.String())
	}
}

func (p *planner) diffObject(o, n *ir.Object) {
	scope := "object " + n.ID
	table := quote(TableName(n))

	if TableName(o) != TableName(n) {
		p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: fmt.Sprintf("table renamed from %s to %s", quote(TableName(o)), table)},
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s;", quote(TableName(o)), table))
	}

	oldFields := fieldsByID(o)
	newFields := fieldsByID(n)
	var added, removed []string
	for _, id := range unionKeys(oldFields, newFields) {
		of, inOld := oldFields[id]
		nf, inNew := newFields[id]
		fieldScope := scope + " field " + id
		switch {
		case !inOld:
			added = append(added, id)
			p.addColumn(fieldScope, table, nf)
		case !inNew:
			removed = append(removed, id)
			p.record(Finding{Safety: Destructive, Scope: fieldScope, Message: fmt.Sprintf("column %s removed: not dropped", quote(ColumnName(of)))})
		default:
			p.diffField(fieldScope, table, of, nf)
		}
	}
	p.warnings = append(p.warnings, columnRenameHints(p.oldDoc, p.newDoc, o, n, removed, added)...)

	p.diffStates(scope, table, o, n)

	if !slices.Equal(o.PrimaryKey, n.PrimaryKey) {
		p.record(Finding{Safety: ManualReview, Scope: scope, Message: "primary key changed"},
			fmt.Sprintf("-- replace the primary key constraint of %s with PRIMARY KEY (%s)", table, strings.Join(keyColumns(n, n.PrimaryKey), ", ")))
	}
	if !slices.Equal(o.DisplayKey, n.DisplayKey) {
		sql := []string{dropDisplayIndex(n)}
		if idx := createDisplayIndex(n); idx != "" {
			sql = append(sql, idx)
		}
		p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: "display index recomputed"}, sql...)
	}
}

func (p *planner) addColumn(scope, table string, f *ir.Field) {
	col := quote(ColumnName(f))
	add := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, col, SQLType(p.newDoc, f.Type))
	if f.Required() {
		p.record(Finding{Safety: ManualReview, Scope: scope, Message: fmt.Sprintf("required column %s added without NOT NULL: needs backfill", col), Backfill: true},
			add,
			fmt.Sprintf("-- after backfill: ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", table, col))
		return
	}
	p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: fmt.Sprintf("optional column %s added", col)}, add)
}

// sqlWidening lists column type changes Postgres performs without loss.
var sqlWidening = map[[2]string]bool{
	{"INTEGER", "BIGINT"}:         true,
	{"REAL", "DOUBLE PRECISION"}: true,
}

func (p *planner) diffField(scope, table string, o, n *ir.Field) {
	oldCol, newCol := quote(ColumnName(o)), quote(ColumnName(n))
	if oldCol != newCol {
		p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: fmt.Sprintf("column renamed from %s to %s", oldCol, newCol)},
			fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", table, oldCol, newCol))
	}

	oldType, newType := SQLType(p.oldDoc, o.Type), SQLType(p.newDoc, n.Type)
	switch level := compat.ClassifyTypeChange(o.Type, n.Type); {
	case ir.IsList(o.Type) != ir.IsList(n.Type):
		p.record(Finding{Safety: Destructive, Scope: scope, Message: fmt.Sprintf("column %s changed between scalar and list (%s to %s): not altered", newCol, o.Type, n.Type)})
	case level == compat.Breaking:
		p.record(Finding{Safety: Destructive, Scope: scope, Message: fmt.Sprintf("column %s has an incompatible type change from %s to %s: not altered", newCol, o.Type, n.Type)})
	case oldType == newType:
	case level == compat.Additive || sqlWidening[[2]string{oldType, newType}]:
		p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: fmt.Sprintf("column %s widened from %s to %s", newCol, oldType, newType)},
			fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;", table, newCol, newType))
	default:
		p.record(Finding{Safety: Destructive, Scope: scope, Message: fmt.Sprintf("column %s type changed from %s to %s: not altered", newCol, oldType, newType)})
	}

	switch {
	case n.Cardinality.Min > o.Cardinality.Min:
		p.record(Finding{Safety: ManualReview, Scope: scope, Message: fmt.Sprintf("column %s became required: needs backfill", newCol), Backfill: true},
			fmt.Sprintf("-- after backfill: ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", table, newCol))
	case n.Cardinality.Min < o.Cardinality.Min:
		p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: fmt.Sprintf("column %s became optional", newCol)},
			fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", table, newCol))
	}
}

func (p *planner) diffStates(scope, table string, o, n *ir.Object) {
	col := quote(StateColumn)
	switch {
	case !o.IsStateful() && n.IsStateful():
		initial, _ := n.InitialState()
		p.record(Finding{Safety: SafeAutoApply, Scope: scope, Message: "object became stateful"},
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, stateColumnDefinition(initial)))
	case o.IsStateful() && !n.IsStateful():
		p.record(Finding{Safety: Destructive, Scope: scope, Message: fmt.Sprintf("object is no longer stateful: column %s is not dropped", col)})
	case o.IsStateful() && n.IsStateful() && !slices.Equal(stateSignature(o), stateSignature(n)):
		sql := []string{fmt.Sprintf("-- review rows of %s whose %s is no longer one of %s", table, col, strings.Join(stateNames(n), ", "))}
		oldInitial, _ := o.InitialState()
		newInitial, _ := n.InitialState()
		if oldInitial.Name != newInitial.Name {
			sql = append(sql, fmt.Sprintf("-- ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", table, col, pq.QuoteLiteral(newInitial.Name)))
		}
		p.record(Finding{Safety: ManualReview, Scope: scope,
			Message: fmt.Sprintf("state set changed from [%s] to [%s]", strings.Join(stateNames(o), ", "), strings.Join(stateNames(n), ", "))},
			sql...)
	}
}

// stateSignature captures what the state column stores and defaults to.
func stateSignature(o *ir.Object) []string {
	sig := make([]string, len(o.States))
	for i, s := range o.States {
		sig[i] = fmt.Sprintf("%s=%s/%t", s.ID, s.Name, s.Initial)
	}
	return sig
}

func stateNames(o *ir.Object) []string {
	names := make([]string, len(o.States))
	for i, s := range o.States {
		names[i] = s.Name
	}
	slices.Sort(names)
	return names
}

func (p *planner) plan() *Plan {
	meta := Meta{Findings: p.findings}
	if meta.Findings == nil {
		meta.Findings = []Finding{}
	}
	for _, f := range p.findings {
		switch f.Safety {
		case SafeAutoApply:
			meta.SafeCount++
		case ManualReview:
			meta.ManualCount++
		case Destructive:
			meta.DestructiveCount++
		}
		if f.Backfill {
			meta.Flags.BackfillRequired = true
		}
	}
	meta.Flags.DestructiveChanges = meta.DestructiveCount > 0
	meta.Flags.ManualReviewRequired = meta.ManualCount > 0

	var b strings.Builder
	b.WriteString("-- ontogen delta migration\n")
	fmt.Fprintf(&b, "-- from: %s %s (ir %s)\n", p.oldDoc.Ontology.Name, p.oldDoc.Ontology.Version, shortHash(p.oldDoc.IRHash))
	fmt.Fprintf(&b, "-- to:   %s %s (ir %s)\n", p.newDoc.Ontology.Name, p.newDoc.Ontology.Version, shortHash(p.newDoc.IRHash))
	fmt.Fprintf(&b, "-- safe_auto_apply: %d\n", meta.SafeCount)
	fmt.Fprintf(&b, "-- manual_review: %d\n", meta.ManualCount)
	fmt.Fprintf(&b, "-- destructive: %d\n", meta.DestructiveCount)
	fmt.Fprintf(&b, "-- destructive_changes: %t\n", meta.Flags.DestructiveChanges)
	fmt.Fprintf(&b, "-- backfill_required: %t\n", meta.Flags.BackfillRequired)
	fmt.Fprintf(&b, "-- manual_review_required: %t\n", meta.Flags.ManualReviewRequired)
	if len(p.chunks) == 0 {
		b.WriteString("\n-- no changes\n")
	}
	for _, chunk := range p.chunks {
		b.WriteString("\n")
		b.WriteString(chunk)
		b.WriteString("\n")
	}

	warnings := p.warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &Plan{
		SQL:        b.String(),
		Warnings:   warnings,
		HasChanges: len(p.findings) > 0,
		Meta:       meta,
	}
}

func objectsByID(doc *ir.Document) map[string]*ir.Object {
	out := make(map[string]*ir.Object, len(doc.Objects))
	for i := range doc.Objects {
		out[doc.Objects[i].ID] = &doc.Objects[i]
	}
	return out
}

func fieldsByID(o *ir.Object) map[string]*ir.Field {
	out := make(map[string]*ir.Field, len(o.Fields))
	for i := range o.Fields {
		out[o.Fields[i].ID] = &o.Fields[i]
	}
	return out
}

// unionKeys returns the sorted union of two maps' keys.
func unionKeys[T any](a, b map[string]T) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, cmp.Compare[string])
	return keys
}
