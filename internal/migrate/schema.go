package migrate

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/ontogen/internal/ir"
)

// RenderSchema renders the full Postgres schema of a document: one table
// per object, in id order, each followed by its display-key index.
func RenderSchema(doc *ir.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- ontogen schema: %s %s (ir %s)\n", doc.Ontology.Name, doc.Ontology.Version, shortHash(doc.IRHash))
	for i := range doc.Objects {
		b.WriteString("\n")
		for _, stmt := range createStatements(doc, &doc.Objects[i]) {
			b.WriteString(stmt)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// createStatements returns the CREATE TABLE statement of an object and
// its index statements.
func createStatements(doc *ir.Document, o *ir.Object) []string {
	stmts := []string{createTable(doc, o)}
	if idx := createDisplayIndex(o); idx != "" {
		stmts = append(stmts, idx)
	}
	return stmts
}

func createTable(doc *ir.Document, o *ir.Object) string {
	pk := make(map[string]bool, len(o.PrimaryKey))
	for _, id := range o.PrimaryKey {
		pk[id] = true
	}

	defs := make([]string, 0, len(o.Fields)+2)
	for i := range o.Fields {
		f := &o.Fields[i]
		defs = append(defs, columnDefinition(doc, f, pk[f.ID]))
	}
	if initial, ok := o.InitialState(); ok {
		defs = append(defs, stateColumnDefinition(initial))
	}
	if cols := keyColumns(o, o.PrimaryKey); len(cols) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(cols, ", ")+")")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quote(TableName(o)))
	for i, def := range defs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}

// columnDefinition renders `"name" TYPE [NOT NULL]`.
func columnDefinition(doc *ir.Document, f *ir.Field, primary bool) string {
	def := quote(ColumnName(f)) + " " + SQLType(doc, f.Type)
	if f.Required() || primary {
		def += " NOT NULL"
	}
	return def
}

func stateColumnDefinition(initial ir.State) string {
	return fmt.Sprintf("%s TEXT NOT NULL DEFAULT %s", quote(StateColumn), pq.QuoteLiteral(initial.Name))
}

// createDisplayIndex returns the display-key index, or "" when the object
// has no display key.
func createDisplayIndex(o *ir.Object) string {
	cols := keyColumns(o, o.DisplayKey)
	if len(cols) == 0 {
		return ""
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
		quote(DisplayIndexName(o)), quote(TableName(o)), strings.Join(cols, ", "))
}

func dropDisplayIndex(o *ir.Object) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s;", quote(DisplayIndexName(o)))
}

// keyColumns returns the quoted columns of key field ids, skipping ids
// that name no field.
func keyColumns(o *ir.Object, fieldIDs []string) []string {
	cols := make([]string, 0, len(fieldIDs))
	for _, id := range fieldIDs {
		if f, ok := o.FieldByID(id); ok {
			cols = append(cols, quote(ColumnName(f)))
		}
	}
	return cols
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "unsealed"
	}
	return h
}
