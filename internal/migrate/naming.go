package migrate

import (
	"strings"
	"unicode"

	"github.com/lib/pq"

	"github.com/roach88/ontogen/internal/ir"
)

// StateColumn holds the lifecycle state of a stateful object's rows.
const StateColumn = "current_state"

// JSONType stores struct and list fields.
const JSONType = "JSONB"

var baseSQLTypes = map[string]string{
	"string":   "TEXT",
	"int":      "INTEGER",
	"long":     "BIGINT",
	"short":    "SMALLINT",
	"byte":     "SMALLINT",
	"double":   "DOUBLE PRECISION",
	"float":    "REAL",
	"decimal":  "NUMERIC",
	"boolean":  "BOOLEAN",
	"datetime": "TIMESTAMPTZ",
	"date":     "DATE",
	"duration": "INTERVAL",
}

// SnakeCase converts CamelCase to snake_case.
// Handles acronyms properly (HTTPRequest -> http_request).
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					b.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) && prev != '_' {
					b.WriteRune('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TableName returns the table of an object.
func TableName(o *ir.Object) string {
	return SnakeCase(o.Name)
}

// ColumnName returns the column of a field.
func ColumnName(f *ir.Field) string {
	return SnakeCase(f.Name)
}

// DisplayIndexName returns the display-key index of an object. It derives
// from the object id so it survives table renames.
func DisplayIndexName(o *ir.Object) string {
	var b strings.Builder
	b.WriteString("ix_")
	for _, r := range strings.ToLower(o.ID) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	b.WriteString("_display")
	return b.String()
}

// quote quotes an identifier for Postgres.
func quote(name string) string {
	return pq.QuoteIdentifier(name)
}

// SQLType maps a field type to its Postgres column type.
//
// Custom types map through their base; object references take the SQL type
// of the target's single primary-key column (TEXT for composite keys);
// structs and lists are stored as JSONB.
func SQLType(doc *ir.Document, td ir.TypeDescriptor) string {
	return sqlType(doc, td, map[string]bool{})
}

func sqlType(doc *ir.Document, td ir.TypeDescriptor, visiting map[string]bool) string {
	switch t := td.(type) {
	case ir.BaseType:
		if s, ok := baseSQLTypes[t.Name]; ok {
			return s
		}
	case ir.CustomRef:
		if ct, ok := doc.TypeByID(t.TypeID); ok {
			if s, ok := baseSQLTypes[ct.Base]; ok {
				return s
			}
		}
	case ir.ObjectRef:
		target, ok := doc.ObjectByID(t.ObjectID)
		if !ok || len(target.PrimaryKey) != 1 || visiting[target.ID] {
			return "TEXT"
		}
		pk, ok := target.FieldByID(target.PrimaryKey[0])
		if !ok {
			return "TEXT"
		}
		visiting[target.ID] = true
		defer delete(visiting, target.ID)
		return sqlType(doc, pk.Type, visiting)
	case ir.StructRef, ir.ListOf:
		return JSONType
	}
	return "TEXT"
}

// primaryKeyType returns the SQL types of an object's primary-key columns,
// comma separated.
func primaryKeyType(doc *ir.Document, o *ir.Object) string {
	types := make([]string, 0, len(o.PrimaryKey))
	for _, id := range o.PrimaryKey {
		if f, ok := o.FieldByID(id); ok {
			types = append(types, SQLType(doc, f.Type))
		}
	}
	return strings.Join(types, ",")
}
