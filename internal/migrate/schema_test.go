package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontogen/internal/compiler"
	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/parser"
	"github.com/roach88/ontogen/internal/testutil"
)

func build(t *testing.T, src string) *ir.Document {
	t.Helper()
	ont, err := parser.Parse(src)
	require.NoError(t, err)
	require.NoError(t, compiler.Check(ont, compiler.Options{}))
	doc, err := compiler.BuildIR(ont, compiler.Config{})
	require.NoError(t, err)
	return doc
}

func baseline(t *testing.T) *ir.Document {
	return build(t, testutil.CommerceSource)
}

func edited(t *testing.T, pairs ...string) *ir.Document {
	return build(t, testutil.Edit(testutil.CommerceSource, pairs...))
}

const customerDDL = `CREATE TABLE IF NOT EXISTS "customer" (
  "address" JSONB,
  "email" TEXT NOT NULL,
  "customer_id" TEXT NOT NULL,
  PRIMARY KEY ("customer_id")
);
CREATE INDEX IF NOT EXISTS "ix_obj_customer_display" ON "customer" ("email");
`

const orderDDL = `CREATE TABLE IF NOT EXISTS "order" (
  "channel" TEXT,
  "customer" TEXT NOT NULL,
  "order_id" TEXT NOT NULL,
  "number" TEXT NOT NULL,
  "placed_at" TIMESTAMPTZ,
  "quantity" INTEGER NOT NULL,
  "tags" JSONB,
  "total_amount" NUMERIC NOT NULL,
  "current_state" TEXT NOT NULL DEFAULT 'draft',
  PRIMARY KEY ("order_id")
);
CREATE INDEX IF NOT EXISTS "ix_obj_order_display" ON "order" ("number");
`

func TestRenderSchemaCommerce(t *testing.T) {
	doc := baseline(t)
	schema := RenderSchema(doc)

	assert.True(t, strings.HasPrefix(schema, "-- ontogen schema: Commerce 1.0.0 (ir "+doc.IRHash[:12]+")\n"))
	assert.Equal(t, "-- ontogen schema: Commerce 1.0.0 (ir "+doc.IRHash[:12]+")\n\n"+customerDDL+"\n"+orderDDL, schema)
}

func TestRenderSchemaIsDeterministic(t *testing.T) {
	assert.Equal(t, RenderSchema(baseline(t)), RenderSchema(baseline(t)))
}

func TestRenderSchemaUnsealed(t *testing.T) {
	doc := &ir.Document{Ontology: ir.OntologyInfo{Name: "Empty", Version: "0.1.0"}}
	assert.Equal(t, "-- ontogen schema: Empty 0.1.0 (ir unsealed)\n", RenderSchema(doc))
}

func TestCreateTableWithoutKeys(t *testing.T) {
	o := &ir.Object{
		ID:     "obj-note",
		Name:   "Note",
		Fields: []ir.Field{{ID: "f-note-body", Name: "body", Type: ir.BaseType{Name: "string"}}},
	}
	assert.Equal(t, []string{"CREATE TABLE IF NOT EXISTS \"note\" (\n  \"body\" TEXT\n);"}, createStatements(&ir.Document{}, o))
}

func TestStateDefaultIsQuoted(t *testing.T) {
	def := stateColumnDefinition(ir.State{Name: "it's new"})
	assert.Equal(t, `"current_state" TEXT NOT NULL DEFAULT 'it''s new'`, def)
}
