package querycontract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontogen/internal/ir"
)

func field(id string, td ir.TypeDescriptor) ir.Field {
	return ir.Field{ID: id, Name: id, Type: td, Cardinality: ir.Cardinality{Min: 0, Max: 1}}
}

func testDocument() *ir.Document {
	return &ir.Document{
		Types: []ir.CustomType{
			{ID: "t-money", Name: "Money", Base: "decimal"},
			{ID: "t-code", Name: "Code", Base: "string"},
		},
		Objects: []ir.Object{
			{
				ID:   "obj-order",
				Name: "Order",
				Path: "/orders",
				Fields: []ir.Field{
					field("f-active", ir.BaseType{Name: "boolean"}),
					field("f-address", ir.StructRef{StructID: "st-address"}),
					field("f-code", ir.CustomRef{TypeID: "t-code"}),
					field("f-customer", ir.ObjectRef{ObjectID: "obj-customer"}),
					field("f-placed", ir.BaseType{Name: "datetime"}),
					field("f-tags", ir.ListOf{Element: ir.BaseType{Name: "string"}}),
					field("f-total", ir.CustomRef{TypeID: "t-money"}),
					field("f-wait", ir.BaseType{Name: "duration"}),
				},
				States: []ir.State{{ID: "s-draft", Name: "draft", Initial: true}},
			},
			{
				ID:     "obj-customer",
				Name:   "Customer",
				Path:   "/obj-customer",
				Fields: []ir.Field{field("f-name", ir.BaseType{Name: "string"})},
			},
		},
	}
}

func TestBuildSortsByObjectID(t *testing.T) {
	contracts, err := Build(testDocument())
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, "obj-customer", contracts[0].ObjectID)
	assert.Equal(t, "obj-order", contracts[1].ObjectID)
}

func TestBuildOperatorsByCategory(t *testing.T) {
	contracts, err := Build(testDocument())
	require.NoError(t, err)
	order := contracts[1]

	assert.Equal(t, ir.QueryPaths{Collection: "/orders", Item: "/orders/{id}"}, order.Paths)
	assert.Equal(t, ir.Pageable{DefaultPageSize: 50, MaxPageSize: 200}, order.Pageable)

	want := []ir.FilterSpec{
		{FieldID: "currentState", Operators: []string{"eq", "in"}},
		{FieldID: "f-active", Operators: []string{"eq"}},
		{FieldID: "f-code", Operators: []string{"eq", "in", "contains"}},
		{FieldID: "f-customer", Operators: []string{"eq", "in"}},
		{FieldID: "f-placed", Operators: []string{"eq", "in", "gte", "lte"}},
		{FieldID: "f-total", Operators: []string{"eq", "in", "gte", "lte"}},
		{FieldID: "f-wait", Operators: []string{"eq", "in", "contains"}},
	}
	assert.Equal(t, want, order.Filters, "list and struct fields are excluded")
}

func TestBuildStatelessObjectHasNoStateFilter(t *testing.T) {
	contracts, err := Build(testDocument())
	require.NoError(t, err)
	customer := contracts[0]
	require.Len(t, customer.Filters, 1)
	assert.Equal(t, "f-name", customer.Filters[0].FieldID)
}

func TestContractHash(t *testing.T) {
	contracts, err := Build(testDocument())
	require.NoError(t, err)
	c := contracts[1]

	assert.Len(t, c.ContractHash, 64)
	recomputed, err := Hash(c)
	require.NoError(t, err)
	assert.Equal(t, c.ContractHash, recomputed, "hash excludes itself")

	again, err := Build(testDocument())
	require.NoError(t, err)
	assert.Equal(t, contracts, again, "deterministic")

	renamed := testDocument()
	renamed.Objects[0].Name = "PurchaseOrder"
	afterRename, err := Build(renamed)
	require.NoError(t, err)
	assert.Equal(t, c.ContractHash, afterRename[1].ContractHash, "names never reach contracts")
}

func TestPathsForDefaultsToObjectID(t *testing.T) {
	assert.Equal(t, ir.QueryPaths{Collection: "/obj-x", Item: "/obj-x/{id}"}, PathsFor(&ir.Object{ID: "obj-x"}))
}

func TestOperatorsForUnknownCustomType(t *testing.T) {
	ops, ok := OperatorsFor(&ir.Document{}, ir.CustomRef{TypeID: "missing"})
	assert.True(t, ok)
	assert.Equal(t, []string{"eq", "in"}, ops)
}

func TestFind(t *testing.T) {
	contracts, err := Build(testDocument())
	require.NoError(t, err)

	c, ok := Find(contracts, "obj-order")
	require.True(t, ok)
	assert.Equal(t, "obj-order", c.ObjectID)

	_, ok = Find(contracts, "nope")
	assert.False(t, ok)
}
