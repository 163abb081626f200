package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/domainerr"
	"github.com/roach88/ontogen/internal/testutil"
)

// =============================================================================
// Parse Tests
// =============================================================================

func TestParseCommerce(t *testing.T) {
	ont, err := Parse(testutil.CommerceSource)
	require.NoError(t, err)

	assert.Equal(t, "ont-commerce", ont.ID)
	assert.Equal(t, "Commerce", ont.Name)
	assert.Equal(t, "1.0.0", ont.Version)
	assert.Equal(t, 2, ont.Line, "comment line is skipped but numbering is preserved")

	require.Len(t, ont.Types, 2)
	assert.Equal(t, "Money", ont.Types[0].Name)
	assert.Equal(t, "decimal", ont.Types[0].Base)
	assert.Equal(t, []ast.Constraint{{Name: "min", Value: "0", Line: 9}}, ont.Types[0].Constraints)

	require.Len(t, ont.Structs, 1)
	assert.Len(t, ont.Structs[0].Fields, 2)

	require.Len(t, ont.Objects, 2)
	order := ont.Objects[1]
	assert.Equal(t, "obj-order", order.ID)
	assert.Equal(t, "/orders", order.Path)
	assert.True(t, order.IsStateful())
	require.Len(t, order.Fields, 8)
	assert.Equal(t, "primary", order.Fields[0].KeyRole)
	assert.True(t, order.Fields[0].Required)
	assert.Equal(t, "ref(Customer)", order.Fields[5].TypeExpr)
	assert.Equal(t, "string[]", order.Fields[6].TypeExpr)
	assert.False(t, order.Fields[6].Required)

	require.Len(t, order.States, 3)
	assert.True(t, order.States[0].Initial)
	assert.False(t, order.States[1].Initial)
	require.Len(t, order.Transitions, 2)
	assert.Equal(t, "draft", order.Transitions[0].From)
	assert.Equal(t, "placed", order.Transitions[0].To)

	require.Len(t, ont.ActionInputs, 1)
	require.Len(t, ont.ActionOutputs, 1)
	require.Len(t, ont.Actions, 1)
	assert.Equal(t, "command", ont.Actions[0].Kind)
	assert.Equal(t, "PlaceOrderInput", ont.Actions[0].Input)

	require.Len(t, ont.Events, 3)
	assert.Equal(t, ast.EventTransition, ont.Events[0].Kind)
	assert.Equal(t, "Order", ont.Events[0].Object)
	assert.Equal(t, "placeOrder", ont.Events[1].Action)
	assert.Equal(t, "Address", ont.Events[2].Payload)

	require.Len(t, ont.Triggers, 1)
	assert.Equal(t, "orderPlaced", ont.Triggers[0].Event)
	assert.Equal(t, "placeOrder", ont.Triggers[0].Action)
}

func TestParseKeywordAliases(t *testing.T) {
	src := `ontology A {
  id "o"
  version "1.0.0"
  action_input In {
    id "in"
  }
  action_output Out {
    id "out"
  }
}`
	ont, err := Parse(src)
	require.NoError(t, err)
	assert.Len(t, ont.ActionInputs, 1)
	assert.Len(t, ont.ActionOutputs, 1)
}

func TestParseCompositeKey(t *testing.T) {
	src := `ontology A {
  id "o"
  version "1.0.0"
  object Line {
    id "obj-line"
    key primary orderId, lineNo
    key display lineNo
  }
}`
	ont, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, ont.Objects[0].Keys, 2)
	assert.Equal(t, []string{"orderId", "lineNo"}, ont.Objects[0].Keys[0].Fields)
	assert.Equal(t, ast.KeyDisplay, ont.Objects[0].Keys[1].Role)
}

func TestParseSlashComments(t *testing.T) {
	src := `// leading
ontology A {
  // inside
  id "o"
  version "1.0.0"
}`
	ont, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "o", ont.ID)
}

// =============================================================================
// Syntax Errors
// =============================================================================

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantLine int
		wantText string
		wantMsg  string
	}{
		{
			name:     "empty",
			src:      "\n  # nothing\n",
			wantLine: 0,
			wantMsg:  "empty source",
		},
		{
			name:     "not an ontology",
			src:      "object A {\n}",
			wantLine: 1,
			wantText: "object A {",
			wantMsg:  "expected `ontology Name {`",
		},
		{
			name:     "unrecognized line",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  colour blue\n}",
			wantLine: 4,
			wantText: "colour blue",
			wantMsg:  "unrecognized line",
		},
		{
			name:     "unterminated",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  object B {\n    id \"b\"\n",
			wantLine: 4,
			wantText: "object B {",
			wantMsg:  "unterminated object",
		},
		{
			name:     "missing field type",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  object B {\n    id \"b\"\n    field x {\n      id \"x\"\n      required\n    }\n  }\n}",
			wantLine: 6,
			wantText: "field x {",
			wantMsg:  "missing mandatory attribute type",
		},
		{
			name:     "missing required/optional",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  struct S {\n    id \"s\"\n    field x {\n      id \"x\"\n      type string\n    }\n  }\n}",
			wantLine: 6,
			wantMsg:  "required/optional",
		},
		{
			name:     "missing transition to",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  object B {\n    id \"b\"\n    transition t {\n      id \"t\"\n      from a\n    }\n  }\n}",
			wantLine: 6,
			wantMsg:  "missing mandatory attribute to",
		},
		{
			name:     "missing type base",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  type T {\n    id \"t\"\n  }\n}",
			wantLine: 4,
			wantMsg:  "missing mandatory attribute base",
		},
		{
			name:     "missing id",
			src:      "ontology A {\n  version \"1\"\n}",
			wantLine: 1,
			wantMsg:  "missing mandatory attribute id",
		},
		{
			name:     "duplicate attribute",
			src:      "ontology A {\n  id \"o\"\n  id \"p\"\n  version \"1\"\n}",
			wantLine: 3,
			wantMsg:  "duplicate id",
		},
		{
			name:     "both required and optional",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  struct S {\n    id \"s\"\n    field x {\n      id \"x\"\n      type string\n      required\n      optional\n    }\n  }\n}",
			wantLine: 10,
			wantMsg:  "duplicate required/optional",
		},
		{
			name:     "field at ontology level",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n  field x {\n  }\n}",
			wantLine: 4,
			wantMsg:  "not allowed at ontology level",
		},
		{
			name:     "trailing content",
			src:      "ontology A {\n  id \"o\"\n  version \"1\"\n}\nobject B {\n}",
			wantLine: 5,
			wantMsg:  "unexpected content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)

			var de *domainerr.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domainerr.KindSyntax, de.Kind)
			assert.Equal(t, tt.wantLine, de.Line)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, de.Text)
			}
			assert.Contains(t, de.Message, tt.wantMsg)
		})
	}
}

// =============================================================================
// MaterializeMissingIDs Tests
// =============================================================================

const sparseSource = `ontology Shop {
  version "0.1.0"
  object Item {
    field sku {
      type string
      required
      key primary
    }
    state active {
      initial
    }
  }
  struct Empty {
  }
}
`

func TestMaterializeMissingIDsInsertsAfterHeader(t *testing.T) {
	out, inserted := MaterializeMissingIDs(sparseSource, NewSequenceGenerator("gen"))

	require.Len(t, inserted, 5)
	assert.Equal(t, Materialized{Line: 1, Kind: "ontology", Name: "Shop", ID: "ontology_gen1"}, inserted[0])
	assert.Equal(t, "object_gen2", inserted[1].ID)
	assert.Equal(t, "field_gen3", inserted[2].ID)
	assert.Equal(t, "state_gen4", inserted[3].ID)
	assert.Equal(t, "struct_gen5", inserted[4].ID)

	want := `ontology Shop {
  id "ontology_gen1"
  version "0.1.0"
  object Item {
    id "object_gen2"
    field sku {
      id "field_gen3"
      type string
      required
      key primary
    }
    state active {
      id "state_gen4"
      initial
    }
  }
  struct Empty {
    id "struct_gen5"
  }
}
`
	assert.Equal(t, want, out)
}

func TestMaterializeMissingIDsIdempotent(t *testing.T) {
	once, inserted := MaterializeMissingIDs(sparseSource, NewSequenceGenerator("a"))
	require.NotEmpty(t, inserted)

	twice, again := MaterializeMissingIDs(once, NewSequenceGenerator("b"))
	assert.Empty(t, again)
	assert.Equal(t, once, twice)
}

func TestMaterializeMissingIDsReparseReproducesIDs(t *testing.T) {
	out, inserted := MaterializeMissingIDs(sparseSource, UUIDv7Generator{})
	require.Len(t, inserted, 5)

	ont, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, inserted[0].ID, ont.ID)
	assert.Equal(t, inserted[1].ID, ont.Objects[0].ID)
	assert.Equal(t, inserted[2].ID, ont.Objects[0].Fields[0].ID)
	assert.Equal(t, inserted[3].ID, ont.Objects[0].States[0].ID)
	assert.Equal(t, inserted[4].ID, ont.Structs[0].ID)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, ont, again)
}

func TestMaterializeMissingIDsLeavesCompleteSourceAlone(t *testing.T) {
	out, inserted := MaterializeMissingIDs(testutil.CommerceSource, NewSequenceGenerator("x"))
	assert.Empty(t, inserted)
	assert.Equal(t, testutil.CommerceSource, out)
}

func TestMaterializeMissingIDsPreservesCRLF(t *testing.T) {
	src := "ontology A {\r\n  version \"1\"\r\n}\r\n"
	out, inserted := MaterializeMissingIDs(src, NewSequenceGenerator("n"))
	require.Len(t, inserted, 1)
	assert.Equal(t, "ontology A {\r\n  id \"ontology_n1\"\r\n  version \"1\"\r\n}\r\n", out)
}

func TestUUIDv7GeneratorPrefixesKind(t *testing.T) {
	id := UUIDv7Generator{}.Generate("action_input")
	assert.Regexp(t, `^action_input_[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
}
