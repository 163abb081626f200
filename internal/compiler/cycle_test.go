package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/testutil"
)

// chainDocument builds actions a1..aN whose output events fire triggers
// invoking the listed next actions.
func chainDocument(edges map[string]string) *ir.Document {
	doc := &ir.Document{}
	for from, to := range edges {
		doc.Actions = append(doc.Actions, ir.Action{ID: "act-" + from})
		doc.Events = append(doc.Events, ir.Event{ID: "ev-" + from, Kind: ast.EventActionOutput, ActionID: "act-" + from})
		doc.Triggers = append(doc.Triggers, ir.Trigger{ID: "trg-" + from, EventID: "ev-" + from, ActionID: "act-" + to})
	}
	return doc
}

func structField(id string, td ir.TypeDescriptor) ir.Field {
	return ir.Field{ID: id, Name: id, Type: td}
}

// TestAnalyzeCycles_Empty tests that an empty document produces no warnings.
func TestAnalyzeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(&ir.Document{}))
}

// TestAnalyzeCycles_Commerce tests that the shared fixture is acyclic.
func TestAnalyzeCycles_Commerce(t *testing.T) {
	doc, err := BuildIR(mustParse(t, testutil.CommerceSource), Config{})
	require.NoError(t, err)
	assert.Empty(t, AnalyzeCycles(doc))
}

// TestAnalyzeCycles_TriggerChainWithoutLoop tests a -> b -> c terminating.
func TestAnalyzeCycles_TriggerChainWithoutLoop(t *testing.T) {
	doc := chainDocument(map[string]string{"a": "b", "b": "c"})
	assert.Empty(t, AnalyzeCycles(doc))
}

// TestAnalyzeCycles_TriggerSelfLoop tests a trigger re-invoking its own source.
func TestAnalyzeCycles_TriggerSelfLoop(t *testing.T) {
	doc := chainDocument(map[string]string{"a": "a"})

	warnings := AnalyzeCycles(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, "trigger", warnings[0].Kind)
	assert.Equal(t, []string{"trg-a", "trg-a"}, warnings[0].Path)
	assert.Equal(t, "trigger trg-a refers to itself", warnings[0].Message)
}

// TestAnalyzeCycles_TriggerLoop tests a -> b -> c -> a.
func TestAnalyzeCycles_TriggerLoop(t *testing.T) {
	doc := chainDocument(map[string]string{"a": "b", "b": "c", "c": "a"})

	warnings := AnalyzeCycles(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"trg-a", "trg-b", "trg-c", "trg-a"}, warnings[0].Path)
	assert.Equal(t, "trigger cycle detected: trg-a → trg-b → trg-c → trg-a", warnings[0].Message)
}

// TestAnalyzeCycles_IgnoresNonOutputEvents tests that signal and transition
// events never close a loop.
func TestAnalyzeCycles_IgnoresNonOutputEvents(t *testing.T) {
	doc := &ir.Document{
		Actions: []ir.Action{{ID: "act-a"}},
		Events:  []ir.Event{{ID: "ev-sig", Kind: ast.EventSignal}},
		Triggers: []ir.Trigger{
			{ID: "trg-a", EventID: "ev-sig", ActionID: "act-a"},
		},
	}
	assert.Empty(t, AnalyzeCycles(doc))
}

// TestAnalyzeCycles_StructSelfEmbedding tests a struct containing itself.
func TestAnalyzeCycles_StructSelfEmbedding(t *testing.T) {
	doc := &ir.Document{
		Structs: []ir.Struct{
			{ID: "st-node", Fields: []ir.Field{structField("f-next", ir.StructRef{StructID: "st-node"})}},
		},
	}

	warnings := AnalyzeCycles(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, "struct", warnings[0].Kind)
	assert.Equal(t, "struct st-node refers to itself", warnings[0].Message)
}

// TestAnalyzeCycles_StructListBreaksLoop tests that embedding through a list
// is not a cycle: an empty list terminates the value.
func TestAnalyzeCycles_StructListBreaksLoop(t *testing.T) {
	doc := &ir.Document{
		Structs: []ir.Struct{
			{ID: "st-tree", Fields: []ir.Field{structField("f-children", ir.ListOf{Element: ir.StructRef{StructID: "st-tree"}})}},
		},
	}
	assert.Empty(t, AnalyzeCycles(doc))
}

// TestAnalyzeCycles_Deterministic tests that multiple loops are reported in
// a stable order.
func TestAnalyzeCycles_Deterministic(t *testing.T) {
	doc := chainDocument(map[string]string{"x": "y", "y": "x", "a": "b", "b": "a"})
	doc.Structs = []ir.Struct{
		{ID: "st-b", Fields: []ir.Field{structField("f-1", ir.StructRef{StructID: "st-a"})}},
		{ID: "st-a", Fields: []ir.Field{structField("f-2", ir.StructRef{StructID: "st-b"})}},
	}

	first := AnalyzeCycles(doc)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, AnalyzeCycles(doc))
	}

	require.Len(t, first, 3)
	assert.Equal(t, []string{"trg-a", "trg-b", "trg-a"}, first[0].Path)
	assert.Equal(t, []string{"trg-x", "trg-y", "trg-x"}, first[1].Path)
	assert.Equal(t, []string{"st-a", "st-b", "st-a"}, first[2].Path)
}
