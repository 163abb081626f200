package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorJSON(t *testing.T) {
	tests := []struct {
		name string
		desc TypeDescriptor
		want string
	}{
		{"base", BaseType{Name: "string"}, `{"kind":"base","name":"string"}`},
		{"custom", CustomRef{TypeID: "t-money"}, `{"kind":"custom","target_type_id":"t-money"}`},
		{"object ref", ObjectRef{ObjectID: "obj-a"}, `{"kind":"object_ref","target_object_id":"obj-a"}`},
		{"struct", StructRef{StructID: "st-a"}, `{"kind":"struct","target_struct_id":"st-a"}`},
		{"list", ListOf{Element: BaseType{Name: "int"}}, `{"element":{"kind":"base","name":"int"},"kind":"list"}`},
		{"nested list", ListOf{Element: ListOf{Element: ObjectRef{ObjectID: "o"}}},
			`{"element":{"element":{"kind":"object_ref","target_object_id":"o"},"kind":"list"},"kind":"list"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			raw, err := json.Marshal(tt.desc)
			require.NoError(t, err)
			back, err := UnmarshalDescriptor(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.desc, back)
			assert.True(t, tt.desc == back, "decoded descriptor compares equal")
		})
	}
}

func TestUnmarshalDescriptorErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown kind", `{"kind":"tuple"}`, "unknown kind"},
		{"unknown base", `{"kind":"base","name":"uuid"}`, "unknown base type"},
		{"custom no target", `{"kind":"custom"}`, "without target_type_id"},
		{"list no element", `{"kind":"list"}`, "without element"},
		{"bad element", `{"kind":"list","element":{"kind":"nope"}}`, "unknown kind"},
		{"not json", `[`, "type descriptor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDescriptor([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDescriptorString(t *testing.T) {
	assert.Equal(t, "list(ref(obj-a))", ListOf{Element: ObjectRef{ObjectID: "obj-a"}}.String())
	assert.Equal(t, "custom(t)", CustomRef{TypeID: "t"}.String())
	assert.True(t, IsList(ListOf{Element: BaseType{Name: "int"}}))
	assert.False(t, IsList(BaseType{Name: "int"}))
}

func TestMaxBoundJSON(t *testing.T) {
	data, err := json.Marshal(Cardinality{Min: 1, Max: Many})
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":1,"max":"many"}`, string(data))

	var c Cardinality
	require.NoError(t, json.Unmarshal([]byte(`{"min":0,"max":1}`), &c))
	assert.Equal(t, Cardinality{Min: 0, Max: 1}, c)

	require.NoError(t, json.Unmarshal([]byte(`{"min":0,"max":"many"}`), &c))
	assert.Equal(t, Many, c.Max)

	assert.Error(t, json.Unmarshal([]byte(`{"min":0,"max":0}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"min":0,"max":"lots"}`), &c))
}
