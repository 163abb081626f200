package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONObjectSortedKeys(t *testing.T) {
	obj := JSONObject{"zebra": Int(1), "alpha": Int(2), "beta": Int(3)}
	assert.Equal(t, []string{"alpha", "beta", "zebra"}, obj.SortedKeys())
	assert.Empty(t, JSONObject{}.SortedKeys())
}

func TestCompareUTF16(t *testing.T) {
	assert.Equal(t, 0, compareUTF16("a", "a"))
	assert.Equal(t, -1, compareUTF16("a", "b"))
	assert.Equal(t, -1, compareUTF16("a", "ab"))
	assert.Equal(t, 1, compareUTF16("\uE000", "\U00010000"))
}

func TestDecodeValue(t *testing.T) {
	v, err := DecodeValue([]byte(`{"a":[1,"x",true],"b":{}}`))
	require.NoError(t, err)
	assert.Equal(t, JSONObject{
		"a": Array{Int(1), String("x"), Bool(true)},
		"b": JSONObject{},
	}, v)
}

func TestDecodeValueRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"float", `1.5`, "floats are forbidden"},
		{"exponent", `{"a":1e3}`, "floats are forbidden"},
		{"null", `null`, "null is forbidden"},
		{"nested null", `[1,null]`, "null is forbidden"},
		{"trailing", `1 2`, "trailing data"},
		{"invalid", `{`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeValue([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestToValuePassesValuesThrough(t *testing.T) {
	in := Array{String("x")}
	out, err := ToValue(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
