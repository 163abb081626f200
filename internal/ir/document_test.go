package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		IRVersion:        IRVersion,
		ToolchainVersion: ToolchainVersion,
		Ontology:         OntologyInfo{ID: "ont", Name: "Shop", Version: "1.0.0"},
		Types:            []CustomType{{ID: "t-money", Name: "Money", Base: "decimal"}},
		Objects: []Object{{
			ID:   "obj-item",
			Name: "Item",
			Path: "/obj-item",
			Fields: []Field{
				{ID: "f-sku", Name: "sku", Type: BaseType{Name: "string"}, Cardinality: Cardinality{Min: 1, Max: 1}},
				{ID: "f-tags", Name: "tags", Type: ListOf{Element: BaseType{Name: "string"}}, Cardinality: Cardinality{Min: 0, Max: Many}},
			},
			PrimaryKey: []string{"f-sku"},
		}},
	}
}

func TestNormalizeFillsEmptyCollections(t *testing.T) {
	d := sampleDocument()
	d.Normalize()

	assert.NotNil(t, d.Structs)
	assert.NotNil(t, d.Triggers)
	assert.NotNil(t, d.Types[0].Constraints)
	assert.NotNil(t, d.Objects[0].States)
	assert.NotNil(t, d.Objects[0].DisplayKey)
	assert.Nil(t, d.QueryContracts, "absent contracts stay absent")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := sampleDocument()
	h, err := d.ComputeHash()
	require.NoError(t, err)
	d.IRHash = h

	data, err := d.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
	assert.NotContains(t, string(data), "query_contracts")

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, d, back)
	require.NoError(t, back.VerifyHash())

	again, err := back.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is byte-stable")
}

func TestDecodeKeepsEmptySealedContracts(t *testing.T) {
	d := &Document{Ontology: OntologyInfo{ID: "ont-empty", Name: "Empty", Version: "1.0.0"}}
	d.QueryContracts = []QueryContract{}
	version, err := Hash(d.QueryContracts)
	require.NoError(t, err)
	d.QueryContractsVersion = version

	data, err := d.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"query_contracts_version"`)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.NotNil(t, back.QueryContracts)
	assert.Empty(t, back.QueryContracts)
}

func TestComputeHashIgnoresIRHash(t *testing.T) {
	d := sampleDocument()
	before, err := d.ComputeHash()
	require.NoError(t, err)

	d.IRHash = "something"
	after, err := d.ComputeHash()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestVerifyHashDetectsTampering(t *testing.T) {
	d := sampleDocument()
	h, err := d.ComputeHash()
	require.NoError(t, err)
	d.IRHash = h

	d.Objects[0].Name = "Renamed"
	err = d.VerifyHash()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ir_hash mismatch")
}

func TestDecodeRejectsBadDescriptor(t *testing.T) {
	_, err := Decode([]byte(`{"objects":[{"id":"o","fields":[{"id":"f","type":{"kind":"weird"}}]}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestLookups(t *testing.T) {
	d := sampleDocument()

	o, ok := d.ObjectByID("obj-item")
	require.True(t, ok)
	f, ok := o.FieldByID("f-tags")
	require.True(t, ok)
	assert.False(t, f.Required())

	_, ok = d.ObjectByID("missing")
	assert.False(t, ok)

	ty, ok := d.TypeByID("t-money")
	require.True(t, ok)
	assert.Equal(t, "decimal", ty.Base)
}
