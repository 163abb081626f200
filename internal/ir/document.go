package ir

import (
	"encoding/json"
	"fmt"
)

// Normalize replaces nil collections with empty ones so the document
// encodes without nulls. A nil QueryContracts is left alone unless the
// document carries a query_contracts_version: an empty contract list is
// omitted from the encoding, so only the version tells a sealed document
// without objects apart from a baseline written before query contracts.
func (d *Document) Normalize() {
	if d.QueryContracts == nil && d.QueryContractsVersion != "" {
		d.QueryContracts = []QueryContract{}
	}
	d.Types = nonNil(d.Types)
	d.Objects = nonNil(d.Objects)
	d.Structs = nonNil(d.Structs)
	d.ActionInputs = nonNil(d.ActionInputs)
	d.ActionOutputs = nonNil(d.ActionOutputs)
	d.Actions = nonNil(d.Actions)
	d.Events = nonNil(d.Events)
	d.Triggers = nonNil(d.Triggers)

	for i := range d.Types {
		if d.Types[i].Constraints == nil {
			d.Types[i].Constraints = map[string]string{}
		}
	}
	for i := range d.Objects {
		o := &d.Objects[i]
		o.Fields = nonNil(o.Fields)
		o.States = nonNil(o.States)
		o.Transitions = nonNil(o.Transitions)
		o.PrimaryKey = nonNil(o.PrimaryKey)
		o.DisplayKey = nonNil(o.DisplayKey)
	}
	for i := range d.Structs {
		d.Structs[i].Fields = nonNil(d.Structs[i].Fields)
	}
	for i := range d.ActionInputs {
		d.ActionInputs[i].Fields = nonNil(d.ActionInputs[i].Fields)
	}
	for i := range d.ActionOutputs {
		d.ActionOutputs[i].Fields = nonNil(d.ActionOutputs[i].Fields)
	}
	for i := range d.QueryContracts {
		c := &d.QueryContracts[i]
		c.Filters = nonNil(c.Filters)
		for j := range c.Filters {
			c.Filters[j].Operators = nonNil(c.Filters[j].Operators)
		}
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ComputeHash returns the SHA-256 of the canonical document with ir_hash
// absent.
func (d *Document) ComputeHash() (string, error) {
	d.Normalize()
	unhashed := *d
	unhashed.IRHash = ""
	return Hash(unhashed)
}

// VerifyHash recomputes the hash and compares it with IRHash.
// A document without IRHash is accepted unchecked.
func (d *Document) VerifyHash() error {
	if d.IRHash == "" {
		return nil
	}
	got, err := d.ComputeHash()
	if err != nil {
		return err
	}
	if got != d.IRHash {
		return fmt.Errorf("ir_hash mismatch: document says %s, content hashes to %s", d.IRHash, got)
	}
	return nil
}

// Encode returns the canonical JSON bytes of the document. This is the
// form persisted as a baseline.
func (d *Document) Encode() ([]byte, error) {
	d.Normalize()
	return MarshalCanonical(d)
}

// Decode parses a document and normalizes its collections.
func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode ir document: %w", err)
	}
	d.Normalize()
	return &d, nil
}

// ObjectByID returns the object with the given id.
func (d *Document) ObjectByID(id string) (*Object, bool) {
	for i := range d.Objects {
		if d.Objects[i].ID == id {
			return &d.Objects[i], true
		}
	}
	return nil, false
}

// TypeByID returns the custom type with the given id.
func (d *Document) TypeByID(id string) (*CustomType, bool) {
	for i := range d.Types {
		if d.Types[i].ID == id {
			return &d.Types[i], true
		}
	}
	return nil, false
}

// FieldByID returns the field with the given id within the object.
func (o *Object) FieldByID(id string) (*Field, bool) {
	for i := range o.Fields {
		if o.Fields[i].ID == id {
			return &o.Fields[i], true
		}
	}
	return nil, false
}
