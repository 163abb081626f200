package ir

import (
	"encoding/json"
	"fmt"
)

// DescriptorKind tags the variants of TypeDescriptor in JSON.
type DescriptorKind string

const (
	KindBase      DescriptorKind = "base"
	KindCustom    DescriptorKind = "custom"
	KindObjectRef DescriptorKind = "object_ref"
	KindStruct    DescriptorKind = "struct"
	KindList      DescriptorKind = "list"
)

// BaseTypes is the fixed set of built-in scalar type names.
var BaseTypes = map[string]bool{
	"string":   true,
	"int":      true,
	"long":     true,
	"short":    true,
	"byte":     true,
	"double":   true,
	"float":    true,
	"decimal":  true,
	"boolean":  true,
	"datetime": true,
	"date":     true,
	"duration": true,
}

// TypeDescriptor is a sealed sum type describing a resolved field type.
// Only BaseType, CustomRef, ObjectRef, StructRef and ListOf implement it.
//
// Descriptors are comparable with ==: two descriptors are identical exactly
// when they are equal.
type TypeDescriptor interface {
	Kind() DescriptorKind
	String() string
	typeDescriptor()
}

// BaseType is a built-in scalar such as string or int.
type BaseType struct {
	Name string
}

// CustomRef points at a declared custom type by id.
type CustomRef struct {
	TypeID string
}

// ObjectRef points at an object by id.
type ObjectRef struct {
	ObjectID string
}

// StructRef embeds a struct by id.
type StructRef struct {
	StructID string
}

// ListOf is a list of Element.
type ListOf struct {
	Element TypeDescriptor
}

func (BaseType) typeDescriptor()  {}
func (CustomRef) typeDescriptor() {}
func (ObjectRef) typeDescriptor() {}
func (StructRef) typeDescriptor() {}
func (ListOf) typeDescriptor()    {}

func (BaseType) Kind() DescriptorKind  { return KindBase }
func (CustomRef) Kind() DescriptorKind { return KindCustom }
func (ObjectRef) Kind() DescriptorKind { return KindObjectRef }
func (StructRef) Kind() DescriptorKind { return KindStruct }
func (ListOf) Kind() DescriptorKind    { return KindList }

func (d BaseType) String() string  { return d.Name }
func (d CustomRef) String() string { return "custom(" + d.TypeID + ")" }
func (d ObjectRef) String() string { return "ref(" + d.ObjectID + ")" }
func (d StructRef) String() string { return "struct(" + d.StructID + ")" }
func (d ListOf) String() string {
	if d.Element == nil {
		return "list(?)"
	}
	return "list(" + d.Element.String() + ")"
}

// descriptorJSON is the wire form shared by every variant.
type descriptorJSON struct {
	Kind           DescriptorKind  `json:"kind"`
	Name           string          `json:"name,omitempty"`
	TargetTypeID   string          `json:"target_type_id,omitempty"`
	TargetObjectID string          `json:"target_object_id,omitempty"`
	TargetStructID string          `json:"target_struct_id,omitempty"`
	Element        json.RawMessage `json:"element,omitempty"`
}

func (d BaseType) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{Kind: KindBase, Name: d.Name})
}

func (d CustomRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{Kind: KindCustom, TargetTypeID: d.TypeID})
}

func (d ObjectRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{Kind: KindObjectRef, TargetObjectID: d.ObjectID})
}

func (d StructRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{Kind: KindStruct, TargetStructID: d.StructID})
}

func (d ListOf) MarshalJSON() ([]byte, error) {
	if d.Element == nil {
		return nil, fmt.Errorf("list descriptor without element")
	}
	elem, err := json.Marshal(d.Element)
	if err != nil {
		return nil, err
	}
	return json.Marshal(descriptorJSON{Kind: KindList, Element: elem})
}

// UnmarshalDescriptor decodes the kind-tagged JSON form of a descriptor.
func UnmarshalDescriptor(data []byte) (TypeDescriptor, error) {
	var raw descriptorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("type descriptor: %w", err)
	}

	switch raw.Kind {
	case KindBase:
		if !BaseTypes[raw.Name] {
			return nil, fmt.Errorf("type descriptor: unknown base type %q", raw.Name)
		}
		return BaseType{Name: raw.Name}, nil
	case KindCustom:
		if raw.TargetTypeID == "" {
			return nil, fmt.Errorf("type descriptor: custom without target_type_id")
		}
		return CustomRef{TypeID: raw.TargetTypeID}, nil
	case KindObjectRef:
		if raw.TargetObjectID == "" {
			return nil, fmt.Errorf("type descriptor: object_ref without target_object_id")
		}
		return ObjectRef{ObjectID: raw.TargetObjectID}, nil
	case KindStruct:
		if raw.TargetStructID == "" {
			return nil, fmt.Errorf("type descriptor: struct without target_struct_id")
		}
		return StructRef{StructID: raw.TargetStructID}, nil
	case KindList:
		if len(raw.Element) == 0 {
			return nil, fmt.Errorf("type descriptor: list without element")
		}
		elem, err := UnmarshalDescriptor(raw.Element)
		if err != nil {
			return nil, err
		}
		return ListOf{Element: elem}, nil
	default:
		return nil, fmt.Errorf("type descriptor: unknown kind %q", raw.Kind)
	}
}

// IsList reports whether d is a list at the top level.
func IsList(d TypeDescriptor) bool {
	_, ok := d.(ListOf)
	return ok
}
