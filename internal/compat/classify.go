package compat

import "github.com/roach88/ontogen/internal/ir"

// Widening lists the base-type changes that only widen the value range.
var Widening = map[[2]string]bool{
	{"int", "long"}:     true,
	{"float", "double"}: true,
}

// ClassifyBaseChange classifies a change of base type name.
func ClassifyBaseChange(oldBase, newBase string) Level {
	switch {
	case oldBase == newBase:
		return NonFunctional
	case Widening[[2]string{oldBase, newBase}]:
		return Additive
	default:
		return Breaking
	}
}

// ClassifyTypeChange classifies a change between two type descriptors.
//
// Identical descriptors are non-functional; a change of variant is
// breaking; base changes follow ClassifyBaseChange; a changed target id
// is breaking; lists recurse into their element.
func ClassifyTypeChange(oldType, newType ir.TypeDescriptor) Level {
	if oldType == newType {
		return NonFunctional
	}
	if oldType == nil || newType == nil || oldType.Kind() != newType.Kind() {
		return Breaking
	}

	switch o := oldType.(type) {
	case ir.BaseType:
		return ClassifyBaseChange(o.Name, newType.(ir.BaseType).Name)
	case ir.ListOf:
		return ClassifyTypeChange(o.Element, newType.(ir.ListOf).Element)
	default:
		// CustomRef, ObjectRef and StructRef differ only by target id.
		return Breaking
	}
}
