package querycontract

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/ontogen/internal/ir"
)

// Filter operators.
const (
	OpEq       = "eq"
	OpIn       = "in"
	OpContains = "contains"
	OpGte      = "gte"
	OpLte      = "lte"
)

// StateFilterID is the field id of the implicit lifecycle filter.
const StateFilterID = "currentState"

// Paging defaults stamped into every contract.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

var (
	textOps    = []string{OpEq, OpIn, OpContains}
	orderedOps = []string{OpEq, OpIn, OpGte, OpLte}
	boolOps    = []string{OpEq}
	defaultOps = []string{OpEq, OpIn}
)

// Build derives one contract per object, sorted by object id.
func Build(doc *ir.Document) ([]ir.QueryContract, error) {
	contracts := make([]ir.QueryContract, 0, len(doc.Objects))
	for i := range doc.Objects {
		c, err := BuildOne(doc, &doc.Objects[i])
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	slices.SortFunc(contracts, func(a, b ir.QueryContract) int { return cmp.Compare(a.ObjectID, b.ObjectID) })
	return contracts, nil
}

// BuildOne derives the contract of a single object, hash included.
func BuildOne(doc *ir.Document, obj *ir.Object) (ir.QueryContract, error) {
	c := ir.QueryContract{
		ObjectID: obj.ID,
		Paths:    PathsFor(obj),
		Pageable: ir.Pageable{DefaultPageSize: DefaultPageSize, MaxPageSize: MaxPageSize},
		Filters:  []ir.FilterSpec{},
	}

	for _, f := range obj.Fields {
		ops, ok := OperatorsFor(doc, f.Type)
		if !ok {
			continue
		}
		c.Filters = append(c.Filters, ir.FilterSpec{FieldID: f.ID, Operators: ops})
	}
	if obj.IsStateful() {
		c.Filters = append(c.Filters, ir.FilterSpec{FieldID: StateFilterID, Operators: slices.Clone(defaultOps)})
	}
	slices.SortFunc(c.Filters, func(a, b ir.FilterSpec) int { return cmp.Compare(a.FieldID, b.FieldID) })

	h, err := Hash(c)
	if err != nil {
		return ir.QueryContract{}, fmt.Errorf("contract %s: %w", obj.ID, err)
	}
	c.ContractHash = h
	return c, nil
}

// Hash computes a contract's content hash with contract_hash absent.
func Hash(c ir.QueryContract) (string, error) {
	c.ContractHash = ""
	return ir.Hash(c)
}

// PathsFor returns the collection and item routes of an object.
func PathsFor(obj *ir.Object) ir.QueryPaths {
	base := obj.Path
	if base == "" {
		base = "/" + obj.ID
	}
	return ir.QueryPaths{Collection: base, Item: base + "/{id}"}
}

// OperatorsFor returns the operators a field of type td supports.
// ok is false for list and struct fields, which are not filterable.
func OperatorsFor(doc *ir.Document, td ir.TypeDescriptor) (ops []string, ok bool) {
	switch t := td.(type) {
	case ir.ListOf, ir.StructRef:
		return nil, false
	case ir.BaseType:
		return slices.Clone(operatorsForBase(t.Name)), true
	case ir.CustomRef:
		if ct, found := doc.TypeByID(t.TypeID); found {
			return slices.Clone(operatorsForBase(ct.Base)), true
		}
		return slices.Clone(defaultOps), true
	case ir.ObjectRef:
		return slices.Clone(defaultOps), true
	default:
		return slices.Clone(defaultOps), true
	}
}

func operatorsForBase(name string) []string {
	switch name {
	case "string", "duration":
		return textOps
	case "int", "long", "short", "byte", "double", "float", "decimal", "date", "datetime":
		return orderedOps
	case "boolean":
		return boolOps
	default:
		return defaultOps
	}
}

// Find returns the contract of an object.
func Find(contracts []ir.QueryContract, objectID string) (ir.QueryContract, bool) {
	for _, c := range contracts {
		if c.ObjectID == objectID {
			return c, true
		}
	}
	return ir.QueryContract{}, false
}
