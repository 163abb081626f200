package querycontract

import (
	"fmt"
	"slices"

	"github.com/roach88/ontogen/internal/ir"
)

// Predicate is one filter condition of a request.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
	// Field returns the field id the predicate filters on.
	Field() string
	// Operator returns the contract operator the predicate uses.
	Operator() string
}

// Equals matches field = value.
type Equals struct {
	FieldID string
	Value   ir.Value
}

// OneOf matches field IN (values...).
type OneOf struct {
	FieldID string
	Values  []ir.Value
}

// Contains matches a substring of a text field.
type Contains struct {
	FieldID   string
	Substring string
}

// Range matches field >= value (OpGte) or field <= value (OpLte).
type Range struct {
	FieldID string
	Op      string
	Value   ir.Value
}

func (Equals) predicateNode()   {}
func (OneOf) predicateNode()    {}
func (Contains) predicateNode() {}
func (Range) predicateNode()    {}

func (p Equals) Field() string   { return p.FieldID }
func (p OneOf) Field() string    { return p.FieldID }
func (p Contains) Field() string { return p.FieldID }
func (p Range) Field() string    { return p.FieldID }

func (Equals) Operator() string   { return OpEq }
func (OneOf) Operator() string    { return OpIn }
func (Contains) Operator() string { return OpContains }
func (p Range) Operator() string  { return p.Op }

// Request is a filtered, paged listing of one object.
// All predicates are conjoined.
type Request struct {
	ObjectID string
	Where    []Predicate
	// PageSize 0 means the contract default.
	PageSize int
	// Page is zero-based.
	Page int
}

// ValidationResult reports whether a request fits its contract.
type ValidationResult struct {
	Valid    bool
	Problems []string
	// PageSize is the effective page size.
	PageSize int
}

// ValidateRequest checks a request against a contract.
//
// Every predicate must name a filterable field with an operator the
// contract allows, and carry scalar (string, int or bool) values.
// ValidateRequest is a pure function with no side effects.
func ValidateRequest(c ir.QueryContract, req Request) ValidationResult {
	v := &requestValidator{problems: []string{}}

	if req.ObjectID != c.ObjectID {
		v.add("request targets object %q but contract is for %q", req.ObjectID, c.ObjectID)
	}

	allowed := make(map[string][]string, len(c.Filters))
	for _, f := range c.Filters {
		allowed[f.FieldID] = f.Operators
	}

	for i, p := range req.Where {
		if p == nil {
			v.add("where[%d]: nil predicate", i)
			continue
		}
		ops, ok := allowed[p.Field()]
		if !ok {
			v.add("where[%d]: field %q is not filterable", i, p.Field())
			continue
		}
		if !slices.Contains(ops, p.Operator()) {
			v.add("where[%d]: operator %q is not allowed on field %q (allowed: %v)", i, p.Operator(), p.Field(), ops)
			continue
		}
		v.checkValues(i, p)
	}

	pageSize := req.PageSize
	switch {
	case pageSize == 0:
		pageSize = c.Pageable.DefaultPageSize
	case pageSize < 0:
		v.add("page size must be positive, got %d", pageSize)
	case pageSize > c.Pageable.MaxPageSize:
		v.add("page size %d exceeds maximum %d", pageSize, c.Pageable.MaxPageSize)
	}
	if req.Page < 0 {
		v.add("page must be non-negative, got %d", req.Page)
	}

	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems, PageSize: pageSize}
}

type requestValidator struct {
	problems []string
}

func (v *requestValidator) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *requestValidator) checkValues(i int, p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.checkScalar(i, pred.Value)
	case OneOf:
		if len(pred.Values) == 0 {
			v.add("where[%d]: in requires at least one value", i)
		}
		for _, val := range pred.Values {
			v.checkScalar(i, val)
		}
	case Contains:
		if pred.Substring == "" {
			v.add("where[%d]: contains requires a non-empty substring", i)
		}
	case Range:
		if pred.Op != OpGte && pred.Op != OpLte {
			v.add("where[%d]: range operator must be %q or %q, got %q", i, OpGte, OpLte, pred.Op)
		}
		v.checkScalar(i, pred.Value)
	}
}

func (v *requestValidator) checkScalar(i int, val ir.Value) {
	switch val.(type) {
	case ir.String, ir.Int, ir.Bool:
	default:
		v.add("where[%d]: value must be a string, int or bool, got %T", i, val)
	}
}
