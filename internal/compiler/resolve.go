package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/ir"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Scope maps declaration names to ids for type resolution.
type Scope struct {
	Types   map[string]string
	Objects map[string]string
	Structs map[string]string
}

// NewScope collects the referenceable names of an ontology. When a name is
// declared twice the first declaration wins; the validator reports the
// duplicate.
func NewScope(ont *ast.Ontology) Scope {
	s := Scope{
		Types:   make(map[string]string, len(ont.Types)),
		Objects: make(map[string]string, len(ont.Objects)),
		Structs: make(map[string]string, len(ont.Structs)),
	}
	for _, t := range ont.Types {
		if _, ok := s.Types[t.Name]; !ok {
			s.Types[t.Name] = t.ID
		}
	}
	for _, o := range ont.Objects {
		if _, ok := s.Objects[o.Name]; !ok {
			s.Objects[o.Name] = o.ID
		}
	}
	for _, st := range ont.Structs {
		if _, ok := s.Structs[st.Name]; !ok {
			s.Structs[st.Name] = st.ID
		}
	}
	return s
}

// Resolve resolves a type expression against the scope.
func (s Scope) Resolve(expr string) (ir.TypeDescriptor, error) {
	return Resolve(expr, s.Types, s.Objects, s.Structs)
}

// Resolve turns a textual type expression into a TypeDescriptor.
//
// Grammar:
//
//	T[]            list of T
//	list(T)        list of T
//	ref(Object)    reference to a declared object
//	Identifier     base type, then struct, then custom type
//
// Resolve is pure: the validator uses it to check resolvability and the
// IR builder uses it to produce the stored descriptor.
func Resolve(expr string, typeIDs, objectIDs, structIDs map[string]string) (ir.TypeDescriptor, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	if inner, ok := strings.CutSuffix(e, "[]"); ok {
		elem, err := Resolve(inner, typeIDs, objectIDs, structIDs)
		if err != nil {
			return nil, err
		}
		return ir.ListOf{Element: elem}, nil
	}

	if inner, ok := unwrapCall(e, "list"); ok {
		elem, err := Resolve(inner, typeIDs, objectIDs, structIDs)
		if err != nil {
			return nil, err
		}
		return ir.ListOf{Element: elem}, nil
	}

	if inner, ok := unwrapCall(e, "ref"); ok {
		name := strings.TrimSpace(inner)
		if id, ok := objectIDs[name]; ok {
			return ir.ObjectRef{ObjectID: id}, nil
		}
		return nil, fmt.Errorf("unknown object %q in %q", name, e)
	}

	if !identRe.MatchString(e) {
		return nil, fmt.Errorf("invalid type expression %q", e)
	}
	if ir.BaseTypes[e] {
		return ir.BaseType{Name: e}, nil
	}
	if id, ok := structIDs[e]; ok {
		return ir.StructRef{StructID: id}, nil
	}
	if id, ok := typeIDs[e]; ok {
		return ir.CustomRef{TypeID: id}, nil
	}
	return nil, fmt.Errorf("unknown type %q", e)
}

// unwrapCall returns the argument of `name(arg)`.
func unwrapCall(e, name string) (string, bool) {
	rest, ok := strings.CutPrefix(e, name)
	if !ok {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}
