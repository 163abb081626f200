// Package parser turns ontology DSL source text into an ast.Ontology.
//
// The grammar is line oriented. Blank lines and comments are dropped, the
// remaining lines keep their original line numbers, and a small
// recursive-descent parser walks them: every declaration is a header line
// `keyword Identifier {`, a body of attribute lines or nested declarations,
// and a closing `}` line.
//
// Parsing fails fast: the first unrecognized line, unterminated block or
// missing mandatory attribute is returned as a domainerr Syntax error.
package parser

import (
	"fmt"
	"strings"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/domainerr"
)

// Parse parses ontology source text.
func Parse(text string) (*ast.Ontology, error) {
	p := &parser{lines: splitLines(text)}
	return p.parseFile()
}

type parser struct {
	lines []sourceLine
	pos   int
}

// header is a matched block header line.
type header struct {
	line    sourceLine
	keyword string
	name    string
}

func (p *parser) next() (sourceLine, bool) {
	if p.pos >= len(p.lines) {
		return sourceLine{}, false
	}
	l := p.lines[p.pos]
	p.pos++
	return l, true
}

func matchHeader(l sourceLine) (header, bool) {
	m := headerRe.FindStringSubmatch(l.text)
	if m == nil {
		return header{}, false
	}
	return header{line: l, keyword: canonicalKind(m[1]), name: m[2]}, true
}

func (p *parser) parseFile() (*ast.Ontology, error) {
	first, ok := p.next()
	if !ok {
		return nil, domainerr.Syntax(0, "", "empty source: expected `ontology Name {`")
	}
	h, ok := matchHeader(first)
	if !ok || h.keyword != "ontology" {
		return nil, domainerr.Syntax(first.num, first.text, "expected `ontology Name {`")
	}

	ont, err := p.parseOntology(h)
	if err != nil {
		return nil, err
	}

	if extra, ok := p.next(); ok {
		return nil, domainerr.Syntax(extra.num, extra.text, "unexpected content after ontology block")
	}
	return ont, nil
}

// parseBody consumes lines until the closing brace of the block opened by h.
// handle returns false for lines it does not recognize.
func (p *parser) parseBody(h header, handle func(l sourceLine) (bool, error)) error {
	for {
		l, ok := p.next()
		if !ok {
			return domainerr.Syntax(h.line.num, h.line.text, fmt.Sprintf("unterminated %s block %q", h.keyword, h.name))
		}
		if l.text == "}" {
			return nil
		}
		handled, err := handle(l)
		if err != nil {
			return err
		}
		if !handled {
			return domainerr.Syntax(l.num, l.text, fmt.Sprintf("unrecognized line in %s block %q", h.keyword, h.name))
		}
	}
}

// setOnce assigns a single-valued attribute, rejecting duplicates.
func setOnce(dst *string, value, attr string, l sourceLine) error {
	if *dst != "" {
		return domainerr.Syntax(l.num, l.text, fmt.Sprintf("duplicate %s attribute", attr))
	}
	*dst = value
	return nil
}

func missing(h header, attr string) error {
	return domainerr.Syntax(h.line.num, h.line.text, fmt.Sprintf("%s %q is missing mandatory attribute %s", h.keyword, h.name, attr))
}

func (p *parser) parseOntology(h header) (*ast.Ontology, error) {
	ont := &ast.Ontology{Name: h.name, Line: h.line.num}

	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&ont.ID, m[1], "id", l)
		}
		if m := versionRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&ont.Version, m[1], "version", l)
		}
		child, ok := matchHeader(l)
		if !ok {
			return false, nil
		}
		return true, p.parseDeclaration(ont, child)
	})
	if err != nil {
		return nil, err
	}

	if ont.ID == "" {
		return nil, missing(h, "id")
	}
	if ont.Version == "" {
		return nil, missing(h, "version")
	}
	return ont, nil
}

// parseDeclaration dispatches a top-level declaration nested in the ontology.
func (p *parser) parseDeclaration(ont *ast.Ontology, h header) error {
	switch h.keyword {
	case "type":
		t, err := p.parseType(h)
		if err != nil {
			return err
		}
		ont.Types = append(ont.Types, t)
	case "object":
		o, err := p.parseObject(h)
		if err != nil {
			return err
		}
		ont.Objects = append(ont.Objects, o)
	case "struct":
		id, fields, err := p.parseFieldContainer(h)
		if err != nil {
			return err
		}
		ont.Structs = append(ont.Structs, ast.StructDef{ID: id, Name: h.name, Fields: fields, Line: h.line.num})
	case "action_input":
		id, fields, err := p.parseFieldContainer(h)
		if err != nil {
			return err
		}
		ont.ActionInputs = append(ont.ActionInputs, ast.ActionShapeDef{ID: id, Name: h.name, Fields: fields, Line: h.line.num})
	case "action_output":
		id, fields, err := p.parseFieldContainer(h)
		if err != nil {
			return err
		}
		ont.ActionOutputs = append(ont.ActionOutputs, ast.ActionShapeDef{ID: id, Name: h.name, Fields: fields, Line: h.line.num})
	case "action":
		a, err := p.parseAction(h)
		if err != nil {
			return err
		}
		ont.Actions = append(ont.Actions, a)
	case "event":
		e, err := p.parseEvent(h)
		if err != nil {
			return err
		}
		ont.Events = append(ont.Events, e)
	case "trigger":
		t, err := p.parseTrigger(h)
		if err != nil {
			return err
		}
		ont.Triggers = append(ont.Triggers, t)
	default:
		return domainerr.Syntax(h.line.num, h.line.text, fmt.Sprintf("%s declarations are not allowed at ontology level", h.keyword))
	}
	return nil
}

func (p *parser) parseType(h header) (ast.TypeDef, error) {
	t := ast.TypeDef{Name: h.name, Line: h.line.num}
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.ID, m[1], "id", l)
		}
		if m := baseRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.Base, m[1], "base", l)
		}
		if m := constraintRe.FindStringSubmatch(l.text); m != nil {
			for _, c := range t.Constraints {
				if c.Name == m[1] {
					return true, domainerr.Syntax(l.num, l.text, fmt.Sprintf("duplicate constraint %q", m[1]))
				}
			}
			t.Constraints = append(t.Constraints, ast.Constraint{Name: m[1], Value: m[2], Line: l.num})
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return t, err
	}
	if t.ID == "" {
		return t, missing(h, "id")
	}
	if t.Base == "" {
		return t, missing(h, "base")
	}
	return t, nil
}

func (p *parser) parseObject(h header) (ast.ObjectDef, error) {
	o := ast.ObjectDef{Name: h.name, Line: h.line.num}
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&o.ID, m[1], "id", l)
		}
		if m := pathRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&o.Path, m[1], "path", l)
		}
		if m := objectKeyRe.FindStringSubmatch(l.text); m != nil {
			o.Keys = append(o.Keys, ast.KeyDecl{
				Role:   m[1],
				Fields: listSeparator.Split(strings.TrimSpace(m[2]), -1),
				Line:   l.num,
			})
			return true, nil
		}
		child, ok := matchHeader(l)
		if !ok {
			return false, nil
		}
		switch child.keyword {
		case "field":
			f, err := p.parseField(child)
			if err != nil {
				return true, err
			}
			o.Fields = append(o.Fields, f)
		case "state":
			s, err := p.parseState(child)
			if err != nil {
				return true, err
			}
			o.States = append(o.States, s)
		case "transition":
			t, err := p.parseTransition(child)
			if err != nil {
				return true, err
			}
			o.Transitions = append(o.Transitions, t)
		default:
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return o, err
	}
	if o.ID == "" {
		return o, missing(h, "id")
	}
	return o, nil
}

// parseFieldContainer parses struct and action shape bodies: an id plus fields.
func (p *parser) parseFieldContainer(h header) (string, []ast.FieldDef, error) {
	var id string
	var fields []ast.FieldDef
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&id, m[1], "id", l)
		}
		child, ok := matchHeader(l)
		if !ok || child.keyword != "field" {
			return false, nil
		}
		f, err := p.parseField(child)
		if err != nil {
			return true, err
		}
		fields = append(fields, f)
		return true, nil
	})
	if err != nil {
		return "", nil, err
	}
	if id == "" {
		return "", nil, missing(h, "id")
	}
	return id, fields, nil
}

func (p *parser) parseField(h header) (ast.FieldDef, error) {
	f := ast.FieldDef{Name: h.name, Line: h.line.num}
	var presence string
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&f.ID, m[1], "id", l)
		}
		if m := typeExprRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&f.TypeExpr, strings.TrimSpace(m[1]), "type", l)
		}
		if requiredRe.MatchString(l.text) {
			return true, setOnce(&presence, "required", "required/optional", l)
		}
		if optionalRe.MatchString(l.text) {
			return true, setOnce(&presence, "optional", "required/optional", l)
		}
		if m := fieldKeyRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&f.KeyRole, m[1], "key", l)
		}
		return false, nil
	})
	if err != nil {
		return f, err
	}
	if f.ID == "" {
		return f, missing(h, "id")
	}
	if f.TypeExpr == "" {
		return f, missing(h, "type")
	}
	if presence == "" {
		return f, missing(h, "required/optional")
	}
	f.Required = presence == "required"
	return f, nil
}

func (p *parser) parseState(h header) (ast.StateDef, error) {
	s := ast.StateDef{Name: h.name, Line: h.line.num}
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&s.ID, m[1], "id", l)
		}
		if initialRe.MatchString(l.text) {
			if s.Initial {
				return true, domainerr.Syntax(l.num, l.text, "duplicate initial attribute")
			}
			s.Initial = true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return s, err
	}
	if s.ID == "" {
		return s, missing(h, "id")
	}
	return s, nil
}

func (p *parser) parseTransition(h header) (ast.TransitionDef, error) {
	t := ast.TransitionDef{Name: h.name, Line: h.line.num}
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.ID, m[1], "id", l)
		}
		if m := fromRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.From, m[1], "from", l)
		}
		if m := toRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.To, m[1], "to", l)
		}
		return false, nil
	})
	if err != nil {
		return t, err
	}
	if t.ID == "" {
		return t, missing(h, "id")
	}
	if t.From == "" {
		return t, missing(h, "from")
	}
	if t.To == "" {
		return t, missing(h, "to")
	}
	return t, nil
}

func (p *parser) parseAction(h header) (ast.ActionDef, error) {
	a := ast.ActionDef{Name: h.name, Line: h.line.num}
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&a.ID, m[1], "id", l)
		}
		if m := kindRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&a.Kind, m[1], "kind", l)
		}
		if m := inputRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&a.Input, m[1], "input", l)
		}
		if m := outputRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&a.Output, m[1], "output", l)
		}
		return false, nil
	})
	if err != nil {
		return a, err
	}
	if a.ID == "" {
		return a, missing(h, "id")
	}
	if a.Kind == "" {
		return a, missing(h, "kind")
	}
	return a, nil
}

func (p *parser) parseEvent(h header) (ast.EventDef, error) {
	e := ast.EventDef{Name: h.name, Line: h.line.num}
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&e.ID, m[1], "id", l)
		}
		if m := kindRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&e.Kind, m[1], "kind", l)
		}
		if m := eventActionRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&e.Action, m[1], "action", l)
		}
		if m := eventObjectRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&e.Object, m[1], "object", l)
		}
		if m := fromRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&e.From, m[1], "from", l)
		}
		if m := toRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&e.To, m[1], "to", l)
		}
		if m := payloadRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&e.Payload, m[1], "payload", l)
		}
		return false, nil
	})
	if err != nil {
		return e, err
	}
	if e.ID == "" {
		return e, missing(h, "id")
	}
	if e.Kind == "" {
		return e, missing(h, "kind")
	}
	return e, nil
}

func (p *parser) parseTrigger(h header) (ast.TriggerDef, error) {
	t := ast.TriggerDef{Name: h.name, Line: h.line.num}
	err := p.parseBody(h, func(l sourceLine) (bool, error) {
		if m := idRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.ID, m[1], "id", l)
		}
		if m := whenEventRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.Event, m[1], "when event", l)
		}
		if m := invokeRe.FindStringSubmatch(l.text); m != nil {
			return true, setOnce(&t.Action, m[1], "invoke", l)
		}
		return false, nil
	})
	if err != nil {
		return t, err
	}
	if t.ID == "" {
		return t, missing(h, "id")
	}
	if t.Event == "" {
		return t, missing(h, "when event")
	}
	if t.Action == "" {
		return t, missing(h, "invoke")
	}
	return t, nil
}
