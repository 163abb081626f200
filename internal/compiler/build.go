package compiler

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/querycontract"
)

// Config holds the build inputs that are not part of the ontology text.
type Config struct {
	// StrictEnums is recorded in the compatibility profile.
	StrictEnums bool
}

// CompileError reports an IR build failure.
//
// BuildIR assumes a validated ontology, so a CompileError indicates a
// validator gap rather than a user mistake.
type CompileError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compile %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("compile %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// BuildIR lowers a validated ontology into a sealed IR document.
//
// Every collection is sorted by id, so the output depends only on what
// was declared, not on declaration order. The document is sealed with its
// query contracts, query_contracts_version and ir_hash.
func BuildIR(ont *ast.Ontology, cfg Config) (*ir.Document, error) {
	b := &builder{scope: NewScope(ont)}
	b.indexNames(ont)

	doc := &ir.Document{
		IRVersion:        ir.IRVersion,
		ToolchainVersion: ir.ToolchainVersion,
		Ontology:         ir.OntologyInfo{ID: ont.ID, Name: ont.Name, Version: ont.Version},
		CompatibilityProfile: ir.CompatibilityProfile{
			StrictEnums: cfg.StrictEnums,
		},
	}

	doc.Types = make([]ir.CustomType, 0, len(ont.Types))
	for _, t := range ont.Types {
		constraints := make(map[string]string, len(t.Constraints))
		for _, c := range t.Constraints {
			constraints[c.Name] = c.Value
		}
		doc.Types = append(doc.Types, ir.CustomType{ID: t.ID, Name: t.Name, Base: t.Base, Constraints: constraints})
	}

	doc.Objects = make([]ir.Object, 0, len(ont.Objects))
	for i := range ont.Objects {
		o, err := b.buildObject(&ont.Objects[i])
		if err != nil {
			return nil, err
		}
		doc.Objects = append(doc.Objects, o)
	}

	doc.Structs = make([]ir.Struct, 0, len(ont.Structs))
	for _, st := range ont.Structs {
		fields, err := b.buildFields("struct "+st.Name, st.Fields)
		if err != nil {
			return nil, err
		}
		doc.Structs = append(doc.Structs, ir.Struct{ID: st.ID, Name: st.Name, Fields: fields})
	}

	var err error
	if doc.ActionInputs, err = b.buildShapes("actionInput", ont.ActionInputs); err != nil {
		return nil, err
	}
	if doc.ActionOutputs, err = b.buildShapes("actionOutput", ont.ActionOutputs); err != nil {
		return nil, err
	}

	doc.Actions = make([]ir.Action, 0, len(ont.Actions))
	for _, a := range ont.Actions {
		doc.Actions = append(doc.Actions, ir.Action{
			ID:            a.ID,
			Name:          a.Name,
			Kind:          a.Kind,
			InputShapeID:  b.inputs[a.Input],
			OutputShapeID: b.outputs[a.Output],
		})
	}

	doc.Events = make([]ir.Event, 0, len(ont.Events))
	for _, e := range ont.Events {
		ev := ir.Event{ID: e.ID, Name: e.Name, Kind: e.Kind}
		switch e.Kind {
		case ast.EventActionOutput:
			ev.ActionID = b.actions[e.Action]
		case ast.EventTransition:
			ev.ObjectID = b.scope.Objects[e.Object]
			ev.FromStateID = b.states[e.Object][e.From]
			ev.ToStateID = b.states[e.Object][e.To]
		case ast.EventSignal:
			ev.PayloadStructID = b.scope.Structs[e.Payload]
		}
		doc.Events = append(doc.Events, ev)
	}

	doc.Triggers = make([]ir.Trigger, 0, len(ont.Triggers))
	for _, t := range ont.Triggers {
		doc.Triggers = append(doc.Triggers, ir.Trigger{
			ID:       t.ID,
			Name:     t.Name,
			EventID:  b.events[t.Event],
			ActionID: b.actions[t.Action],
		})
	}

	sortByID(doc.Types, func(t ir.CustomType) string { return t.ID })
	sortByID(doc.Objects, func(o ir.Object) string { return o.ID })
	sortByID(doc.Structs, func(s ir.Struct) string { return s.ID })
	sortByID(doc.ActionInputs, func(s ir.Shape) string { return s.ID })
	sortByID(doc.ActionOutputs, func(s ir.Shape) string { return s.ID })
	sortByID(doc.Actions, func(a ir.Action) string { return a.ID })
	sortByID(doc.Events, func(e ir.Event) string { return e.ID })
	sortByID(doc.Triggers, func(t ir.Trigger) string { return t.ID })

	if err := Seal(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Seal computes the query contracts, query_contracts_version and ir_hash of
// a document whose declarations are final.
func Seal(doc *ir.Document) error {
	contracts, err := querycontract.Build(doc)
	if err != nil {
		return &CompileError{Field: "query_contracts", Message: "build failed", Err: err}
	}
	doc.QueryContracts = contracts

	version, err := ir.Hash(contracts)
	if err != nil {
		return &CompileError{Field: "query_contracts_version", Message: "hash failed", Err: err}
	}
	doc.QueryContractsVersion = version

	doc.IRHash = ""
	hash, err := doc.ComputeHash()
	if err != nil {
		return &CompileError{Field: "ir_hash", Message: "hash failed", Err: err}
	}
	doc.IRHash = hash
	return nil
}

type builder struct {
	scope   Scope
	inputs  map[string]string
	outputs map[string]string
	actions map[string]string
	events  map[string]string
	states  map[string]map[string]string // object name -> state name -> id
}

func (b *builder) indexNames(ont *ast.Ontology) {
	b.inputs = map[string]string{}
	for _, s := range ont.ActionInputs {
		b.inputs[s.Name] = s.ID
	}
	b.outputs = map[string]string{}
	for _, s := range ont.ActionOutputs {
		b.outputs[s.Name] = s.ID
	}
	b.actions = map[string]string{}
	for _, a := range ont.Actions {
		b.actions[a.Name] = a.ID
	}
	b.events = map[string]string{}
	for _, e := range ont.Events {
		b.events[e.Name] = e.ID
	}
	b.states = map[string]map[string]string{}
	for _, o := range ont.Objects {
		m := map[string]string{}
		for _, s := range o.States {
			if _, ok := m[s.Name]; !ok {
				m[s.Name] = s.ID
			}
		}
		if _, ok := b.states[o.Name]; !ok {
			b.states[o.Name] = m
		}
	}
}

func (b *builder) buildObject(o *ast.ObjectDef) (ir.Object, error) {
	label := "object " + o.Name
	fields, err := b.buildFields(label, o.Fields)
	if err != nil {
		return ir.Object{}, err
	}

	path := o.Path
	if path == "" {
		path = "/" + o.ID
	}

	obj := ir.Object{
		ID:          o.ID,
		Name:        o.Name,
		Path:        path,
		Fields:      fields,
		States:      make([]ir.State, 0, len(o.States)),
		Transitions: make([]ir.Transition, 0, len(o.Transitions)),
		PrimaryKey:  keyFieldIDs(o, ast.KeyPrimary),
		DisplayKey:  keyFieldIDs(o, ast.KeyDisplay),
	}

	stateIDs := b.states[o.Name]
	for _, s := range o.States {
		obj.States = append(obj.States, ir.State{ID: s.ID, Name: s.Name, Initial: s.Initial})
	}
	for _, tr := range o.Transitions {
		obj.Transitions = append(obj.Transitions, ir.Transition{
			ID:          tr.ID,
			Name:        tr.Name,
			FromStateID: stateIDs[tr.From],
			ToStateID:   stateIDs[tr.To],
		})
	}
	sortByID(obj.States, func(s ir.State) string { return s.ID })
	sortByID(obj.Transitions, func(t ir.Transition) string { return t.ID })
	return obj, nil
}

// keyFieldIDs returns the field ids of a key role in declared order,
// preferring the composite declaration over field annotations.
func keyFieldIDs(o *ast.ObjectDef, role string) []string {
	byName := make(map[string]string, len(o.Fields))
	for _, f := range o.Fields {
		byName[f.Name] = f.ID
	}

	for _, k := range o.Keys {
		if k.Role != role {
			continue
		}
		ids := make([]string, 0, len(k.Fields))
		for _, name := range k.Fields {
			if id, ok := byName[name]; ok {
				ids = append(ids, id)
			}
		}
		return ids
	}

	ids := []string{}
	for _, f := range o.Fields {
		if f.KeyRole == role {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

func (b *builder) buildShapes(kind string, shapes []ast.ActionShapeDef) ([]ir.Shape, error) {
	out := make([]ir.Shape, 0, len(shapes))
	for _, s := range shapes {
		fields, err := b.buildFields(kind+" "+s.Name, s.Fields)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.Shape{ID: s.ID, Name: s.Name, Fields: fields})
	}
	return out, nil
}

func (b *builder) buildFields(owner string, defs []ast.FieldDef) ([]ir.Field, error) {
	fields := make([]ir.Field, 0, len(defs))
	for _, f := range defs {
		td, err := b.scope.Resolve(f.TypeExpr)
		if err != nil {
			return nil, &CompileError{Field: owner + ".field " + f.Name, Message: "type resolution failed", Err: err}
		}
		fields = append(fields, ir.Field{
			ID:          f.ID,
			Name:        f.Name,
			Type:        td,
			Cardinality: CardinalityOf(f.Required, td),
		})
	}
	sortByID(fields, func(f ir.Field) string { return f.ID })
	return fields, nil
}

// CardinalityOf derives field cardinality: min 1 when required, max many
// for list types.
func CardinalityOf(required bool, td ir.TypeDescriptor) ir.Cardinality {
	c := ir.Cardinality{Min: 0, Max: 1}
	if required {
		c.Min = 1
	}
	if ir.IsList(td) {
		c.Max = ir.Many
	}
	return c
}

func sortByID[T any](items []T, id func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
}

func sortedStrings(s []string) []string {
	slices.Sort(s)
	return s
}
