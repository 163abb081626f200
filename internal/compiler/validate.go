package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/domainerr"
	"github.com/roach88/ontogen/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Identity errors (E100-E104)
	ErrDuplicateID   = "E101" // id declared more than once
	ErrDuplicateName = "E102" // name declared more than once in one scope

	// Object structure errors (E105-E109)
	ErrPrimaryKey        = "E105" // missing or ambiguous primary key
	ErrDisplayKey        = "E106" // ambiguous display key
	ErrKeyField          = "E107" // key declaration names an unknown field
	ErrInitialState      = "E108" // stateful object without exactly one initial state
	ErrUnknownState      = "E109" // transition endpoint is not a state of the object
	ErrDuplicateState    = "E110" // duplicate state name (strict mode)
	ErrKeyRoleNotAllowed = "E111" // key role on a struct or action shape field

	// Type errors (E115-E119)
	ErrUnresolvedType = "E115" // field type expression does not resolve
	ErrInvalidBase    = "E116" // custom type base is not a built-in type

	// Behavior errors (E120-E129)
	ErrInvalidActionKind = "E120" // action kind not in ActionKinds
	ErrUnknownShape      = "E121" // action input/output shape not declared
	ErrInvalidEventKind  = "E122" // event kind not in EventKinds
	ErrEventReference    = "E123" // event reference missing, unknown or misplaced
	ErrTriggerReference  = "E124" // trigger event/action not declared
)

// ActionKinds is the fixed set of action kinds.
var ActionKinds = map[string]bool{
	"create":  true,
	"read":    true,
	"update":  true,
	"delete":  true,
	"list":    true,
	"command": true,
	"query":   true,
}

// EventKinds is the fixed set of event kinds.
var EventKinds = map[string]bool{
	ast.EventSignal:       true,
	ast.EventActionOutput: true,
	ast.EventTransition:   true,
}

// ValidationError represents one semantic rule violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Options tunes validation.
type Options struct {
	// Strict additionally rejects duplicate state names within one object.
	Strict bool
}

// Validate checks an ontology for referential and structural correctness.
// Returns all errors found (does not fail-fast), in source order per rule.
func Validate(ont *ast.Ontology, opts Options) []ValidationError {
	v := &validator{ont: ont, opts: opts, scope: NewScope(ont)}
	v.checkIDs()
	v.checkNames()
	v.checkTypes()
	for i := range ont.Objects {
		v.checkObject(&ont.Objects[i])
	}
	for _, st := range ont.Structs {
		v.checkFields("struct "+st.Name, st.Fields, false)
	}
	for _, s := range ont.ActionInputs {
		v.checkFields("actionInput "+s.Name, s.Fields, false)
	}
	for _, s := range ont.ActionOutputs {
		v.checkFields("actionOutput "+s.Name, s.Fields, false)
	}
	v.checkActions()
	v.checkEvents()
	v.checkTriggers()
	return v.errs
}

// Check validates and folds any violations into a Semantic domain error.
func Check(ont *ast.Ontology, opts Options) error {
	errs := Validate(ont, opts)
	if len(errs) == 0 {
		return nil
	}
	return domainerr.Semantic(Messages(errs))
}

// Messages renders validation errors as strings.
func Messages(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

type validator struct {
	ont   *ast.Ontology
	opts  Options
	scope Scope
	errs  []ValidationError
}

func (v *validator) add(code string, line int, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Line:    line,
	})
}

// declared is one id-carrying element, used for uniqueness checks.
type declared struct {
	id    string
	label string
	line  int
}

// checkIDs enforces global id uniqueness across every declaration.
func (v *validator) checkIDs() {
	ont := v.ont
	all := []declared{{ont.ID, "ontology " + ont.Name, ont.Line}}
	fields := func(owner string, fs []ast.FieldDef) {
		for _, f := range fs {
			all = append(all, declared{f.ID, owner + ".field " + f.Name, f.Line})
		}
	}

	for _, t := range ont.Types {
		all = append(all, declared{t.ID, "type " + t.Name, t.Line})
	}
	for _, o := range ont.Objects {
		label := "object " + o.Name
		all = append(all, declared{o.ID, label, o.Line})
		fields(label, o.Fields)
		for _, s := range o.States {
			all = append(all, declared{s.ID, label + ".state " + s.Name, s.Line})
		}
		for _, tr := range o.Transitions {
			all = append(all, declared{tr.ID, label + ".transition " + tr.Name, tr.Line})
		}
	}
	for _, st := range ont.Structs {
		all = append(all, declared{st.ID, "struct " + st.Name, st.Line})
		fields("struct "+st.Name, st.Fields)
	}
	for _, s := range ont.ActionInputs {
		all = append(all, declared{s.ID, "actionInput " + s.Name, s.Line})
		fields("actionInput "+s.Name, s.Fields)
	}
	for _, s := range ont.ActionOutputs {
		all = append(all, declared{s.ID, "actionOutput " + s.Name, s.Line})
		fields("actionOutput "+s.Name, s.Fields)
	}
	for _, a := range ont.Actions {
		all = append(all, declared{a.ID, "action " + a.Name, a.Line})
	}
	for _, e := range ont.Events {
		all = append(all, declared{e.ID, "event " + e.Name, e.Line})
	}
	for _, t := range ont.Triggers {
		all = append(all, declared{t.ID, "trigger " + t.Name, t.Line})
	}

	first := make(map[string]declared, len(all))
	for _, d := range all {
		if prev, ok := first[d.id]; ok {
			v.add(ErrDuplicateID, d.line, d.label, "duplicate id %q (already used by %s on line %d)", d.id, prev.label, prev.line)
			continue
		}
		first[d.id] = d
	}
}

// checkNames rejects duplicate names among declarations that are referenced
// by name. Types, structs and objects share one namespace because a bare
// type expression may name any of them.
func (v *validator) checkNames() {
	ont := v.ont

	typeSpace := map[string]int{}
	for _, t := range ont.Types {
		v.claimName(typeSpace, "type", t.Name, t.Line)
	}
	for _, st := range ont.Structs {
		v.claimName(typeSpace, "struct", st.Name, st.Line)
	}
	for _, o := range ont.Objects {
		v.claimName(typeSpace, "object", o.Name, o.Line)
	}

	shapes := map[string]int{}
	for _, s := range ont.ActionInputs {
		v.claimName(shapes, "actionInput", s.Name, s.Line)
	}
	outputs := map[string]int{}
	for _, s := range ont.ActionOutputs {
		v.claimName(outputs, "actionOutput", s.Name, s.Line)
	}
	actions := map[string]int{}
	for _, a := range ont.Actions {
		v.claimName(actions, "action", a.Name, a.Line)
	}
	events := map[string]int{}
	for _, e := range ont.Events {
		v.claimName(events, "event", e.Name, e.Line)
	}
	triggers := map[string]int{}
	for _, t := range ont.Triggers {
		v.claimName(triggers, "trigger", t.Name, t.Line)
	}
}

func (v *validator) claimName(seen map[string]int, kind, name string, line int) {
	if prev, ok := seen[name]; ok {
		v.add(ErrDuplicateName, line, kind+" "+name, "name %q is already declared on line %d", name, prev)
		return
	}
	seen[name] = line
}

func (v *validator) checkTypes() {
	for _, t := range v.ont.Types {
		if ir.BaseTypes[t.Name] {
			v.add(ErrInvalidBase, t.Line, "type "+t.Name, "custom type name shadows built-in type %q", t.Name)
		}
		if !ir.BaseTypes[t.Base] {
			v.add(ErrInvalidBase, t.Line, "type "+t.Name, "base %q is not a built-in type", t.Base)
		}
	}
}

// checkFields resolves field types and enforces per-container rules.
// Key roles are only allowed on object fields.
func (v *validator) checkFields(owner string, fields []ast.FieldDef, keysAllowed bool) {
	seen := map[string]int{}
	for _, f := range fields {
		label := owner + ".field " + f.Name
		v.claimName(seen, owner+".field", f.Name, f.Line)

		if _, err := v.scope.Resolve(f.TypeExpr); err != nil {
			v.add(ErrUnresolvedType, f.Line, label, "%v", err)
		}
		if f.KeyRole != "" && !keysAllowed {
			v.add(ErrKeyRoleNotAllowed, f.Line, label, "key role %q is only allowed on object fields", f.KeyRole)
		}
	}
}

func (v *validator) checkObject(o *ast.ObjectDef) {
	label := "object " + o.Name
	v.checkFields(label, o.Fields, true)
	v.checkKeys(o)

	if o.IsStateful() {
		initial := 0
		for _, s := range o.States {
			if s.Initial {
				initial++
			}
		}
		if initial != 1 {
			v.add(ErrInitialState, o.Line, label, "stateful object must have exactly one initial state, found %d", initial)
		}
	}

	states := map[string]int{}
	for _, s := range o.States {
		if prev, ok := states[s.Name]; ok {
			if v.opts.Strict {
				v.add(ErrDuplicateState, s.Line, label+".state "+s.Name, "duplicate state name %q (first declared on line %d)", s.Name, prev)
			}
			continue
		}
		states[s.Name] = s.Line
	}

	for _, tr := range o.Transitions {
		trLabel := label + ".transition " + tr.Name
		if _, ok := states[tr.From]; !ok {
			v.add(ErrUnknownState, tr.Line, trLabel, "from state %q is not declared on %s", tr.From, o.Name)
		}
		if _, ok := states[tr.To]; !ok {
			v.add(ErrUnknownState, tr.Line, trLabel, "to state %q is not declared on %s", tr.To, o.Name)
		}
	}
}

// checkKeys enforces exactly one primary key set, declared either as an
// object-level `key primary a, b` line or as a single field annotation, and
// at most one display key set.
func (v *validator) checkKeys(o *ast.ObjectDef) {
	label := "object " + o.Name

	fieldNames := make(map[string]bool, len(o.Fields))
	for _, f := range o.Fields {
		fieldNames[f.Name] = true
	}

	declCount := map[string]int{}
	for _, k := range o.Keys {
		declCount[k.Role]++
		seen := map[string]bool{}
		for _, name := range k.Fields {
			if !fieldNames[name] {
				v.add(ErrKeyField, k.Line, label, "%s key names unknown field %q", k.Role, name)
			}
			if seen[name] {
				v.add(ErrKeyField, k.Line, label, "%s key lists field %q twice", k.Role, name)
			}
			seen[name] = true
		}
	}

	annotated := map[string]int{}
	for _, f := range o.Fields {
		if f.KeyRole != "" {
			annotated[f.KeyRole]++
		}
	}

	switch primary := declCount[ast.KeyPrimary] + annotated[ast.KeyPrimary]; {
	case primary == 0:
		v.add(ErrPrimaryKey, o.Line, label, "object declares no primary key")
	case primary > 1:
		v.add(ErrPrimaryKey, o.Line, label, "object declares more than one primary key set")
	}

	if declCount[ast.KeyDisplay]+annotated[ast.KeyDisplay] > 1 {
		v.add(ErrDisplayKey, o.Line, label, "object declares more than one display key set")
	}
}

func (v *validator) checkActions() {
	inputs := names(v.ont.ActionInputs)
	outputs := names(v.ont.ActionOutputs)

	for _, a := range v.ont.Actions {
		label := "action " + a.Name
		if !ActionKinds[a.Kind] {
			v.add(ErrInvalidActionKind, a.Line, label, "kind %q is not one of %s", a.Kind, sortedKeys(ActionKinds))
		}
		if a.Input != "" && !inputs[a.Input] {
			v.add(ErrUnknownShape, a.Line, label, "input %q is not a declared actionInput", a.Input)
		}
		if a.Output != "" && !outputs[a.Output] {
			v.add(ErrUnknownShape, a.Line, label, "output %q is not a declared actionOutput", a.Output)
		}
	}
}

func (v *validator) checkEvents() {
	actions := map[string]bool{}
	for _, a := range v.ont.Actions {
		actions[a.Name] = true
	}
	objects := map[string]*ast.ObjectDef{}
	for i := range v.ont.Objects {
		o := &v.ont.Objects[i]
		if _, ok := objects[o.Name]; !ok {
			objects[o.Name] = o
		}
	}

	for _, e := range v.ont.Events {
		label := "event " + e.Name
		if !EventKinds[e.Kind] {
			v.add(ErrInvalidEventKind, e.Line, label, "kind %q is not one of %s", e.Kind, sortedKeys(EventKinds))
			continue
		}

		var misplaced []string
		switch e.Kind {
		case ast.EventActionOutput:
			if e.Action == "" {
				v.add(ErrEventReference, e.Line, label, "action_output event must name an action")
			} else if !actions[e.Action] {
				v.add(ErrEventReference, e.Line, label, "unknown action %q", e.Action)
			}
			misplaced = present(map[string]string{"object": e.Object, "from": e.From, "to": e.To, "payload": e.Payload})

		case ast.EventTransition:
			v.checkTransitionEvent(e, label, objects)
			misplaced = present(map[string]string{"action": e.Action, "payload": e.Payload})

		case ast.EventSignal:
			if e.Payload != "" {
				if _, ok := v.scope.Structs[e.Payload]; !ok {
					v.add(ErrEventReference, e.Line, label, "payload %q is not a declared struct", e.Payload)
				}
			}
			misplaced = present(map[string]string{"action": e.Action, "object": e.Object, "from": e.From, "to": e.To})
		}

		for _, attr := range misplaced {
			v.add(ErrEventReference, e.Line, label, "attribute %q is not allowed on %s events", attr, e.Kind)
		}
	}
}

func (v *validator) checkTransitionEvent(e ast.EventDef, label string, objects map[string]*ast.ObjectDef) {
	if e.Object == "" || e.From == "" || e.To == "" {
		v.add(ErrEventReference, e.Line, label, "transition event must name object, from and to")
		return
	}
	o, ok := objects[e.Object]
	if !ok {
		v.add(ErrEventReference, e.Line, label, "unknown object %q", e.Object)
		return
	}
	states := map[string]bool{}
	for _, s := range o.States {
		states[s.Name] = true
	}
	if !states[e.From] {
		v.add(ErrEventReference, e.Line, label, "from state %q is not declared on %s", e.From, o.Name)
	}
	if !states[e.To] {
		v.add(ErrEventReference, e.Line, label, "to state %q is not declared on %s", e.To, o.Name)
	}
}

func (v *validator) checkTriggers() {
	events := map[string]bool{}
	for _, e := range v.ont.Events {
		events[e.Name] = true
	}
	actions := map[string]bool{}
	for _, a := range v.ont.Actions {
		actions[a.Name] = true
	}

	for _, t := range v.ont.Triggers {
		label := "trigger " + t.Name
		if !events[t.Event] {
			v.add(ErrTriggerReference, t.Line, label, "unknown event %q", t.Event)
		}
		if !actions[t.Action] {
			v.add(ErrTriggerReference, t.Line, label, "unknown action %q", t.Action)
		}
	}
}

func names(shapes []ast.ActionShapeDef) map[string]bool {
	out := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		out[s.Name] = true
	}
	return out
}

// present returns the names of non-empty attributes, sorted.
func present(attrs map[string]string) []string {
	var out []string
	for name, value := range attrs {
		if value != "" {
			out = append(out, name)
		}
	}
	return sortedStrings(out)
}

func sortedKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return "{" + strings.Join(sortedStrings(keys), ", ") + "}"
}
