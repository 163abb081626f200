// Package ast holds the declarations produced by the DSL parser.
//
// Nodes are plain data: they are created once per parse and never mutated.
// Each node records the 1-based source line of its header so later stages
// can report diagnostics without keeping a reference into the source text.
// Cross references are by name (as written); the IR builder turns them into
// stable ids.
package ast

// Key roles a field may carry.
const (
	KeyPrimary = "primary"
	KeyDisplay = "display"
)

// Event kinds.
const (
	EventSignal       = "signal"
	EventActionOutput = "action_output"
	EventTransition   = "transition"
)

// Ontology is the root declaration of a source file.
type Ontology struct {
	ID      string
	Name    string
	Version string
	Line    int

	Types         []TypeDef
	Objects       []ObjectDef
	Structs       []StructDef
	ActionInputs  []ActionShapeDef
	ActionOutputs []ActionShapeDef
	Actions       []ActionDef
	Events        []EventDef
	Triggers      []TriggerDef
}

// Constraint is one `constraint name "value"` line of a type.
type Constraint struct {
	Name  string
	Value string
	Line  int
}

// TypeDef declares a named custom type over a base type.
type TypeDef struct {
	ID          string
	Name        string
	Base        string
	Constraints []Constraint
	Line        int
}

// KeyDecl is an object-level composite key declaration: `key primary a, b`.
type KeyDecl struct {
	Role   string
	Fields []string
	Line   int
}

// ObjectDef declares a persisted entity.
type ObjectDef struct {
	ID          string
	Name        string
	Path        string
	Keys        []KeyDecl
	Fields      []FieldDef
	States      []StateDef
	Transitions []TransitionDef
	Line        int
}

// StructDef declares an embedded value type.
type StructDef struct {
	ID     string
	Name   string
	Fields []FieldDef
	Line   int
}

// FieldDef declares a field of an object, struct or action shape.
type FieldDef struct {
	ID       string
	Name     string
	TypeExpr string
	Required bool
	KeyRole  string
	Line     int
}

// StateDef declares a lifecycle state of an object.
type StateDef struct {
	ID      string
	Name    string
	Initial bool
	Line    int
}

// TransitionDef declares a move between two states of the owning object.
type TransitionDef struct {
	ID   string
	Name string
	From string
	To   string
	Line int
}

// ActionShapeDef declares an action input or output field set.
type ActionShapeDef struct {
	ID     string
	Name   string
	Fields []FieldDef
	Line   int
}

// ActionDef declares an operation over the ontology.
type ActionDef struct {
	ID     string
	Name   string
	Kind   string
	Input  string
	Output string
	Line   int
}

// EventDef declares something that happens. Which references are set
// depends on Kind.
type EventDef struct {
	ID      string
	Name    string
	Kind    string
	Action  string // action_output
	Object  string // transition
	From    string // transition
	To      string // transition
	Payload string // signal, optional struct name
	Line    int
}

// TriggerDef wires an event to an action invocation.
type TriggerDef struct {
	ID     string
	Name   string
	Event  string
	Action string
	Line   int
}

// IsStateful reports whether the object declares any states.
func (o *ObjectDef) IsStateful() bool {
	return len(o.States) > 0
}
