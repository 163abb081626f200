package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is a compiled ontology.
//
// Every collection is sorted by id. QueryContracts is empty for documents
// decoded from older baselines that predate query contracts.
type Document struct {
	IRVersion             string               `json:"ir_version"`
	ToolchainVersion      string               `json:"toolchain_version"`
	Ontology              OntologyInfo         `json:"ontology"`
	Types                 []CustomType         `json:"types"`
	Objects               []Object             `json:"objects"`
	Structs               []Struct             `json:"structs"`
	ActionInputs          []Shape              `json:"action_inputs"`
	ActionOutputs         []Shape              `json:"action_outputs"`
	Actions               []Action             `json:"actions"`
	Events                []Event              `json:"events"`
	Triggers              []Trigger            `json:"triggers"`
	QueryContracts        []QueryContract      `json:"query_contracts,omitempty"`
	QueryContractsVersion string               `json:"query_contracts_version,omitempty"`
	CompatibilityProfile  CompatibilityProfile `json:"compatibility_profile"`
	IRHash                string               `json:"ir_hash,omitempty"`
}

// OntologyInfo identifies the ontology a document was built from.
type OntologyInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CustomType is a named type over a base type with optional constraints.
type CustomType struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Base        string            `json:"base"`
	Constraints map[string]string `json:"constraints"`
}

// Object is a persisted entity.
type Object struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Fields      []Field      `json:"fields"`
	States      []State      `json:"states"`
	Transitions []Transition `json:"transitions"`
	PrimaryKey  []string     `json:"primary_key"`
	DisplayKey  []string     `json:"display_key"`
}

// IsStateful reports whether the object has a lifecycle.
func (o *Object) IsStateful() bool {
	return len(o.States) > 0
}

// InitialState returns the state flagged initial, if any.
func (o *Object) InitialState() (State, bool) {
	for _, s := range o.States {
		if s.Initial {
			return s, true
		}
	}
	return State{}, false
}

// Field is a typed member of an object, struct or action shape.
type Field struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        TypeDescriptor `json:"type"`
	Cardinality Cardinality    `json:"cardinality"`
}

// UnmarshalJSON decodes the sealed Type descriptor.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Type        json.RawMessage `json:"type"`
		Cardinality Cardinality     `json:"cardinality"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	td, err := UnmarshalDescriptor(raw.Type)
	if err != nil {
		return fmt.Errorf("field %q: %w", raw.ID, err)
	}
	*f = Field{ID: raw.ID, Name: raw.Name, Type: td, Cardinality: raw.Cardinality}
	return nil
}

// Required reports whether the field must be present.
func (f *Field) Required() bool {
	return f.Cardinality.Min > 0
}

// Cardinality bounds how many values a field holds.
type Cardinality struct {
	Min int      `json:"min"`
	Max MaxBound `json:"max"`
}

// MaxBound is an upper cardinality bound: a positive count or Many.
type MaxBound int

// Many is the unbounded upper cardinality, encoded as "many".
const Many MaxBound = -1

// MarshalJSON encodes Many as "many" and counts as integers.
func (m MaxBound) MarshalJSON() ([]byte, error) {
	if m == Many {
		return []byte(`"many"`), nil
	}
	return []byte(strconv.Itoa(int(m))), nil
}

// UnmarshalJSON accepts "many" or a positive integer.
func (m *MaxBound) UnmarshalJSON(data []byte) error {
	if string(data) == `"many"` {
		*m = Many
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil || n < 1 {
		return fmt.Errorf("cardinality max must be \"many\" or a positive integer, got %s", data)
	}
	*m = MaxBound(n)
	return nil
}

// State is a lifecycle state of an object.
type State struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Initial bool   `json:"initial"`
}

// Transition is a move between two state ids of the same object.
type Transition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FromStateID string `json:"from_state_id"`
	ToStateID   string `json:"to_state_id"`
}

// Struct is an embedded value type.
type Struct struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Shape is an action input or output field set.
type Shape struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Action is an operation over the ontology.
type Action struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	InputShapeID  string `json:"input_shape_id,omitempty"`
	OutputShapeID string `json:"output_shape_id,omitempty"`
}

// Event is something that happens. Which references are set depends on Kind.
type Event struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	ActionID        string `json:"action_id,omitempty"`
	ObjectID        string `json:"object_id,omitempty"`
	FromStateID     string `json:"from_state_id,omitempty"`
	ToStateID       string `json:"to_state_id,omitempty"`
	PayloadStructID string `json:"payload_struct_id,omitempty"`
}

// Trigger invokes an action when an event occurs.
type Trigger struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	EventID  string `json:"event_id"`
	ActionID string `json:"action_id"`
}

// QueryContract describes the filterable surface of one object.
type QueryContract struct {
	ObjectID     string       `json:"object_id"`
	Paths        QueryPaths   `json:"paths"`
	Pageable     Pageable     `json:"pageable"`
	Filters      []FilterSpec `json:"filters"`
	ContractHash string       `json:"contract_hash,omitempty"`
}

// QueryPaths are the collection and item routes of an object.
type QueryPaths struct {
	Collection string `json:"collection"`
	Item       string `json:"item"`
}

// Pageable holds paging defaults.
type Pageable struct {
	DefaultPageSize int `json:"default_page_size"`
	MaxPageSize     int `json:"max_page_size"`
}

// FilterSpec lists the operators allowed on one field.
type FilterSpec struct {
	FieldID   string   `json:"field_id"`
	Operators []string `json:"operators"`
}

// CompatibilityProfile records the config that shaped compatibility rules.
type CompatibilityProfile struct {
	StrictEnums bool `json:"strict_enums"`
}
