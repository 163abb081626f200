package baseline

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// documentSchema is the structural shape of a persisted IR document.
// Definitions are closed, so unknown keys are rejected.
const documentSchema = `
#ID: string & !=""

#Kind: "base" | "custom" | "object_ref" | "struct" | "list"

#Scalar: {
	kind: "base"
	name: "string" | "int" | "long" | "short" | "byte" | "double" | "float" | "decimal" | "boolean" | "datetime" | "date" | "duration"
} | {
	kind:           "custom"
	target_type_id: #ID
} | {
	kind:             "object_ref"
	target_object_id: #ID
} | {
	kind:             "struct"
	target_struct_id: #ID
}

#Type: #Scalar | {
	kind: "list"
	element: {kind: #Kind, ...}
}

#Field: {
	id:   #ID
	name: string
	type: #Type
	cardinality: {
		min: int & >=0
		max: (int & >=1) | "many"
	}
}

#CustomType: {
	id:   #ID
	name: string
	base: string
	constraints: {[string]: string}
}

#State: {
	id:      #ID
	name:    string
	initial: bool
}

#Transition: {
	id:            #ID
	name:          string
	from_state_id: #ID
	to_state_id:   #ID
}

#Object: {
	id:   #ID
	name: string
	path: string
	fields: [...#Field]
	states: [...#State]
	transitions: [...#Transition]
	primary_key: [...#ID]
	display_key: [...#ID]
}

#Shape: {
	id:   #ID
	name: string
	fields: [...#Field]
}

#Action: {
	id:               #ID
	name:             string
	kind:             "create" | "read" | "update" | "delete" | "list" | "command" | "query"
	input_shape_id?:  #ID
	output_shape_id?: #ID
}

#Event: {
	id:                 #ID
	name:               string
	kind:               "signal" | "action_output" | "transition"
	action_id?:         #ID
	object_id?:         #ID
	from_state_id?:     #ID
	to_state_id?:       #ID
	payload_struct_id?: #ID
}

#Trigger: {
	id:        #ID
	name:      string
	event_id:  #ID
	action_id: #ID
}

#Contract: {
	object_id: #ID
	paths: {
		collection: string
		item:       string
	}
	pageable: {
		default_page_size: int & >=1
		max_page_size:     int & >=1
	}
	filters: [...{
		field_id: #ID
		operators: [...("eq" | "in" | "contains" | "gte" | "lte")]
	}]
	contract_hash?: string
}

#Document: {
	ir_version:        string
	toolchain_version: string
	ontology: {
		id:      #ID
		name:    string
		version: string
	}
	types: [...#CustomType]
	objects: [...#Object]
	structs: [...#Shape]
	action_inputs: [...#Shape]
	action_outputs: [...#Shape]
	actions: [...#Action]
	events: [...#Event]
	triggers: [...#Trigger]
	query_contracts?: [...#Contract]
	query_contracts_version?: string
	compatibility_profile: {
		strict_enums: bool
	}
	ir_hash?: =~"^[0-9a-f]{64}$"
}
`

// documentDef compiles the schema into ctx. A cue.Context only grows, so
// every validation gets its own.
func documentDef(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(documentSchema, cue.Filename("baseline.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile baseline schema: %w", err)
	}
	return v.LookupPath(cue.ParsePath("#Document")), nil
}

// ValidateStructure checks raw document JSON against the baseline schema.
// Every violation is reported in the returned message. It is safe for
// concurrent use.
func ValidateStructure(data []byte, filename string) error {
	ctx := cuecontext.New()
	def, err := documentDef(ctx)
	if err != nil {
		return err
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return fmt.Errorf("parse %s: %s", filename, formatCUEError(err))
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s does not match the baseline schema: %s", filename, formatCUEError(err))
	}
	return nil
}

// formatCUEError flattens a CUE error list into one message.
func formatCUEError(err error) string {
	errs := errors.Errors(err)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}
