package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontogen/internal/ast"
	"github.com/roach88/ontogen/internal/domainerr"
	"github.com/roach88/ontogen/internal/parser"
	"github.com/roach88/ontogen/internal/testutil"
)

func mustParse(t *testing.T, src string) *ast.Ontology {
	t.Helper()
	ont, err := parser.Parse(src)
	require.NoError(t, err)
	return ont
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

// =============================================================================
// Valid Ontologies
// =============================================================================

func TestValidateCommerce(t *testing.T) {
	ont := mustParse(t, testutil.CommerceSource)
	assert.Empty(t, Validate(ont, Options{}))
	assert.Empty(t, Validate(ont, Options{Strict: true}))
	assert.NoError(t, Check(ont, Options{}))
}

func TestValidateCompositePrimaryKey(t *testing.T) {
	src := testutil.Edit(testutil.CommerceSource,
		"      required\n      key primary\n    }\n    field email", "      required\n    }\n    field email",
		`    id "obj-customer"`+"\n", `    id "obj-customer"`+"\n    key primary customerId, email\n",
	)
	errs := Validate(mustParse(t, src), Options{})
	assert.Empty(t, errs)
}

// =============================================================================
// Rule Violations
// =============================================================================

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name  string
		edits []string
		code  string
		msg   string
	}{
		{
			name:  "duplicate id across types",
			edits: []string{`id "t-channel"`, `id "t-money"`},
			code:  ErrDuplicateID,
			msg:   `duplicate id "t-money" (already used by type Money on line 6)`,
		},
		{
			name:  "duplicate id across kinds",
			edits: []string{`id "s-order-placed"`, `id "f-order-id"`},
			code:  ErrDuplicateID,
			msg:   "already used by object Order.field orderId",
		},
		{
			name:  "duplicate id with ontology",
			edits: []string{`id "trg-on-order-placed"`, `id "ont-commerce"`},
			code:  ErrDuplicateID,
			msg:   "already used by ontology Commerce",
		},
		{
			name:  "duplicate type name",
			edits: []string{"type Channel {", "type Money {"},
			code:  ErrDuplicateName,
			msg:   `name "Money" is already declared on line 6`,
		},
		{
			name:  "struct and object share a namespace",
			edits: []string{"struct Address {", "struct Customer {"},
			code:  ErrDuplicateName,
			msg:   `name "Customer"`,
		},
		{
			name:  "duplicate field name",
			edits: []string{"field number {", "field orderId {"},
			code:  ErrDuplicateName,
			msg:   `name "orderId"`,
		},
		{
			name:  "missing primary key",
			edits: []string{"      required\n      key primary\n    }\n    field email", "      required\n    }\n    field email"},
			code:  ErrPrimaryKey,
			msg:   "no primary key",
		},
		{
			name:  "two primary key annotations",
			edits: []string{"key display", "key primary"},
			code:  ErrPrimaryKey,
			msg:   "more than one primary key set",
		},
		{
			name:  "composite key alongside annotation",
			edits: []string{`    id "obj-customer"` + "\n", `    id "obj-customer"` + "\n    key primary customerId, email\n"},
			code:  ErrPrimaryKey,
			msg:   "more than one primary key set",
		},
		{
			name:  "two display keys",
			edits: []string{`    id "obj-customer"` + "\n", `    id "obj-customer"` + "\n    key display customerId\n"},
			code:  ErrDisplayKey,
			msg:   "more than one display key set",
		},
		{
			name: "key names unknown field",
			edits: []string{
				"      required\n      key primary\n    }\n    field email", "      required\n    }\n    field email",
				`    id "obj-customer"` + "\n", `    id "obj-customer"` + "\n    key primary ghost\n",
			},
			code: ErrKeyField,
			msg:  `unknown field "ghost"`,
		},
		{
			name: "key lists field twice",
			edits: []string{
				"      required\n      key primary\n    }\n    field email", "      required\n    }\n    field email",
				`    id "obj-customer"` + "\n", `    id "obj-customer"` + "\n    key primary customerId, customerId\n",
			},
			code: ErrKeyField,
			msg:  `lists field "customerId" twice`,
		},
		{
			name:  "no initial state",
			edits: []string{`id "s-order-draft"` + "\n      initial\n", `id "s-order-draft"` + "\n"},
			code:  ErrInitialState,
			msg:   "exactly one initial state, found 0",
		},
		{
			name:  "two initial states",
			edits: []string{`id "s-order-placed"` + "\n", `id "s-order-placed"` + "\n      initial\n"},
			code:  ErrInitialState,
			msg:   "exactly one initial state, found 2",
		},
		{
			name:  "transition to unknown state",
			edits: []string{"to cancelled", "to shipped"},
			code:  ErrUnknownState,
			msg:   `to state "shipped" is not declared on Order`,
		},
		{
			name:  "transition from unknown state",
			edits: []string{"      from draft\n      to placed", "      from pending\n      to placed"},
			code:  ErrUnknownState,
			msg:   `from state "pending"`,
		},
		{
			name:  "unresolved field type",
			edits: []string{"type int", "type Integer"},
			code:  ErrUnresolvedType,
			msg:   `unknown type "Integer"`,
		},
		{
			name:  "unknown ref target",
			edits: []string{"type ref(Customer)", "type ref(Client)"},
			code:  ErrUnresolvedType,
			msg:   `unknown object "Client"`,
		},
		{
			name:  "key role on struct field",
			edits: []string{`id "f-address-street"` + "\n      type string\n      required\n", `id "f-address-street"` + "\n      type string\n      required\n      key primary\n"},
			code:  ErrKeyRoleNotAllowed,
			msg:   "only allowed on object fields",
		},
		{
			name:  "key role on action shape field",
			edits: []string{`id "f-place-order-in-id"` + "\n      type string\n      required\n", `id "f-place-order-in-id"` + "\n      type string\n      required\n      key display\n"},
			code:  ErrKeyRoleNotAllowed,
			msg:   `key role "display"`,
		},
		{
			name:  "unknown base",
			edits: []string{"base decimal", "base money"},
			code:  ErrInvalidBase,
			msg:   `base "money" is not a built-in type`,
		},
		{
			name:  "type shadows built-in",
			edits: []string{"type Channel {", "type string {"},
			code:  ErrInvalidBase,
			msg:   `shadows built-in type "string"`,
		},
		{
			name:  "invalid action kind",
			edits: []string{"kind command", "kind launch"},
			code:  ErrInvalidActionKind,
			msg:   `kind "launch" is not one of {command, create, delete, list, query, read, update}`,
		},
		{
			name:  "unknown input shape",
			edits: []string{"input PlaceOrderInput", "input Missing"},
			code:  ErrUnknownShape,
			msg:   `input "Missing" is not a declared actionInput`,
		},
		{
			name:  "unknown output shape",
			edits: []string{"output PlaceOrderOutput", "output Missing"},
			code:  ErrUnknownShape,
			msg:   `output "Missing"`,
		},
		{
			name:  "invalid event kind",
			edits: []string{"kind signal", "kind broadcast"},
			code:  ErrInvalidEventKind,
			msg:   `kind "broadcast" is not one of {action_output, signal, transition}`,
		},
		{
			name:  "action_output event with unknown action",
			edits: []string{"    kind action_output\n    action placeOrder", "    kind action_output\n    action shipOrder"},
			code:  ErrEventReference,
			msg:   `unknown action "shipOrder"`,
		},
		{
			name:  "action_output event without action",
			edits: []string{"    kind action_output\n    action placeOrder\n", "    kind action_output\n"},
			code:  ErrEventReference,
			msg:   "must name an action",
		},
		{
			name:  "transition event with unknown state",
			edits: []string{"    from draft\n    to placed", "    from draft\n    to shipped"},
			code:  ErrEventReference,
			msg:   `to state "shipped" is not declared on Order`,
		},
		{
			name:  "transition event with unknown object",
			edits: []string{"    object Order", "    object Invoice"},
			code:  ErrEventReference,
			msg:   `unknown object "Invoice"`,
		},
		{
			name:  "signal with unknown payload",
			edits: []string{"payload Address", "payload Ghost"},
			code:  ErrEventReference,
			msg:   `payload "Ghost" is not a declared struct`,
		},
		{
			name:  "attribute misplaced on event kind",
			edits: []string{"    payload Address\n", "    payload Address\n    action placeOrder\n"},
			code:  ErrEventReference,
			msg:   `attribute "action" is not allowed on signal events`,
		},
		{
			name:  "trigger with unknown event",
			edits: []string{"when event orderPlaced", "when event ghost"},
			code:  ErrTriggerReference,
			msg:   `unknown event "ghost"`,
		},
		{
			name:  "trigger with unknown action",
			edits: []string{"invoke placeOrder", "invoke ghost"},
			code:  ErrTriggerReference,
			msg:   `unknown action "ghost"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ont := mustParse(t, testutil.Edit(testutil.CommerceSource, tt.edits...))
			errs := Validate(ont, Options{})
			require.NotEmpty(t, errs)

			var found *ValidationError
			for i := range errs {
				if errs[i].Code == tt.code {
					found = &errs[i]
					break
				}
			}
			require.NotNil(t, found, "expected %s, got %v", tt.code, errs)
			assert.Contains(t, found.Message, tt.msg)
			assert.Positive(t, found.Line, "violations carry a source line")
		})
	}
}

func TestValidateDuplicateIDLine(t *testing.T) {
	ont := mustParse(t, testutil.Edit(testutil.CommerceSource, `id "t-channel"`, `id "t-money"`))
	errs := Validate(ont, Options{})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateID, errs[0].Code)
	assert.Equal(t, 12, errs[0].Line)
	assert.Equal(t, "type Channel", errs[0].Field)
	assert.Equal(t, `[E101] line 12: type Channel: duplicate id "t-money" (already used by type Money on line 6)`, errs[0].Error())
}

// =============================================================================
// Strict Mode
// =============================================================================

func TestValidateDuplicateStateNameStrict(t *testing.T) {
	src := testutil.Edit(testutil.CommerceSource,
		"state cancelled {", "state placed {",
		"to cancelled", "to placed",
	)
	ont := mustParse(t, src)

	assert.Empty(t, Validate(ont, Options{}), "lenient mode accepts duplicate state names")

	errs := Validate(ont, Options{Strict: true})
	assert.Equal(t, []string{ErrDuplicateState}, codes(errs))
	assert.Contains(t, errs[0].Message, `duplicate state name "placed"`)
}

// =============================================================================
// Collect-All Behavior
// =============================================================================

func TestValidateCollectsAllErrors(t *testing.T) {
	src := testutil.Edit(testutil.CommerceSource,
		`id "t-channel"`, `id "t-money"`,
		"type int", "type Integer",
		"kind command", "kind launch",
		"invoke placeOrder", "invoke ghost",
	)
	errs := Validate(mustParse(t, src), Options{})

	got := codes(errs)
	assert.Contains(t, got, ErrDuplicateID)
	assert.Contains(t, got, ErrUnresolvedType)
	assert.Contains(t, got, ErrInvalidActionKind)
	assert.Contains(t, got, ErrTriggerReference)
	assert.Len(t, errs, 4)
}

func TestCheckReturnsSemanticError(t *testing.T) {
	src := testutil.Edit(testutil.CommerceSource,
		"type int", "type Integer",
		"invoke placeOrder", "invoke ghost",
	)
	err := Check(mustParse(t, src), Options{})
	require.Error(t, err)
	assert.True(t, domainerr.Is(err, domainerr.KindSemantic))

	var de *domainerr.Error
	require.ErrorAs(t, err, &de)
	assert.Len(t, de.Details, 2)
	assert.Contains(t, de.Message, "2 validation error(s)")
}

func TestValidationErrorWithoutLine(t *testing.T) {
	e := ValidationError{Field: "object X", Message: "bad", Code: ErrPrimaryKey}
	assert.Equal(t, "[E105] object X: bad", e.Error())
}
