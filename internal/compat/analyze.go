package compat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ontogen/internal/ir"
	"github.com/roach88/ontogen/internal/querycontract"
)

// Finding is one classified difference between two documents.
type Finding struct {
	Level   Level  `json:"level"`
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

// String renders a finding for humans.
func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Level, f.Scope, f.Message)
}

// Report is the outcome of comparing a baseline with a current document.
type Report struct {
	// Level is the maximum severity observed.
	Level    Level     `json:"level"`
	Findings []Finding `json:"findings"`

	// Required is the bump the change set demands. It is BumpNone only
	// when the documents hash identically.
	Required Bump `json:"required_bump"`

	// ContractsRecomputed is set when either document lacked stored query
	// contracts and they were derived from its IR instead. Contract rules
	// that changed between toolchain versions can drift silently here.
	ContractsRecomputed bool `json:"contracts_recomputed"`

	// ContractsDrifted lists, sorted, the objects whose stored contract
	// does not hash to the contract the current toolchain derives from the
	// same IR. The stored contract is still the one diffed.
	ContractsDrifted []string `json:"contracts_drifted,omitempty"`
}

// Messages renders every finding.
func (r *Report) Messages() []string {
	out := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		out[i] = f.String()
	}
	return out
}

// Compare diffs two documents and returns the maximum level observed with
// one message per finding.
func Compare(oldDoc, newDoc *ir.Document) (Level, []string) {
	r := Analyze(oldDoc, newDoc)
	return r.Level, r.Messages()
}

// Analyze structurally diffs two documents keyed by id.
//
// Names never participate in identity: renaming an element without
// changing its id produces no finding. Findings are ordered by section
// (types, objects, structs, shapes, actions, events, triggers, contracts)
// and by id within a section.
func Analyze(oldDoc, newDoc *ir.Document) *Report {
	a := &analyzer{strictEnums: newDoc.CompatibilityProfile.StrictEnums}

	a.diffTypes(oldDoc.Types, newDoc.Types)
	a.diffObjects(oldDoc.Objects, newDoc.Objects)
	diffCollections(a, "", "struct", oldDoc.Structs, newDoc.Structs,
		func(s ir.Struct) string { return s.ID },
		func(scope string, o, n ir.Struct) { a.diffFields(scope, o.Fields, n.Fields) })
	diffCollections(a, "", "action input", oldDoc.ActionInputs, newDoc.ActionInputs,
		func(s ir.Shape) string { return s.ID },
		func(scope string, o, n ir.Shape) { a.diffFields(scope, o.Fields, n.Fields) })
	diffCollections(a, "", "action output", oldDoc.ActionOutputs, newDoc.ActionOutputs,
		func(s ir.Shape) string { return s.ID },
		func(scope string, o, n ir.Shape) { a.diffFields(scope, o.Fields, n.Fields) })
	diffCollections(a, "", "action", oldDoc.Actions, newDoc.Actions,
		func(x ir.Action) string { return x.ID },
		func(scope string, o, n ir.Action) { a.diffAttributes(scope, actionAttributes(o), actionAttributes(n)) })
	diffCollections(a, "", "event", oldDoc.Events, newDoc.Events,
		func(x ir.Event) string { return x.ID },
		func(scope string, o, n ir.Event) { a.diffAttributes(scope, eventAttributes(o), eventAttributes(n)) })
	diffCollections(a, "", "trigger", oldDoc.Triggers, newDoc.Triggers,
		func(x ir.Trigger) string { return x.ID },
		func(scope string, o, n ir.Trigger) { a.diffAttributes(scope, triggerAttributes(o), triggerAttributes(n)) })

	oldContracts := a.contractsOf(oldDoc)
	newContracts := a.contractsOf(newDoc)
	a.diffContracts(oldContracts, newContracts)

	r := &Report{
		Level:               NonFunctional,
		Findings:            a.findings,
		ContractsRecomputed: a.recomputed,
		ContractsDrifted:    a.driftedIDs(),
		Required:            BumpNone,
	}
	if r.Findings == nil {
		r.Findings = []Finding{}
	}
	for _, f := range r.Findings {
		r.Level = max(r.Level, f.Level)
	}
	if len(r.Findings) > 0 || oldDoc.IRHash != newDoc.IRHash {
		r.Required = RequiredBump(r.Level)
	}
	return r
}

type analyzer struct {
	strictEnums bool
	recomputed  bool
	drifted     map[string]bool
	findings    []Finding
}

func (a *analyzer) add(level Level, scope, format string, args ...any) {
	a.findings = append(a.findings, Finding{Level: level, Scope: scope, Message: fmt.Sprintf(format, args...)})
}

// diffCollections reports added (additive) and removed (breaking) elements
// of one kind and hands shared ids to diffShared. Scopes are prefix + kind + id.
func diffCollections[T any](a *analyzer, prefix, kind string, oldItems, newItems []T, id func(T) string, diffShared func(scope string, o, n T)) {
	oldByID := indexByID(oldItems, id)
	newByID := indexByID(newItems, id)

	for _, key := range unionKeys(oldByID, newByID) {
		scope := prefix + kind + " " + key
		o, inOld := oldByID[key]
		n, inNew := newByID[key]
		switch {
		case !inOld:
			a.add(Additive, scope, "%s added", kind)
		case !inNew:
			a.add(Breaking, scope, "%s removed", kind)
		default:
			if diffShared != nil {
				diffShared(scope, o, n)
			}
		}
	}
}

func (a *analyzer) diffTypes(oldTypes, newTypes []ir.CustomType) {
	diffCollections(a, "", "type", oldTypes, newTypes,
		func(t ir.CustomType) string { return t.ID },
		func(scope string, o, n ir.CustomType) {
			switch level := ClassifyBaseChange(o.Base, n.Base); level {
			case Additive:
				a.add(Additive, scope, "base widened from %s to %s", o.Base, n.Base)
			case Breaking:
				a.add(Breaking, scope, "base changed from %s to %s", o.Base, n.Base)
			}
			a.diffConstraints(scope, o.Constraints, n.Constraints)
		})
}

// diffConstraints treats any constraint change as breaking, except that a
// pure superset of enum values is additive when strict enums are off.
func (a *analyzer) diffConstraints(scope string, oldC, newC map[string]string) {
	if mapsEqual(oldC, newC) {
		return
	}
	if !a.strictEnums && onlyEnumGrew(oldC, newC) {
		a.add(Additive, scope, "enum values added")
		return
	}
	a.add(Breaking, scope, "constraints changed from %s to %s", formatConstraints(oldC), formatConstraints(newC))
}

func onlyEnumGrew(oldC, newC map[string]string) bool {
	for k, v := range oldC {
		if k != "enum" && newC[k] != v {
			return false
		}
	}
	for k, v := range newC {
		if k != "enum" && oldC[k] != v {
			return false
		}
	}
	oldEnum, okOld := oldC["enum"]
	newEnum, okNew := newC["enum"]
	if !okOld || !okNew {
		return false
	}
	values := map[string]bool{}
	for _, v := range splitEnum(newEnum) {
		values[v] = true
	}
	for _, v := range splitEnum(oldEnum) {
		if !values[v] {
			return false
		}
	}
	return true
}

func splitEnum(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatConstraints(c map[string]string) string {
	if len(c) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, c[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (a *analyzer) diffObjects(oldObjects, newObjects []ir.Object) {
	diffCollections(a, "", "object", oldObjects, newObjects,
		func(o ir.Object) string { return o.ID },
		func(scope string, o, n ir.Object) {
			a.diffFields(scope, o.Fields, n.Fields)

			diffCollections(a, scope+" ", "state", o.States, n.States,
				func(s ir.State) string { return s.ID },
				func(stateScope string, os, ns ir.State) {
					if os.Initial != ns.Initial {
						a.add(Breaking, stateScope, "initial flag changed from %t to %t", os.Initial, ns.Initial)
					}
				})
			diffCollections(a, scope+" ", "transition", o.Transitions, n.Transitions,
				func(t ir.Transition) string { return t.ID },
				func(trScope string, ot, nt ir.Transition) {
					if ot.FromStateID != nt.FromStateID || ot.ToStateID != nt.ToStateID {
						a.add(Breaking, trScope, "endpoints changed from %s→%s to %s→%s",
							ot.FromStateID, ot.ToStateID, nt.FromStateID, nt.ToStateID)
					}
				})

			if !slices.Equal(o.PrimaryKey, n.PrimaryKey) {
				a.add(Breaking, scope, "primary key changed from %v to %v", o.PrimaryKey, n.PrimaryKey)
			}
			if !slices.Equal(o.DisplayKey, n.DisplayKey) {
				a.add(NonFunctional, scope, "display key changed from %v to %v", o.DisplayKey, n.DisplayKey)
			}
		})
}

// diffFields is the shared field-collection diff used for objects, structs
// and action shapes.
func (a *analyzer) diffFields(scope string, oldFields, newFields []ir.Field) {
	oldByID := indexByID(oldFields, func(f ir.Field) string { return f.ID })
	newByID := indexByID(newFields, func(f ir.Field) string { return f.ID })

	for _, id := range unionKeys(oldByID, newByID) {
		fieldScope := scope + " field " + id
		o, inOld := oldByID[id]
		n, inNew := newByID[id]

		switch {
		case !inOld && n.Required():
			a.add(Breaking, fieldScope, "required field added")
		case !inOld:
			a.add(Additive, fieldScope, "optional field added")
		case !inNew:
			a.add(Breaking, fieldScope, "field removed")
		default:
			switch ClassifyTypeChange(o.Type, n.Type) {
			case Additive:
				a.add(Additive, fieldScope, "type widened from %s to %s", o.Type, n.Type)
			case Breaking:
				a.add(Breaking, fieldScope, "type changed from %s to %s", o.Type, n.Type)
			}
			a.diffCardinality(fieldScope, o.Cardinality, n.Cardinality)
		}
	}
}

func (a *analyzer) diffCardinality(scope string, o, n ir.Cardinality) {
	if (o.Max == ir.Many) != (n.Max == ir.Many) {
		a.add(Breaking, scope, "cardinality changed between scalar and list")
	} else if o.Max != ir.Many && o.Max != n.Max {
		if n.Max < o.Max {
			a.add(Breaking, scope, "maximum cardinality tightened from %d to %d", o.Max, n.Max)
		} else {
			a.add(Additive, scope, "maximum cardinality loosened from %d to %d", o.Max, n.Max)
		}
	}

	switch {
	case n.Min > o.Min:
		a.add(Breaking, scope, "field became required")
	case n.Min < o.Min:
		a.add(Additive, scope, "field became optional")
	}
}

// attribute is one defining attribute of an action, event or trigger.
type attribute struct {
	name  string
	value string
}

func actionAttributes(x ir.Action) []attribute {
	return []attribute{{"kind", x.Kind}, {"input_shape_id", x.InputShapeID}, {"output_shape_id", x.OutputShapeID}}
}

func eventAttributes(x ir.Event) []attribute {
	return []attribute{
		{"kind", x.Kind},
		{"action_id", x.ActionID},
		{"object_id", x.ObjectID},
		{"from_state_id", x.FromStateID},
		{"to_state_id", x.ToStateID},
		{"payload_struct_id", x.PayloadStructID},
	}
}

func triggerAttributes(x ir.Trigger) []attribute {
	return []attribute{{"event_id", x.EventID}, {"action_id", x.ActionID}}
}

// diffAttributes reports every changed defining attribute as breaking.
func (a *analyzer) diffAttributes(scope string, oldAttrs, newAttrs []attribute) {
	for i := range oldAttrs {
		if oldAttrs[i].value != newAttrs[i].value {
			a.add(Breaking, scope, "%s changed from %q to %q", oldAttrs[i].name, oldAttrs[i].value, newAttrs[i].value)
		}
	}
}

// contractsOf returns the stored contracts, recomputing them from the IR
// when the document predates stored contracts. A sealed document carries a
// query_contracts_version even when it has no objects.
func (a *analyzer) contractsOf(doc *ir.Document) []ir.QueryContract {
	derived, err := querycontract.Build(doc)
	if doc.QueryContractsVersion != "" || len(doc.QueryContracts) > 0 {
		if err == nil {
			a.checkDrift(doc.QueryContracts, derived)
		}
		return doc.QueryContracts
	}

	a.recomputed = true
	if err != nil {
		a.add(Breaking, "query contracts", "could not recompute contracts: %v", err)
		return nil
	}
	return derived
}

// checkDrift records every object whose stored contract is missing, hashes
// differently from its own content, or differs from the derived contract.
func (a *analyzer) checkDrift(stored, derived []ir.QueryContract) {
	for _, d := range derived {
		c, ok := querycontract.Find(stored, d.ObjectID)
		if !ok || c.ContractHash != d.ContractHash {
			a.markDrifted(d.ObjectID)
			continue
		}
		if h, err := querycontract.Hash(c); err != nil || h != c.ContractHash {
			a.markDrifted(d.ObjectID)
		}
	}
	for _, c := range stored {
		if _, ok := querycontract.Find(derived, c.ObjectID); !ok {
			a.markDrifted(c.ObjectID)
		}
	}
}

func (a *analyzer) markDrifted(objectID string) {
	if a.drifted == nil {
		a.drifted = map[string]bool{}
	}
	a.drifted[objectID] = true
}

func (a *analyzer) driftedIDs() []string {
	if len(a.drifted) == 0 {
		return nil
	}
	ids := make([]string, 0, len(a.drifted))
	for id := range a.drifted {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// diffContracts compares contracts of objects present on both sides.
// Contracts of added or removed objects are covered by the object diff.
func (a *analyzer) diffContracts(oldContracts, newContracts []ir.QueryContract) {
	oldByID := indexByID(oldContracts, func(c ir.QueryContract) string { return c.ObjectID })
	newByID := indexByID(newContracts, func(c ir.QueryContract) string { return c.ObjectID })

	for _, id := range unionKeys(oldByID, newByID) {
		o, inOld := oldByID[id]
		n, inNew := newByID[id]
		if !inOld || !inNew {
			continue
		}
		scope := "query contract " + id
		a.diffPath(scope, "collection", o.Paths.Collection, n.Paths.Collection)
		a.diffPath(scope, "item", o.Paths.Item, n.Paths.Item)
		a.diffFilters(scope, o.Filters, n.Filters)
	}
}

func (a *analyzer) diffPath(scope, name, oldPath, newPath string) {
	switch {
	case oldPath == newPath:
	case oldPath == "":
		a.add(Additive, scope, "%s path %s added", name, newPath)
	case newPath == "":
		a.add(Breaking, scope, "%s path %s removed", name, oldPath)
	default:
		a.add(Breaking, scope, "%s path changed from %s to %s", name, oldPath, newPath)
	}
}

func (a *analyzer) diffFilters(scope string, oldFilters, newFilters []ir.FilterSpec) {
	oldByID := indexByID(oldFilters, func(f ir.FilterSpec) string { return f.FieldID })
	newByID := indexByID(newFilters, func(f ir.FilterSpec) string { return f.FieldID })

	for _, id := range unionKeys(oldByID, newByID) {
		o, inOld := oldByID[id]
		n, inNew := newByID[id]
		switch {
		case !inOld:
			a.add(Additive, scope, "filter %s added", id)
		case !inNew:
			a.add(Breaking, scope, "filter %s removed", id)
		default:
			for _, op := range n.Operators {
				if !slices.Contains(o.Operators, op) {
					a.add(Additive, scope, "filter %s operator %s added", id, op)
				}
			}
			for _, op := range o.Operators {
				if !slices.Contains(n.Operators, op) {
					a.add(Breaking, scope, "filter %s operator %s removed", id, op)
				}
			}
		}
	}
}

func indexByID[T any](items []T, id func(T) string) map[string]T {
	out := make(map[string]T, len(items))
	for _, item := range items {
		out[id(item)] = item
	}
	return out
}

// unionKeys returns the sorted union of two maps' keys.
func unionKeys[T any](a, b map[string]T) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, cmp.Compare[string])
	return keys
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
