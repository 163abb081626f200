package migrate

import (
	"fmt"

	"github.com/roach88/ontogen/internal/ir"
)

// RenameThreshold is the minimum Jaccard similarity of field names at which
// a removed object is reported as a likely rename of an added one.
const RenameThreshold = 0.5

// objectRenameHints pairs removed objects with added ones that look like
// renames. Candidates must share the primary-key SQL type; the highest
// field-name similarity at or above RenameThreshold wins and ties go to the
// lowest id.
func objectRenameHints(oldDoc, newDoc *ir.Document, removed, added []string) []string {
	var hints []string
	for _, rid := range removed {
		ro, _ := oldDoc.ObjectByID(rid)
		oldNames := fieldNames(ro.Fields)
		pkType := primaryKeyType(oldDoc, ro)

		best, bestScore := "", 0.0
		for _, aid := range added {
			ao, _ := newDoc.ObjectByID(aid)
			if primaryKeyType(newDoc, ao) != pkType {
				continue
			}
			if score := jaccard(oldNames, fieldNames(ao.Fields)); score > bestScore {
				best, bestScore = aid, score
			}
		}
		if best == "" || bestScore < RenameThreshold {
			continue
		}
		ao, _ := newDoc.ObjectByID(best)
		hints = append(hints, fmt.Sprintf(
			"hint: object %s (%s) may have been renamed to %s (%s), field similarity %.2f; ids differ so rows are not carried over",
			rid, TableName(ro), best, TableName(ao), bestScore))
	}
	return hints
}

// columnRenameHints pairs each removed field of a retained object with the
// first added field, in id order, of the same SQL type and requiredness.
// Candidates are not consumed: two removed fields may point at one added
// field.
func columnRenameHints(oldDoc, newDoc *ir.Document, o, n *ir.Object, removed, added []string) []string {
	var hints []string
	for _, rid := range removed {
		rf, _ := o.FieldByID(rid)
		for _, aid := range added {
			af, _ := n.FieldByID(aid)
			if SQLType(oldDoc, rf.Type) != SQLType(newDoc, af.Type) || rf.Required() != af.Required() {
				continue
			}
			hints = append(hints, fmt.Sprintf(
				"hint: object %s field %s (%s) may have been renamed to %s (%s); ids differ so values are not carried over",
				n.ID, rid, ColumnName(rf), aid, ColumnName(af)))
			break
		}
	}
	return hints
}

func fieldNames(fields []ir.Field) map[string]bool {
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		names[f.Name] = true
	}
	return names
}

// jaccard is |a∩b| / |a∪b|, zero when both sets are empty.
func jaccard(a, b map[string]bool) float64 {
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
