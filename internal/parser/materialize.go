package parser

import (
	"sort"
	"strings"
)

// Materialized describes one id inserted by MaterializeMissingIDs.
type Materialized struct {
	// Line is the 1-based line of the block header in the input text.
	Line int
	Kind string
	Name string
	ID   string
}

// openBlock tracks a declaration header while scanning for its id line.
type openBlock struct {
	index      int // index into raw lines
	kind       string
	name       string
	indent     string // header indentation
	bodyIndent string
	hasBody    bool
	hasID      bool
}

// MaterializeMissingIDs inserts an `id "…"` line right after the header of
// every declaration block that lacks one.
//
// The inserted line copies the indentation of the block's first body line,
// or the header indentation plus two spaces for an empty block. Ids are
// generated in source order. Running it on already-materialized text
// returns the text unchanged and no insertions.
//
// The scan is structural only; malformed text is left to Parse to report.
func MaterializeMissingIDs(text string, gen IDGenerator) (string, []Materialized) {
	raw := strings.Split(text, "\n")

	var stack []*openBlock
	var pending []*openBlock

	for i, l := range raw {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		if trimmed == "}" {
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !top.hasID {
				pending = append(pending, top)
			}
			continue
		}

		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if !top.hasBody {
				top.hasBody = true
				top.bodyIndent = leadingSpace(l)
			}
			if idRe.MatchString(trimmed) {
				top.hasID = true
			}
		}

		if h, ok := matchHeader(sourceLine{num: i + 1, text: trimmed}); ok {
			stack = append(stack, &openBlock{
				index:  i,
				kind:   h.keyword,
				name:   h.name,
				indent: leadingSpace(l),
			})
		}
	}

	if len(pending) == 0 {
		return text, nil
	}

	// Blocks close children-first; mint ids in header order instead.
	sort.Slice(pending, func(a, b int) bool { return pending[a].index < pending[b].index })

	inserted := make([]Materialized, 0, len(pending))
	insertAfter := make(map[int]string, len(pending))
	for _, b := range pending {
		id := gen.Generate(b.kind)
		indent := b.bodyIndent
		if !b.hasBody {
			indent = b.indent + "  "
		}
		insertAfter[b.index] = indent + `id "` + id + `"` + carriageReturn(raw[b.index])
		inserted = append(inserted, Materialized{Line: b.index + 1, Kind: b.kind, Name: b.name, ID: id})
	}

	out := make([]string, 0, len(raw)+len(pending))
	for i, l := range raw {
		out = append(out, l)
		if idLine, ok := insertAfter[i]; ok {
			out = append(out, idLine)
		}
	}
	return strings.Join(out, "\n"), inserted
}

func leadingSpace(l string) string {
	return l[:len(l)-len(strings.TrimLeft(l, " \t"))]
}

// carriageReturn keeps CRLF files consistent.
func carriageReturn(l string) string {
	if strings.HasSuffix(l, "\r") {
		return "\r"
	}
	return ""
}
