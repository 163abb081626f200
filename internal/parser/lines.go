package parser

import (
	"regexp"
	"strings"
)

// sourceLine is one non-blank, non-comment line tagged with its 1-based
// line number in the original text.
type sourceLine struct {
	num  int
	text string // trimmed
}

const identPattern = `[A-Za-z_][A-Za-z0-9_]*`

// headerRe matches every block header: `keyword Identifier {`.
var headerRe = regexp.MustCompile(`^(ontology|type|object|struct|actionInput|action_input|actionOutput|action_output|action|event|trigger|field|state|transition)\s+(` + identPattern + `)\s*\{$`)

// Body attribute patterns.
var (
	idRe           = regexp.MustCompile(`^id\s+"([^"]+)"$`)
	versionRe      = regexp.MustCompile(`^version\s+"([^"]+)"$`)
	baseRe         = regexp.MustCompile(`^base\s+(` + identPattern + `)$`)
	constraintRe   = regexp.MustCompile(`^constraint\s+(` + identPattern + `)\s+"([^"]*)"$`)
	typeExprRe     = regexp.MustCompile(`^type\s+([^{]+)$`)
	requiredRe     = regexp.MustCompile(`^required$`)
	optionalRe     = regexp.MustCompile(`^optional$`)
	fieldKeyRe     = regexp.MustCompile(`^key\s+(primary|display)$`)
	objectKeyRe    = regexp.MustCompile(`^key\s+(primary|display)\s+(` + identPattern + `(?:\s*,\s*` + identPattern + `)*)$`)
	pathRe         = regexp.MustCompile(`^path\s+"(/[^"]*)"$`)
	initialRe      = regexp.MustCompile(`^initial$`)
	fromRe         = regexp.MustCompile(`^from\s+(` + identPattern + `)$`)
	toRe           = regexp.MustCompile(`^to\s+(` + identPattern + `)$`)
	kindRe         = regexp.MustCompile(`^kind\s+(` + identPattern + `)$`)
	inputRe        = regexp.MustCompile(`^input\s+(` + identPattern + `)$`)
	outputRe       = regexp.MustCompile(`^output\s+(` + identPattern + `)$`)
	eventActionRe  = regexp.MustCompile(`^action\s+(` + identPattern + `)$`)
	eventObjectRe  = regexp.MustCompile(`^object\s+(` + identPattern + `)$`)
	payloadRe      = regexp.MustCompile(`^payload\s+(` + identPattern + `)$`)
	whenEventRe    = regexp.MustCompile(`^when\s+event\s+(` + identPattern + `)$`)
	invokeRe       = regexp.MustCompile(`^invoke\s+(` + identPattern + `)$`)
	listSeparator  = regexp.MustCompile(`\s*,\s*`)
)

// isComment reports whether a trimmed line is a comment.
func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//")
}

// splitLines returns the meaningful lines of text with their line numbers.
func splitLines(text string) []sourceLine {
	raw := strings.Split(text, "\n")
	lines := make([]sourceLine, 0, len(raw))
	for i, l := range raw {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		lines = append(lines, sourceLine{num: i + 1, text: trimmed})
	}
	return lines
}

// canonicalKind folds keyword aliases onto one spelling.
func canonicalKind(keyword string) string {
	switch keyword {
	case "actionInput":
		return "action_input"
	case "actionOutput":
		return "action_output"
	default:
		return keyword
	}
}
