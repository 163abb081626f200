package compat

import "fmt"

// Level is the severity of a change between two IR documents.
// Levels are ordered: NonFunctional < Additive < Breaking.
type Level int

const (
	NonFunctional Level = iota
	Additive
	Breaking
)

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case NonFunctional:
		return "non_functional"
	case Additive:
		return "additive"
	case Breaking:
		return "breaking"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel parses a wire name.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "non_functional":
		return NonFunctional, nil
	case "additive":
		return Additive, nil
	case "breaking":
		return Breaking, nil
	default:
		return 0, fmt.Errorf("unknown compatibility level %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
