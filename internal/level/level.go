// internal/level/level.go

package level

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is a record severity. Higher values are more severe.
type Level int8

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
	Critical
	Off
)

var levelNames = [...]string{
	Trace:    "trace",
	Debug:    "debug",
	Info:     "info",
	Warn:     "warn",
	Error:    "error",
	Critical: "critical",
	Off:      "off",
}

// Tags are padded so that the message column lines up for the common levels.
var levelTags = [...]string{
	Trace:    "[trace]",
	Debug:    "[debug]",
	Info:     "[info] ",
	Warn:     "[warn] ",
	Error:    "[error]",
	Critical: "[critical]",
	Off:      "[off]",
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= Trace && l <= Off
}

// String returns the lowercase level name.
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int8(l))
	}
	return levelNames[l]
}

// Tag returns the bracketed form used in formatted records.
func (l Level) Tag() string {
	if !l.Valid() {
		return "[" + l.String() + "]"
	}
	return levelTags[l]
}

// Enabled reports whether a record of level l passes threshold.
func (l Level) Enabled(threshold Level) bool {
	return l >= threshold
}

// Parse converts a level name to a Level. Matching is case-insensitive and
// "warning" is accepted as an alias of "warn".
func Parse(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		return Warn, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return Off, fmt.Errorf("unknown log level %q (valid: %s)", s, strings.Join(Names(), ", "))
}

// Names lists all level names in ascending severity.
func Names() []string {
	out := make([]string, len(levelNames))
	copy(out, levelNames[:])
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid log level %d", int8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// UnmarshalYAML decodes a level from a YAML scalar.
func (l *Level) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: log level must be a scalar", node.Line)
	}
	parsed, err := Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*l = parsed
	return nil
}

// MarshalYAML encodes the level as its name.
func (l Level) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}
