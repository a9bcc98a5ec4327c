// Package envfile contains pure functions for building the substitution file
// consumed by stack deployment. It performs no I/O.
package envfile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrKeyExists is returned when appending a key that is already present.
	ErrKeyExists = errors.New("key already present")

	// ErrInvalidKey is returned for keys that are not valid variable names.
	ErrInvalidKey = errors.New("invalid variable name")

	// ErrUnsupportedValue is returned for values a dotenv reader would not
	// read back unchanged.
	ErrUnsupportedValue = errors.New("value cannot be written to an env file")
)

// keyRegex matches variable names usable in ${VAR} placeholders.
var keyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// plainValueRegex matches values that can be written without quoting.
var plainValueRegex = regexp.MustCompile(`^[A-Za-z0-9_./:@+,-]*$`)

// =============================================================================
// Snapshot
// =============================================================================

// Entry is one KEY=value pair.
type Entry struct {
	Key   string
	Value string
}

// Snapshot is an ordered, append-only set of entries.
// The zero value is an empty snapshot ready to use.
type Snapshot struct {
	entries []Entry
	index   map[string]int
}

// New builds a snapshot from entries, in order.
func New(entries ...Entry) (*Snapshot, error) {
	s := &Snapshot{}
	for _, e := range entries {
		if err := s.Append(e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append adds a key at the end of the snapshot. Existing keys are never
// changed or moved.
func (s *Snapshot) Append(key, value string) error {
	if !keyRegex.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if !representable(value) {
		return fmt.Errorf("%w: %s", ErrUnsupportedValue, key)
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[key]; ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entry{Key: key, Value: value})
	return nil
}

// Get returns the value of key.
func (s *Snapshot) Get(key string) (string, bool) {
	i, ok := s.index[key]
	if !ok {
		return "", false
	}
	return s.entries[i].Value, true
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in order.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Keys returns the keys in order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Map returns the entries as a map, for manifest interpolation.
func (s *Snapshot) Map() map[string]string {
	m := make(map[string]string, len(s.entries))
	for _, e := range s.entries {
		m[e.Key] = e.Value
	}
	return m
}

// Environ returns the entries in KEY=value form, for process environments.
func (s *Snapshot) Environ() []string {
	env := make([]string, len(s.entries))
	for i, e := range s.entries {
		env[i] = e.Key + "=" + e.Value
	}
	return env
}

// Render returns the file content, one KEY=value line per entry, in order.
func (s *Snapshot) Render() []byte {
	var b strings.Builder
	for _, e := range s.entries {
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(QuoteValue(e.Value))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// QuoteValue quotes a value for an env file.
//
// Behavior:
//   - plain values (letters, digits and _ . / : @ + , -) are written as-is
//   - values without a single quote or line break are wrapped in single
//     quotes, which dotenv readers take literally (no $ expansion)
//   - anything else is double-quoted with \ " and $ escaped and line breaks
//     written as \n and \r
//
// Examples:
//
//	QuoteValue("example.com")    // example.com
//	QuoteValue("$2a$10$abc")     // '$2a$10$abc'
//	QuoteValue(`it's`)           // "it's"
func QuoteValue(v string) string {
	if plainValueRegex.MatchString(v) {
		return v
	}
	if !needsDoubleQuotes(v) {
		return "'" + v + "'"
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "\n", `\n`, "\r", `\r`)
	return `"` + r.Replace(v) + `"`
}

// representable reports whether QuoteValue output reads back as v.
//
// Two shapes cannot round-trip: a trailing backslash, which readers take as
// an escaped closing quote, and a literal \n or \r inside a double-quoted
// value, which readers turn into a line break.
func representable(v string) bool {
	if strings.HasSuffix(v, `\`) {
		return false
	}
	if needsDoubleQuotes(v) && (strings.Contains(v, `\n`) || strings.Contains(v, `\r`)) {
		return false
	}
	return true
}

func needsDoubleQuotes(v string) bool {
	return !plainValueRegex.MatchString(v) && strings.ContainsAny(v, "'\n\r")
}
