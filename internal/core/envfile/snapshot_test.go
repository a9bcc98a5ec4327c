package envfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Snapshot Tests
// =============================================================================

func TestNew_PreservesOrder(t *testing.T) {
	s, err := New(
		Entry{Key: "DOMAIN", Value: "example.com"},
		Entry{Key: "ADMIN_EMAIL", Value: "admin@example.com"},
		Entry{Key: "MASTER_PASSWORD", Value: "secret"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"DOMAIN", "ADMIN_EMAIL", "MASTER_PASSWORD"}, s.Keys())
	assert.Equal(t, 3, s.Len())
}

func TestAppend_NeverReordersOrOverwrites(t *testing.T) {
	s, err := New(
		Entry{Key: "DOMAIN", Value: "example.com"},
		Entry{Key: "ADMIN_EMAIL", Value: "admin@example.com"},
	)
	require.NoError(t, err)

	require.NoError(t, s.Append("MINIO_BUCKET", "chatwoot"))
	err = s.Append("DOMAIN", "other.com")

	assert.ErrorIs(t, err, ErrKeyExists)
	assert.Equal(t, []string{"DOMAIN", "ADMIN_EMAIL", "MINIO_BUCKET"}, s.Keys())
	v, ok := s.Get("DOMAIN")
	assert.True(t, ok)
	assert.Equal(t, "example.com", v)
}

func TestAppend_InvalidKey(t *testing.T) {
	var s Snapshot

	for _, key := range []string{"", "1ABC", "WITH SPACE", "DASH-KEY"} {
		err := s.Append(key, "v")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.Zero(t, s.Len())
}

func TestAppend_UnsupportedValue(t *testing.T) {
	var s Snapshot

	for _, value := range []string{`a'b\nc`, `it's\r`, `ends with\`} {
		err := s.Append("KEY", value)
		assert.ErrorIs(t, err, ErrUnsupportedValue, value)
	}
	assert.Zero(t, s.Len())

	// Without a single quote the value is written literally
	require.NoError(t, s.Append("KEY", `a\nb`))
}

func TestZeroValue_Usable(t *testing.T) {
	var s Snapshot
	require.NoError(t, s.Append("A", "1"))

	v, ok := s.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = s.Get("B")
	assert.False(t, ok)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	s, err := New(Entry{Key: "A", Value: "1"})
	require.NoError(t, err)

	entries := s.Entries()
	entries[0].Value = "changed"

	v, _ := s.Get("A")
	assert.Equal(t, "1", v)
}

func TestMapAndEnviron(t *testing.T) {
	s, err := New(
		Entry{Key: "A", Value: "1"},
		Entry{Key: "B", Value: "two words"},
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A": "1", "B": "two words"}, s.Map())
	assert.Equal(t, []string{"A=1", "B=two words"}, s.Environ())
}

// =============================================================================
// Render Tests
// =============================================================================

func TestRender(t *testing.T) {
	s, err := New(
		Entry{Key: "DOMAIN", Value: "example.com"},
		Entry{Key: "ADMIN_EMAIL", Value: "admin@example.com"},
		Entry{Key: "PORTAINER_ADMIN_HASH", Value: "$2a$10$abc/def."},
	)
	require.NoError(t, err)

	want := "DOMAIN=example.com\n" +
		"ADMIN_EMAIL=admin@example.com\n" +
		"PORTAINER_ADMIN_HASH='$2a$10$abc/def.'\n"
	assert.Equal(t, want, string(s.Render()))
}

func TestRender_Empty(t *testing.T) {
	var s Snapshot
	assert.Empty(t, s.Render())
}

func TestQuoteValue_TableDriven(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "abcDEF123", "abcDEF123"},
		{"email", "admin@example.com", "admin@example.com"},
		{"empty", "", ""},
		{"space", "two words", "'two words'"},
		{"dollar", "$secret", "'$secret'"},
		{"single quote", `it's`, `"it's"`},
		{"single quote and dollar", `it's $5`, `"it's \$5"`},
		{"double quote", `it's "x"`, `"it's \"x\""`},
		{"newline", "line\nbreak", `"line\nbreak"`},
		{"single quote and backslash", `it's a\b`, `"it's a\\b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteValue(tt.input))
		})
	}
}
