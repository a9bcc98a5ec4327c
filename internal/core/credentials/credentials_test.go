package credentials

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerate_Lengths(t *testing.T) {
	tests := []struct {
		name  string
		class Class
		min   int
	}{
		{"access", ClassAccess, 24},
		{"secret", ClassSecret, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Generate(nil, tt.class)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(v), tt.min)
			assert.True(t, isAlphanumeric(v), v)
		})
	}
}

func TestGenerate_Distinct(t *testing.T) {
	a, err := Generate(nil, ClassSecret)
	require.NoError(t, err)
	b, err := Generate(nil, ClassSecret)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestGenerate_UnknownClass(t *testing.T) {
	_, err := Generate(nil, Class(99))
	assert.ErrorIs(t, err, ErrUnknownClass)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerate_ReaderError(t *testing.T) {
	_, err := Generate(failingReader{}, ClassAccess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entropy")
}

func TestGenerate_DeterministicReader(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 1024)

	a, err := Generate(bytes.NewReader(seed), ClassAccess)
	require.NoError(t, err)
	b, err := Generate(bytes.NewReader(seed), ClassAccess)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

// =============================================================================
// Resolve Tests
// =============================================================================

func TestResolve_OverrideUsedVerbatim(t *testing.T) {
	c, err := Resolve(nil, "MINIO_ACCESS_KEY", "short", "previous-value", ClassAccess)
	require.NoError(t, err)

	assert.Equal(t, "short", c.Value)
	assert.Equal(t, SourceSupplied, c.Source)
	assert.False(t, c.Reused)
}

func TestResolve_ReusesPrevious(t *testing.T) {
	c, err := Resolve(nil, "MINIO_SECRET_KEY", "", "persisted", ClassSecret)
	require.NoError(t, err)

	assert.Equal(t, "persisted", c.Value)
	assert.Equal(t, SourceGenerated, c.Source)
	assert.True(t, c.Reused)
}

func TestResolve_Generates(t *testing.T) {
	c, err := Resolve(nil, "MINIO_SECRET_KEY", "", "", ClassSecret)
	require.NoError(t, err)

	assert.Len(t, c.Value, 48)
	assert.Equal(t, SourceGenerated, c.Source)
	assert.False(t, c.Reused)
}

func TestCredential_StringHidesValue(t *testing.T) {
	c := Credential{Name: "MINIO_SECRET_KEY", Value: "topsecret", Source: SourceGenerated}
	assert.NotContains(t, c.String(), "topsecret")
}

// =============================================================================
// Hash Tests
// =============================================================================

func TestHashForCompose(t *testing.T) {
	secret := strings.Repeat("a", 32)

	h, err := HashForCompose(secret)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(h, "$2"))
	assert.True(t, MatchesHash(h, secret))
	assert.False(t, MatchesHash(h, "wrong"))
}

func TestHashForCompose_LongSecret(t *testing.T) {
	secret := strings.Repeat("b", 100)

	h, err := HashForCompose(secret)
	require.NoError(t, err)
	assert.True(t, MatchesHash(h, secret))
}

func TestHashForCompose_Empty(t *testing.T) {
	_, err := HashForCompose("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
