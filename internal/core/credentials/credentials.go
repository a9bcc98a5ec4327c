// Package credentials generates and resolves the secrets threaded between stacks.
// Functions take their randomness source as an argument so callers and tests
// control it.
package credentials

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptySecret is returned when hashing an empty secret.
	ErrEmptySecret = errors.New("secret is empty")

	// ErrUnknownClass is returned for a class without a length contract.
	ErrUnknownClass = errors.New("unknown credential class")
)

// =============================================================================
// Types
// =============================================================================

// Class is the length contract of a generated credential.
type Class int

const (
	// ClassAccess is used for identifiers such as access keys.
	ClassAccess Class = iota
	// ClassSecret is used for secret keys.
	ClassSecret
)

// Length returns the number of characters generated for the class.
func (c Class) Length() int {
	switch c {
	case ClassAccess:
		return 24
	case ClassSecret:
		return 48
	default:
		return 0
	}
}

// Source records where a credential value came from.
type Source string

const (
	SourceSupplied  Source = "supplied"
	SourceGenerated Source = "generated"
)

// Credential is a named secret value.
type Credential struct {
	Name   string
	Value  string
	Source Source
	// Reused is set when a generated value was carried over from a previous run.
	Reused bool
}

// String hides the value so credentials can be logged.
func (c Credential) String() string {
	return fmt.Sprintf("%s(%s)", c.Name, c.Source)
}

// =============================================================================
// Generation
// =============================================================================

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a random alphanumeric value of the class length read from r.
// A nil reader uses crypto/rand.
func Generate(r io.Reader, class Class) (string, error) {
	n := class.Length()
	if n == 0 {
		return "", fmt.Errorf("%w: %d", ErrUnknownClass, class)
	}
	if r == nil {
		r = rand.Reader
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(r, limit)
		if err != nil {
			return "", fmt.Errorf("generate credential: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Resolve picks the value of a credential.
//
// Precedence:
//  1. override, used verbatim
//  2. previous, the value persisted by an earlier run, so reruns never rotate
//  3. a newly generated value of the class length
func Resolve(r io.Reader, name, override, previous string, class Class) (Credential, error) {
	if override != "" {
		return Credential{Name: name, Value: override, Source: SourceSupplied}, nil
	}
	if previous != "" {
		return Credential{Name: name, Value: previous, Source: SourceGenerated, Reused: true}, nil
	}
	v, err := Generate(r, class)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Name: name, Value: v, Source: SourceGenerated}, nil
}

// =============================================================================
// Hashing
// =============================================================================

// HashForCompose returns a bcrypt hash of secret for services that take a
// pre-hashed admin password. bcrypt only reads the first 72 bytes, so longer
// secrets are truncated before hashing.
func HashForCompose(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	b := []byte(secret)
	if len(b) > 72 {
		b = b[:72]
	}
	h, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// MatchesHash reports whether hash was produced from secret by HashForCompose.
func MatchesHash(hash, secret string) bool {
	b := []byte(secret)
	if len(b) > 72 {
		b = b[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}
