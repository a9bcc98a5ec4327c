package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInvalidHostname = errors.New("invalid hostname format")
	ErrHostnameTooLong = errors.New("hostname must be under 253 characters")
	ErrInvalidEmail    = errors.New("invalid email address")
)

// RecommendedCredentialLength is the minimum master credential length that
// does not produce a warning.
const RecommendedCredentialLength = 32

// Inputs are the operator-supplied values of a deployment run.
type Inputs struct {
	Domain          string
	AdminEmail      string
	MasterPassword  string
	ManifestURL     string
	ManifestVersion string
}

// =============================================================================
// Validation Functions
// =============================================================================

var hostnameRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// NormalizeDomain trims surrounding whitespace and a trailing dot, and
// lowercases the result.
func NormalizeDomain(hostname string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")
}

// ValidateDomain validates a hostname format for use as the base domain.
// The value is checked as given; callers normalize it first.
func ValidateDomain(hostname string) error {
	if hostname == "" {
		return ErrInvalidHostname
	}
	if len(hostname) > 253 {
		return ErrHostnameTooLong
	}
	if !hostnameRegex.MatchString(hostname) {
		return ErrInvalidHostname
	}
	return nil
}

// ValidateEmail validates a bare email address. Display names are rejected.
func ValidateEmail(address string) error {
	addr, err := mail.ParseAddress(address)
	if err != nil || addr.Address != address {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateInputs validates the required inputs of a run.
// Returns the field name and error message if validation fails.
// Returns empty strings if all fields are valid.
//
// Example:
//
//	field, msg := ValidateInputs(Inputs{Domain: "example.com", ...})
//	if field != "" {
//	    // Handle validation error
//	}
func ValidateInputs(in Inputs) (field, message string) {
	if in.Domain == "" {
		return "domain", "domain is required"
	}
	if err := ValidateDomain(in.Domain); err != nil {
		return "domain", err.Error()
	}
	if in.AdminEmail == "" {
		return "admin_email", "admin_email is required"
	}
	if err := ValidateEmail(in.AdminEmail); err != nil {
		return "admin_email", err.Error()
	}
	if in.MasterPassword == "" {
		return "master_password", "master_password is required"
	}
	if strings.ContainsAny(in.MasterPassword, "\r\n") {
		return "master_password", "master_password must be a single line"
	}
	if in.ManifestURL == "" {
		return "manifests.url", "manifests.url is required"
	}
	if in.ManifestVersion == "" {
		return "manifests.version", "manifests.version is required"
	}
	return "", ""
}

// CredentialWarnings returns the warnings for accepted but weak inputs.
func CredentialWarnings(in Inputs) []string {
	var warnings []string
	if n := len(in.MasterPassword); n > 0 && n < RecommendedCredentialLength {
		warnings = append(warnings, "master_password is shorter than 32 characters")
	}
	return warnings
}
