// Package validation provides pure validation functions for run inputs.
//
// The CLI validates its configuration with these functions before any side
// effect is attempted. All functions are pure (no I/O, no side effects).
//
// # Functions
//
//   - ValidateInputs: Validate the required inputs of a deployment run
//   - NormalizeDomain: Trim and lowercase a base domain name
//   - ValidateDomain: Check a base domain name
//   - ValidateEmail: Check an administrator email address
//   - CredentialWarnings: Report weak but accepted credentials
//
// # Usage
//
//	if field, msg := validation.ValidateInputs(in); field != "" {
//	    // Exit with a configuration error naming field
//	}
package validation
