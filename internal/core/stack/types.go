package stack

import (
	"fmt"
	"time"
)

// =============================================================================
// Stack Definition Types
// =============================================================================

// ActionKind identifies a post-deploy action attached to a stack.
type ActionKind string

const (
	// ActionCreateDatabases creates the logical databases in the database stack.
	ActionCreateDatabases ActionKind = "create-databases"

	// ActionPersistStorageCredentials appends object-storage credentials to the
	// substitution file so later stages see them.
	ActionPersistStorageCredentials ActionKind = "persist-storage-credentials"

	// ActionConfigureStorage creates the bucket, policy and user in object storage.
	ActionConfigureStorage ActionKind = "configure-storage"

	// ActionMigrate runs the one-time in-container migration of an application.
	ActionMigrate ActionKind = "migrate"
)

// Policy returns how a failure of the action is treated.
func (k ActionKind) Policy() Policy {
	switch k {
	case ActionPersistStorageCredentials:
		return PolicyStrict
	default:
		return PolicyBestEffort
	}
}

// Probe describes an HTTPS health endpoint exposed through the proxy.
type Probe struct {
	Subdomain      string
	Path           string
	ExpectedStatus int
}

// URL returns the probe endpoint for the given domain.
func (p Probe) URL(domain string) string {
	return fmt.Sprintf("https://%s.%s%s", p.Subdomain, domain, p.Path)
}

// Definition declares one stack of the topology.
type Definition struct {
	Name      string
	Manifest  string   // path relative to the manifest directory
	DependsOn []string // stacks that must be deployed earlier
	Settle    time.Duration
	Probe     *Probe
	Actions   []ActionKind
}

// ReadinessCheck is a transient description of one readiness poll loop.
type ReadinessCheck struct {
	URL            string
	ExpectedStatus int
	Interval       time.Duration
	Attempts       int
}

// NewReadinessCheck builds a check for a probe against the given domain.
func NewReadinessCheck(p Probe, domain string, interval time.Duration, attempts int) ReadinessCheck {
	return ReadinessCheck{
		URL:            p.URL(domain),
		ExpectedStatus: p.ExpectedStatus,
		Interval:       interval,
		Attempts:       attempts,
	}
}

// CertStore describes the permission-sensitive certificate file kept in a volume.
type CertStore struct {
	Volume string
	File   string
	Mode   uint32
}

// ServiceURL is one line of the operator-facing summary.
type ServiceURL struct {
	Name string
	URL  string
}
