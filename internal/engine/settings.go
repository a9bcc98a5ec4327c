package engine

import (
	"time"

	"github.com/artpar/swarmup/internal/shell/manifests"
)

// Settings are the validated inputs of a run.
type Settings struct {
	Domain         string
	AdminEmail     string
	MasterPassword string

	Source      manifests.Source
	ManifestDir string

	// StorageRootUser authenticates against the object-storage admin endpoint.
	// Default: "admin".
	StorageRootUser string

	// Bucket is the object-storage bucket provisioned for the applications.
	// Default: "swarmup".
	Bucket string

	// AccessKey and SecretKey override the generated storage credentials.
	AccessKey string
	SecretKey string

	// ProbeInterval and ProbeAttempts bound the storage readiness poll.
	// Default: 3 seconds, 40 attempts.
	ProbeInterval time.Duration
	ProbeAttempts int
}

// withDefaults returns s with zero fields set to their defaults.
func (s Settings) withDefaults() Settings {
	if s.StorageRootUser == "" {
		s.StorageRootUser = "admin"
	}
	if s.Bucket == "" {
		s.Bucket = "swarmup"
	}
	if s.ProbeInterval <= 0 {
		s.ProbeInterval = 3 * time.Second
	}
	if s.ProbeAttempts <= 0 {
		s.ProbeAttempts = 40
	}
	return s
}
