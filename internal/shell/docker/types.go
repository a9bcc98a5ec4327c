// Package docker provides the container runtime capability used by the
// sequencer: swarm state, overlay networks, volumes, container discovery and
// in-container command execution.
package docker

import (
	"context"
	"time"
)

// =============================================================================
// Container Info
// =============================================================================

// ContainerInfo contains information about a running task container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	State     string // "running", "exited", "created", etc.
	CreatedAt time.Time
	Labels    map[string]string
}

// =============================================================================
// Network Types
// =============================================================================

// NetworkSpec defines the specification for creating a network.
type NetworkSpec struct {
	Name       string
	Driver     string // "overlay" by default
	Attachable bool
	Labels     map[string]string
}

// =============================================================================
// Volume Types
// =============================================================================

// VolumeSpec defines the specification for creating a volume.
type VolumeSpec struct {
	Name   string
	Driver string
	Labels map[string]string
}

// =============================================================================
// Exec Types
// =============================================================================

// ExecSpec describes a command run inside a container.
type ExecSpec struct {
	Cmd  []string
	Env  []string
	User string
}

// ExecResult holds the demultiplexed output of an exec.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"name": "^postgres_postgres\\."}
}

// =============================================================================
// Runtime Interface
// =============================================================================

// Runtime defines the container runtime operations the sequencer needs.
type Runtime interface {
	// Swarm operations
	SwarmActive(ctx context.Context) (bool, error)
	InitSwarm(ctx context.Context, advertiseAddr string) error

	// Network operations
	CreateNetwork(ctx context.Context, spec NetworkSpec) (networkID string, err error)

	// Volume operations
	CreateVolume(ctx context.Context, spec VolumeSpec) (volumeName string, err error)
	VolumeMountpoint(ctx context.Context, name string) (string, error)

	// Container operations
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)
	Exec(ctx context.Context, containerID string, spec ExecSpec) (ExecResult, error)

	// Health operations
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "io.swarmup.managed"
	LabelStack   = "com.docker.stack.namespace"
)
