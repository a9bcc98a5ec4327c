// Package objectstore configures the object-storage service after it
// deploys: a bucket, a read/write policy and a user holding that policy.
package objectstore

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/artpar/swarmup/internal/shell/docker"
	"github.com/artpar/swarmup/internal/shell/wait"
)

// Admin is the administrative capability of the storage service.
// Every method succeeds when its target already exists.
type Admin interface {
	CreateBucket(ctx context.Context, bucket string) error
	PutPolicy(ctx context.Context, name string, doc PolicyDocument) error
	AddUser(ctx context.Context, accessKey, secretKey string) error
	AttachPolicy(ctx context.Context, policy, accessKey string) error
}

// Connector produces an Admin bound to the running service.
type Connector interface {
	Connect(ctx context.Context) (Admin, error)
}

// Locator finds a running container by name pattern.
type Locator interface {
	Locate(ctx context.Context, pattern string) (wait.Handle, error)
}

// Executor runs commands inside containers.
type Executor interface {
	Exec(ctx context.Context, containerID string, spec docker.ExecSpec) (docker.ExecResult, error)
}

// =============================================================================
// mc Admin
// =============================================================================

const (
	mcAlias      = "local"
	mcEndpoint   = "127.0.0.1:9000"
	policyEnvVar = "SWARMUP_POLICY"
	policyPath   = "/tmp/swarmup-policy.json"
)

// MCAdmin runs the mc client inside the storage container, authenticated
// with the root user.
type MCAdmin struct {
	executor Executor
	handle   wait.Handle
	hostEnv  string
	logger   *slog.Logger
}

// NewMCAdmin creates an MCAdmin for the container behind handle.
func NewMCAdmin(executor Executor, handle wait.Handle, rootUser, rootPassword string, logger *slog.Logger) *MCAdmin {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCAdmin{
		executor: executor,
		handle:   handle,
		hostEnv:  HostEnv(rootUser, rootPassword),
		logger:   logger.With("component", "mc_admin"),
	}
}

// HostEnv returns the MC_HOST variable that points the local alias at the
// service API with the given credentials.
func HostEnv(user, password string) string {
	u := url.URL{
		Scheme: "http",
		User:   url.UserPassword(user, password),
		Host:   mcEndpoint,
	}
	return "MC_HOST_" + mcAlias + "=" + u.String()
}

// alreadyDone reports whether mc output says the change was already applied.
func alreadyDone(res docker.ExecResult) bool {
	out := strings.ToLower(res.Stdout + res.Stderr)
	return strings.Contains(out, "already exists") ||
		strings.Contains(out, "already attached") ||
		strings.Contains(out, "already own")
}

func (a *MCAdmin) run(ctx context.Context, env []string, cmd ...string) error {
	res, err := a.executor.Exec(ctx, a.handle.ID, docker.ExecSpec{
		Cmd: cmd,
		Env: append([]string{a.hostEnv}, env...),
	})
	if err == nil {
		return nil
	}
	if alreadyDone(res) {
		a.logger.Debug("already applied", "command", cmd[:min(len(cmd), 3)])
		return nil
	}
	if errors.Is(err, docker.ErrContainerNotFound) {
		return wait.Permanent(err)
	}
	return err
}

// CreateBucket creates bucket unless it exists.
func (a *MCAdmin) CreateBucket(ctx context.Context, bucket string) error {
	return a.run(ctx, nil, "mc", "mb", "--ignore-existing", mcAlias+"/"+bucket)
}

// PutPolicy creates or replaces the named policy.
func (a *MCAdmin) PutPolicy(ctx context.Context, name string, doc PolicyDocument) error {
	data, err := doc.JSON()
	if err != nil {
		return wait.Permanent(err)
	}
	script := `printf '%s' "$` + policyEnvVar + `" > ` + policyPath +
		` && mc admin policy create ` + mcAlias + ` "$1" ` + policyPath
	return a.run(ctx, []string{policyEnvVar + "=" + string(data)}, "sh", "-c", script, "sh", name)
}

// AddUser creates the user or updates its secret.
func (a *MCAdmin) AddUser(ctx context.Context, accessKey, secretKey string) error {
	return a.run(ctx, nil, "mc", "admin", "user", "add", mcAlias, accessKey, secretKey)
}

// AttachPolicy attaches policy to the user.
func (a *MCAdmin) AttachPolicy(ctx context.Context, policy, accessKey string) error {
	return a.run(ctx, nil, "mc", "admin", "policy", "attach", mcAlias, policy, "--user", accessKey)
}

var _ Admin = (*MCAdmin)(nil)

// =============================================================================
// Container Connector
// =============================================================================

// ContainerConnector locates the storage container and returns an MCAdmin
// bound to it. Handles are not cached between calls.
type ContainerConnector struct {
	locator      Locator
	executor     Executor
	pattern      string
	rootUser     string
	rootPassword string
	logger       *slog.Logger
}

// NewContainerConnector creates a ContainerConnector.
func NewContainerConnector(locator Locator, executor Executor, pattern, rootUser, rootPassword string, logger *slog.Logger) *ContainerConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContainerConnector{
		locator:      locator,
		executor:     executor,
		pattern:      pattern,
		rootUser:     rootUser,
		rootPassword: rootPassword,
		logger:       logger,
	}
}

// Connect locates the container.
func (c *ContainerConnector) Connect(ctx context.Context) (Admin, error) {
	handle, err := c.locator.Locate(ctx, c.pattern)
	if err != nil {
		return nil, err
	}
	return NewMCAdmin(c.executor, handle, c.rootUser, c.rootPassword, c.logger), nil
}
