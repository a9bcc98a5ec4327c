package docker

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// =============================================================================
// Docker Client Implementation
// =============================================================================

// DockerClient implements the Runtime interface using the Docker SDK.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient creates a new Docker client.
// If host is empty, it uses the default Docker host from environment.
// The daemon is not contacted here because the engine may be installed later
// in the same run.
func NewDockerClient(host string) (*DockerClient, error) {
	var opts []client.Opt
	opts = append(opts, client.FromEnv)
	opts = append(opts, client.WithAPIVersionNegotiation())

	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewDockerClient", "", "", err.Error(), ErrConnectionFailed)
	}

	return &DockerClient{cli: cli}, nil
}

// Ping checks if Docker daemon is reachable.
func (d *DockerClient) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	if err != nil {
		return NewDockerError("Ping", "", "", fmt.Sprintf("failed to ping docker: %v", err), ErrConnectionFailed)
	}
	return nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// =============================================================================
// Swarm Operations
// =============================================================================

// SwarmActive reports whether this node is an active swarm member.
func (d *DockerClient) SwarmActive(ctx context.Context) (bool, error) {
	info, err := d.cli.Info(ctx)
	if err != nil {
		return false, NewDockerError("SwarmActive", "swarm", "", err.Error(), ErrConnectionFailed)
	}
	return info.Swarm.LocalNodeState == swarm.LocalNodeStateActive, nil
}

// InitSwarm initializes a single-node swarm advertising advertiseAddr.
func (d *DockerClient) InitSwarm(ctx context.Context, advertiseAddr string) error {
	_, err := d.cli.SwarmInit(ctx, swarm.InitRequest{
		ListenAddr:    "0.0.0.0:2377",
		AdvertiseAddr: advertiseAddr,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already part of a swarm") {
			return nil
		}
		return NewDockerError("InitSwarm", "swarm", advertiseAddr, err.Error(), ErrSwarmInitFailed)
	}
	return nil
}

// =============================================================================
// Network Operations
// =============================================================================

// CreateNetwork creates a new Docker network.
// An existing network with the same name is reported as ErrNetworkAlreadyExists.
func (d *DockerClient) CreateNetwork(ctx context.Context, spec NetworkSpec) (string, error) {
	driver := spec.Driver
	if driver == "" {
		driver = "overlay"
	}

	resp, err := d.cli.NetworkCreate(ctx, spec.Name, network.CreateOptions{
		Driver:     driver,
		Attachable: spec.Attachable,
		Labels:     spec.Labels,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", NewDockerError("CreateNetwork", "network", spec.Name, "network already exists", ErrNetworkAlreadyExists)
		}
		return "", NewDockerError("CreateNetwork", "network", spec.Name, err.Error(), err)
	}

	return resp.ID, nil
}

// =============================================================================
// Volume Operations
// =============================================================================

// CreateVolume creates a new Docker volume. Creating an existing volume
// returns it unchanged.
func (d *DockerClient) CreateVolume(ctx context.Context, spec VolumeSpec) (string, error) {
	driver := spec.Driver
	if driver == "" {
		driver = "local"
	}

	resp, err := d.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   spec.Name,
		Driver: driver,
		Labels: spec.Labels,
	})
	if err != nil {
		return "", NewDockerError("CreateVolume", "volume", spec.Name, err.Error(), err)
	}

	return resp.Name, nil
}

// VolumeMountpoint returns the host path backing a local volume.
func (d *DockerClient) VolumeMountpoint(ctx context.Context, name string) (string, error) {
	vol, err := d.cli.VolumeInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", NewDockerError("VolumeMountpoint", "volume", name, "volume not found", ErrVolumeNotFound)
		}
		return "", NewDockerError("VolumeMountpoint", "volume", name, err.Error(), err)
	}
	return vol.Mountpoint, nil
}

// =============================================================================
// Container Operations
// =============================================================================

// ListContainers returns a list of containers matching the given options.
func (d *DockerClient) ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error) {
	listOpts := container.ListOptions{
		All: opts.All,
	}

	if len(opts.Filters) > 0 {
		f := filters.NewArgs()
		for k, v := range opts.Filters {
			f.Add(k, v)
		}
		listOpts.Filters = f
	}

	containers, err := d.cli.ContainerList(ctx, listOpts)
	if err != nil {
		return nil, NewDockerError("ListContainers", "container", "", err.Error(), err)
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, toContainerInfo(c))
	}

	return result, nil
}

func toContainerInfo(c container.Summary) ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return ContainerInfo{
		ID:        c.ID,
		Name:      name,
		Image:     c.Image,
		State:     c.State,
		CreatedAt: time.Unix(c.Created, 0),
		Labels:    c.Labels,
	}
}

// Exec runs a command inside a running container and waits for it.
// A non-zero exit returns the captured output together with ErrExecFailed.
func (d *DockerClient) Exec(ctx context.Context, containerID string, spec ExecSpec) (ExecResult, error) {
	created, err := d.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          spec.Cmd,
		Env:          spec.Env,
		User:         spec.User,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return ExecResult{}, NewDockerError("Exec", "container", containerID, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is not running") {
			return ExecResult{}, NewDockerError("Exec", "container", containerID, "container is not running", ErrContainerNotRunning)
		}
		return ExecResult{}, NewDockerError("Exec", "container", containerID, err.Error(), err)
	}

	attached, err := d.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, NewDockerError("Exec", "container", containerID, err.Error(), err)
	}
	defer attached.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attached.Reader); err != nil {
		return ExecResult{}, NewDockerError("Exec", "container", containerID, fmt.Sprintf("read output: %v", err), err)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{}, NewDockerError("Exec", "container", containerID, err.Error(), err)
	}

	res := ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return res, NewDockerError("Exec", "container", containerID,
			fmt.Sprintf("%s: exit %d: %s", strings.Join(spec.Cmd, " "), res.ExitCode, msg), ErrExecFailed)
	}
	return res, nil
}

// Ensure DockerClient implements Runtime.
var _ Runtime = (*DockerClient)(nil)
