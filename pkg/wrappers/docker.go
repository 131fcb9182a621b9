package wrappers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"github.com/user/dockscan/pkg/checks/runtime"
	"github.com/user/dockscan/pkg/logger"
)

const defaultDockerTimeout = 10 * time.Second

// dockerAPI is the subset of the Engine client the source needs.
type dockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	Close() error
}

// DockerSource lists containers from a Docker Engine. It implements
// runtime.ContainerSource.
type DockerSource struct {
	Host    string        // empty uses DOCKER_HOST or the default socket
	Timeout time.Duration // applies to the whole listing
	All     bool          // include stopped containers

	connect func(host string) (dockerAPI, error)
}

// NewDockerSource returns a source for the given host.
func NewDockerSource(host string, timeout time.Duration, all bool) *DockerSource {
	return &DockerSource{Host: host, Timeout: timeout, All: all}
}

func connectDocker(host string) (dockerAPI, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	return client.NewClientWithOpts(opts...)
}

// ListContainers pings the engine, lists containers and inspects each one.
// Containers removed between list and inspect are skipped.
func (d *DockerSource) ListContainers(ctx context.Context) ([]runtime.Container, error) {
	log := logger.Component("docker")

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDockerTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	connect := d.connect
	if connect == nil {
		connect = connectDocker
	}
	cli, err := connect(d.Host)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return nil, err
	}

	list, err := cli.ContainerList(ctx, container.ListOptions{All: d.All})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	log.Debug().Int("count", len(list)).Bool("all", d.All).Msg("listed containers")

	containers := make([]runtime.Container, 0, len(list))
	for _, summary := range list {
		info, err := cli.ContainerInspect(ctx, summary.ID)
		if errdefs.IsNotFound(err) {
			log.Debug().Str("id", shortID(summary.ID)).Msg("container disappeared before inspect")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inspecting container %s: %w", shortID(summary.ID), err)
		}
		containers = append(containers, toContainer(info))
	}
	return containers, nil
}

func toContainer(info types.ContainerJSON) runtime.Container {
	c := runtime.Container{Mounts: make([]runtime.Mount, 0, len(info.Mounts))}
	if info.ContainerJSONBase != nil {
		c.ID = info.ID
		c.Name = strings.TrimPrefix(info.Name, "/")
		if hc := info.HostConfig; hc != nil {
			c.HostConfig = runtime.HostConfig{
				Privileged:  hc.Privileged,
				Memory:      hc.Memory,
				CPUShares:   hc.CPUShares,
				NanoCPUs:    hc.NanoCPUs,
				NetworkMode: string(hc.NetworkMode),
			}
		}
	}
	for _, m := range info.Mounts {
		c.Mounts = append(c.Mounts, runtime.Mount{Source: m.Source, Destination: m.Destination})
	}
	return c
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
