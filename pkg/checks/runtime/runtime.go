// Package runtime checks running containers for insecure host settings.
package runtime

import (
	"context"

	"github.com/user/dockscan/pkg/engine"
)

const (
	TitlePrivileged      = "Privileged container"
	TitleNoMemoryLimit   = "No memory limit"
	TitleNoCPULimit      = "No CPU limit"
	TitleHostNetwork     = "Host network mode"
	TitleSensitiveMount  = "Sensitive host path mounted"
	TitleConnectionError = "Docker connection error"
)

// HostConfig mirrors the inspect fields the checks read. Zero values mean unset.
type HostConfig struct {
	Privileged  bool
	Memory      int64
	CPUShares   int64
	NanoCPUs    int64
	NetworkMode string
}

// Mount is one entry of a container's Mounts list.
type Mount struct {
	Source      string
	Destination string
}

// Container is a running container as seen by the engine.
type Container struct {
	ID         string
	Name       string
	HostConfig HostConfig
	Mounts     []Mount
}

// ContainerSource lists the containers to inspect.
type ContainerSource interface {
	ListContainers(ctx context.Context) ([]Container, error)
}

// Rules is the ordered per-container rule set.
var Rules = []engine.Rule[Container]{
	{ID: "privileged", Description: "Container runs in privileged mode", Check: Privileged},
	{ID: "resource-limits", Description: "Container lacks memory or CPU limits", Check: ResourceLimits},
	{ID: "host-network", Description: "Container shares the host network namespace", Check: HostNetwork},
	{ID: "sensitive-mount", Description: "Container mounts a sensitive host path", Check: SensitiveMounts},
}

// ScanSource lists containers from src and scans them. A listing failure is
// reported as a single HIGH finding instead of an error so a report is
// always produced.
func ScanSource(ctx context.Context, src ContainerSource, ref *engine.Reference) []engine.Finding {
	containers, err := src.ListContainers(ctx)
	if err != nil {
		return []engine.Finding{
			engine.NewFinding(engine.SeverityHigh, TitleConnectionError, "Cannot connect to Docker: %s", err.Error()),
		}
	}
	return Scan(containers, ref)
}

// Scan runs every rule per container, container by container.
func Scan(containers []Container, ref *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for _, c := range containers {
		findings = append(findings, engine.Run(Rules, c, ref)...)
	}
	return findings
}

// Privileged flags containers started with --privileged.
func Privileged(c Container, _ *engine.Reference) []engine.Finding {
	if !c.HostConfig.Privileged {
		return []engine.Finding{}
	}
	return []engine.Finding{
		engine.NewFinding(engine.SeverityHigh, TitlePrivileged, "Container %s runs in privileged mode", c.Name),
	}
}

// ResourceLimits checks memory and CPU limits independently.
func ResourceLimits(c Container, _ *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0, 2)
	if c.HostConfig.Memory == 0 {
		findings = append(findings, engine.NewFinding(engine.SeverityMedium, TitleNoMemoryLimit,
			"Container %s has no memory limit", c.Name))
	}
	if c.HostConfig.CPUShares == 0 && c.HostConfig.NanoCPUs == 0 {
		findings = append(findings, engine.NewFinding(engine.SeverityMedium, TitleNoCPULimit,
			"Container %s has no CPU limit", c.Name))
	}
	return findings
}

// HostNetwork flags containers using the host network.
func HostNetwork(c Container, _ *engine.Reference) []engine.Finding {
	if c.HostConfig.NetworkMode != "host" {
		return []engine.Finding{}
	}
	return []engine.Finding{
		engine.NewFinding(engine.SeverityHigh, TitleHostNetwork, "Container %s uses host network", c.Name),
	}
}

// SensitiveMounts flags at most one finding per mount whose source is a
// sensitive path or lies beneath one.
func SensitiveMounts(c Container, ref *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for _, m := range c.Mounts {
		if _, ok := ref.Paths.Match(m.Source); ok {
			findings = append(findings, engine.NewFinding(engine.SeverityHigh, TitleSensitiveMount,
				"Container %s mounts %s", c.Name, m.Source))
		}
	}
	return findings
}
