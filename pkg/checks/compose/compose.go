// Package compose checks Compose manifests for insecure service settings.
package compose

import (
	"strconv"
	"strings"

	"github.com/user/dockscan/pkg/engine"
)

const (
	TitleRootUser        = "Container running as root"
	TitleMissingMemory   = "Missing memory limit"
	TitleMissingCPU      = "Missing CPU limit"
	TitlePrivileged      = "Privileged mode enabled"
	TitleExposedNoMap    = "Exposed ports without mapping"
	TitleSensitivePort   = "Sensitive port mapped"
	TitleUnpinnedVersion = "Unpinned image version"
)

// Rules is the ordered rule set for Compose manifests.
var Rules = []engine.Rule[*Manifest]{
	{ID: "root-user", Description: "Service has no user or runs as root", Check: RunningAsRoot},
	{ID: "resource-limits", Description: "Service lacks memory or CPU limits", Check: MissingResourceLimits},
	{ID: "privileged", Description: "Service runs in privileged mode", Check: PrivilegedMode},
	{ID: "port-exposure", Description: "Exposed ports without mapping, or sensitive host port mapped", Check: ExposedPorts},
	{ID: "unpinned-image", Description: "Service image uses :latest or no tag", Check: UnpinnedVersions},
}

// Scan runs every Compose rule against m.
func Scan(m *Manifest, ref *engine.Reference) []engine.Finding {
	if m == nil {
		m = &Manifest{}
	}
	return engine.Run(Rules, m, ref)
}

// mappedServices yields the services whose definition is a mapping.
func mappedServices(m *Manifest) []Service {
	if m == nil {
		return nil
	}
	out := make([]Service, 0, len(m.Services))
	for _, s := range m.Services {
		if s.IsMapping() {
			out = append(out, s)
		}
	}
	return out
}

// RunningAsRoot flags services without a user or with user root / 0.
func RunningAsRoot(m *Manifest, _ *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for _, svc := range mappedServices(m) {
		user, _ := svc.Scalar("user")
		if !svc.Truthy("user") || user == "root" || user == "0" {
			findings = append(findings, engine.NewFinding(engine.SeverityHigh, TitleRootUser,
				"Service '%s' has no user or runs as root", svc.Name))
		}
	}
	return findings
}

// MissingResourceLimits checks memory and CPU limits independently.
func MissingResourceLimits(m *Manifest, _ *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for _, svc := range mappedServices(m) {
		if !svc.Truthy("deploy", "resources", "limits", "memory") && !svc.Truthy("mem_limit") {
			findings = append(findings, engine.NewFinding(engine.SeverityMedium, TitleMissingMemory,
				"Service '%s' has no memory limit", svc.Name))
		}
		if !svc.Truthy("deploy", "resources", "limits", "cpus") && !svc.Truthy("cpus") {
			findings = append(findings, engine.NewFinding(engine.SeverityMedium, TitleMissingCPU,
				"Service '%s' has no CPU limit", svc.Name))
		}
	}
	return findings
}

// PrivilegedMode flags services with privileged set.
func PrivilegedMode(m *Manifest, _ *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for _, svc := range mappedServices(m) {
		if svc.Truthy("privileged") {
			findings = append(findings, engine.NewFinding(engine.SeverityHigh, TitlePrivileged,
				"Service '%s' runs in privileged mode", svc.Name))
		}
	}
	return findings
}

// ExposedPorts holds two sub-checks keyed on different fields: "expose"
// without any "ports" (LOW), and short-syntax "ports" entries publishing a
// sensitive host port (HIGH).
func ExposedPorts(m *Manifest, ref *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for _, svc := range mappedServices(m) {
		if svc.Truthy("expose") && !svc.Truthy("ports") {
			findings = append(findings, engine.NewFinding(engine.SeverityLow, TitleExposedNoMap,
				"Service '%s' exposes ports but no port mapping", svc.Name))
		}

		for _, def := range svc.Strings("ports") {
			parts := strings.Split(def, ":")
			if len(parts) < 2 {
				continue
			}
			hostPort, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				continue
			}
			if ref.Ports.Contains(hostPort) {
				findings = append(findings, engine.NewFinding(engine.SeverityHigh, TitleSensitivePort,
					"Service '%s' maps sensitive port %d", svc.Name, hostPort))
			}
		}
	}
	return findings
}

// UnpinnedVersions flags images tagged :latest or not tagged at all.
func UnpinnedVersions(m *Manifest, _ *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for _, svc := range mappedServices(m) {
		image, ok := svc.Scalar("image")
		if !ok || image == "" {
			continue
		}
		if strings.Contains(image, ":latest") || !strings.Contains(image, ":") {
			findings = append(findings, engine.NewFinding(engine.SeverityHigh, TitleUnpinnedVersion,
				"Service '%s' uses latest or no tag: %s", svc.Name, image))
		}
	}
	return findings
}
