// Package dockerfile checks Dockerfile lines for insecure build settings.
//
// Matching is purely prefix based on trimmed lines and directive keywords are
// case-sensitive. Multi-stage "FROM x AS y" lines are not treated specially.
package dockerfile

import (
	"strconv"
	"strings"

	"github.com/user/dockscan/pkg/engine"
)

const (
	TitleLatestTag          = "Latest tag detected"
	TitleMissingUser        = "Missing USER directive"
	TitleSensitivePort      = "Sensitive port exposed"
	TitleAddInsteadOfCopy   = "ADD instead of COPY"
	TitleMissingHealthcheck = "Missing HEALTHCHECK"
)

// archiveMarkers make an ADD line acceptable: remote URLs or archives to unpack.
var archiveMarkers = []string{".tar", ".gz", ".zip", "http"}

// Rules is the ordered rule set for Dockerfiles.
var Rules = []engine.Rule[[]string]{
	{ID: "latest-tag", Description: "Base image uses :latest or no tag", Check: LatestTag},
	{ID: "missing-user", Description: "No USER directive, container runs as root", Check: MissingUser},
	{ID: "sensitive-port", Description: "EXPOSE lists a sensitive port", Check: SensitivePorts},
	{ID: "add-instead-of-copy", Description: "ADD used for plain local files", Check: AddInsteadOfCopy},
	{ID: "missing-healthcheck", Description: "No HEALTHCHECK instruction", Check: MissingHealthcheck},
}

// Scan runs every Dockerfile rule against lines.
func Scan(lines []string, ref *engine.Reference) []engine.Finding {
	return engine.Run(Rules, lines, ref)
}

// LatestTag flags FROM lines whose image is unpinned.
func LatestTag(lines []string, _ *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "FROM ") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(stripped, "FROM "))
		if len(fields) == 0 {
			continue
		}
		image := fields[0]
		if strings.Contains(image, ":latest") || !strings.Contains(image, ":") {
			findings = append(findings, engine.NewFinding(engine.SeverityHigh, TitleLatestTag,
				"Line %d: %s", i+1, stripped))
		}
	}
	return findings
}

// MissingUser emits one finding for the whole file when USER is absent.
func MissingUser(lines []string, _ *engine.Reference) []engine.Finding {
	if hasDirective(lines, "USER ") {
		return []engine.Finding{}
	}
	return []engine.Finding{
		engine.NewFinding(engine.SeverityMedium, TitleMissingUser, "Container runs as root"),
	}
}

// SensitivePorts flags every sensitive port listed by EXPOSE.
func SensitivePorts(lines []string, ref *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "EXPOSE ") {
			continue
		}
		for _, token := range strings.Fields(strings.TrimPrefix(stripped, "EXPOSE ")) {
			port, err := strconv.Atoi(strings.SplitN(token, "/", 2)[0])
			if err != nil {
				continue
			}
			if ref.Ports.Contains(port) {
				findings = append(findings, engine.NewFinding(engine.SeverityHigh, TitleSensitivePort,
					"Line %d: Port %d", i+1, port))
			}
		}
	}
	return findings
}

// AddInsteadOfCopy flags ADD lines that neither fetch a URL nor unpack an archive.
func AddInsteadOfCopy(lines []string, _ *engine.Reference) []engine.Finding {
	findings := make([]engine.Finding, 0)
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "ADD ") || containsAny(stripped, archiveMarkers) {
			continue
		}
		findings = append(findings, engine.NewFinding(engine.SeverityLow, TitleAddInsteadOfCopy,
			"Line %d: Use COPY for local files", i+1))
	}
	return findings
}

// MissingHealthcheck emits one finding for the whole file when HEALTHCHECK is absent.
func MissingHealthcheck(lines []string, _ *engine.Reference) []engine.Finding {
	if hasDirective(lines, "HEALTHCHECK ") {
		return []engine.Finding{}
	}
	return []engine.Finding{
		engine.NewFinding(engine.SeverityLow, TitleMissingHealthcheck, "No health monitoring configured"),
	}
}

func hasDirective(lines []string, prefix string) bool {
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
