package engine

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity(t *testing.T) {
	all := AllSeverities()
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].Rank(), all[i].Rank())
	}

	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, Severity("").Rank())
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Finding{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityLow},
	})

	assert.Equal(t, Summary{High: 2, Low: 1, Total: 3}, s)
	assert.Equal(t, 2, s.Count(SeverityHigh))
	assert.Equal(t, 0, s.Count(SeverityMedium))
	assert.Equal(t, 1, s.Count(SeverityLow))
	assert.Equal(t, 0, s.Count(Severity("CRITICAL")))
}

func TestPathSet_Match(t *testing.T) {
	set := NewPathSet("/", "/etc", "/var/run/docker.sock", "/etc")

	p, ok := set.Match("/var/run/docker.sock")
	assert.True(t, ok)
	assert.Equal(t, "/var/run/docker.sock", p)

	_, ok = set.Match("/etcetera")
	assert.False(t, ok)

	p, ok = set.Match("/etc/ssl")
	assert.True(t, ok)
	assert.Equal(t, "/etc", p)

	p, ok = set.Match("/")
	assert.True(t, ok)
	assert.Equal(t, "/", p)

	_, ok = set.Match("/home/user")
	assert.False(t, ok)

	var empty PathSet
	_, ok = empty.Match("/")
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	rules := []Rule[int]{
		{ID: "one", Check: func(n int, _ *Reference) []Finding {
			return []Finding{NewFinding(SeverityLow, "one", "n=%d", n)}
		}},
		{ID: "none", Check: func(int, *Reference) []Finding { return nil }},
		{ID: "two", Check: func(n int, ref *Reference) []Finding {
			if ref.Ports.Contains(n) {
				return []Finding{
					NewFinding(SeverityHigh, "two", "a"),
					NewFinding(SeverityHigh, "two", "b"),
				}
			}
			return []Finding{}
		}},
	}

	findings := Run(rules, 22, NewReference([]int{22}, nil))
	require.Len(t, findings, 3)
	assert.Equal(t, "n=22", findings[0].Details)
	assert.Equal(t, "a", findings[1].Details)
	assert.Equal(t, "b", findings[2].Details)

	// nil reference falls back to empty sets
	assert.Len(t, Run(rules, 22, nil), 1)

	empty := Run([]Rule[int]{}, 0, nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(
		RuleInfo{Surface: SurfaceRuntime, ID: "privileged"},
		RuleInfo{Surface: SurfaceDockerfile, ID: "latest-tag"},
		RuleInfo{Surface: SurfaceDockerfile, ID: "missing-user"},
	))

	assert.Equal(t, []Surface{SurfaceDockerfile, SurfaceRuntime}, c.Surfaces())

	rules, ok := c.Rules(SurfaceDockerfile)
	require.True(t, ok)
	assert.Equal(t, "latest-tag", rules[0].ID)
	assert.Equal(t, "missing-user", rules[1].ID)

	_, ok = c.Rules(SurfaceCompose)
	assert.False(t, ok)

	assert.Len(t, c.All(), 3)
	assert.Error(t, c.Register(RuleInfo{Surface: SurfaceRuntime, ID: "privileged"}))
	assert.Error(t, c.Register(RuleInfo{Surface: SurfaceRuntime}))
}

func TestDescribe(t *testing.T) {
	infos := Describe(SurfaceCompose, []Rule[string]{{ID: "a", Description: "first"}})
	assert.Equal(t, []RuleInfo{{Surface: SurfaceCompose, ID: "a", Description: "first"}}, infos)
}

func TestReport(t *testing.T) {
	r := NewReport()
	assert.False(t, r.HasFindings())
	assert.NotNil(t, r.Findings())
	assert.Empty(t, r.Findings())

	r.AddFindings(SurfaceDockerfile, []Finding{{Severity: SeverityHigh, Check: "d1"}})
	r.AddFindings(SurfaceCompose, []Finding{})
	r.AddFindings(SurfaceRuntime, []Finding{{Severity: SeverityLow, Check: "r1"}})
	r.AddFindings(SurfaceDockerfile, []Finding{{Severity: SeverityMedium, Check: "d2"}})

	assert.True(t, r.HasFindings())
	assert.Equal(t, []Surface{SurfaceDockerfile, SurfaceCompose, SurfaceRuntime}, r.Surfaces())

	var checks []string
	for _, f := range r.Findings() {
		checks = append(checks, f.Check)
	}
	assert.Equal(t, []string{"d1", "d2", "r1"}, checks)
}

func TestReport_EmptySurfacesDoNotFail(t *testing.T) {
	r := NewReport()
	r.AddFindings(SurfaceCompose, nil)

	assert.False(t, r.HasFindings())
	assert.Equal(t, []Surface{SurfaceCompose}, r.Surfaces())
}

func TestRemediationEngine_Defaults(t *testing.T) {
	e := NewRemediationEngine()
	require.NoError(t, e.LoadDefaults())

	for _, check := range []string{
		"Latest tag detected",
		"Container running as root",
		"Sensitive host path mounted",
		"Docker connection error",
	} {
		_, ok := e.Lookup(check)
		assert.True(t, ok, check)
	}

	fix, err := e.Render(Finding{Severity: SeverityHigh, Check: "Latest tag detected", Details: "Line 1: FROM ubuntu"})
	require.NoError(t, err)
	assert.Contains(t, fix, "Line 1: FROM ubuntu")

	fix, err = e.Render(Finding{Severity: SeverityHigh, Check: "Privileged mode enabled", Details: "Service 'web' runs in privileged mode"})
	require.NoError(t, err)
	assert.Equal(t, `Remove "privileged: true" and grant only the required cap_add entries. Service 'web' runs in privileged mode.`, fix)

	_, err = e.Render(Finding{Check: "unknown"})
	assert.Error(t, err)
}

func TestRemediationEngine_Override(t *testing.T) {
	e := NewRemediationEngine()
	require.NoError(t, e.LoadDefaults())

	fsys := fstest.MapFS{
		"custom.yaml": {Data: []byte(`
remediations:
  - check: Missing HEALTHCHECK
    risk: custom
    fix: "Use the team healthcheck snippet ({{.Severity}})"
`)},
		"notes.txt": {Data: []byte("ignored")},
	}
	require.NoError(t, e.LoadTemplates(fsys, "."))

	r, ok := e.Lookup("Missing HEALTHCHECK")
	require.True(t, ok)
	assert.Equal(t, "custom", r.Risk)

	names := e.ListTemplates()
	assert.IsIncreasing(t, names)
	assert.Equal(t, 1, countOf(names, "Missing HEALTHCHECK"))

	fix, err := e.Render(Finding{Severity: SeverityLow, Check: "Missing HEALTHCHECK"})
	require.NoError(t, err)
	assert.Equal(t, "Use the team healthcheck snippet (LOW)", fix)
}

func TestRemediationEngine_InvalidFiles(t *testing.T) {
	e := NewRemediationEngine()

	err := e.LoadTemplates(fstest.MapFS{"bad.yaml": {Data: []byte("remediations: [")}}, ".")
	assert.Error(t, err)

	err = e.LoadTemplates(fstest.MapFS{"nameless.yml": {Data: []byte("remediations:\n  - fix: x\n")}}, ".")
	assert.Error(t, err)

	assert.Error(t, e.LoadDir(t.TempDir()+"/missing"))
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}
