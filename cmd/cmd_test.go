package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/dockscan/pkg/advisor"
	"github.com/user/dockscan/pkg/checks/runtime"
	"github.com/user/dockscan/pkg/config"
	"github.com/user/dockscan/pkg/engine"
)

type fakeSource struct {
	containers []runtime.Container
	err        error
}

func (f *fakeSource) ListContainers(ctx context.Context) ([]runtime.Container, error) {
	return f.containers, f.err
}

type fakeProvider struct {
	reply  string
	err    error
	models []string
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return f.models, nil
}

func (f *fakeProvider) Close() error { return nil }

type harness struct {
	t          *testing.T
	dir        string
	configPath string
	source     *fakeSource
	provider   *fakeProvider
	stdin      string

	stdout, stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("GOOGLE_API_KEY", "")
	return &harness{
		t:          t,
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		source:     &fakeSource{},
		provider:   &fakeProvider{reply: "Pin the base image.", models: []string{"gemini-1.5-flash", "gemini-1.5-pro"}},
	}
}

func (h *harness) file(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()

	opts := &rootOptions{
		containerSource: func(*config.Config, bool) runtime.ContainerSource { return h.source },
		newProvider: func(ctx context.Context, name, apiKey, model string) (advisor.Provider, error) {
			if apiKey == "" {
				return nil, advisor.ErrMissingAPIKey
			}
			return h.provider, nil
		},
	}
	root := newRootCmd(opts)
	root.SetArgs(append([]string{"--config", h.configPath}, args...))
	root.SetOut(&h.stdout)
	root.SetErr(&h.stderr)
	root.SetIn(strings.NewReader(h.stdin))
	return run(context.Background(), root, &h.stderr)
}

const cleanDockerfile = "FROM alpine:3.19\nUSER app\nHEALTHCHECK CMD wget -q localhost || exit 1\n"

func TestScan_RequiresSurface(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("scan"))
	assert.Contains(t, h.stderr.String(), "Error: specify at least one scan type")
	assert.Empty(t, h.stdout.String())
}

func TestScan_MissingInput(t *testing.T) {
	h := newHarness(t)
	compose := h.file("compose.yaml", "services: {}\n")

	code := h.run("scan", "--compose", compose, "--dockerfile", filepath.Join(h.dir, "nope"), "--json")

	assert.Equal(t, 1, code)
	assert.Contains(t, h.stderr.String(), "Error: Dockerfile not found")
	assert.Empty(t, h.stdout.String())
}

func TestScan_ComposeParseError(t *testing.T) {
	h := newHarness(t)
	compose := h.file("compose.yaml", "services:\n  web: [\n")

	assert.Equal(t, 1, h.run("scan", "--compose", compose, "--json"))
	assert.Contains(t, h.stderr.String(), "Error parsing compose file: ")
}

func TestScan_CleanInputExitsZero(t *testing.T) {
	h := newHarness(t)
	dockerfile := h.file("Dockerfile", cleanDockerfile)

	assert.Equal(t, 0, h.run("scan", "--dockerfile", dockerfile, "--json"))
	assert.Equal(t, "[]\n", h.stdout.String())

	assert.Equal(t, 0, h.run("scan", "--dockerfile", dockerfile))
	assert.Contains(t, h.stdout.String(), "No misconfigurations found!")
	assert.Contains(t, h.stdout.String(), "Container Misconfiguration Scanner")
}

func TestScan_JSONFindingsAcrossSurfaces(t *testing.T) {
	h := newHarness(t)
	dockerfile := h.file("Dockerfile", "FROM ubuntu\nEXPOSE 22\n")
	compose := h.file("compose.yaml", `
services:
  db:
    image: postgres:16
    user: postgres
    mem_limit: 512m
    cpus: 1
    ports:
      - "5432:5432"
`)
	h.source.containers = []runtime.Container{{
		Name:       "cache",
		HostConfig: runtime.HostConfig{Memory: 1, CPUShares: 2, NetworkMode: "host"},
	}}

	code := h.run("scan", "--dockerfile", dockerfile, "--compose", compose, "--runtime", "--json")

	assert.Equal(t, 1, code)
	assert.Empty(t, h.stderr.String())

	var findings []engine.Finding
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &findings))

	var checks []string
	for _, f := range findings {
		checks = append(checks, f.Check)
	}
	assert.Equal(t, []string{
		"Latest tag detected",
		"Missing USER directive",
		"Sensitive port exposed",
		"Missing HEALTHCHECK",
		"Sensitive port mapped",
		"Host network mode",
	}, checks)
}

func TestScan_RuntimeConnectionErrorIsAFinding(t *testing.T) {
	h := newHarness(t)
	h.source.err = errors.New("connection refused")

	assert.Equal(t, 1, h.run("scan", "--runtime", "--no-color"))
	out := h.stdout.String()
	assert.Contains(t, out, "Docker connection error")
	assert.Contains(t, out, "Cannot connect to Docker: connection refused")
	assert.Contains(t, out, "Total: 1 finding")
}

func TestScan_UsesConfiguredReference(t *testing.T) {
	h := newHarness(t)
	h.file("config.yaml", "sensitive_ports: [8080]\n")
	dockerfile := h.file("Dockerfile", "FROM alpine:3.19\nUSER app\nHEALTHCHECK CMD true\nEXPOSE 22 8080\n")

	assert.Equal(t, 1, h.run("scan", "--dockerfile", dockerfile, "--json"))

	var findings []engine.Finding
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, "Line 4: Port 8080", findings[0].Details)
}

func TestScan_Remediation(t *testing.T) {
	h := newHarness(t)
	dockerfile := h.file("Dockerfile", "FROM ubuntu:latest\nUSER app\nHEALTHCHECK CMD true\n")

	assert.Equal(t, 1, h.run("scan", "--dockerfile", dockerfile, "--remediation"))
	out := h.stdout.String()
	assert.Contains(t, out, "Remediation")
	assert.Contains(t, out, "[HIGH] Latest tag detected")
	assert.Contains(t, out, "Line 1: FROM ubuntu:latest")
}

func TestScan_Explain(t *testing.T) {
	h := newHarness(t)
	dockerfile := h.file("Dockerfile", "FROM ubuntu\nUSER app\nHEALTHCHECK CMD true\n")

	assert.Equal(t, 1, h.run("scan", "--dockerfile", dockerfile, "--explain", "--json"))
	assert.Contains(t, h.stderr.String(), "--explain cannot be combined with --json")

	// no key: warning only
	assert.Equal(t, 1, h.run("scan", "--dockerfile", dockerfile, "--explain"))
	assert.Contains(t, h.stdout.String(), "Latest tag detected")
	assert.NotContains(t, h.stdout.String(), "Advisor")
	assert.Contains(t, h.stderr.String(), "advisor unavailable")

	t.Setenv("GOOGLE_API_KEY", "test-key")
	assert.Equal(t, 1, h.run("scan", "--dockerfile", dockerfile, "--explain"))
	assert.Contains(t, h.stdout.String(), "Advisor")
	assert.Contains(t, h.stdout.String(), "Pin the base image.")

	h.provider.err = errors.New("quota exceeded")
	assert.Equal(t, 1, h.run("scan", "--dockerfile", dockerfile, "--explain"))
	assert.Contains(t, h.stdout.String(), "Latest tag detected")
	assert.Contains(t, h.stderr.String(), "advisor request failed")
}

func TestRules(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 0, h.run("rules"))
	out := h.stdout.String()
	assert.Less(t, strings.Index(out, "dockerfile (5 rules)"), strings.Index(out, "compose (5 rules)"))
	assert.Less(t, strings.Index(out, "compose (5 rules)"), strings.Index(out, "runtime (4 rules)"))

	assert.Equal(t, 0, h.run("rules", "--surface", "runtime"))
	assert.Contains(t, h.stdout.String(), "host-network")
	assert.NotContains(t, h.stdout.String(), "latest-tag")

	assert.Equal(t, 1, h.run("rules", "--surface", "kubernetes"))
	assert.Contains(t, h.stderr.String(), `unknown surface "kubernetes"`)
}

func TestRules_JSON(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("rules", "--json"))
	var rules []engine.RuleInfo
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &rules))
	require.Len(t, rules, 14)
	assert.Equal(t, engine.RuleInfo{Surface: engine.SurfaceDockerfile, ID: "latest-tag", Description: rules[0].Description}, rules[0])
	assert.Equal(t, engine.SurfaceRuntime, rules[len(rules)-1].Surface)

	require.Equal(t, 0, h.run("rules", "--surface", "compose", "--json"))
	rules = nil
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &rules))
	require.Len(t, rules, 5)
	for _, r := range rules {
		assert.Equal(t, engine.SurfaceCompose, r.Surface)
	}
}

func TestRules_Remediations(t *testing.T) {
	h := newHarness(t)
	dir := filepath.Join(h.dir, "remediations")
	require.NoError(t, os.Mkdir(dir, 0o755))
	h.file("remediations/team.yaml", `remediations:
  - check: Missing HEALTHCHECK
    risk: Team policy requires a health check on every image.
    fix: Use the shared healthcheck snippet.
`)
	h.file("config.yaml", "remediation_dir: "+dir+"\n")

	require.Equal(t, 0, h.run("rules", "--remediations"))
	out := h.stdout.String()
	assert.Contains(t, out, "Latest tag detected")
	assert.Contains(t, out, "Privileged mode enabled")
	assert.Contains(t, out, "Team policy requires a health check on every image.")
	assert.Less(t, strings.Index(out, "Container running as root"), strings.Index(out, "Latest tag detected"))
}

func TestConfigLifecycle(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("config", "init"))
	assert.FileExists(t, h.configPath)

	assert.Equal(t, 1, h.run("config", "init"))
	assert.Contains(t, h.stderr.String(), "already exists")

	require.Equal(t, 0, h.run("config", "set-key", "--provider", "Gemini", "--key", "abcdef123456"))
	require.Equal(t, 0, h.run("config", "set-model", "--model", "gemini-1.5-pro"))

	require.Equal(t, 0, h.run("config", "show"))
	assert.Contains(t, h.stdout.String(), "********3456")
	assert.NotContains(t, h.stdout.String(), "abcdef")
	assert.Contains(t, h.stdout.String(), "model: gemini-1.5-pro")

	require.Equal(t, 0, h.run("config", "list-models"))
	assert.Contains(t, h.stdout.String(), "* gemini-1.5-pro")
	assert.Contains(t, h.stdout.String(), "  gemini-1.5-flash")

	cfg, err := config.LoadConfig(h.configPath)
	require.NoError(t, err)
	assert.Equal(t, "abcdef123456", cfg.GetAPIKey("gemini"))
}

func TestConfigSetKey_RequiresFlags(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("config", "set-key", "--provider", "gemini"))
	assert.Contains(t, h.stderr.String(), "--provider and --key are required")
}

func TestConfigSetModel_UnknownProvider(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 1, h.run("config", "set-model", "--provider", "clippy", "--model", "x"))
	assert.Contains(t, h.stderr.String(), `unknown provider "clippy" (valid: gemini)`)
	assert.NoFileExists(t, h.configPath)

	require.Equal(t, 0, h.run("config", "set-model", "--provider", "GEMINI", "--model", "gemini-1.5-pro"))
	cfg, err := config.LoadConfig(h.configPath)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Advisor.Provider)
}

func TestConfigWrites_DoNotPersistEnvironment(t *testing.T) {
	h := newHarness(t)
	t.Setenv("DOCKSCAN_DOCKER_HOST", "tcp://10.9.9.9:2375")
	t.Setenv("DOCKSCAN_LOG_LEVEL", "debug")

	require.Equal(t, 0, h.run("config", "set-key", "--provider", "gemini", "--key", "abcdef123456"))
	require.Equal(t, 0, h.run("config", "set-model", "--model", "gemini-1.5-pro"))

	cfg, err := config.LoadConfigFile(h.configPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Docker.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "abcdef123456", cfg.GetAPIKey("gemini"))
	assert.Equal(t, "gemini-1.5-pro", cfg.Advisor.Model)

	data, err := os.ReadFile(h.configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "10.9.9.9")
}

func TestConfigInit_Interactive(t *testing.T) {
	h := newHarness(t)
	h.stdin = "tcp://127.0.0.1:2375\nsecret-key\n2\n"

	require.Equal(t, 0, h.run("config", "init", "--interactive"))

	cfg, err := config.LoadConfig(h.configPath)
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:2375", cfg.Docker.Host)
	assert.Equal(t, "secret-key", cfg.GetAPIKey("gemini"))
	assert.Equal(t, "gemini-1.5-pro", cfg.Advisor.Model)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "***", maskKey("abc"))
	assert.Equal(t, "**cdef", maskKey("abcdef"))
}
