package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/dockscan/pkg/engine"
)

type fakeProvider struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-1"}, nil
}

func (f *fakeProvider) Close() error { return nil }

var findings = []engine.Finding{
	{Severity: engine.SeverityHigh, Check: "Privileged mode enabled", Details: "Service 'web' runs in privileged mode"},
	{Severity: engine.SeverityLow, Check: "Missing HEALTHCHECK", Details: "No health monitoring configured"},
}

func TestPrompt(t *testing.T) {
	a, err := New(&fakeProvider{})
	require.NoError(t, err)

	prompt, err := a.Prompt(findings)

	require.NoError(t, err)
	assert.Contains(t, prompt, "1. [HIGH] Privileged mode enabled: Service 'web' runs in privileged mode")
	assert.Contains(t, prompt, "2. [LOW] Missing HEALTHCHECK: No health monitoring configured")
	assert.Contains(t, prompt, "Totals: 1 HIGH, 0 MEDIUM, 1 LOW.")
}

func TestPrompt_MostSevereFirst(t *testing.T) {
	a, err := New(&fakeProvider{})
	require.NoError(t, err)
	input := []engine.Finding{
		{Severity: engine.SeverityLow, Check: "Missing HEALTHCHECK", Details: "No health monitoring configured"},
		{Severity: engine.SeverityMedium, Check: "Missing resource limits", Details: "Service 'web' missing memory limit"},
		{Severity: engine.SeverityHigh, Check: "Host network mode", Details: "Container 'cache' uses host network"},
		{Severity: engine.SeverityMedium, Check: "Missing resource limits", Details: "Service 'web' missing CPU limit"},
	}

	prompt, err := a.Prompt(input)

	require.NoError(t, err)
	assert.Contains(t, prompt, "1. [HIGH] Host network mode")
	assert.Contains(t, prompt, "2. [MEDIUM] Missing resource limits: Service 'web' missing memory limit")
	assert.Contains(t, prompt, "3. [MEDIUM] Missing resource limits: Service 'web' missing CPU limit")
	assert.Contains(t, prompt, "4. [LOW] Missing HEALTHCHECK")
	assert.Equal(t, engine.SeverityLow, input[0].Severity)
}

func TestExplain(t *testing.T) {
	p := &fakeProvider{reply: "\n  Drop privileged mode.  \n"}
	a, err := New(p)
	require.NoError(t, err)

	text, err := a.Explain(context.Background(), findings)

	require.NoError(t, err)
	assert.Equal(t, "Drop privileged mode.", text)
	assert.Equal(t, 1, p.calls)
	assert.Contains(t, p.prompt, "Privileged mode enabled")
}

func TestExplain_NoFindingsSkipsProvider(t *testing.T) {
	p := &fakeProvider{}
	a, err := New(p)
	require.NoError(t, err)

	text, err := a.Explain(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, p.calls)
}

func TestExplain_Errors(t *testing.T) {
	tests := map[string]*fakeProvider{
		"provider error": {err: errors.New("quota exceeded")},
		"empty reply":    {reply: "   "},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			a, err := New(p)
			require.NoError(t, err)

			_, err = a.Explain(context.Background(), findings)
			assert.Error(t, err)
		})
	}
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), "gemini", "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider(context.Background(), "clippy", "key", "")
	assert.EqualError(t, err, "unknown provider: clippy")
}

func TestSupportsGeneration(t *testing.T) {
	assert.True(t, supportsGeneration([]string{"countTokens", "generateContent"}))
	assert.False(t, supportsGeneration([]string{"embedContent"}))
}
