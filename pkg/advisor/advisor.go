// Package advisor asks an LLM provider for a remediation plan covering a
// set of findings. It never changes the findings themselves.
package advisor

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/user/dockscan/pkg/engine"
)

//go:embed prompts/explain.tmpl
var explainPrompt string

var ErrMissingAPIKey = errors.New("no API key configured")

// Provider generates text from a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Close() error
}

type Advisor struct {
	provider Provider
	prompt   *template.Template
}

func New(provider Provider) (*Advisor, error) {
	tmpl, err := template.New("explain").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Option("missingkey=error").Parse(explainPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt: %w", err)
	}
	return &Advisor{provider: provider, prompt: tmpl}, nil
}

// Prompt renders the prompt that Explain sends for findings, most severe
// first. Findings of equal severity keep their report order.
func (a *Advisor) Prompt(findings []engine.Finding) (string, error) {
	ordered := make([]engine.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Severity.Rank() > ordered[j].Severity.Rank()
	})

	var buf bytes.Buffer
	data := struct {
		Findings []engine.Finding
		Summary  engine.Summary
	}{ordered, engine.Summarize(findings)}
	if err := a.prompt.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Explain returns the provider's remediation plan. With no findings the
// provider is not called.
func (a *Advisor) Explain(ctx context.Context, findings []engine.Finding) (string, error) {
	if len(findings) == 0 {
		return "", nil
	}
	prompt, err := a.Prompt(findings)
	if err != nil {
		return "", err
	}
	text, err := a.provider.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("advisor request failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("advisor returned an empty response")
	}
	return text, nil
}
