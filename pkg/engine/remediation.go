package engine

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed remediations/*.yaml
var defaultRemediations embed.FS

// Remediation describes how to fix the findings of one check
type Remediation struct {
	Check string `yaml:"check"`
	Risk  string `yaml:"risk"`
	Fix   string `yaml:"fix"` // text/template rendered with the Finding
}

type remediationFile struct {
	Remediations []Remediation `yaml:"remediations"`
}

// RemediationEngine manages remediation templates keyed by check name
type RemediationEngine struct {
	Templates map[string]Remediation
}

// NewRemediationEngine creates a new remediation engine
func NewRemediationEngine() *RemediationEngine {
	return &RemediationEngine{
		Templates: make(map[string]Remediation),
	}
}

// LoadDefaults loads the remediation templates shipped with the binary.
func (e *RemediationEngine) LoadDefaults() error {
	return e.LoadTemplates(defaultRemediations, "remediations")
}

// LoadDir loads templates from a directory on disk, overriding defaults by check name.
func (e *RemediationEngine) LoadDir(dir string) error {
	return e.LoadTemplates(os.DirFS(dir), ".")
}

// LoadTemplates reads YAML remediation files from dir within fsys
func (e *RemediationEngine) LoadTemplates(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return err
		}

		var file remediationFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		for _, r := range file.Remediations {
			if r.Check == "" {
				return fmt.Errorf("%s: remediation without check name", entry.Name())
			}
			e.Templates[r.Check] = r
		}
	}
	return nil
}

// Lookup returns the remediation for a check name.
func (e *RemediationEngine) Lookup(check string) (Remediation, bool) {
	r, ok := e.Templates[check]
	return r, ok
}

// ListTemplates returns the check names that have a remediation, sorted
func (e *RemediationEngine) ListTemplates() []string {
	list := make([]string, 0, len(e.Templates))
	for check := range e.Templates {
		list = append(list, check)
	}
	sort.Strings(list)
	return list
}

// Render produces the fix text for a finding.
func (e *RemediationEngine) Render(f Finding) (string, error) {
	tmpl, ok := e.Templates[f.Check]
	if !ok {
		return "", fmt.Errorf("no remediation for check: %s", f.Check)
	}
	return renderString(f.Check, tmpl.Fix, f)
}

func renderString(name, tmplStr string, data interface{}) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
