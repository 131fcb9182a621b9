// Package report renders scan findings for the terminal or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/user/dockscan/pkg/engine"
)

const Title = "Misconfiguration Report"

const banner = `
 +-------------------------------------------------------+
 |   ____   ___   ____ _  __ ____   ____    _    _   _   |
 |  |  _ \ / _ \ / ___| |/ // ___| / ___|  / \  | \ | |  |
 |  | | | | | | | |   | ' / \___ \| |     / _ \ |  \| |  |
 |  | |_| | |_| | |___| . \  ___) | |___ / ___ \| |\  |  |
 |  |____/ \___/ \____|_|\_\|____/ \____/_/   \_\_| \_|  |
 |                                                       |
 |       Container Misconfiguration Scanner              |
 +-------------------------------------------------------+
`

const tableTemplate = `
{{title}}
{{separator}}
{{header}}
{{separator}}
{{range .}}{{row .}}
{{end}}{{separator}}
{{summary .}}
`

type Reporter struct {
	writer io.Writer

	high, medium, low *color.Color
	banner, ok, head  *color.Color
}

// NewReporter writes to writer (stdout when nil). colorize forces colors on
// or off regardless of the terminal.
func NewReporter(writer io.Writer, colorize bool) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	r := &Reporter{
		writer: writer,
		high:   color.New(color.FgRed, color.Bold),
		medium: color.New(color.FgYellow, color.Bold),
		low:    color.New(color.FgBlue, color.Bold),
		banner: color.New(color.FgCyan, color.Bold),
		ok:     color.New(color.FgGreen),
		head:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{r.high, r.medium, r.low, r.banner, r.ok, r.head} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (r *Reporter) Banner() error {
	_, err := r.banner.Fprint(r.writer, banner)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.writer)
	return err
}

func (r *Reporter) severityColor(s engine.Severity) *color.Color {
	switch s {
	case engine.SeverityHigh:
		return r.high
	case engine.SeverityMedium:
		return r.medium
	default:
		return r.low
	}
}

// Table prints the findings as a bordered table followed by a summary line.
func (r *Reporter) Table(findings []engine.Finding) error {
	if len(findings) == 0 {
		_, err := r.ok.Fprintln(r.writer, "No misconfigurations found!")
		return err
	}

	widths := columnWidths(findings)
	total := widths[0] + widths[1] + widths[2] + 8

	funcMap := template.FuncMap{
		"title": func() string {
			pad := (total - len(Title)) / 2
			if pad < 0 {
				pad = 0
			}
			return strings.Repeat(" ", pad) + r.head.Sprint(Title)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+",
				strings.Repeat("-", widths[0]+2),
				strings.Repeat("-", widths[1]+2),
				strings.Repeat("-", widths[2]+2))
		},
		"header": func() string {
			return fmt.Sprintf("| %s | %s | %s |",
				r.head.Sprint(pad("Severity", widths[0])),
				r.head.Sprint(pad("Check", widths[1])),
				r.head.Sprint(pad("Details", widths[2])))
		},
		// pad before coloring so escape codes do not count toward the width
		"row": func(f engine.Finding) string {
			return fmt.Sprintf("| %s | %s | %s |",
				r.severityColor(f.Severity).Sprint(pad(f.Severity.String(), widths[0])),
				pad(f.Check, widths[1]),
				pad(f.Details, widths[2]))
		},
		"summary": func(findings []engine.Finding) string {
			return r.summaryLine(engine.Summarize(findings))
		},
	}

	t, err := template.New("report").Funcs(funcMap).Parse(tableTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(r.writer, findings)
}

func (r *Reporter) summaryLine(s engine.Summary) string {
	noun := "findings"
	if s.Total == 1 {
		noun = "finding"
	}
	counts := make([]string, 0, 3)
	for _, sev := range engine.AllSeverities() {
		counts = append(counts, fmt.Sprintf("%s: %d", r.severityColor(sev).Sprint(sev), s.Count(sev)))
	}
	return fmt.Sprintf("Total: %d %s (%s)", s.Total, noun, strings.Join(counts, ", "))
}

func columnWidths(findings []engine.Finding) [3]int {
	w := [3]int{len("Severity"), len("Check"), len("Details")}
	for _, f := range findings {
		w[0] = max(w[0], utf8.RuneCountInString(f.Severity.String()))
		w[1] = max(w[1], utf8.RuneCountInString(f.Check))
		w[2] = max(w[2], utf8.RuneCountInString(f.Details))
	}
	return w
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// JSON writes the findings as an indented array, "[]" when there are none.
func (r *Reporter) JSON(findings []engine.Finding) error {
	if findings == nil {
		findings = []engine.Finding{}
	}
	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.writer, "%s\n", data)
	return err
}

// Remediations prints guidance once per distinct check, in report order.
// Checks without a template are listed with a placeholder.
func (r *Reporter) Remediations(findings []engine.Finding, remediations *engine.RemediationEngine) error {
	if len(findings) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s\n", r.head.Sprint("Remediation"), strings.Repeat("-", len("Remediation")))

	seen := make(map[string]bool)
	for _, f := range findings {
		if seen[f.Check] {
			continue
		}
		seen[f.Check] = true

		fmt.Fprintf(&b, "\n[%s] %s\n", r.severityColor(f.Severity).Sprint(f.Severity), f.Check)
		rem, ok := remediations.Lookup(f.Check)
		if !ok {
			b.WriteString("  No remediation available.\n")
			continue
		}
		fix, err := remediations.Render(f)
		if err != nil {
			return fmt.Errorf("rendering remediation for %q: %w", f.Check, err)
		}
		if rem.Risk != "" {
			fmt.Fprintf(&b, "  Risk: %s\n", strings.TrimSpace(rem.Risk))
		}
		fmt.Fprintf(&b, "  Fix:  %s\n", indent(strings.TrimSpace(fix), "        "))
	}

	_, err := io.WriteString(r.writer, b.String())
	return err
}

// Narrative prints free text from the advisor under a heading.
func (r *Reporter) Narrative(heading, text string) error {
	_, err := fmt.Fprintf(r.writer, "\n%s\n%s\n\n%s\n", r.head.Sprint(heading),
		strings.Repeat("-", utf8.RuneCountInString(heading)), strings.TrimSpace(text))
	return err
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
