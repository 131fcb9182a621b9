package engine

import "fmt"

// Severity represents how urgent a misconfiguration is.
type Severity string

const (
	// SeverityHigh marks issues that directly weaken container isolation.
	SeverityHigh Severity = "HIGH"
	// SeverityMedium marks missing hardening such as resource limits.
	SeverityMedium Severity = "MEDIUM"
	// SeverityLow marks best-practice deviations.
	SeverityLow Severity = "LOW"
)

// Rank orders severities for display. It is never used to filter findings.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// AllSeverities returns the known severities from most to least severe.
func AllSeverities() []Severity {
	return []Severity{SeverityHigh, SeverityMedium, SeverityLow}
}

// Finding is one reported misconfiguration.
type Finding struct {
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`   // stable rule title, grep-able
	Details  string   `json:"details"` // offending line / service / path
}

// NewFinding builds a Finding with a formatted details string.
func NewFinding(severity Severity, check, format string, args ...interface{}) Finding {
	return Finding{
		Severity: severity,
		Check:    check,
		Details:  fmt.Sprintf(format, args...),
	}
}

// Summary holds per-severity counts for a set of findings.
type Summary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Total  int `json:"total"`
}

// Summarize counts findings by severity.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		}
		s.Total++
	}
	return s
}

// Count returns the number of findings with the given severity.
func (s Summary) Count(severity Severity) int {
	switch severity {
	case SeverityHigh:
		return s.High
	case SeverityMedium:
		return s.Medium
	case SeverityLow:
		return s.Low
	default:
		return 0
	}
}
