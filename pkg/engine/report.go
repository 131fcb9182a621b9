package engine

import "sync"

// Report collects the findings of one scan run across surfaces.
// Findings keep the order in which surfaces were added; nothing is deduplicated.
type Report struct {
	mu       sync.RWMutex
	order    []Surface
	findings map[Surface][]Finding
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{
		findings: make(map[Surface][]Finding),
	}
}

// AddFindings appends the findings produced for a surface.
func (r *Report) AddFindings(surface Surface, findings []Finding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.findings[surface]; !seen {
		r.order = append(r.order, surface)
		r.findings[surface] = make([]Finding, 0, len(findings))
	}
	r.findings[surface] = append(r.findings[surface], findings...)
}

// Surfaces returns the scanned surfaces in the order they were added.
func (r *Report) Surfaces() []Surface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Surface, len(r.order))
	copy(out, r.order)
	return out
}

// Findings returns all findings, surface by surface. Never nil.
func (r *Report) Findings() []Finding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Finding, 0)
	for _, s := range r.order {
		out = append(out, r.findings[s]...)
	}
	return out
}

// HasFindings reports whether the scan should fail.
func (r *Report) HasFindings() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.findings {
		if len(f) > 0 {
			return true
		}
	}
	return false
}
