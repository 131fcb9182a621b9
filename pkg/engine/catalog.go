package engine

import (
	"fmt"
	"sync"
)

// RuleInfo describes a registered rule for listing purposes.
type RuleInfo struct {
	Surface     Surface `json:"surface" yaml:"surface"`
	ID          string  `json:"id" yaml:"id"`
	Description string  `json:"description" yaml:"description"`
}

// Catalog holds rule metadata grouped by surface
type Catalog struct {
	mu       sync.RWMutex
	surfaces map[Surface][]RuleInfo
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		surfaces: make(map[Surface][]RuleInfo),
	}
}

// Register adds rule metadata to the catalog. Rule IDs must be unique per surface.
func (c *Catalog) Register(rules ...RuleInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("rule on surface %q has an empty id", r.Surface)
		}
		for _, existing := range c.surfaces[r.Surface] {
			if existing.ID == r.ID {
				return fmt.Errorf("rule %q is already registered for %s", r.ID, r.Surface)
			}
		}
		c.surfaces[r.Surface] = append(c.surfaces[r.Surface], r)
	}
	return nil
}

// Surfaces returns the surfaces that have rules, in scan order.
func (c *Catalog) Surfaces() []Surface {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Surface
	for _, s := range AllSurfaces() {
		if len(c.surfaces[s]) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Rules returns the rules registered for a surface in declaration order.
func (c *Catalog) Rules(surface Surface) ([]RuleInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rules, ok := c.surfaces[surface]
	if !ok {
		return nil, false
	}
	out := make([]RuleInfo, len(rules))
	copy(out, rules)
	return out, true
}

// All returns every registered rule, surface by surface.
func (c *Catalog) All() []RuleInfo {
	var out []RuleInfo
	for _, s := range c.Surfaces() {
		rules, _ := c.Rules(s)
		out = append(out, rules...)
	}
	return out
}
