package engine

// Surface names one of the scanned input domains.
type Surface string

const (
	SurfaceDockerfile Surface = "dockerfile"
	SurfaceCompose    Surface = "compose"
	SurfaceRuntime    Surface = "runtime"
)

// AllSurfaces returns the surfaces in scan order.
func AllSurfaces() []Surface {
	return []Surface{SurfaceDockerfile, SurfaceCompose, SurfaceRuntime}
}

// CheckFunc evaluates one rule against a surface's input.
// It must return a non-nil slice and must not fail on malformed input.
type CheckFunc[T any] func(input T, ref *Reference) []Finding

// Rule is a registered check with its metadata.
type Rule[T any] struct {
	ID          string
	Description string
	Check       CheckFunc[T]
}

// Run evaluates rules in declared order and concatenates their findings.
func Run[T any](rules []Rule[T], input T, ref *Reference) []Finding {
	if ref == nil {
		ref = &Reference{}
	}
	findings := make([]Finding, 0)
	for _, r := range rules {
		findings = append(findings, r.Check(input, ref)...)
	}
	return findings
}

// Describe converts rules into catalog entries for a surface.
func Describe[T any](surface Surface, rules []Rule[T]) []RuleInfo {
	infos := make([]RuleInfo, 0, len(rules))
	for _, r := range rules {
		infos = append(infos, RuleInfo{
			Surface:     surface,
			ID:          r.ID,
			Description: r.Description,
		})
	}
	return infos
}
