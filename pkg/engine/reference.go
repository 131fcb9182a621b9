package engine

import "strings"

// PortSet is a set of network ports considered high-risk when exposed.
type PortSet map[int]struct{}

// NewPortSet builds a PortSet from a list of ports.
func NewPortSet(ports ...int) PortSet {
	set := make(PortSet, len(ports))
	for _, p := range ports {
		set[p] = struct{}{}
	}
	return set
}

// Contains reports whether port is in the set.
func (s PortSet) Contains(port int) bool {
	_, ok := s[port]
	return ok
}

// PathSet is an ordered set of host paths considered high-risk when mounted.
type PathSet struct {
	paths []string
	index map[string]struct{}
}

// NewPathSet builds a PathSet preserving the given order. Duplicates are dropped.
func NewPathSet(paths ...string) PathSet {
	set := PathSet{index: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if _, ok := set.index[p]; ok {
			continue
		}
		set.index[p] = struct{}{}
		set.paths = append(set.paths, p)
	}
	return set
}

// Match returns the first sensitive path that source equals or lives under.
// "/" only ever matches itself, otherwise it would be a prefix of every path.
func (s PathSet) Match(source string) (string, bool) {
	for _, p := range s.paths {
		if source == p {
			return p, true
		}
		if p != "/" && strings.HasPrefix(source, p+"/") {
			return p, true
		}
	}
	return "", false
}

// Reference is the static data every check is evaluated against.
type Reference struct {
	Ports PortSet
	Paths PathSet
}

// NewReference builds Reference data from plain lists.
func NewReference(ports []int, paths []string) *Reference {
	return &Reference{
		Ports: NewPortSet(ports...),
		Paths: NewPathSet(paths...),
	}
}
