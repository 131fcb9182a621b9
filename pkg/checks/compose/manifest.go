package compose

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// Manifest is a parsed Compose document with services in document order.
// Service names are unique.
type Manifest struct {
	Services []Service
}

// Service is one entry under the top-level "services" key.
// Entries that are not mappings are kept but expose no fields.
type Service struct {
	Name string
	node *yaml.Node
}

// NewManifest builds a Manifest from a decoded YAML document.
// A nil, empty, or non-mapping document, or a missing or non-mapping
// "services" key, yields a manifest without services.
func NewManifest(doc *yaml.Node) *Manifest {
	m := &Manifest{Services: make([]Service, 0)}

	root := unwrap(doc)
	services := lookup(root, "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return m
	}
	// a repeated name replaces the earlier definition in its original position
	index := make(map[string]int)
	for i := 0; i+1 < len(services.Content); i += 2 {
		svc := NewService(services.Content[i].Value, services.Content[i+1])
		if pos, ok := index[svc.Name]; ok {
			m.Services[pos] = svc
			continue
		}
		index[svc.Name] = len(m.Services)
		m.Services = append(m.Services, svc)
	}
	return m
}

// ParseManifest decodes Compose YAML into a Manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return NewManifest(&doc), nil
}

// NewService builds a service from a name and its YAML definition.
func NewService(name string, node *yaml.Node) Service {
	return Service{Name: name, node: unwrap(node)}
}

// IsMapping reports whether the service definition is a mapping.
func (s Service) IsMapping() bool {
	return s.node != nil && s.node.Kind == yaml.MappingNode
}

// Field returns the node at path, or nil when any segment is absent
// or its parent is not a mapping.
func (s Service) Field(path ...string) *yaml.Node {
	if !s.IsMapping() {
		return nil
	}
	n := s.node
	for _, key := range path {
		n = lookup(n, key)
		if n == nil {
			return nil
		}
	}
	return n
}

// Truthy reports the YAML truthiness of the field at path.
// Absent and null fields are false.
func (s Service) Truthy(path ...string) bool {
	return truthy(s.Field(path...))
}

// Scalar returns the text of a scalar field. It returns false when the field
// is absent, null, or not a scalar.
func (s Service) Scalar(path ...string) (string, bool) {
	n := s.Field(path...)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return "", false
	}
	return n.Value, true
}

// Strings returns the string items of a sequence field. Items that are not
// string scalars are skipped; a missing or non-sequence field yields nil.
func (s Service) Strings(path ...string) []string {
	n := s.Field(path...)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	var out []string
	for _, item := range n.Content {
		item = unwrap(item)
		if item.Kind == yaml.ScalarNode && item.ShortTag() == "!!str" {
			out = append(out, item.Value)
		}
	}
	return out
}

// unwrap resolves document and alias nodes.
func unwrap(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// lookup returns the value for key in a mapping node. Later duplicates win,
// and explicit keys take precedence over "<<" merge keys.
func lookup(n *yaml.Node, key string) *yaml.Node {
	n = unwrap(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	var found *yaml.Node
	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		switch {
		case k.Value == key:
			found = n.Content[i+1]
		case k.Value == "<<" && k.ShortTag() == "!!merge":
			merges = append(merges, n.Content[i+1])
		}
	}
	if found != nil {
		return unwrap(found)
	}
	for _, m := range merges {
		m = unwrap(m)
		if m == nil {
			continue
		}
		if m.Kind == yaml.SequenceNode {
			for _, item := range m.Content {
				if v := lookup(item, key); v != nil {
					return v
				}
			}
			continue
		}
		if v := lookup(m, key); v != nil {
			return v
		}
	}
	return nil
}

func truthy(n *yaml.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case yaml.SequenceNode, yaml.MappingNode:
		return len(n.Content) > 0
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return false
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return false
			}
			return b
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return n.Value != "" && n.Value != "0"
			}
			return i != 0
		case "!!float":
			f, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				// .inf and .nan are truthy
				return true
			}
			return f != 0
		case "!!str":
			if n.Style == 0 && yaml11False[n.Value] {
				return false
			}
			return n.Value != ""
		default:
			return n.Value != ""
		}
	}
	return false
}

// yaml11False are plain scalars that YAML 1.1 loaders read as false but
// yaml.v3 resolves as strings.
var yaml11False = map[string]bool{
	"no": true, "No": true, "NO": true,
	"off": true, "Off": true, "OFF": true,
}
