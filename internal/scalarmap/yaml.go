package scalarmap

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads either a bare scalar (treated as the default) or a mapping of
// body name to scalar. Scalars are kept as their source text so that parse
// failures go through the same logged fallback as Load.
func (m *Map[T]) LoadYAML(node *yaml.Node) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	switch node.Kind {
	case yaml.ScalarNode:
		m.LoadDefault(node.Value)
		return nil
	case yaml.MappingNode:
		values := make(map[string]string, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return fmt.Errorf("scalarmap %s: entry %q at line %d is not a scalar", m.name, k.Value, v.Line)
			}
			values[k.Value] = v.Value
		}
		m.Load(values)
		return nil
	default:
		return fmt.Errorf("scalarmap %s: expected scalar or mapping at line %d", m.name, node.Line)
	}
}

// MarshalYAML emits the map as an ordered mapping, default key first.
func (m *Map[T]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range m.Save() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: e.Value},
		)
	}
	return node, nil
}
