package scene

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// MapFile is the YAML description of a scene. Key order within "keys" is
// preserved.
//
//	nodes:
//	  - type: entity
//	    keys:
//	      classname: worldspawn
//	    children:
//	      - type: brush
//	  - type: entity
//	    readOnly: true
//	    keys:
//	      classname: light
//	      origin: 0 0 64
type MapFile struct {
	Nodes []NodeDef `yaml:"nodes"`
}

// NodeDef is one node in a MapFile.
type NodeDef struct {
	Type     NodeType  `yaml:"type"`
	Keys     yaml.Node `yaml:"keys,omitempty"`
	ReadOnly bool      `yaml:"readOnly,omitempty"`
	Children []NodeDef `yaml:"children,omitempty"`
}

// LoadYAML decodes a MapFile from r and attaches its nodes under the root.
// Loaded key/values are not journaled.
func (g *Graph) LoadYAML(r io.Reader) error {
	var mf MapFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mf); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("scene: decode yaml: %w", err)
	}
	for i := range mf.Nodes {
		if err := g.build(g.root, &mf.Nodes[i], fmt.Sprintf("nodes[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// LoadYAMLFile is LoadYAML over a file.
func (g *Graph) LoadYAMLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("scene: open %s: %w", path, err)
	}
	defer f.Close()
	if err := g.LoadYAML(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (g *Graph) build(parent *Node, def *NodeDef, where string) error {
	n, err := g.NewNode(def.Type)
	if err != nil {
		return fmt.Errorf("scene: %s: %w", where, err)
	}
	if def.Keys.Kind != 0 {
		if n.entity == nil {
			return fmt.Errorf("scene: %s: keys on non-entity node %q", where, def.Type)
		}
		if def.Keys.Kind != yaml.MappingNode {
			return fmt.Errorf("scene: %s: keys must be a mapping (line %d)", where, def.Keys.Line)
		}
		content := def.Keys.Content
		for i := 0; i+1 < len(content); i += 2 {
			k, v := content[i], content[i+1]
			if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
				return fmt.Errorf("scene: %s: key/values must be scalars (line %d)", where, k.Line)
			}
			n.entity.apply(k.Value, v.Value)
		}
	}
	if def.ReadOnly {
		if n.entity == nil {
			return fmt.Errorf("scene: %s: readOnly on non-entity node %q", where, def.Type)
		}
		n.entity.readOnly = true
	}
	if err := g.Insert(parent, n); err != nil {
		return fmt.Errorf("scene: %s: %w", where, err)
	}
	for i := range def.Children {
		if err := g.build(n, &def.Children[i], fmt.Sprintf("%s.children[%d]", where, i)); err != nil {
			return err
		}
	}
	return nil
}
