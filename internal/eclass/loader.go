package eclass

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Definitions is the on-disk description of entity classes and models.
//
//	entityClasses:
//	  - name: atdm:func_shooter
//	    inherit: func_static
//	    attributes:
//	      editor_usage:
//	        value: Shoots projectiles.
//	        description: Usage shown in the entity inspector.
//	models:
//	  - name: builderforger
//	    mesh: models/md5/chars/builders/forger/builderforger.md5mesh
//	    anims:
//	      idle: models/md5/chars/builders/forger/idle.md5anim
type Definitions struct {
	EntityClasses []ClassDef `yaml:"entityClasses"`
	Models        []ModelSrc `yaml:"models"`
}

// ClassDef is one entity class entry.
type ClassDef struct {
	Name       string                  `yaml:"name"`
	Inherit    string                  `yaml:"inherit,omitempty"`
	Attributes map[string]AttributeDef `yaml:"attributes,omitempty"`
}

// AttributeDef accepts either a bare scalar value or a {value, description} map.
type AttributeDef struct {
	Value       string `yaml:"value"`
	Description string `yaml:"description,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *AttributeDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Value = node.Value
		return nil
	}
	type plain AttributeDef
	return node.Decode((*plain)(a))
}

// ModelSrc is one model definition entry.
type ModelSrc struct {
	Name    string            `yaml:"name"`
	Inherit string            `yaml:"inherit,omitempty"`
	Mesh    string            `yaml:"mesh,omitempty"`
	Skin    string            `yaml:"skin,omitempty"`
	Anims   map[string]string `yaml:"anims,omitempty"`
}

// LoadYAML decodes definitions from r into m and resolves inheritance.
func (m *Manager) LoadYAML(r io.Reader) error {
	var defs Definitions
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("eclass: decode yaml: %w", err)
	}
	return m.Add(defs)
}

// LoadYAMLFile is LoadYAML over a file.
func (m *Manager) LoadYAMLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("eclass: open %s: %w", path, err)
	}
	defer f.Close()
	if err := m.LoadYAML(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Add inserts decoded definitions and resolves inheritance.
func (m *Manager) Add(defs Definitions) error {
	for i, cd := range defs.EntityClasses {
		if cd.Name == "" {
			return fmt.Errorf("eclass: entityClasses[%d]: missing name", i)
		}
		c := NewEntityClass(cd.Name)
		c.Parent = cd.Inherit
		for name, a := range cd.Attributes {
			c.SetAttribute(name, a.Value, a.Description)
		}
		m.AddClass(c)
	}
	for i, md := range defs.Models {
		if md.Name == "" {
			return fmt.Errorf("eclass: models[%d]: missing name", i)
		}
		d := &ModelDef{
			Name:   md.Name,
			Parent: md.Inherit,
			Mesh:   md.Mesh,
			Skin:   md.Skin,
			Anims:  make(map[string]AnimationSpec, len(md.Anims)),
		}
		for name, file := range md.Anims {
			d.Anims[name] = AnimationSpec{Name: name, File: file}
		}
		m.AddModel(d)
	}
	return m.Resolve()
}
