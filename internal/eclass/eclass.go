// Package eclass holds the pre-loaded entity-class and model-definition tables.
//
// Tables are populated once, typically at startup via LoadYAML, and are
// read-only afterwards. Lookups by name return nil when nothing matches;
// attribute access on an existing class returns ErrAttributeNotFound when the
// class does not define the attribute, with no default fallback.
package eclass

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrAttributeNotFound is returned when a class does not define an attribute.
	ErrAttributeNotFound = errors.New("entity class attribute not found")

	// ErrInheritanceCycle is returned by Resolve when "inherit" chains loop.
	ErrInheritanceCycle = errors.New("entity class inheritance cycle")

	// ErrUnknownParent is returned by Resolve when "inherit" names a missing definition.
	ErrUnknownParent = errors.New("entity class parent not found")
)

// Attribute is a single named key of an entity class.
type Attribute struct {
	Name        string
	Value       string
	Description string
	// Inherited is true when the attribute was copied from an ancestor.
	Inherited bool
}

// EntityClass is a declarative definition of a game entity type.
type EntityClass struct {
	Name   string
	Parent string

	attrs map[string]Attribute
}

// NewEntityClass returns an empty class named name.
func NewEntityClass(name string) *EntityClass {
	return &EntityClass{Name: name, attrs: make(map[string]Attribute)}
}

// SetAttribute defines or replaces an attribute owned by the class itself.
func (c *EntityClass) SetAttribute(name, value, description string) {
	c.attrs[name] = Attribute{Name: name, Value: value, Description: description}
}

// Attribute returns the named attribute or ErrAttributeNotFound.
func (c *EntityClass) Attribute(name string) (Attribute, error) {
	a, ok := c.attrs[name]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %s on %s", ErrAttributeNotFound, name, c.Name)
	}
	return a, nil
}

// AttributeNames returns the class's attribute names in lexical order.
func (c *EntityClass) AttributeNames() []string {
	names := make([]string, 0, len(c.attrs))
	for n := range c.attrs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AnimationSpec names the animation file bound to an animation name.
type AnimationSpec struct {
	Name string
	File string
}

// ModelDef is metadata for a model definition.
type ModelDef struct {
	Name   string
	Parent string
	Mesh   string
	Skin   string
	Anims  map[string]AnimationSpec

	// fields copied from ancestors by the last Resolve
	inheritedMesh  bool
	inheritedSkin  bool
	inheritedAnims map[string]bool
}

// AnimNames returns the animation names in lexical order.
func (m *ModelDef) AnimNames() []string {
	names := make([]string, 0, len(m.Anims))
	for n := range m.Anims {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Visitor receives each entity class during Manager.ForEachClass.
type Visitor interface {
	Visit(c *EntityClass)
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(c *EntityClass)

// Visit calls f(c).
func (f VisitorFunc) Visit(c *EntityClass) { f(c) }

// Manager owns the class and model tables.
type Manager struct {
	classes map[string]*EntityClass
	models  map[string]*ModelDef
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{
		classes: make(map[string]*EntityClass),
		models:  make(map[string]*ModelDef),
	}
}

// AddClass inserts or replaces a class.
func (m *Manager) AddClass(c *EntityClass) {
	m.classes[c.Name] = c
}

// AddModel inserts or replaces a model definition.
func (m *Manager) AddModel(d *ModelDef) {
	if d.Anims == nil {
		d.Anims = make(map[string]AnimationSpec)
	}
	m.models[d.Name] = d
}

// FindClass returns the named class, or nil.
func (m *Manager) FindClass(name string) *EntityClass {
	return m.classes[name]
}

// FindModel returns the named model definition, or nil.
func (m *Manager) FindModel(name string) *ModelDef {
	return m.models[name]
}

// ClassNames returns all class names in lexical order.
func (m *Manager) ClassNames() []string {
	names := make([]string, 0, len(m.classes))
	for n := range m.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ModelNames returns all model names in lexical order.
func (m *Manager) ModelNames() []string {
	names := make([]string, 0, len(m.models))
	for n := range m.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForEachClass visits every class in name order.
func (m *Manager) ForEachClass(v Visitor) {
	for _, name := range m.ClassNames() {
		v.Visit(m.classes[name])
	}
}

// Resolve copies inherited attributes and model fields down each "inherit"
// chain. Attributes a class defines itself take precedence over its
// ancestors'. Values copied by an earlier Resolve are dropped first, so
// redefining a parent updates its descendants.
func (m *Manager) Resolve() error {
	for _, name := range m.ClassNames() {
		if _, err := m.classChain(name); err != nil {
			return err
		}
	}
	for _, name := range m.ModelNames() {
		if _, err := m.modelChain(name); err != nil {
			return err
		}
	}
	for _, c := range m.classes {
		for an, a := range c.attrs {
			if a.Inherited {
				delete(c.attrs, an)
			}
		}
	}
	for _, d := range m.models {
		d.dropInherited()
	}

	for _, name := range m.ClassNames() {
		chain, _ := m.classChain(name)
		c := m.classes[name]
		for _, ancestor := range chain[1:] {
			for an, a := range ancestor.attrs {
				if a.Inherited {
					continue
				}
				if _, ok := c.attrs[an]; ok {
					continue
				}
				a.Inherited = true
				c.attrs[an] = a
			}
		}
	}

	for _, name := range m.ModelNames() {
		chain, _ := m.modelChain(name)
		d := m.models[name]
		for _, ancestor := range chain[1:] {
			if d.Mesh == "" && ancestor.Mesh != "" {
				d.Mesh = ancestor.Mesh
				d.inheritedMesh = true
			}
			if d.Skin == "" && ancestor.Skin != "" {
				d.Skin = ancestor.Skin
				d.inheritedSkin = true
			}
			for an, a := range ancestor.Anims {
				if _, ok := d.Anims[an]; !ok {
					d.Anims[an] = a
					d.inheritedAnims[an] = true
				}
			}
		}
	}
	return nil
}

func (d *ModelDef) dropInherited() {
	if d.inheritedMesh {
		d.Mesh = ""
	}
	if d.inheritedSkin {
		d.Skin = ""
	}
	for an := range d.inheritedAnims {
		delete(d.Anims, an)
	}
	d.inheritedMesh, d.inheritedSkin = false, false
	d.inheritedAnims = make(map[string]bool)
}

// classChain returns name followed by its ancestors, nearest first.
func (m *Manager) classChain(name string) ([]*EntityClass, error) {
	var chain []*EntityClass
	seen := make(map[string]bool)
	for cur := name; cur != ""; {
		if seen[cur] {
			return nil, fmt.Errorf("%w: %s", ErrInheritanceCycle, name)
		}
		seen[cur] = true
		c, ok := m.classes[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %s (inherited by %s)", ErrUnknownParent, cur, name)
		}
		chain = append(chain, c)
		cur = c.Parent
	}
	return chain, nil
}

func (m *Manager) modelChain(name string) ([]*ModelDef, error) {
	var chain []*ModelDef
	seen := make(map[string]bool)
	for cur := name; cur != ""; {
		if seen[cur] {
			return nil, fmt.Errorf("%w: model %s", ErrInheritanceCycle, name)
		}
		seen[cur] = true
		d, ok := m.models[cur]
		if !ok {
			return nil, fmt.Errorf("%w: model %s (inherited by %s)", ErrUnknownParent, cur, name)
		}
		chain = append(chain, d)
		cur = d.Parent
	}
	return chain, nil
}
