// Package host assembles the editor-side objects a script can observe: the
// registry, entity-class manager, scene graph and its undo journal, plus the
// application-control object.
package host

import (
	"fmt"

	"github.com/joeycumines/radscript/internal/eclass"
	"github.com/joeycumines/radscript/internal/registry"
	"github.com/joeycumines/radscript/internal/scene"
)

// Options names the fixture files a Host is loaded from. Empty paths are skipped.
type Options struct {
	// DefsPath is a YAML entity-class/model definition file.
	DefsPath string
	// MapPath is a YAML scene description.
	MapPath string
	// RegistryPath is a TOML registry file. A missing file is not an error.
	RegistryPath string
	// UndoLevels bounds the scene undo journal; 0 keeps the default.
	UndoLevels int
}

// Host owns one editing session's state.
type Host struct {
	Registry *registry.Registry
	Classes  *eclass.Manager
	Scene    *scene.Graph
	App      *Application
}

// New returns an empty host with a bare scene graph.
func New() *Host {
	h := &Host{
		Registry: registry.New(),
		Classes:  eclass.NewManager(),
		Scene:    scene.NewGraph(),
	}
	h.App = &Application{host: h}
	return h
}

// Load builds a Host from opts.
func Load(opts Options) (*Host, error) {
	h := New()
	if opts.UndoLevels != 0 {
		h.Scene.UndoSystem().SetMaxLevels(opts.UndoLevels)
	}
	if opts.RegistryPath != "" {
		if err := h.Registry.LoadTOMLFile(opts.RegistryPath); err != nil {
			return nil, fmt.Errorf("load registry: %w", err)
		}
	}
	if opts.DefsPath != "" {
		if err := h.Classes.LoadYAMLFile(opts.DefsPath); err != nil {
			return nil, fmt.Errorf("load definitions: %w", err)
		}
	}
	if opts.MapPath != "" {
		if err := h.Scene.LoadYAMLFile(opts.MapPath); err != nil {
			return nil, fmt.Errorf("load map: %w", err)
		}
	}
	return h, nil
}

// Application is the application-control object. It answers questions about
// the live map that span more than one subsystem.
type Application struct {
	host *Host
}

// FindEntityByClassname returns the first entity of classname in scene
// traversal order, or nil.
func (a *Application) FindEntityByClassname(classname string) *scene.Entity {
	return a.host.Scene.FindEntityByClassname(classname)
}

// FindEntities returns every entity of classname in traversal order.
func (a *Application) FindEntities(classname string) []*scene.Entity {
	return a.host.Scene.FindEntities(classname)
}

// EntityClassOf returns the definition of e's classname, or nil when the
// class is not loaded.
func (a *Application) EntityClassOf(e *scene.Entity) *eclass.EntityClass {
	if e == nil {
		return nil
	}
	return a.host.Classes.FindClass(e.Classname())
}
