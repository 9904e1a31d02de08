// Package scene implements the editor's scene graph: a tree of typed nodes
// rooted at a single "root" node, where entity nodes carry an ordered
// key/value store.
//
// A Graph is not safe for concurrent use. In particular, inserting or removing
// nodes while a traversal is in progress is undefined behaviour; callers that
// need to restructure the graph from a visitor must collect the nodes first
// and apply the edits after the walk returns.
package scene

import (
	"errors"
	"fmt"
)

// NodeType tags the kind of a scene node.
type NodeType string

const (
	TypeRoot   NodeType = "root"
	TypeEntity NodeType = "entity"
	TypeBrush  NodeType = "brush"
	TypePatch  NodeType = "patch"
	TypeModel  NodeType = "model"
)

// Valid reports whether t is a known, non-root node type.
func (t NodeType) Valid() bool {
	switch t {
	case TypeEntity, TypeBrush, TypePatch, TypeModel:
		return true
	}
	return false
}

var (
	// ErrMutationRejected is returned when the host refuses a write.
	ErrMutationRejected = errors.New("mutation rejected")

	// ErrInvalidStructure is returned for illegal insert/remove requests.
	ErrInvalidStructure = errors.New("invalid scene structure")
)

// Node is a single scene-graph node.
type Node struct {
	id       int
	typ      NodeType
	graph    *Graph
	parent   *Node
	children []*Node
	entity   *Entity
}

// ID returns the node's graph-unique identifier. The root is always 0.
func (n *Node) ID() int { return n.id }

// Type returns the node type tag.
func (n *Node) Type() NodeType { return n.typ }

// Parent returns the parent node, nil for the root or a detached node.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether n is its graph's root.
func (n *Node) IsRoot() bool { return n.graph != nil && n.graph.root == n }

// Entity returns the entity carried by an entity node, or nil.
func (n *Node) Entity() *Entity { return n.entity }

// Children returns a copy of the node's children in order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int { return len(n.children) }

func (n *Node) String() string {
	if n.entity != nil {
		return fmt.Sprintf("%s#%d(%s)", n.typ, n.id, n.entity.Classname())
	}
	return fmt.Sprintf("%s#%d", n.typ, n.id)
}

// Graph owns the nodes of one editing session.
type Graph struct {
	root   *Node
	nextID int
	undo   *UndoSystem
}

// NewGraph returns a graph holding only its root node.
func NewGraph() *Graph {
	g := &Graph{undo: NewUndoSystem(DefaultUndoLevels)}
	g.root = &Node{id: 0, typ: TypeRoot, graph: g}
	g.nextID = 1
	return g
}

// Root returns the traversal entry point.
func (g *Graph) Root() *Node { return g.root }

// UndoSystem returns the journal recording entity key/value changes.
func (g *Graph) UndoSystem() *UndoSystem { return g.undo }

// NewNode creates a detached node of type t. Use Insert to attach it.
func (g *Graph) NewNode(t NodeType) (*Node, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: node type %q", ErrInvalidStructure, t)
	}
	n := &Node{id: g.nextID, typ: t, graph: g}
	g.nextID++
	if t == TypeEntity {
		n.entity = newEntity(n)
	}
	return n, nil
}

// NewEntity creates a detached entity node with the given classname.
// The initial classname is not recorded in the undo journal.
func (g *Graph) NewEntity(classname string) *Node {
	n, _ := g.NewNode(TypeEntity)
	n.entity.apply("classname", classname)
	return n
}

// Insert appends child to parent's children.
func (g *Graph) Insert(parent, child *Node) error {
	switch {
	case parent == nil || child == nil:
		return fmt.Errorf("%w: nil node", ErrInvalidStructure)
	case parent.graph != g || child.graph != g:
		return fmt.Errorf("%w: node belongs to another graph", ErrInvalidStructure)
	case child == g.root:
		return fmt.Errorf("%w: root cannot be re-parented", ErrInvalidStructure)
	case child.parent != nil:
		return fmt.Errorf("%w: %s already has a parent", ErrInvalidStructure, child)
	}
	// child is detached, so only a parent inside its own subtree closes a loop.
	if parent == child || (len(child.children) != 0 && child.isAncestorOf(parent)) {
		return fmt.Errorf("%w: inserting %s under %s creates a cycle", ErrInvalidStructure, child, parent)
	}
	child.parent = parent
	parent.children = append(parent.children, child)
	return nil
}

func (n *Node) isAncestorOf(m *Node) bool {
	for p := m.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Remove detaches n, together with its subtree, from its parent.
func (g *Graph) Remove(n *Node) error {
	if n == nil || n.graph != g {
		return fmt.Errorf("%w: node belongs to another graph", ErrInvalidStructure)
	}
	if n == g.root {
		return fmt.Errorf("%w: root cannot be removed", ErrInvalidStructure)
	}
	p := n.parent
	if p == nil {
		return nil
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
	return nil
}

// FindEntityByClassname returns the first entity, in depth-first pre-order,
// whose classname equals classname, or nil.
func (g *Graph) FindEntityByClassname(classname string) *Entity {
	var found *Entity
	g.root.Traverse(VisitorFunc(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.entity != nil && n.entity.Classname() == classname {
			found = n.entity
			return false
		}
		return true
	}))
	return found
}

// FindEntities returns every entity with the given classname in traversal order.
func (g *Graph) FindEntities(classname string) []*Entity {
	var out []*Entity
	g.root.Traverse(VisitorFunc(func(n *Node) bool {
		if n.entity != nil && n.entity.Classname() == classname {
			out = append(out, n.entity)
		}
		return true
	}))
	return out
}
