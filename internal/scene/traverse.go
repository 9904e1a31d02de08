package scene

// Visitor is called for each node of a depth-first, pre-order walk. Pre runs
// before the node's children are visited; returning false prunes them.
type Visitor interface {
	Pre(n *Node) bool
}

// PostVisitor may be implemented by a Visitor to be called after a node's
// children have been visited. Post is not called for nodes skipped because an
// ancestor was pruned; it is called for a node whose own Pre returned false.
type PostVisitor interface {
	Post(n *Node)
}

// ErrVisitor is a Visitor that can abort the walk. A non-nil error stops the
// traversal immediately and is returned from TraverseErr.
type ErrVisitor interface {
	Pre(n *Node) (bool, error)
}

// ErrPostVisitor is the fallible counterpart of PostVisitor.
type ErrPostVisitor interface {
	Post(n *Node) error
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(n *Node) bool

// Pre calls f(n).
func (f VisitorFunc) Pre(n *Node) bool { return f(n) }

// Traverse walks the subtree rooted at n.
func (n *Node) Traverse(v Visitor) {
	if p, ok := v.(PostVisitor); ok {
		_ = n.TraverseErr(postVisitorAdapter{visitorAdapter{v}, p})
		return
	}
	_ = n.TraverseErr(visitorAdapter{v})
}

// TraverseErr walks the subtree rooted at n, stopping at the first error.
//
// The walk uses an explicit stack, so deep graphs do not grow the goroutine
// stack. Children are snapshotted when their parent is expanded.
func (n *Node) TraverseErr(v ErrVisitor) error {
	post, _ := v.(ErrPostVisitor)
	return walk(n, func(node *Node, _ int) (bool, error) {
		return v.Pre(node)
	}, post)
}

type frame struct {
	node  *Node
	depth int
	post  bool
}

// walk is the shared traversal loop; pre receives the depth relative to start.
func walk(start *Node, pre func(n *Node, depth int) (bool, error), post ErrPostVisitor) error {
	stack := []frame{{node: start}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.post {
			if err := post.Post(f.node); err != nil {
				return err
			}
			continue
		}

		descend, err := pre(f.node, f.depth)
		if err != nil {
			return err
		}
		if post != nil {
			stack = append(stack, frame{node: f.node, depth: f.depth, post: true})
		}
		if !descend {
			continue
		}
		children := f.node.children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: f.depth + 1})
		}
	}
	return nil
}

type visitorAdapter struct {
	v Visitor
}

func (a visitorAdapter) Pre(n *Node) (bool, error) { return a.v.Pre(n), nil }

type postVisitorAdapter struct {
	visitorAdapter
	p PostVisitor
}

func (a postVisitorAdapter) Post(n *Node) error {
	a.p.Post(n)
	return nil
}
