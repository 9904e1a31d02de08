package scene

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// QueryEnv is the environment a node query expression is evaluated against.
//
//	nodeType == "entity" && classname startsWith "light"
//	"origin" in keys && depth <= 2
type QueryEnv struct {
	NodeType   string            `expr:"nodeType"`
	Classname  string            `expr:"classname"`
	Keys       map[string]string `expr:"keys"`
	Depth      int               `expr:"depth"`
	ChildCount int               `expr:"childCount"`
	ID         int               `expr:"id"`
}

// Query is a compiled boolean node predicate.
type Query struct {
	source  string
	program *vm.Program
}

// CompileQuery compiles source into a Query.
func CompileQuery(source string) (*Query, error) {
	program, err := expr.Compile(source,
		expr.Env(QueryEnv{}),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", source, err)
	}
	return &Query{source: source, program: program}, nil
}

// String returns the query source.
func (q *Query) String() string { return q.source }

// Match evaluates the query for n at the given depth.
func (q *Query) Match(n *Node, depth int) (bool, error) {
	env := QueryEnv{
		NodeType:   string(n.typ),
		Depth:      depth,
		ChildCount: len(n.children),
		ID:         n.id,
	}
	if n.entity != nil {
		env.Classname = n.entity.Classname()
		env.Keys = make(map[string]string, len(n.entity.keys))
		for _, kv := range n.entity.keys {
			env.Keys[kv.Key] = kv.Value
		}
	}
	out, err := expr.Run(q.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate query %q on %s: %w", q.source, n, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Find returns every node in the subtree rooted at n, in traversal order,
// for which q matches. Depth is measured from n.
func (n *Node) Find(q *Query) ([]*Node, error) {
	var out []*Node
	err := walk(n, func(node *Node, depth int) (bool, error) {
		ok, err := q.Match(node, depth)
		if err != nil {
			return false, err
		}
		if ok {
			out = append(out, node)
		}
		return true, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}
