package move

import "github.com/jward/movefcg/syntax"

// node is a concrete syntax tree node built by the parser. Parent links,
// sibling indexes and error propagation are filled in by link once the tree
// is complete.
type node struct {
	kind     string
	start    uint32
	end      uint32
	children []*node
	parent   *node
	index    int
	err      bool
	hasError bool
}

var _ syntax.Node = (*node)(nil)

func (n *node) add(c *node) {
	if c != nil {
		n.children = append(n.children, c)
	}
}

func (n *node) Kind() string      { return n.kind }
func (n *node) StartByte() uint32 { return n.start }
func (n *node) EndByte() uint32   { return n.end }
func (n *node) ChildCount() int   { return len(n.children) }
func (n *node) HasError() bool    { return n.hasError }

func (n *node) Child(i int) syntax.Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *node) Parent() syntax.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) PrevSibling() syntax.Node {
	if n.parent == nil || n.index == 0 {
		return nil
	}
	return n.parent.children[n.index-1]
}

func (n *node) NextSibling() syntax.Node {
	if n.parent == nil || n.index+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[n.index+1]
}

// link sets parent pointers and sibling indexes and reports whether n or a
// descendant is marked as an error.
func link(n *node) bool {
	n.hasError = n.err
	for i, c := range n.children {
		c.parent = n
		c.index = i
		if link(c) {
			n.hasError = true
		}
	}
	return n.hasError
}
