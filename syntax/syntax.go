// Package syntax defines the parser capability consumed by extraction:
// concrete syntax trees with node kinds, ordered children, byte offsets and
// sibling navigation. Implementations live in internal/move (built-in Move
// parser) and syntax/treesitter (adapter for tree-sitter grammars).
package syntax

import (
	"context"
	"errors"
)

// Node is one node of a concrete syntax tree. A nil Node is returned where a
// parent, child or sibling does not exist.
type Node interface {
	Kind() string
	StartByte() uint32
	EndByte() uint32
	ChildCount() int
	Child(i int) Node
	Parent() Node
	PrevSibling() Node
	NextSibling() Node
	// HasError reports whether the node or a descendant failed to parse.
	HasError() bool
}

// Tree is a parsed file together with the source it was parsed from.
type Tree struct {
	Root   Node
	Source []byte
}

// Parser turns source text into a Tree. A Parser is not required to be safe
// for concurrent use; callers create one per goroutine.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*Tree, error)
}

// ErrSyntax is wrapped by parsers when the input cannot be parsed.
var ErrSyntax = errors.New("syntax error")

// Text returns the source text covered by n.
func (t *Tree) Text(n Node) string {
	if n == nil {
		return ""
	}
	start, end := int(n.StartByte()), int(n.EndByte())
	if start < 0 || end > len(t.Source) || start > end {
		return ""
	}
	return string(t.Source[start:end])
}

// Line returns the 1-based line containing byte offset off.
func (t *Tree) Line(off uint32) int {
	return LineAt(t.Source, off)
}

// LineAt counts newlines in src before off and returns the 1-based line.
func LineAt(src []byte, off uint32) int {
	end := int(off)
	if end > len(src) {
		end = len(src)
	}
	line := 1
	for _, b := range src[:end] {
		if b == '\n' {
			line++
		}
	}
	return line
}

// Children returns the ordered children of n.
func Children(n Node) []Node {
	if n == nil {
		return nil
	}
	out := make([]Node, 0, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first direct child of n with one of the given kinds.
func FirstChild(n Node, kinds ...string) Node {
	for _, c := range Children(n) {
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

// ChildrenOf returns the direct children of n with the given kind.
func ChildrenOf(n Node, kind string) []Node {
	var out []Node
	for _, c := range Children(n) {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits n and its descendants depth-first in source order. Returning
// false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		Walk(n.Child(i), fn)
	}
}
