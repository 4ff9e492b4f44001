// Package treesitter adapts smacker/go-tree-sitter trees to syntax.Node so a
// tree-sitter grammar emitting the Move node kinds (module_definition,
// function_definition, call_expr, ...) can replace the built-in parser:
//
//	e := movefcg.New(movefcg.WithParser(func() syntax.Parser {
//		return treesitter.NewParser(lang)
//	}))
package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/movefcg/syntax"
)

// Parser parses with a tree-sitter language. Not safe for concurrent use.
type Parser struct {
	lang   *sitter.Language
	parser *sitter.Parser
}

var _ syntax.Parser = (*Parser)(nil)

// NewParser creates a Parser for lang.
func NewParser(lang *sitter.Language) *Parser {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	return &Parser{lang: lang, parser: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

func (p *Parser) Parse(ctx context.Context, src []byte) (*syntax.Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("treesitter: parse: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("treesitter: parse: %w: empty tree", syntax.ErrSyntax)
	}
	return &syntax.Tree{Root: Wrap(root), Source: src}, nil
}

// node wraps *sitter.Node. Only named nodes are exposed: punctuation,
// keywords and terminators are skipped by children and siblings alike, as
// in the trees built by the Move parser.
type node struct {
	n *sitter.Node
}

// Wrap converts a tree-sitter node, returning nil for a nil node.
func Wrap(n *sitter.Node) syntax.Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return node{n: n}
}

func (w node) Kind() string             { return w.n.Type() }
func (w node) StartByte() uint32        { return w.n.StartByte() }
func (w node) EndByte() uint32          { return w.n.EndByte() }
func (w node) ChildCount() int          { return int(w.n.NamedChildCount()) }
func (w node) Child(i int) syntax.Node  { return Wrap(w.n.NamedChild(i)) }
func (w node) Parent() syntax.Node      { return Wrap(w.n.Parent()) }
func (w node) PrevSibling() syntax.Node { return Wrap(w.n.PrevNamedSibling()) }
func (w node) NextSibling() syntax.Node { return Wrap(w.n.NextNamedSibling()) }
func (w node) HasError() bool           { return w.n.HasError() }
