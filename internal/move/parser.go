// Package move is a fault-tolerant parser for Move source files. It builds a
// concrete syntax tree whose node kinds follow the tree-sitter Move grammar
// (module_definition, function_definition, call_expr, receiver_call, ...)
// closely enough for extraction and call-graph search. Expressions are not
// given operator precedence; only the structure needed to find declarations
// and calls is recovered.
//
// Annotations are emitted the way the tree-sitter grammar does: visibility,
// modifier and attribute nodes are siblings that precede the declaration they
// belong to.
package move

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jward/movefcg/syntax"
)

// Parser implements syntax.Parser. It holds no state and is safe for
// concurrent use.
type Parser struct{}

var _ syntax.Parser = (*Parser)(nil)

func NewParser() *Parser { return &Parser{} }

// Parse builds a tree for src. Malformed constructs become ERROR nodes and
// mark the tree with HasError; only input that is not text fails outright.
func (*Parser) Parse(ctx context.Context, src []byte) (*syntax.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("move: parse: %w: invalid UTF-8", syntax.ErrSyntax)
	}
	p := &parser{toks: lex(src)}
	root := &node{kind: "source_file", start: 0, end: uint32(len(src))}
	p.items(root, "")
	link(root)
	return &syntax.Tree{Root: root, Source: src}, nil
}

type parser struct {
	toks    []token
	pos     int
	lastEnd uint32
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(k int) token {
	if p.pos+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+k]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
		p.lastEnd = t.end
	}
	return t
}

func (p *parser) eof() bool { return p.peek().kind == tokEOF }

// open starts a node at the next token.
func (p *parser) open(kind string) *node {
	return &node{kind: kind, start: p.peek().start}
}

// close ends n at the last consumed token.
func (p *parser) close(n *node) *node {
	n.end = p.lastEnd
	if n.end < n.start {
		n.end = n.start
	}
	return n
}

// leaf consumes one token as a node of the given kind.
func (p *parser) leaf(kind string) *node {
	t := p.next()
	return &node{kind: kind, start: t.start, end: t.end}
}

func isCloser(t token) bool {
	return t.is("}") || t.is(")") || t.is("]")
}

func isOpener(t token) bool {
	return t.is("{") || t.is("(") || t.is("[")
}

// skipBalanced consumes an opener token and everything up to its matching
// closer. It reports false when input ends first.
func (p *parser) skipBalanced() bool {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch {
		case isOpener(t):
			depth++
		case isCloser(t):
			depth--
			if depth <= 0 {
				return true
			}
		}
	}
	return false
}

// items parses module members and top-level declarations until closer is
// consumed, or until end of input when closer is empty.
func (p *parser) items(parent *node, closer string) {
	for {
		t := p.peek()
		if t.kind == tokEOF {
			if closer != "" {
				parent.err = true
			}
			return
		}
		if closer != "" && t.is(closer) {
			p.next()
			return
		}
		switch {
		case t.is("#") && p.peekAt(1).is("["):
			parent.add(p.attributes())
		case t.is("public"):
			parent.add(p.visibility())
		case (t.is("friend") || t.is("package")) && startsFunction(p.peekAt(1)):
			v := p.open("visibility")
			v.add(p.leaf(t.text))
			parent.add(p.close(v))
		case t.is("entry") || t.is("native") || t.is("inline") || t.is("macro"):
			m := p.open("modifier")
			m.add(p.leaf(t.text))
			parent.add(p.close(m))
		case t.is("fun"):
			parent.add(p.function())
		case t.is("struct"):
			parent.add(p.structDef())
		case t.is("enum") && p.peekAt(1).kind == tokIdent:
			parent.add(p.enumDef())
		case t.is("const"):
			parent.add(p.constant())
		case t.is("use"):
			parent.add(p.useDecl())
		case t.is("friend"):
			parent.add(p.friendDecl())
		case t.is("spec"):
			parent.add(p.specBlock())
		case t.is("module"):
			parent.add(p.module())
		case t.is("address") && isAddressToken(p.peekAt(1)) && p.peekAt(2).is("{"):
			parent.add(p.addressBlock())
		case t.is("script") && p.peekAt(1).is("{"):
			parent.add(p.scriptBlock())
		default:
			parent.add(p.recover(closer))
		}
	}
}

func startsFunction(t token) bool {
	return t.is("fun") || t.is("entry") || t.is("native") || t.is("inline")
}

func isAddressToken(t token) bool {
	return t.kind == tokIdent || t.kind == tokNumber
}

var memberStarts = map[string]bool{
	"#": true, "public": true, "entry": true, "native": true, "inline": true,
	"fun": true, "struct": true, "enum": true, "const": true, "use": true,
	"friend": true, "spec": true, "module": true, "address": true,
	"script": true, "macro": true,
}

// recover wraps unexpected tokens in an ERROR node, stopping before the next
// member keyword or the enclosing closer. It always consumes a token.
func (p *parser) recover(closer string) *node {
	n := p.open("ERROR")
	n.err = true
	for first := true; !p.eof(); first = false {
		t := p.peek()
		if !first && (memberStarts[t.text] || (closer != "" && t.is(closer))) {
			break
		}
		if isOpener(t) {
			p.skipBalanced()
			continue
		}
		p.next()
	}
	return p.close(n)
}

func (p *parser) attributes() *node {
	n := p.open("attributes")
	p.next() // #
	p.next() // [
	for !p.eof() {
		if p.peek().is("]") {
			p.next()
			return p.close(n)
		}
		if p.peek().is(",") {
			p.next()
			continue
		}
		a := p.open("attribute")
		for !p.eof() && !p.peek().is(",") && !p.peek().is("]") {
			if isOpener(p.peek()) {
				p.skipBalanced()
				continue
			}
			p.next()
		}
		n.add(p.close(a))
	}
	n.err = true
	return p.close(n)
}

func (p *parser) visibility() *node {
	n := p.open("visibility")
	n.add(p.leaf("public"))
	if p.peek().is("(") && p.peekAt(1).kind == tokIdent && p.peekAt(2).is(")") {
		p.next()
		p.next()
		p.next()
	}
	return p.close(n)
}

func (p *parser) identifier(parent *node) bool {
	if p.peek().kind != tokIdent {
		parent.err = true
		return false
	}
	parent.add(p.leaf("identifier"))
	return true
}

func (p *parser) function() *node {
	n := p.open("function_definition")
	n.add(p.leaf("fun"))
	p.identifier(n)
	if p.peek().is("<") {
		n.add(p.typeParams())
	}
	if p.peek().is("(") {
		n.add(p.parameters())
	} else {
		n.err = true
	}
	if p.peek().is(":") {
		p.next()
		n.add(p.typeUntil("ret_type", "acquires", "{", ";"))
	}
	if p.peek().is("acquires") {
		n.add(p.acquires())
	}
	switch {
	case p.peek().is("{"):
		n.add(p.block())
	case p.peek().is(";"):
		p.next()
	default:
		n.err = true
	}
	return p.close(n)
}

// typeParams consumes a balanced <...> list.
func (p *parser) typeParams() *node {
	n := p.open("type_parameters")
	depth := 0
	for !p.eof() {
		t := p.next()
		if t.is("<") {
			depth++
		} else if t.is(">") {
			depth--
			if depth == 0 {
				return p.close(n)
			}
		}
	}
	n.err = true
	return p.close(n)
}

func (p *parser) parameters() *node {
	n := p.open("function_parameters")
	p.next() // (
	for {
		t := p.peek()
		if t.kind == tokEOF {
			n.err = true
			break
		}
		if t.is(")") {
			p.next()
			break
		}
		if t.is(",") {
			p.next()
			continue
		}
		start := p.pos
		param := p.open("function_parameter")
		if p.peek().is("mut") && p.peekAt(1).kind == tokIdent {
			param.add(p.leaf("mut"))
		}
		p.identifier(param)
		if p.peek().is(":") {
			p.next()
			param.add(p.typeUntil("type", ",", ")"))
		} else {
			param.err = true
		}
		if p.pos == start {
			if isCloser(p.peek()) {
				n.err = true
				break
			}
			p.next()
		}
		n.add(p.close(param))
	}
	return p.close(n)
}

// typeUntil consumes a type expression up to one of the stop tokens at
// nesting depth zero, or an unmatched closer. It returns nil when the type
// is empty.
func (p *parser) typeUntil(kind string, stops ...string) *node {
	return p.until(kind, true, stops)
}

// until consumes tokens into a node of the given kind. Angle brackets and
// closure pipes only nest when types is set, so comparisons in value
// expressions do not swallow the terminator.
func (p *parser) until(kind string, types bool, stops []string) *node {
	n := p.open(kind)
	start := p.pos
	depth := 0
	inPipe := false
	for !p.eof() {
		t := p.peek()
		if depth == 0 && !inPipe {
			if isCloser(t) || (types && t.is(">")) {
				break
			}
			stop := false
			for _, s := range stops {
				if t.is(s) {
					stop = true
					break
				}
			}
			if stop {
				break
			}
		}
		switch {
		case types && t.is("|"):
			inPipe = !inPipe
		case isOpener(t) || (types && t.is("<")):
			depth++
		case isCloser(t) || (types && t.is(">")):
			depth--
		}
		p.next()
	}
	if p.pos == start {
		return nil
	}
	return p.close(n)
}

func (p *parser) acquires() *node {
	n := p.open("acquires")
	p.next()
	for !p.eof() && !p.peek().is("{") && !p.peek().is(";") {
		if p.peek().is(",") {
			p.next()
			continue
		}
		if !isAddressToken(p.peek()) {
			n.err = true
			break
		}
		n.add(p.accessChain())
		if p.peek().is("<") {
			p.typeParams()
		}
	}
	return p.close(n)
}

// accessChain parses a::b::c. The first segment may be a numeric address.
func (p *parser) accessChain() *node {
	n := p.open("name_access_chain")
	p.segment(n)
	for p.peek().is("::") && isAddressToken(p.peekAt(1)) {
		p.next()
		p.segment(n)
	}
	return p.close(n)
}

func (p *parser) segment(parent *node) {
	if p.peek().kind == tokNumber {
		parent.add(p.leaf("num_literal"))
		return
	}
	parent.add(p.leaf("identifier"))
}

func (p *parser) structDef() *node {
	n := p.open("struct_definition")
	n.add(p.leaf("struct"))
	p.identifier(n)
	if p.peek().is("<") {
		n.add(p.typeParams())
	}
	if p.peek().is("has") {
		n.add(p.abilities())
	}
	switch {
	case p.peek().is("{"):
		n.add(p.fields())
	case p.peek().is("("):
		n.add(p.positionalFields())
	}
	if p.peek().is("has") {
		n.add(p.abilities())
	}
	if p.peek().is(";") {
		p.next()
	}
	return p.close(n)
}

func (p *parser) abilities() *node {
	n := p.open("ability_decls")
	p.next() // has
	for p.peek().kind == tokIdent {
		n.add(p.leaf("ability"))
		if !p.peek().is(",") {
			break
		}
		p.next()
	}
	return p.close(n)
}

func (p *parser) fields() *node {
	n := p.open("struct_fields")
	p.next() // {
	for {
		t := p.peek()
		if t.kind == tokEOF {
			n.err = true
			break
		}
		if t.is("}") {
			p.next()
			break
		}
		if t.is(",") {
			p.next()
			continue
		}
		start := p.pos
		f := p.open("field_annotation")
		p.identifier(f)
		if p.peek().is(":") {
			p.next()
			f.add(p.typeUntil("type", ","))
		} else {
			f.err = true
		}
		if p.pos == start {
			p.next()
		}
		n.add(p.close(f))
	}
	return p.close(n)
}

func (p *parser) positionalFields() *node {
	n := p.open("positional_fields")
	p.next() // (
	for {
		t := p.peek()
		if t.kind == tokEOF {
			n.err = true
			break
		}
		if t.is(")") {
			p.next()
			break
		}
		if t.is(",") {
			p.next()
			continue
		}
		if ty := p.typeUntil("type", ","); ty != nil {
			n.add(ty)
		} else {
			p.next()
			n.err = true
		}
	}
	return p.close(n)
}

func (p *parser) enumDef() *node {
	n := p.open("enum_definition")
	n.add(p.leaf("enum"))
	p.identifier(n)
	for !p.eof() && !p.peek().is("{") && !p.peek().is("}") {
		p.next()
	}
	if p.peek().is("{") && !p.skipBalanced() {
		n.err = true
	}
	return p.close(n)
}

func (p *parser) constant() *node {
	n := p.open("constant")
	n.add(p.leaf("const"))
	p.identifier(n)
	if p.peek().is(":") {
		p.next()
		n.add(p.typeUntil("type", "=", ";"))
	}
	if p.peek().is("=") {
		p.next()
		n.add(p.until("value", false, []string{";"}))
	}
	if p.peek().is(";") {
		p.next()
	} else {
		n.err = true
	}
	return p.close(n)
}

// useDecl parses `use` trees:
//
//	use std::vector;
//	use aptos_framework::coin::{Self, Coin as C};
//	use 0x1::{a, b::{Self}};
//
// Each use_tree carries its path segments, an optional use_alias and an
// optional use_group of nested trees. `use fun` method aliases are kept as
// an empty use_declaration.
func (p *parser) useDecl() *node {
	n := p.open("use_declaration")
	n.add(p.leaf("use"))
	if p.peek().is("fun") {
		for !p.eof() && !p.peek().is(";") && !p.peek().is("}") {
			p.next()
		}
	} else {
		n.add(p.useTree())
	}
	if p.peek().is(";") {
		p.next()
	} else {
		n.err = true
	}
	return p.close(n)
}

func (p *parser) useTree() *node {
	n := p.open("use_tree")
	if !isAddressToken(p.peek()) {
		n.err = true
		return p.close(n)
	}
	p.segment(n)
	for p.peek().is("::") {
		p.next()
		if p.peek().is("{") {
			n.add(p.useGroup())
			return p.close(n)
		}
		if !isAddressToken(p.peek()) {
			n.err = true
			return p.close(n)
		}
		p.segment(n)
	}
	if p.peek().is("as") {
		a := p.open("use_alias")
		p.next()
		p.identifier(a)
		n.add(p.close(a))
	}
	return p.close(n)
}

func (p *parser) useGroup() *node {
	n := p.open("use_group")
	p.next() // {
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			n.err = true
			return p.close(n)
		case t.is("}"):
			p.next()
			return p.close(n)
		case t.is(","):
			p.next()
		case isAddressToken(t):
			n.add(p.useTree())
		default:
			n.err = true
			p.next()
		}
	}
}

func (p *parser) friendDecl() *node {
	n := p.open("friend_declaration")
	n.add(p.leaf("friend"))
	if isAddressToken(p.peek()) {
		n.add(p.accessChain())
	} else {
		n.err = true
	}
	if p.peek().is(";") {
		p.next()
	} else {
		n.err = true
	}
	return p.close(n)
}

// specBlock skips a specification block: the target up to `{` followed by
// the balanced body, or a single `spec ...;` statement.
func (p *parser) specBlock() *node {
	n := p.open("spec_block")
	p.next()
	for !p.eof() {
		t := p.peek()
		if t.is(";") {
			p.next()
			break
		}
		if t.is("{") {
			if !p.skipBalanced() {
				n.err = true
			}
			break
		}
		if isCloser(t) {
			n.err = true
			break
		}
		p.next()
	}
	return p.close(n)
}

// module parses `module [addr::]name { ... }` and the file-level form
// `module addr::name;` whose members run to end of input.
func (p *parser) module() *node {
	n := p.open("module_definition")
	n.add(p.leaf("module"))
	id := p.open("module_identity")
	if isAddressToken(p.peek()) {
		p.segment(id)
		for p.peek().is("::") && isAddressToken(p.peekAt(1)) {
			p.next()
			p.segment(id)
		}
	} else {
		id.err = true
	}
	n.add(p.close(id))
	switch {
	case p.peek().is("{"):
		body := p.open("module_body")
		p.next()
		p.items(body, "}")
		n.add(p.close(body))
	case p.peek().is(";"):
		p.next()
		body := p.open("module_body")
		p.items(body, "")
		n.add(p.close(body))
	default:
		n.err = true
	}
	return p.close(n)
}

func (p *parser) addressBlock() *node {
	n := p.open("address_block")
	n.add(p.leaf("address"))
	p.segment(n)
	p.next() // {
	p.items(n, "}")
	return p.close(n)
}

func (p *parser) scriptBlock() *node {
	n := p.open("script_block")
	n.add(p.leaf("script"))
	p.next() // {
	p.items(n, "}")
	return p.close(n)
}
