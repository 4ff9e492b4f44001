package move

// Function bodies are parsed as flat sequences of primary expressions with
// their postfix chains. Operators are consumed without producing nodes.
// Calls become call_expr (path call), receiver_call (x.f()) and
// macro_call_expr (assert!(..)), each holding an arg_list that is searched
// like any other sequence.

// keywords that are consumed without producing a node inside bodies.
var exprKeywords = map[string]bool{
	"if": true, "else": true, "while": true, "loop": true, "return": true,
	"abort": true, "break": true, "continue": true, "move": true,
	"copy": true, "mut": true, "as": true, "in": true, "for": true,
	"match": true, "true": true, "false": true,
}

func (p *parser) block() *node {
	n := p.open("block")
	p.next() // {
	p.sequence(n, "}")
	return p.close(n)
}

// sequence parses expressions and statements until closer is consumed. An
// unmatched closer ends the sequence without being consumed.
func (p *parser) sequence(parent *node, closer string) {
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			parent.err = true
			return
		case t.is(closer):
			p.next()
			return
		case isCloser(t):
			parent.err = true
			return
		case t.is(";") || t.is(","):
			p.next()
		case t.is("let"):
			parent.add(p.let())
		case t.is("use") && isAddressToken(p.peekAt(1)):
			parent.add(p.useDecl())
		default:
			parent.add(p.expr())
		}
	}
}

// let parses the binding and optional type annotation of a let statement.
// The initializer is left to the enclosing sequence.
func (p *parser) let() *node {
	n := p.open("let_statement")
	n.add(p.leaf("let"))
	bind := p.open("bind_list")
	depth := 0
	for !p.eof() {
		t := p.peek()
		if depth == 0 && (t.is(":") || t.is("=") || t.is(";") || isCloser(t)) {
			break
		}
		switch {
		case isOpener(t):
			depth++
		case isCloser(t):
			depth--
		}
		if t.kind == tokIdent && t.text != "mut" {
			bind.add(p.leaf("identifier"))
			continue
		}
		p.next()
	}
	n.add(p.close(bind))
	if p.peek().is(":") {
		p.next()
		n.add(p.typeUntil("type", "=", ";"))
	}
	return p.close(n)
}

// expr parses one primary expression with its postfix chain, or consumes a
// single operator or keyword token and returns nil.
func (p *parser) expr() *node {
	t := p.peek()
	var prim *node
	switch {
	case t.is("spec") && p.peekAt(1).is("{"):
		return p.specBlock()
	case t.kind == tokIdent && exprKeywords[t.text]:
		p.next()
		return nil
	case t.kind == tokIdent, t.kind == tokNumber && p.peekAt(1).is("::"):
		prim = p.path()
	case t.kind == tokNumber, t.kind == tokString:
		prim = p.leaf("literal")
	case t.is("@"):
		lit := p.open("address_literal")
		p.next()
		if isAddressToken(p.peek()) {
			p.next()
		}
		prim = p.close(lit)
	case t.is("("):
		prim = p.open("paren_expr")
		p.next()
		p.sequence(prim, ")")
		p.close(prim)
	case t.is("{"):
		prim = p.block()
	case t.is("["):
		prim = p.open("vector_expr")
		p.next()
		p.sequence(prim, "]")
		p.close(prim)
	case t.is("'"):
		// loop label
		p.next()
		if p.peek().kind == tokIdent {
			p.next()
		}
		return nil
	default:
		p.next()
		return nil
	}
	return p.postfix(prim)
}

// path parses a name access chain and what follows it: a macro call, a call
// with optional type arguments, a struct pack, or a plain name.
func (p *parser) path() *node {
	chain := p.accessChain()
	if p.peek().is("!") && p.peekAt(1).is("(") {
		m := &node{kind: "macro_call_expr", start: chain.start}
		m.add(chain)
		p.next()
		m.add(p.args())
		return p.close(m)
	}
	var targs *node
	if p.peek().is("<") {
		if end, ok := p.scanTypeArgs(); ok {
			follow := p.toks[end]
			if follow.is("(") || follow.is("{") {
				targs = p.typeArgsTo(end)
			}
		}
	}
	switch {
	case p.peek().is("("):
		c := &node{kind: "call_expr", start: chain.start}
		c.add(chain)
		c.add(targs)
		c.add(p.args())
		return p.close(c)
	case p.peek().is("{"):
		pk := &node{kind: "pack_expr", start: chain.start}
		pk.add(chain)
		pk.add(targs)
		fields := p.open("field_list")
		p.next()
		p.sequence(fields, "}")
		pk.add(p.close(fields))
		return p.close(pk)
	}
	n := &node{kind: "name_expr", start: chain.start}
	n.add(chain)
	n.add(targs)
	return p.close(n)
}

func (p *parser) args() *node {
	n := p.open("arg_list")
	p.next() // (
	p.sequence(n, ")")
	return p.close(n)
}

// scanTypeArgs looks ahead from a '<' for a balanced type argument list made
// only of type tokens. It returns the index of the token after the closing
// '>'. A comparison such as `a < b && c > d` or `n < 3, n > (4)` fails
// the scan.
func (p *parser) scanTypeArgs() (int, bool) {
	depth := 0
	for i := p.pos; i < len(p.toks) && i-p.pos < 128; i++ {
		t := p.toks[i]
		switch {
		case t.is("<"):
			depth++
		case t.is(">"):
			depth--
			if depth == 0 {
				return i + 1, i+1 < len(p.toks)
			}
		case t.kind == tokIdent:
		case t.kind == tokNumber:
			// only as the address of a path, as in 0x1::coin::Coin
			if i+1 >= len(p.toks) || !p.toks[i+1].is("::") {
				return 0, false
			}
		case t.is("::"), t.is(","), t.is("&"):
		default:
			return 0, false
		}
	}
	return 0, false
}

func (p *parser) typeArgsTo(end int) *node {
	n := p.open("type_arguments")
	for p.pos < end && !p.eof() {
		p.next()
	}
	return p.close(n)
}

// postfix wraps prim in field accesses, receiver calls and index
// expressions.
func (p *parser) postfix(prim *node) *node {
	for {
		switch {
		case p.peek().is(".") && p.peekAt(1).kind == tokIdent:
			p.next()
			name := p.leaf("identifier")
			var targs *node
			if p.peek().is("<") {
				if end, ok := p.scanTypeArgs(); ok && p.toks[end].is("(") {
					targs = p.typeArgsTo(end)
				}
			}
			if p.peek().is("(") {
				rc := &node{kind: "receiver_call", start: prim.start}
				rc.add(prim)
				rc.add(name)
				rc.add(targs)
				rc.add(p.args())
				prim = p.close(rc)
				continue
			}
			d := &node{kind: "dot_expr", start: prim.start}
			d.add(prim)
			d.add(name)
			prim = p.close(d)
		case p.peek().is(".") && p.peekAt(1).kind == tokNumber:
			p.next()
			d := &node{kind: "dot_expr", start: prim.start}
			d.add(prim)
			d.add(p.leaf("literal"))
			prim = p.close(d)
		case p.peek().is("["):
			idx := &node{kind: "index_expr", start: prim.start}
			idx.add(prim)
			p.next()
			p.sequence(idx, "]")
			prim = p.close(idx)
		default:
			return prim
		}
	}
}
