package movefcg

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jward/movefcg/internal/extract"
	"github.com/jward/movefcg/syntax"
)

// CallGraph finds and resolves the calls made by indexed functions. Call
// lists are cached per function; the cache lives as long as the index.
type CallGraph struct {
	index     *Index
	resolver  *Resolver
	newParser func() syntax.Parser
	cache     *lru.Cache[string, []CallSite]
}

// NewCallGraph returns a CallGraph over idx. newParser is called once per
// uncached lookup. A cacheSize of zero disables caching.
func NewCallGraph(idx *Index, newParser func() syntax.Parser, cacheSize int) *CallGraph {
	g := &CallGraph{
		index:     idx,
		resolver:  NewResolver(idx, AmbiguityFirst),
		newParser: newParser,
	}
	if cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		g.cache, _ = lru.New[string, []CallSite](cacheSize)
	}
	return g
}

func cacheKey(fn *Function) string {
	return fn.QualifiedName() + "\x00" + fn.Span.File + "\x00" + strconv.Itoa(fn.Ordinal)
}

// Calls returns the calls in fn's body in source order. Unresolvable calls
// are included with an empty File. A function without a body has no calls.
func (g *CallGraph) Calls(ctx context.Context, fn *Function) ([]CallSite, error) {
	key := cacheKey(fn)
	if g.cache != nil {
		if calls, ok := g.cache.Get(key); ok {
			return append([]CallSite{}, calls...), nil
		}
	}

	tree, err := g.newParser().Parse(ctx, []byte(fn.Span.Text))
	if err != nil {
		return nil, fmt.Errorf("movefcg: calls of %s: %w", fn.QualifiedName(), err)
	}

	calls := []CallSite{}
	if body := functionBody(tree.Root); body != nil {
		w := &callWalker{
			graph:  g,
			tree:   tree,
			caller: fn,
			module: g.index.Modules[fn.Module.Key()],
		}
		w.scan(body)
		calls = w.collect(body)
	}

	if g.cache != nil {
		g.cache.Add(key, calls)
	}
	return append([]CallSite{}, calls...), nil
}

// functionBody returns the block of the first function declared in root, or
// nil for a native function.
func functionBody(root syntax.Node) syntax.Node {
	var fn syntax.Node
	syntax.Walk(root, func(n syntax.Node) bool {
		if fn != nil {
			return false
		}
		if n.Kind() == "function_definition" {
			fn = n
			return false
		}
		return true
	})
	return syntax.FirstChild(fn, "block")
}

// binding is a single-name let. It is visible from the let to the end of
// the block that declares it. An untyped let keeps an empty type so it
// shadows bindings and parameters of the same name.
type binding struct {
	name     string
	typ      string
	start    uint32
	blockEnd uint32
}

func (b binding) covers(off uint32) bool { return b.start < off && off < b.blockEnd }

// blockUse is a use declaration inside the body. It applies to the whole
// block that declares it.
type blockUse struct {
	decl       UseDecl
	start, end uint32
}

func (u blockUse) covers(off uint32) bool { return u.start <= off && off < u.end }

type callWalker struct {
	graph  *CallGraph
	tree   *syntax.Tree
	caller *Function
	module *Module
	lets   []binding
	uses   []blockUse
}

// scan records the let bindings and use declarations of body in source
// order, each with the extent of its enclosing block.
func (w *callWalker) scan(body syntax.Node) {
	syntax.Walk(body, func(n syntax.Node) bool {
		switch n.Kind() {
		case "let_statement":
			names := syntax.ChildrenOf(syntax.FirstChild(n, "bind_list"), "identifier")
			if len(names) == 1 {
				w.lets = append(w.lets, binding{
					name:     w.tree.Text(names[0]),
					typ:      w.tree.Text(syntax.FirstChild(n, "type")),
					start:    n.StartByte(),
					blockEnd: enclosingBlock(n, body).EndByte(),
				})
			}
			return false
		case "use_declaration":
			block := enclosingBlock(n, body)
			for _, u := range extract.UseDecls(w.tree, n) {
				w.uses = append(w.uses, blockUse{decl: u, start: block.StartByte(), end: block.EndByte()})
			}
			return false
		}
		return true
	})
}

// enclosingBlock returns the innermost block containing n, or body.
func enclosingBlock(n, body syntax.Node) syntax.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "block" {
			return p
		}
	}
	return body
}

// usesAt returns the use declarations visible at off: those of enclosing
// blocks, innermost first, then the module's.
func (w *callWalker) usesAt(off uint32) []UseDecl {
	var out []UseDecl
	for i := len(w.uses) - 1; i >= 0; i-- {
		if w.uses[i].covers(off) {
			out = append(out, w.uses[i].decl)
		}
	}
	if w.module != nil {
		out = append(out, w.module.Uses...)
	}
	return out
}

type found struct {
	site CallSite
	off  uint32
}

func (w *callWalker) collect(body syntax.Node) []CallSite {
	var sites []found
	syntax.Walk(body, func(n syntax.Node) bool {
		var (
			site CallSite
			off  uint32
			ok   bool
		)
		switch n.Kind() {
		case "call_expr":
			site, off, ok = w.pathCall(n)
		case "receiver_call":
			site, off, ok = w.receiverCall(n)
		}
		if ok {
			site.Line = w.caller.Span.StartLine + w.tree.Line(off) - 1
			sites = append(sites, found{site: site, off: off})
		}
		return true
	})
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].off < sites[j].off })

	out := make([]CallSite, len(sites))
	for i, s := range sites {
		out[i] = s.site
	}
	return out
}

// pathCall handles f(..), m::f(..) and a::m::f(..).
func (w *callWalker) pathCall(n syntax.Node) (CallSite, uint32, bool) {
	chain := syntax.FirstChild(n, "name_access_chain")
	var segs []string
	var last syntax.Node
	for _, c := range syntax.Children(chain) {
		if k := c.Kind(); k == "identifier" || k == "num_literal" {
			segs = append(segs, w.tree.Text(c))
			last = c
		}
	}
	if last == nil {
		return CallSite{}, 0, false
	}
	name := segs[len(segs)-1]
	uses := w.usesAt(n.StartByte())

	if len(segs) == 1 {
		site := CallSite{Type: CallDirect, Function: name, Module: w.caller.Module.Name}
		w.resolve(&site, w.directCandidates(name, uses)...)
		return site, last.StartByte(), true
	}

	path := strings.Join(segs[:len(segs)-1], "::")
	site := CallSite{Type: CallQualified, Function: path + "::" + name, Module: path}
	var cands []string
	if expanded := w.expandModulePath(segs[:len(segs)-1], uses); expanded != path {
		cands = append(cands, expanded+"::"+name)
	}
	cands = append(cands, path+"::"+name)
	w.resolve(&site, cands...)
	return site, last.StartByte(), true
}

// receiverCall handles x.f(..). The receiver's type is only known when x is
// a parameter or a let binding with an explicit type.
func (w *callWalker) receiverCall(n syntax.Node) (CallSite, uint32, bool) {
	method := n.Child(1)
	if method == nil || method.Kind() != "identifier" {
		return CallSite{}, 0, false
	}
	name := w.tree.Text(method)
	site := CallSite{Type: CallReceiver, Function: name}

	typ := w.receiverType(n.Child(0))
	if mod, key := w.typeModule(typ, w.usesAt(n.StartByte())); mod != "" {
		site.Function = mod + "::" + name
		site.Module = mod
		w.resolve(&site, key+"::"+name)
	}
	return site, method.StartByte(), true
}

func (w *callWalker) resolve(site *CallSite, candidates ...string) {
	for _, c := range candidates {
		res, err := w.graph.resolver.Resolve(c)
		if err != nil {
			continue
		}
		site.Module = res.Function.Module.Name
		site.File = res.Function.Span.File
		return
	}
}

// directCandidates lists the qualified names an unqualified call may refer
// to: the caller's module, then imported members, then any function with
// that name.
func (w *callWalker) directCandidates(name string, uses []UseDecl) []string {
	cands := []string{w.caller.Module.Key() + "::" + name}
	for _, u := range uses {
		for _, m := range u.Members {
			if m.Name == name && m.Alias == "" || m.Alias == name {
				cands = append(cands, u.ModuleRef().Key()+"::"+m.Name)
			}
		}
	}
	return append(cands, name)
}

// expandModulePath rewrites the first segment of a written module path
// through the visible imports and Self.
func (w *callWalker) expandModulePath(segs []string, uses []UseDecl) string {
	head, rest := segs[0], segs[1:]
	switch {
	case head == "Self":
		head = w.caller.Module.Key()
	case len(segs) == 1:
		for _, u := range uses {
			if len(u.Members) > 0 || u.Address == "" {
				continue
			}
			if u.Alias == head || u.Alias == "" && u.Module == head {
				head = u.ModuleRef().Key()
				break
			}
		}
	}
	return strings.Join(append([]string{head}, rest...), "::")
}

// receiverType returns the declared type of a receiver that is a plain
// variable, or "" when it cannot be known without inference.
func (w *callWalker) receiverType(recv syntax.Node) string {
	if recv == nil || recv.Kind() != "name_expr" {
		return ""
	}
	ids := syntax.Children(syntax.FirstChild(recv, "name_access_chain"))
	if len(ids) != 1 || ids[0].Kind() != "identifier" {
		return ""
	}
	name := w.tree.Text(ids[0])
	for i := len(w.lets) - 1; i >= 0; i-- {
		b := w.lets[i]
		if b.name == name && b.covers(recv.StartByte()) {
			return b.typ
		}
	}
	for _, p := range w.caller.Parameters {
		if p.Name == name {
			return p.Type
		}
	}
	return ""
}

// typeModule maps a type expression to the module that declares it. It
// returns the module name for display and the key used for resolution.
func (w *callWalker) typeModule(typ string, uses []UseDecl) (string, string) {
	base := baseType(typ)
	if base == "" {
		return "", ""
	}
	if path, _ := splitQualified(base); path != "" {
		segs := strings.Split(path, "::")
		key := w.expandModulePath(segs, uses)
		return segs[len(segs)-1], key
	}
	if base == "vector" {
		return "vector", "vector"
	}
	if w.module != nil && w.module.Struct(base) != nil {
		return w.module.Identity.Name, w.module.Identity.Key()
	}
	for _, u := range uses {
		for _, m := range u.Members {
			if m.Alias == base || m.Alias == "" && m.Name == base {
				return u.Module, u.ModuleRef().Key()
			}
		}
	}
	return "", ""
}

// baseType strips references, mut and type arguments: `&mut Coin<T>` is
// "Coin".
func baseType(typ string) string {
	t := strings.TrimSpace(typ)
	t = strings.TrimPrefix(t, "&")
	t = strings.TrimSpace(t)
	if rest, ok := strings.CutPrefix(t, "mut"); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
		t = strings.TrimSpace(rest)
	}
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	t = strings.Join(strings.Fields(t), "")
	for _, r := range t {
		if !(r == ':' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return ""
		}
	}
	return t
}
