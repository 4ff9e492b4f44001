// Package extract turns one parsed Move file into module and function
// records.
//
// Traversal carries an explicit scope (enclosing address and module) by
// value, so an Extract call shares no state with any other and files can be
// extracted in parallel. Visibility, modifiers and attributes are collected
// in a single forward pass over each container's children and attach to the
// next declaration in source order; any other declaration discards them.
package extract

import (
	"strconv"
	"strings"

	"github.com/jward/movefcg/internal/model"
	"github.com/jward/movefcg/syntax"
)

// Result holds the records found in one file. Modules carry their structs,
// constants, uses and friends but not their functions; the index builder
// attaches Functions by matching module identity.
type Result struct {
	File      string
	Modules   []*model.ModuleRecord
	Functions []*model.FunctionRecord
}

// scope is the declaration context of a node. module is nil outside any
// module definition.
type scope struct {
	address string
	module  *model.ModuleRecord
}

type extractor struct {
	tree    *syntax.Tree
	res     *Result
	ordinal int
}

// Extract walks tree and returns the records it declares. Structurally
// incomplete declarations yield partial records; a function or module whose
// name could not be read has an empty Name and is dropped by the index
// builder.
func Extract(tree *syntax.Tree, file string) *Result {
	x := &extractor{tree: tree, res: &Result{File: file}}
	if tree != nil && tree.Root != nil {
		x.members(tree.Root, scope{})
	}
	return x.res
}

func (x *extractor) text(n syntax.Node) string {
	return strings.TrimSpace(x.tree.Text(n))
}

func (x *extractor) span(start, end syntax.Node) model.SourceSpan {
	src := x.tree.Source
	s, e := start.StartByte(), end.EndByte()
	return model.SourceSpan{
		File:      x.res.File,
		StartLine: syntax.LineAt(src, s),
		EndLine:   syntax.LineAt(src, e),
		Text:      string(src[s:e]),
	}
}

// members runs the forward pass over the children of a container node.
func (x *extractor) members(n syntax.Node, sc scope) {
	var pending []syntax.Node
	for _, c := range syntax.Children(n) {
		if isAnnotation(c.Kind()) {
			pending = append(pending, c)
			continue
		}
		switch c.Kind() {
		case "function_definition":
			x.function(c, sc, pending)
		case "module_definition":
			x.module(c, sc)
		case "address_block":
			x.members(c, scope{address: x.text(syntax.FirstChild(c, "identifier", "num_literal"))})
		case "struct_definition":
			x.structDef(c, sc, pending)
		case "constant":
			x.constant(c, sc)
		case "use_declaration":
			x.use(c, sc)
		case "friend_declaration":
			if sc.module != nil {
				if chain := syntax.FirstChild(c, "name_access_chain"); chain != nil {
					sc.module.Friends = append(sc.module.Friends, x.text(chain))
				}
			}
		case "script_block", "spec_block", "enum_definition", "ERROR":
		default:
			continue
		}
		pending = nil
	}
}

func (x *extractor) module(n syntax.Node, sc scope) {
	id := x.identity(n, sc.address)
	mod := &model.ModuleRecord{
		Identity: id,
		File:     x.res.File,
		Span:     x.span(n, n),
	}
	x.res.Modules = append(x.res.Modules, mod)

	body := syntax.FirstChild(n, "module_body")
	if body == nil {
		body = n
	}
	x.members(body, scope{address: id.Address, module: mod})
}

// identity reads `address::name` or `name` from a module definition. The
// address of an enclosing address block applies when the identity has none.
func (x *extractor) identity(n syntax.Node, outer string) model.ModuleIdentity {
	src := syntax.FirstChild(n, "module_identity")
	if src == nil {
		src = n
	}
	var segs []string
	for _, c := range syntax.Children(src) {
		switch c.Kind() {
		case "identifier", "num_literal", "address":
			segs = append(segs, x.text(c))
		}
	}
	switch len(segs) {
	case 0:
		return model.ModuleIdentity{Address: outer}
	case 1:
		return model.ModuleIdentity{Address: outer, Name: segs[0]}
	default:
		return model.ModuleIdentity{Address: segs[0], Name: segs[len(segs)-1]}
	}
}

// annotations holds what pending annotation nodes say about a declaration.
type annotations struct {
	visibility model.Visibility
	modifiers  []model.Modifier
	attributes []string
	// first is the earliest visibility or modifier node; spans start there.
	first syntax.Node
}

func isAnnotation(kind string) bool {
	switch kind {
	case "visibility", "modifier", "attributes", "public", "entry", "native", "inline":
		return true
	}
	return false
}

func (x *extractor) annotate(nodes []syntax.Node) annotations {
	var a annotations
	for _, n := range nodes {
		switch n.Kind() {
		case "attributes":
			for _, attr := range syntax.ChildrenOf(n, "attribute") {
				a.attributes = append(a.attributes, x.text(attr))
			}
			continue
		case "visibility", "public":
			a.visibility = model.ParseVisibility(x.text(n))
		case "modifier", "entry", "native", "inline":
			m := x.text(n)
			if !model.IsModifier(m) {
				continue
			}
			a.modifiers = appendModifier(a.modifiers, model.Modifier(m))
		default:
			continue
		}
		if a.first == nil {
			a.first = n
		}
	}
	return a
}

func appendModifier(mods []model.Modifier, m model.Modifier) []model.Modifier {
	for _, have := range mods {
		if have == m {
			return mods
		}
	}
	return append(mods, m)
}

func (x *extractor) function(n syntax.Node, sc scope, pending []syntax.Node) {
	if sc.module == nil {
		return
	}
	// Grammars that nest annotations inside the declaration are handled the
	// same way as preceding siblings.
	nodes := append([]syntax.Node(nil), pending...)
	for _, c := range syntax.Children(n) {
		if isAnnotation(c.Kind()) {
			nodes = append(nodes, c)
		}
	}
	a := x.annotate(nodes)

	start := n
	if a.first != nil && a.first.StartByte() < n.StartByte() {
		start = a.first
	}

	fn := &model.FunctionRecord{
		Module:     sc.module.Identity,
		Name:       x.text(syntax.FirstChild(n, "identifier")),
		Visibility: a.visibility,
		Modifiers:  a.modifiers,
		Attributes: a.attributes,
		TypeParams: x.text(syntax.FirstChild(n, "type_parameters")),
		Parameters: x.parameters(syntax.FirstChild(n, "function_parameters")),
		ReturnType: strings.TrimSpace(strings.TrimPrefix(x.text(syntax.FirstChild(n, "ret_type")), ":")),
		Span:       x.span(start, n),
		Ordinal:    x.ordinal,
	}
	if acq := syntax.FirstChild(n, "acquires"); acq != nil {
		for _, c := range syntax.ChildrenOf(acq, "name_access_chain") {
			fn.Acquires = append(fn.Acquires, x.text(c))
		}
	}
	x.ordinal++
	x.res.Functions = append(x.res.Functions, fn)
}

func (x *extractor) parameters(n syntax.Node) []model.Parameter {
	var params []model.Parameter
	for _, p := range syntax.ChildrenOf(n, "function_parameter") {
		name := x.text(syntax.FirstChild(p, "identifier"))
		if name == "" {
			continue
		}
		params = append(params, model.Parameter{Name: name, Type: x.typeOf(p)})
	}
	return params
}

// typeOf returns the text of n's type child, or the text after the first
// colon when the grammar does not wrap the type in its own node.
func (x *extractor) typeOf(n syntax.Node) string {
	if t := syntax.FirstChild(n, "type"); t != nil {
		return x.text(t)
	}
	_, after, ok := strings.Cut(x.text(n), ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(after)
}

func (x *extractor) structDef(n syntax.Node, sc scope, pending []syntax.Node) {
	if sc.module == nil {
		return
	}
	a := x.annotate(pending)
	start := n
	if a.first != nil && a.first.StartByte() < n.StartByte() {
		start = a.first
	}
	st := &model.StructRecord{
		Module:     sc.module.Identity,
		Name:       x.text(syntax.FirstChild(n, "identifier")),
		TypeParams: x.text(syntax.FirstChild(n, "type_parameters")),
		Span:       x.span(start, n),
	}
	for _, ab := range syntax.ChildrenOf(n, "ability_decls") {
		for _, c := range syntax.ChildrenOf(ab, "ability") {
			st.Abilities = append(st.Abilities, x.text(c))
		}
	}
	if fields := syntax.FirstChild(n, "struct_fields"); fields != nil {
		for _, f := range syntax.ChildrenOf(fields, "field_annotation") {
			st.Fields = append(st.Fields, model.Field{
				Name: x.text(syntax.FirstChild(f, "identifier")),
				Type: x.typeOf(f),
			})
		}
	}
	if pos := syntax.FirstChild(n, "positional_fields"); pos != nil {
		for i, ty := range syntax.ChildrenOf(pos, "type") {
			st.Fields = append(st.Fields, model.Field{Name: strconv.Itoa(i), Type: x.text(ty)})
		}
	}
	if st.Name != "" {
		sc.module.Structs = append(sc.module.Structs, st)
	}
}

func (x *extractor) constant(n syntax.Node, sc scope) {
	if sc.module == nil {
		return
	}
	c := &model.ConstantRecord{
		Module: sc.module.Identity,
		Name:   x.text(syntax.FirstChild(n, "identifier")),
		Type:   x.text(syntax.FirstChild(n, "type")),
		Value:  x.text(syntax.FirstChild(n, "value")),
		Span:   x.span(n, n),
	}
	if c.Name != "" {
		sc.module.Constants = append(sc.module.Constants, c)
	}
}
