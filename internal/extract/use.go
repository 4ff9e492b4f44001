package extract

import (
	"strings"

	"github.com/jward/movefcg/internal/model"
	"github.com/jward/movefcg/syntax"
)

func (x *extractor) use(n syntax.Node, sc scope) {
	if sc.module == nil {
		return
	}
	sc.module.Uses = useDecls(x.tree, n, sc.module.Uses)
}

// UseDecls flattens one use_declaration node, such as a `use` at the top of
// a function body, into UseDecls.
func UseDecls(tree *syntax.Tree, n syntax.Node) []model.UseDecl {
	return useDecls(tree, n, nil)
}

func useDecls(tree *syntax.Tree, n syntax.Node, uses []model.UseDecl) []model.UseDecl {
	for _, t := range syntax.ChildrenOf(n, "use_tree") {
		uses = useTree(tree, t, nil, uses)
	}
	return uses
}

// useTree flattens a nested use tree into UseDecls. A path of two segments
// imports a module; a longer path imports its last segment as a member of
// the module named by the two before it. `Self` imports the module itself.
func useTree(tree *syntax.Tree, n syntax.Node, prefix []string, uses []model.UseDecl) []model.UseDecl {
	path := append([]string(nil), prefix...)
	for _, c := range syntax.Children(n) {
		switch c.Kind() {
		case "identifier", "num_literal":
			path = append(path, strings.TrimSpace(tree.Text(c)))
		}
	}
	if group := syntax.FirstChild(n, "use_group"); group != nil {
		for _, t := range syntax.ChildrenOf(group, "use_tree") {
			uses = useTree(tree, t, path, uses)
		}
		return uses
	}
	alias := ""
	if a := syntax.FirstChild(n, "use_alias"); a != nil {
		alias = strings.TrimSpace(tree.Text(syntax.FirstChild(a, "identifier")))
	}

	switch {
	case len(path) < 2:
		return uses
	case len(path) == 2:
		return appendUse(uses, model.UseDecl{Address: path[0], Module: path[1], Alias: alias})
	case path[len(path)-1] == "Self":
		u := useOf(path[:len(path)-1])
		u.Alias = alias
		return appendUse(uses, u)
	default:
		u := useOf(path[:len(path)-1])
		u.Members = []model.UseMember{{Name: path[len(path)-1], Alias: alias}}
		return appendUse(uses, u)
	}
}

func useOf(path []string) model.UseDecl {
	return model.UseDecl{Address: path[len(path)-2], Module: path[len(path)-1]}
}

// appendUse merges member imports of the same module into one UseDecl.
func appendUse(uses []model.UseDecl, u model.UseDecl) []model.UseDecl {
	if len(u.Members) > 0 {
		for i := range uses {
			if uses[i].Address == u.Address && uses[i].Module == u.Module && uses[i].Alias == "" && len(uses[i].Members) > 0 {
				uses[i].Members = append(uses[i].Members, u.Members...)
				return uses
			}
		}
	}
	return append(uses, u)
}
