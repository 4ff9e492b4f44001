package movefcg

import (
	"fmt"
	"strings"
)

// AmbiguityPolicy decides what a query matching several functions returns.
type AmbiguityPolicy int

const (
	// AmbiguityFirst returns the first match in index order: files sorted by
	// relative path, then declaration order within the file.
	AmbiguityFirst AmbiguityPolicy = iota
	// AmbiguityError fails with ErrAmbiguousName.
	AmbiguityError
)

func (p AmbiguityPolicy) String() string {
	if p == AmbiguityError {
		return "error"
	}
	return "first"
}

// ParseAmbiguityPolicy maps "first" and "error". Anything else is
// AmbiguityFirst.
func ParseAmbiguityPolicy(s string) AmbiguityPolicy {
	if s == "error" {
		return AmbiguityError
	}
	return AmbiguityFirst
}

// Resolution is a successful name lookup.
type Resolution struct {
	Function *Function
	// Candidates is the number of functions the name matched. More than one
	// means the pick was made by index order.
	Candidates int
}

// Ambiguous reports whether more than one function matched.
func (r Resolution) Ambiguous() bool { return r.Candidates > 1 }

// Resolver looks up names in a read-only Index. It is safe for concurrent
// use.
type Resolver struct {
	index  *Index
	policy AmbiguityPolicy
}

func NewResolver(idx *Index, policy AmbiguityPolicy) *Resolver {
	return &Resolver{index: idx, policy: policy}
}

// Resolve finds the function a simple or `::`-qualified name refers to.
//
// A simple name matches every function with that name. A qualified name
// splits into module path and function name: a one-segment path matches the
// bare module name or the module key, a longer path must equal the module
// key. Named addresses from the manifest are treated as equal to their
// values.
func (r *Resolver) Resolve(name string) (Resolution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Resolution{}, fmt.Errorf("movefcg: resolve: empty name: %w", ErrFunctionNotFound)
	}

	modPath, fn := splitQualified(name)
	var matches []*Function
	for _, f := range r.index.Functions[fn] {
		if modPath == "" || r.moduleMatches(f.Module, modPath) {
			matches = append(matches, f)
		}
	}

	switch {
	case len(matches) == 0:
		return Resolution{}, fmt.Errorf("movefcg: resolve %q: %w", name, ErrFunctionNotFound)
	case len(matches) > 1 && r.policy == AmbiguityError:
		keys := make([]string, len(matches))
		for i, m := range matches {
			keys[i] = m.QualifiedName()
		}
		return Resolution{Candidates: len(matches)}, fmt.Errorf("movefcg: resolve %q: %w: %s",
			name, ErrAmbiguousName, strings.Join(keys, ", "))
	}
	return Resolution{Function: matches[0], Candidates: len(matches)}, nil
}

// splitQualified splits "a::m::f" into ("a::m", "f"). A simple name has an
// empty module path.
func splitQualified(name string) (string, string) {
	i := strings.LastIndex(name, "::")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+2:]
}

func (r *Resolver) moduleMatches(id ModuleIdentity, path string) bool {
	if !strings.Contains(path, "::") {
		return id.Name == path || id.Key() == path
	}
	if id.Key() == path {
		return true
	}
	addr, mod := splitQualified(path)
	return id.Name == mod && id.Address != "" && r.sameAddress(id.Address, addr)
}

// sameAddress compares two addresses after mapping named addresses through
// the manifest and normalizing hex literals.
func (r *Resolver) sameAddress(a, b string) bool {
	return normalizeAddress(r.index.Addresses, a) == normalizeAddress(r.index.Addresses, b)
}

func normalizeAddress(named map[string]string, addr string) string {
	if v, ok := named[addr]; ok && v != "" && v != "_" {
		addr = v
	}
	lower := strings.ToLower(addr)
	if hex, ok := strings.CutPrefix(lower, "0x"); ok {
		hex = strings.TrimLeft(hex, "0")
		if hex == "" {
			hex = "0"
		}
		return "0x" + hex
	}
	return addr
}

// Module finds a module by key. A bare name also matches a module declared
// with an address; the first in scan order wins.
func (r *Resolver) Module(key string) (*Module, error) {
	key = strings.TrimSpace(key)
	if m, ok := r.index.Modules[key]; ok {
		return m, nil
	}
	for _, m := range r.index.OrderedModules() {
		if r.moduleMatches(m.Identity, key) {
			return m, nil
		}
	}
	return nil, fmt.Errorf("movefcg: module %q: %w", key, ErrModuleNotFound)
}

// ModuleFunctions lists the functions of the module named by key, or nil
// when no module matches.
func (r *Resolver) ModuleFunctions(key string) []*Function {
	m, err := r.Module(key)
	if err != nil {
		return nil
	}
	return m.Functions
}
