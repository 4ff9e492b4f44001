package movefcg

import (
	"context"
	"errors"

	"github.com/jward/movefcg/internal/move"
	"github.com/jward/movefcg/syntax"
)

// QueryResult is a resolved function and the calls its body makes, in
// source order.
type QueryResult struct {
	Function *Function
	Calls    []CallSite
	// Candidates is the number of functions the queried name matched.
	Candidates int
}

// Ambiguous reports whether the queried name matched more than one
// function and the first in index order was picked.
func (r *QueryResult) Ambiguous() bool { return r.Candidates > 1 }

// QueryFunction resolves name in idx with the first-match policy and
// extracts the function's calls using the built-in parser. Callers that
// query repeatedly should keep an Engine, which caches call lists.
//
// A name matching nothing returns an error wrapping ErrFunctionNotFound.
func QueryFunction(ctx context.Context, idx *Index, name string) (*QueryResult, error) {
	graph := NewCallGraph(idx, func() syntax.Parser { return move.NewParser() }, 0)
	return query(ctx, NewResolver(idx, AmbiguityFirst), graph, name)
}

// QueryModuleFunctions returns the functions of the module named by key,
// which may be a bare module name or address::name. It returns nil when no
// module matches.
func QueryModuleFunctions(idx *Index, key string) []*Function {
	return NewResolver(idx, AmbiguityFirst).ModuleFunctions(key)
}

func query(ctx context.Context, r *Resolver, g *CallGraph, name string) (*QueryResult, error) {
	res, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	calls, err := g.Calls(ctx, res.Function)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Function: res.Function, Calls: calls, Candidates: res.Candidates}, nil
}

// QueryFunctions runs several queries against the current index. Names
// that do not resolve are reported in the returned map instead of failing
// the batch.
func (e *Engine) QueryFunctions(ctx context.Context, names []string) ([]*QueryResult, map[string]error, error) {
	var results []*QueryResult
	failed := make(map[string]error)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		res, err := e.QueryFunction(ctx, name)
		if err != nil {
			if errors.Is(err, errNoIndex) {
				return nil, nil, err
			}
			failed[name] = err
			continue
		}
		results = append(results, res)
	}
	return results, failed, nil
}
