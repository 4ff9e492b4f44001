// Package movefcg indexes Move smart-contract sources and answers function
// queries: a function's declaration together with the calls its body makes,
// each resolved to a declaration in the project where possible.
//
// # Pipeline
//
// An index build is a full rescan of a project root:
//
//  1. Discover: every *.move file under the root, skipping hidden
//     directories, build output, node_modules, .gitignore'd paths and
//     configured exclude globs. Files are sorted by relative path, which is
//     the scan order used everywhere below.
//
//  2. Extract: files are parsed in parallel, one parser per worker, into
//     module, function, struct and constant records.
//
//  3. Merge: results are merged serially in scan order into an [Index].
//     The first module declared under a key wins; later declarations are
//     reported as [Diagnostic] values rather than overwriting it.
//
// The resulting Index is read-only and safe for concurrent queries.
//
// # Usage
//
//	e := movefcg.New()
//	idx, err := e.IndexProject(ctx, "path/to/package")
//	if err != nil { ... }
//
//	res, err := e.QueryFunction(ctx, "0x1::coin::transfer")
//	if errors.Is(err, movefcg.ErrFunctionNotFound) { ... }
//	out, _ := json.Marshal(res)
//
// # Name resolution
//
// A simple name matches every function with that name; by default the first
// in scan order wins and [QueryResult.Candidates] reports how many matched.
// [WithAmbiguityPolicy] with [AmbiguityError] turns such queries into
// [ErrAmbiguousName]. A qualified name m::f or a::m::f selects the module by
// bare name or address-qualified key.
//
// # Calls
//
// Call sites are direct (f()), qualified (m::f()) or receiver calls
// (x.f()). Direct calls resolve against the caller's module, then use
// imports, then any function of that name. A receiver call is resolved only
// when the receiver is a parameter or explicitly typed let binding; others
// are reported unresolved. Unresolved calls, such as into dependencies whose
// source is not under the root, have an empty File.
package movefcg
