package runtime

import (
	"context"
	"errors"

	"github.com/risor-io/risor/object"

	"github.com/jward/movefcg"
	"github.com/jward/movefcg/internal/extract"
	"github.com/jward/movefcg/internal/model"
	"github.com/jward/movefcg/internal/move"
)

// Index host functions. Records are converted to Risor maps with primitive
// values; scripts never see Go pointers.

// makePackageInfoFn creates "package_info".
//
// package_info() → {name, root, files, modules, functions, dependencies, addresses}
func makePackageInfoFn(e *movefcg.Engine) *object.Builtin {
	return object.NewBuiltin("package_info", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("package_info", 0, len(args))
		}
		idx := e.Index()
		if idx == nil {
			return object.Errorf("package_info: no project indexed")
		}

		deps := make([]object.Object, 0, len(idx.Dependencies))
		for _, d := range idx.Dependencies {
			deps = append(deps, object.NewMap(map[string]object.Object{
				"name":    object.NewString(d.Name),
				"version": object.NewString(d.Version),
				"path":    object.NewString(d.Path),
			}))
		}
		addrs := make(map[string]object.Object, len(idx.Addresses))
		for k, v := range idx.Addresses {
			addrs[k] = object.NewString(v)
		}
		return object.NewMap(map[string]object.Object{
			"name":         object.NewString(idx.PackageName),
			"root":         object.NewString(idx.Root),
			"files":        object.NewInt(int64(len(idx.Files))),
			"modules":      object.NewInt(int64(len(idx.Modules))),
			"functions":    object.NewInt(int64(idx.FunctionCount())),
			"dependencies": object.NewList(deps),
			"addresses":    object.NewMap(addrs),
		})
	})
}

// makeModulesFn creates "modules".
//
// modules() → [{key, address, name, file, start_line, end_line, functions}]
func makeModulesFn(e *movefcg.Engine) *object.Builtin {
	return object.NewBuiltin("modules", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("modules", 0, len(args))
		}
		idx := e.Index()
		if idx == nil {
			return object.Errorf("modules: no project indexed")
		}
		results := []object.Object{}
		for _, m := range idx.OrderedModules() {
			results = append(results, moduleToMap(m))
		}
		return object.NewList(results)
	})
}

// makeModuleFunctionsFn creates "module_functions".
//
// module_functions(key) → [function] or nil when no module matches
func makeModuleFunctionsFn(e *movefcg.Engine) *object.Builtin {
	return object.NewBuiltin("module_functions", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("module_functions", 1, len(args))
		}
		key, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("module_functions: key must be a string, got %s", args[0].Type())
		}
		fns, err := e.QueryModuleFunctions(key.Value())
		if errors.Is(err, movefcg.ErrModuleNotFound) {
			return object.Nil
		}
		if err != nil {
			return object.Errorf("module_functions: %v", err)
		}
		return functionsToList(fns)
	})
}

// makeFunctionsNamedFn creates "functions_named".
//
// functions_named(name) → [function] in scan order
func makeFunctionsNamedFn(e *movefcg.Engine) *object.Builtin {
	return object.NewBuiltin("functions_named", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("functions_named", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("functions_named: name must be a string, got %s", args[0].Type())
		}
		idx := e.Index()
		if idx == nil {
			return object.Errorf("functions_named: no project indexed")
		}
		return functionsToList(idx.Functions[name.Value()])
	})
}

// makeQueryFunctionFn creates "query_function".
//
// query_function(name) → result map or nil when nothing matches. The map has
// the JSON result shape plus a candidates count.
func makeQueryFunctionFn(e *movefcg.Engine) *object.Builtin {
	return object.NewBuiltin("query_function", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("query_function", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query_function: name must be a string, got %s", args[0].Type())
		}
		res, err := e.QueryFunction(ctx, name.Value())
		if errors.Is(err, movefcg.ErrFunctionNotFound) {
			return object.Nil
		}
		if err != nil {
			return object.Errorf("query_function: %v", err)
		}
		return resultToMap(res)
	})
}

// makeDiagnosticsFn creates "diagnostics".
//
// diagnostics() → [{kind, file, message}]
func makeDiagnosticsFn(e *movefcg.Engine) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("diagnostics", 0, len(args))
		}
		idx := e.Index()
		if idx == nil {
			return object.Errorf("diagnostics: no project indexed")
		}
		results := []object.Object{}
		for _, d := range idx.Diagnostics {
			results = append(results, object.NewMap(map[string]object.Object{
				"kind":    object.NewString(string(d.Kind)),
				"file":    object.NewString(d.File),
				"message": object.NewString(d.Message),
			}))
		}
		return object.NewList(results)
	})
}

// makeOutlineFn creates "outline", which parses Move source without touching
// the index.
//
// outline(source) → [module] where each module carries its functions
func makeOutlineFn() *object.Builtin {
	return object.NewBuiltin("outline", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("outline", 1, len(args))
		}
		src, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("outline: source must be a string, got %s", args[0].Type())
		}
		tree, err := move.NewParser().Parse(ctx, []byte(src.Value()))
		if err != nil {
			return object.Errorf("outline: %v", err)
		}
		res := extract.Extract(tree, "<inline>")

		results := []object.Object{}
		for _, m := range res.Modules {
			var fns []*model.FunctionRecord
			for _, fn := range res.Functions {
				if fn.Module == m.Identity {
					fns = append(fns, fn)
				}
			}
			fields := moduleFields(m)
			fields["functions"] = functionsToList(fns)
			results = append(results, object.NewMap(fields))
		}
		return object.NewList(results)
	})
}

func moduleToMap(m *model.ModuleRecord) object.Object {
	return object.NewMap(moduleFields(m))
}

func moduleFields(m *model.ModuleRecord) map[string]object.Object {
	return map[string]object.Object{
		"key":        object.NewString(m.Identity.Key()),
		"address":    object.NewString(m.Identity.Address),
		"name":       object.NewString(m.Identity.Name),
		"file":       object.NewString(m.File),
		"start_line": object.NewInt(int64(m.Span.StartLine)),
		"end_line":   object.NewInt(int64(m.Span.EndLine)),
		"functions":  object.NewInt(int64(len(m.Functions))),
		"structs":    stringsToList(structNames(m)),
	}
}

func structNames(m *model.ModuleRecord) []string {
	names := make([]string, 0, len(m.Structs))
	for _, s := range m.Structs {
		names = append(names, s.Name)
	}
	return names
}

func functionToMap(fn *model.FunctionRecord) object.Object {
	modifiers := make([]string, 0, len(fn.Modifiers))
	for _, m := range fn.Modifiers {
		modifiers = append(modifiers, string(m))
	}
	return object.NewMap(map[string]object.Object{
		"name":           object.NewString(fn.Name),
		"qualified_name": object.NewString(fn.QualifiedName()),
		"module":         object.NewString(fn.Module.Name),
		"module_key":     object.NewString(fn.Module.Key()),
		"visibility":     object.NewString(fn.Visibility.String()),
		"modifiers":      stringsToList(modifiers),
		"parameters":     paramsToList(fn.Parameters),
		"return_type":    object.NewString(fn.ReturnType),
		"file":           object.NewString(fn.Span.File),
		"start_line":     object.NewInt(int64(fn.Span.StartLine)),
		"end_line":       object.NewInt(int64(fn.Span.EndLine)),
		"source":         object.NewString(fn.Span.Text),
	})
}

func functionsToList(fns []*model.FunctionRecord) object.Object {
	results := make([]object.Object, 0, len(fns))
	for _, fn := range fns {
		results = append(results, functionToMap(fn))
	}
	return object.NewList(results)
}

func resultToMap(res *movefcg.QueryResult) object.Object {
	j := res.JSON()
	params := make([]object.Object, 0, len(j.Parameters))
	for _, p := range j.Parameters {
		params = append(params, object.NewMap(map[string]object.Object{
			"name": object.NewString(p.Name),
			"type": object.NewString(p.Type),
		}))
	}
	calls := make([]object.Object, 0, len(j.Calls))
	for _, c := range j.Calls {
		calls = append(calls, object.NewMap(map[string]object.Object{
			"file":     object.NewString(c.File),
			"function": object.NewString(c.Function),
			"module":   object.NewString(c.Module),
		}))
	}
	return object.NewMap(map[string]object.Object{
		"contract": object.NewString(j.Contract),
		"function": object.NewString(j.Function),
		"source":   object.NewString(j.Source),
		"location": object.NewMap(map[string]object.Object{
			"file":       object.NewString(j.Location.File),
			"start_line": object.NewInt(int64(j.Location.StartLine)),
			"end_line":   object.NewInt(int64(j.Location.EndLine)),
		}),
		"parameter":  object.NewList(params),
		"calls":      object.NewList(calls),
		"candidates": object.NewInt(int64(res.Candidates)),
	})
}

func paramsToList(ps []model.Parameter) object.Object {
	results := make([]object.Object, 0, len(ps))
	for _, p := range ps {
		results = append(results, object.NewMap(map[string]object.Object{
			"name": object.NewString(p.Name),
			"type": object.NewString(p.Type),
		}))
	}
	return object.NewList(results)
}

func stringsToList(ss []string) object.Object {
	results := make([]object.Object, 0, len(ss))
	for _, s := range ss {
		results = append(results, object.NewString(s))
	}
	return object.NewList(results)
}
