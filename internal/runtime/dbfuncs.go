package runtime

import (
	"context"
	"errors"

	"github.com/risor-io/risor/object"

	"github.com/jward/movefcg/internal/store"
)

// makeDBQueryFn creates "db_query", raw read access to the snapshot tables.
// Statements run through store.Query, so writes are refused.
//
// db_query(sql, args...) → [row] where each row maps column to value
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.NewArgsError("db_query", 1, len(args))
		}
		query, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("db_query: sql must be a string, got %s", args[0].Type())
		}
		params := make([]any, 0, len(args)-1)
		for i, arg := range args[1:] {
			v, ok := sqlParam(arg)
			if !ok {
				return object.Errorf("db_query: argument %d: unsupported type %s", i+2, arg.Type())
			}
			params = append(params, v)
		}

		rows, err := s.Query(ctx, query.Value(), params...)
		if errors.Is(err, store.ErrReadOnly) {
			return object.Errorf("db_query: the snapshot is read-only")
		}
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}
		out := make([]object.Object, 0, len(rows))
		for _, row := range rows {
			m := make(map[string]object.Object, len(row))
			for col, v := range row {
				m[col] = columnObject(v)
			}
			out = append(out, object.NewMap(m))
		}
		return object.NewList(out)
	})
}

// makeDBTablesFn creates "db_tables", the names db_query can read.
//
// db_tables() → [string]
func makeDBTablesFn() *object.Builtin {
	return object.NewBuiltin("db_tables", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("db_tables", 0, len(args))
		}
		return stringsToList(store.Tables())
	})
}

// sqlParam converts a script value bound to a ? placeholder.
func sqlParam(o object.Object) (any, bool) {
	switch v := o.(type) {
	case *object.String:
		return v.Value(), true
	case *object.Int:
		return v.Value(), true
	case *object.Float:
		return v.Value(), true
	case *object.Bool:
		return v.Value(), true
	case *object.NilType:
		return nil, true
	}
	return nil, false
}

// columnObject converts a store.Row value. Snapshot columns hold only
// integers, text and NULL; REAL is kept for ad hoc expressions.
func columnObject(v any) object.Object {
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	}
	return object.Nil
}
