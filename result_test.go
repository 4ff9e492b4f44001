package movefcg

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryResult_JSONShape(t *testing.T) {
	t.Parallel()

	e, _ := indexProject(t, map[string]string{
		"sources/a.move": `module Pkg::a {
    public fun f(x: u64): u64 { b::g(x) + ext::h() }

    fun quiet() {}
}
`,
		"sources/b.move": pkgB,
	})

	res, err := e.QueryFunction(context.Background(), "f")
	require.NoError(t, err)
	data, err := json.Marshal(res)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"contract": "a",
		"function": "a::f",
		"source": "public fun f(x: u64): u64 { b::g(x) + ext::h() }",
		"location": {"file": "sources/a.move", "start_line": 2, "end_line": 2},
		"parameter": [{"name": "x", "type": "u64"}],
		"calls": [
			{"file": "sources/b.move", "function": "b::g", "module": "b"},
			{"file": "", "function": "ext::h", "module": "ext"}
		]
	}`, string(data))

	quiet, err := e.QueryFunction(context.Background(), "quiet")
	require.NoError(t, err)
	data, err = json.Marshal(quiet)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["parameter"], "empty lists encode as []")
	assert.Equal(t, []any{}, raw["calls"], "empty lists encode as []")
}
