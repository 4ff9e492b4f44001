package movefcg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/movefcg/internal/model"
)

// writeProject creates files (relative path -> content) under a temp root.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func indexProject(t *testing.T, files map[string]string, opts ...Option) (*Engine, *Index) {
	t.Helper()
	e := New(opts...)
	idx, err := e.IndexProject(context.Background(), writeProject(t, files))
	require.NoError(t, err)
	return e, idx
}

const coinModule = `module 0x1::coin {
    struct Coin has store { value: u64 }

    public fun value(c: &Coin): u64 { c.value }

    public fun mint(v: u64): Coin { Coin { value: v } }
}
`

const walletModule = `module 0x1::wallet {
    use 0x1::coin::{Self, Coin};

    public entry fun deposit(c: Coin) {
        let v = coin::value(&c);
        helper(v);
    }

    fun helper(_v: u64) {}
}
`

func TestIndexProject_PathErrors(t *testing.T) {
	t.Parallel()

	e := New()
	_, err := e.IndexProject(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrPathNotFound)

	file := filepath.Join(t.TempDir(), "a.move")
	require.NoError(t, os.WriteFile(file, []byte("module m {}"), 0o644))
	_, err = e.IndexProject(context.Background(), file)
	require.ErrorIs(t, err, ErrNotADirectory)

	assert.Nil(t, e.Index(), "failed builds leave no index")
}

func TestIndexProject_EmptyProject(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, nil)
	assert.Empty(t, idx.Modules)
	assert.Empty(t, idx.Functions)
	assert.Equal(t, "unknown", idx.PackageName)
	assert.Empty(t, idx.Diagnostics)
}

func TestIndexProject_Records(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		"sources/coin.move":   coinModule,
		"sources/wallet.move": walletModule,
	})

	require.Equal(t, []string{"0x1::coin", "0x1::wallet"}, idx.ModuleOrder)
	assert.Equal(t, []string{"sources/coin.move", "sources/wallet.move"}, idx.Files)

	coin := idx.Modules["0x1::coin"]
	require.NotNil(t, coin)
	assert.Equal(t, "sources/coin.move", coin.File)
	require.Len(t, coin.Functions, 2)
	assert.Equal(t, "value", coin.Functions[0].Name)
	assert.Equal(t, "mint", coin.Functions[1].Name)
	require.Len(t, coin.Structs, 1)
	assert.Equal(t, []string{"store"}, coin.Structs[0].Abilities)

	deposit := idx.Functions["deposit"]
	require.Len(t, deposit, 1)
	assert.Equal(t, model.Public, deposit[0].Visibility)
	assert.True(t, deposit[0].HasModifier(model.Entry))
	assert.Equal(t, []Parameter{{Name: "c", Type: "Coin"}}, deposit[0].Parameters)
	assert.Equal(t, 4, idx.FunctionCount())
}

func TestIndexProject_Manifest(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		"Move.toml": `[package]
name = "wallet"
version = "1.0.0"

[dependencies]
AptosFramework = { git = "https://github.com/aptos-labs/aptos-core.git", rev = "main", subdir = "aptos-move/framework/aptos-framework" }
Local = { local = "../local" }

[addresses]
wallet = "0xCAFE"
`,
	})
	assert.Equal(t, "wallet", idx.PackageName)
	require.Len(t, idx.Dependencies, 2)
	assert.Equal(t, "AptosFramework", idx.Dependencies[0].Name)
	assert.Equal(t, Dependency{Name: "Local", Path: "../local"}, idx.Dependencies[1])
	assert.Equal(t, "0xCAFE", idx.Addresses["wallet"])
}

func TestIndexProject_MalformedManifest(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		"Move.toml": "this is not a manifest",
		"a.move":    "module a { fun f() {} }",
	})
	assert.Equal(t, "unknown", idx.PackageName)
	assert.Len(t, idx.DiagnosticsOf(model.ManifestMalformed), 1)
	assert.Len(t, idx.Functions["f"], 1, "indexing continues with defaults")
}

func TestIndexProject_Deterministic(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"z/late.move":  "module 0x2::late { public fun shared() {} fun only_late() {} }",
		"a/early.move": "module 0x2::early { public fun shared() { Self::other() } fun other() {} }",
		"m/mid.move":   "module mid { fun shared(x: u64): u64 { x } }",
		"m/more.move":  coinModule,
	}
	root := writeProject(t, files)

	first, err := New(WithWorkers(1)).IndexProject(context.Background(), root)
	require.NoError(t, err)
	second, err := New(WithWorkers(1)).IndexProject(context.Background(), root)
	require.NoError(t, err)
	parallel, err := New(WithWorkers(8)).IndexProject(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, parallel)

	shared := first.Functions["shared"]
	require.Len(t, shared, 3)
	assert.Equal(t, "early", shared[0].Module.Name)
	assert.Equal(t, "mid", shared[1].Module.Name)
	assert.Equal(t, "late", shared[2].Module.Name)
}

func TestIndexProject_ModuleKeyCollision(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		"a.move": "module 0x1::dup { fun from_a() {} }",
		"b.move": "module 0x1::dup { fun from_b() {} }",
	})

	dup := idx.Modules["0x1::dup"]
	require.NotNil(t, dup)
	assert.Equal(t, "a.move", dup.File, "the first declaration is kept")
	assert.Equal(t, []string{"0x1::dup"}, idx.ModuleOrder)

	diags := idx.DiagnosticsOf(model.ModuleKeyCollision)
	require.Len(t, diags, 1)
	assert.Equal(t, "b.move", diags[0].File)
	assert.Contains(t, diags[0].Message, "a.move")

	assert.Len(t, idx.Functions["from_b"], 1, "functions of the colliding module stay queryable")
}

func TestIndexProject_ParseDiagnostics(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		"binary.move": "\xff\xfe\x00",
		"partial.move": `module m {
    garbage tokens here;
    fun ok() { call() }
    fun (broken
}`,
		"good.move": "module g { fun fine() {} }",
	})

	failed := idx.DiagnosticsOf(model.FileParseFailure)
	require.Len(t, failed, 1)
	assert.Equal(t, "binary.move", failed[0].File)

	partial := idx.DiagnosticsOf(model.PartialParse)
	require.Len(t, partial, 1)
	assert.Equal(t, "partial.move", partial[0].File)

	assert.Len(t, idx.Functions["ok"], 1)
	assert.Len(t, idx.Functions["fine"], 1)
	assert.Equal(t, []string{"good.move", "partial.move"}, idx.Files)
}

func TestIndexProject_Discovery(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		".gitignore":              "generated/\n",
		"sources/kept.move":       "module kept { fun f() {} }",
		"build/pkg/dep.move":      "module built { fun f() {} }",
		".hidden/h.move":          "module hidden { fun f() {} }",
		"node_modules/x/n.move":   "module nm { fun f() {} }",
		"generated/gen.move":      "module gen { fun f() {} }",
		"tests/skipped_test.move": "module t { fun f() {} }",
		"sources/readme.md":       "module md { fun f() {} }",
	}, WithExcludes("tests/**"))

	assert.Equal(t, []string{"sources/kept.move"}, idx.Files)
	assert.Equal(t, []string{"kept"}, idx.ModuleOrder)
}

func TestIndexProject_MaxFileSize(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{
		"big.move":   coinModule,
		"small.move": "module s {}",
	}, WithMaxFileSize(32))

	assert.Equal(t, []string{"small.move"}, idx.Files)
	diags := idx.DiagnosticsOf(model.FileReadFailure)
	require.Len(t, diags, 1)
	assert.Equal(t, "big.move", diags[0].File)
}

func TestIndexProject_Cancelled(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{"a.move": coinModule})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().IndexProject(ctx, root)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReindex_ReplacesIndex(t *testing.T) {
	t.Parallel()

	root := writeProject(t, map[string]string{"a.move": "module a { fun f() {} }"})
	e := New()

	_, err := e.Reindex(context.Background())
	require.Error(t, err, "nothing indexed yet")

	before, err := e.IndexProject(context.Background(), root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.move"), []byte("module b { fun g() {} }"), 0o644))
	after, err := e.Reindex(context.Background())
	require.NoError(t, err)

	assert.Len(t, after.Modules, 2)
	assert.Len(t, before.Modules, 1, "the previous index is never mutated")
	assert.Same(t, after, e.Index())
}

func TestEngine_QueryBeforeIndex(t *testing.T) {
	t.Parallel()

	e := New()
	_, err := e.QueryFunction(context.Background(), "f")
	require.Error(t, err)
	_, err = e.QueryModuleFunctions("m")
	require.Error(t, err)
	assert.Nil(t, e.Resolver())
	assert.Nil(t, e.CallGraph())
}

func TestEngine_Use(t *testing.T) {
	t.Parallel()

	_, idx := indexProject(t, map[string]string{"coin.move": coinModule})
	e := New()
	e.Use(idx)

	res, err := e.QueryFunction(context.Background(), "coin::mint")
	require.NoError(t, err)
	assert.Equal(t, "mint", res.Function.Name)
}
