package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/movefcg"
	"github.com/jward/movefcg/internal/model"
)

const coinSource = `module 0x1::coin {
    use std::vector;
    use 0x1::event::{Self, emit as fire};
    friend 0x1::wallet;

    const MAX: u64 = 100;

    struct Coin<phantom T> has key, store {
        value: u64,
    }

    #[view]
    public entry fun mint(amount: u64, to: address): Coin<u8> acquires Coin {
        fire(amount);
        Coin { value: amount }
    }

    fun value(c: &Coin<u8>): u64 { c.value }

    native fun burn();
}
`

const walletSource = `module 0x1::wallet {
    public(friend) fun value(): u64 { 0x1::coin::value(x) }
}
`

const manifestSource = `[package]
name = "Coins"

[addresses]
std = "0x1"

[dependencies]
MoveStdlib = { local = "../stdlib" }
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func buildIndex(t *testing.T, files map[string]string) (string, *model.ProjectIndex) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	idx, err := movefcg.New(movefcg.WithWorkers(2)).IndexProject(context.Background(), root)
	require.NoError(t, err)
	return root, idx
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.Metadata("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("k", "one"))
	require.NoError(t, s.SetMetadata("k", "two"))
	v, err = s.Metadata("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestLoadIndex_NoSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.LoadIndex()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLoadIndex_SchemaMismatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.SetMetadata("schema_version", "0"))
	_, err := s.LoadIndex()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	_, idx := buildIndex(t, map[string]string{
		"Move.toml":            manifestSource,
		"sources/coin.move":    coinSource,
		"sources/wallet.move":  walletSource,
		"sources/broken.move":  "module 0x1::broken { fun f( {",
		"sources/dup/a.move":   "module 0x1::wallet { fun shadow() {} }\n",
		"sources/nothing.move": "",
	})
	require.NotEmpty(t, idx.Diagnostics)

	s := newTestStore(t)
	require.NoError(t, s.SaveIndex(idx))

	loaded, err := s.LoadIndex()
	require.NoError(t, err)
	assert.Equal(t, idx, loaded)

	coin := loaded.Modules["0x1::coin"]
	require.NotNil(t, coin)
	require.NotNil(t, coin.Function("mint"))
	assert.Same(t, coin.Function("mint"), loaded.Functions["mint"][0],
		"module and name table share records")
}

func TestSaveIndex_ReplacesSnapshot(t *testing.T) {
	t.Parallel()

	_, first := buildIndex(t, map[string]string{"sources/coin.move": coinSource})
	_, second := buildIndex(t, map[string]string{"sources/wallet.move": walletSource})

	s := newTestStore(t)
	require.NoError(t, s.SaveIndex(first))
	require.NoError(t, s.SaveIndex(second))

	loaded, err := s.LoadIndex()
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
	assert.NotContains(t, loaded.Modules, "0x1::coin")
}

func TestChanged(t *testing.T) {
	t.Parallel()

	root, idx := buildIndex(t, map[string]string{
		"sources/coin.move":   coinSource,
		"sources/wallet.move": walletSource,
	})
	s := newTestStore(t)
	require.NoError(t, s.SaveIndex(idx))

	files := []string{"sources/coin.move", "sources/wallet.move"}
	changed, err := s.Changed(root, files)
	require.NoError(t, err)
	assert.False(t, changed)

	writeFiles(t, root, map[string]string{"sources/wallet.move": walletSource + "\n"})
	changed, err = s.Changed(root, files)
	require.NoError(t, err)
	assert.True(t, changed, "edited file")

	changed, err = s.Changed(root, files[:1])
	require.NoError(t, err)
	assert.True(t, changed, "removed file")
}

func TestChanged_Manifest(t *testing.T) {
	t.Parallel()

	root, idx := buildIndex(t, map[string]string{
		"Move.toml":         manifestSource,
		"sources/coin.move": coinSource,
	})
	s := newTestStore(t)
	require.NoError(t, s.SaveIndex(idx))

	files := []string{"sources/coin.move"}
	changed, err := s.Changed(root, files)
	require.NoError(t, err)
	assert.False(t, changed)

	writeFiles(t, root, map[string]string{"Move.toml": "[package]\nname = \"Renamed\"\n\n[addresses]\nbank = \"0xB\"\n"})
	changed, err = s.Changed(root, files)
	require.NoError(t, err)
	assert.True(t, changed, "edited manifest")

	require.NoError(t, os.Remove(filepath.Join(root, "Move.toml")))
	changed, err = s.Changed(root, files)
	require.NoError(t, err)
	assert.True(t, changed, "removed manifest")

	_, idx = buildIndex(t, map[string]string{"sources/coin.move": coinSource})
	require.NoError(t, s.SaveIndex(idx))
	writeFiles(t, idx.Root, map[string]string{"Move.toml": manifestSource})
	changed, err = s.Changed(idx.Root, files)
	require.NoError(t, err)
	assert.True(t, changed, "added manifest")
}

func TestQuery_ReadOnly(t *testing.T) {
	t.Parallel()

	_, idx := buildIndex(t, map[string]string{"sources/coin.move": coinSource})
	s := newTestStore(t)
	require.NoError(t, s.SaveIndex(idx))
	ctx := context.Background()

	rows, err := s.Query(ctx, "SELECT name, ordinal FROM functions WHERE name = ?", "mint")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{"name": "mint", "ordinal": int64(0)}, rows[0])

	rows, err = s.Query(ctx, "SELECT name FROM functions WHERE name = ?", "nothing")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	_, err = s.Query(ctx, "DELETE FROM functions")
	assert.ErrorIs(t, err, ErrReadOnly)

	_, err = s.Query(ctx, "SELECT 1; DELETE FROM functions")
	assert.Error(t, err)

	require.NoError(t, s.SetMetadata("k", "v"), "connection usable for writes afterwards")
	rows, err = s.Query(ctx, "SELECT count(*) AS n FROM functions")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows[0]["n"])

	assert.Contains(t, Tables(), "metadata")
	assert.Contains(t, Tables(), "functions")
}

func TestFileHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		FileHash(nil))
	assert.NotEqual(t, FileHash([]byte("a")), FileHash([]byte("b")))
}
