package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/movefcg/internal/discover"
)

func newWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	m, err := discover.NewMatcher(root, discover.Options{})
	require.NoError(t, err)
	w, err := New(root, m, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	return w
}

func TestWatcher_DeliversDebouncedBatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sources"), 0o755))
	w := newWatcher(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, paths []string) {
			batches <- paths
		})
	}()

	a := filepath.Join(root, "sources", "a.move")
	b := filepath.Join(root, "sources", "b.move")
	require.NoError(t, os.WriteFile(a, []byte("module a {}"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("module b {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sources", "notes.txt"), []byte("x"), 0o644))

	var seen []string
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case batch := <-batches:
			seen = append(seen, batch...)
		case <-deadline:
			t.Fatalf("timed out waiting for change batch, got %v", seen)
		}
	}
	assert.Contains(t, seen, a)
	assert.Contains(t, seen, b)
	assert.NotContains(t, seen, filepath.Join(root, "sources", "notes.txt"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := newWatcher(t, root)
	defer w.Close()

	assert.True(t, w.relevant(filepath.Join(root, "sources", "x.move")))
	assert.True(t, w.relevant(filepath.Join(root, "Move.toml")))
	assert.False(t, w.relevant(filepath.Join(root, "build", "x.move")))
	assert.False(t, w.relevant(filepath.Join(root, "README.md")))
}

func TestNew_RejectsFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	file := filepath.Join(root, "f.move")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	m, err := discover.NewMatcher(root, discover.Options{})
	require.NoError(t, err)

	_, err = New(file, m)
	require.Error(t, err)
	_, err = New(filepath.Join(root, "missing"), m)
	require.Error(t, err)
}
