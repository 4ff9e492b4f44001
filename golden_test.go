package movefcg

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format.
type goldenFile struct {
	Queries []goldenQuery `json:"queries"`
}

type goldenQuery struct {
	Query     string     `json:"query"`
	Function  string     `json:"function"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Calls     []CallJSON `json:"calls"`
}

// TestGolden indexes each testdata/move/{level}/src directory and checks the
// queries listed in its golden.json.
func TestGolden(t *testing.T) {
	root := filepath.Join("testdata", "move")
	levels, err := os.ReadDir(root)
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, level := range levels {
		if !level.IsDir() {
			continue
		}
		testDir := filepath.Join(root, level.Name())
		goldenPath := filepath.Join(testDir, "golden.json")
		srcDir := filepath.Join(testDir, "src")
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}

		t.Run(level.Name(), func(t *testing.T) {
			t.Parallel()
			runGoldenTest(t, srcDir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, srcDir, goldenPath string) {
	t.Helper()

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(data, &golden))

	e := New()
	idx, err := e.IndexProject(context.Background(), srcDir)
	require.NoError(t, err)
	assert.Empty(t, idx.Diagnostics)

	for _, q := range golden.Queries {
		t.Run(q.Query, func(t *testing.T) {
			res, err := e.QueryFunction(context.Background(), q.Query)
			require.NoError(t, err)

			out := res.JSON()
			assert.Equal(t, q.Function, out.Function)
			assert.Equal(t, q.StartLine, out.Location.StartLine)
			assert.Equal(t, q.EndLine, out.Location.EndLine)
			assert.Equal(t, q.Calls, out.Calls)
		})
	}
}
