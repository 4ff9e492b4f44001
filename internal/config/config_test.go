package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	cfg, err := LoadProject(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_Overlay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yml := `workers: 3
exclude:
  - "tests/**"
ambiguity: error
respect_gitignore: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yml), 0o644))

	cfg, err := LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"tests/**"}, cfg.Exclude)
	assert.Equal(t, AmbiguityError, cfg.Ambiguity)
	assert.False(t, cfg.RespectGitignore)
	assert.Equal(t, DefaultConfig().CacheSize, cfg.CacheSize, "unset keys keep defaults")
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yml  string
	}{
		{"syntax", "workers: [1"},
		{"ambiguity", "ambiguity: random"},
		{"workers", "workers: -2"},
		{"cache", "cache_size: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o644))
			cfg, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, DefaultConfig(), cfg)
		})
	}
}
