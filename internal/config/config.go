// Package config loads optional per-project settings from .movefcg.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is looked up at the project root when no explicit path is given.
const FileName = ".movefcg.yaml"

// Ambiguity policies for simple-name queries that match several functions.
const (
	AmbiguityFirst = "first"
	AmbiguityError = "error"
)

type Config struct {
	// Workers bounds parallel extraction. Zero means one per CPU.
	Workers int `yaml:"workers"`
	// Exclude holds glob patterns relative to the project root.
	Exclude []string `yaml:"exclude"`
	// SkipDirs replaces the default pruned directory names when set.
	SkipDirs         []string `yaml:"skip_dirs"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	Ambiguity        string   `yaml:"ambiguity"`
	// CacheSize is the number of call lists kept per index.
	CacheSize int `yaml:"cache_size"`
	// MaxFileSize skips larger source files. Zero disables the limit.
	MaxFileSize int64 `yaml:"max_file_size"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() Config {
	return Config{
		Workers:          runtime.NumCPU(),
		RespectGitignore: true,
		Ambiguity:        AmbiguityFirst,
		CacheSize:        256,
		MaxFileSize:      4 << 20,
	}
}

// Load reads path over DefaultConfig. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadProject reads FileName from the project root.
func LoadProject(root string) (Config, error) {
	return Load(filepath.Join(root, FileName))
}

func (c Config) Validate() error {
	switch c.Ambiguity {
	case AmbiguityFirst, AmbiguityError:
	default:
		return fmt.Errorf("ambiguity must be %q or %q, got %q", AmbiguityFirst, AmbiguityError, c.Ambiguity)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	return nil
}
