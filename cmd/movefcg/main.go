package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/movefcg"
	"github.com/jward/movefcg/internal/config"
	"github.com/jward/movefcg/internal/store"
)

var (
	flagDB      string
	flagFormat  string
	flagJSON    bool
	flagConfig  string
	flagVerbose bool
	flagStrict  bool
	flagWorkers int
	flagExclude []string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// logger is configured by the root command before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "movefcg <projectPath> <functionName>",
	Short: "Function and call-graph queries for Move projects",
	Long: `movefcg indexes the .move files of a project and answers queries about a
function: its source, location, parameters and the calls it makes.

The function name may be simple (transfer), module-qualified (coin::transfer)
or address-qualified (0x1::coin::transfer).`,
	Args:          cobra.ExactArgs(2),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagJSON {
			flagFormat = "json"
		}
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return validateFormat(flagFormat)
	},
	RunE: runQuery,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "SQLite snapshot path; reused while the sources are unchanged")
	pf.StringVar(&flagFormat, "format", "json", "output format: json|text")
	pf.BoolVar(&flagJSON, "json", false, "shorthand for --format json")
	pf.StringVar(&flagConfig, "config", "", "config file (default: <projectPath>/"+config.FileName+")")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log indexing progress to stderr")
	pf.BoolVar(&flagStrict, "strict", false, "fail when a simple name matches several functions")
	pf.IntVar(&flagWorkers, "workers", 0, "parallel extraction workers (default from config)")
	pf.StringSliceVar(&flagExclude, "exclude", nil, "glob patterns of files to skip, relative to the project")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(moduleCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(watchCmd)
}

// newEngine builds an Engine from the project config overlaid with flags.
func newEngine(root string) (*movefcg.Engine, error) {
	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadProject(root)
	}
	if err != nil {
		return nil, err
	}

	opts := []movefcg.Option{
		movefcg.WithConfig(cfg),
		movefcg.WithLogger(logger),
	}
	if flagWorkers > 0 {
		opts = append(opts, movefcg.WithWorkers(flagWorkers))
	}
	if flagStrict {
		opts = append(opts, movefcg.WithAmbiguityPolicy(movefcg.AmbiguityError))
	}
	if len(flagExclude) > 0 {
		opts = append(opts, movefcg.WithExcludes(flagExclude...))
	}
	return movefcg.New(opts...), nil
}

// openProject returns an Engine with an index of path. With --db, a snapshot
// whose files are unchanged is reused; otherwise the project is scanned and
// the snapshot rewritten. The returned Store is nil without --db.
func openProject(ctx context.Context, path string) (*movefcg.Engine, *store.Store, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving path %q: %w", path, err)
	}
	engine, err := newEngine(root)
	if err != nil {
		return nil, nil, err
	}
	if flagDB == "" {
		if _, err := engine.IndexProject(ctx, root); err != nil {
			return nil, nil, err
		}
		return engine, nil, nil
	}

	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	if idx, ok := freshSnapshot(s, engine, root); ok {
		logger.Debug("using snapshot", "db", flagDB, "functions", idx.FunctionCount())
		engine.Use(idx)
		return engine, s, nil
	}

	idx, err := engine.IndexProject(ctx, root)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	if err := s.SaveIndex(idx); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return engine, s, nil
}

// freshSnapshot loads the snapshot in s when it indexes root and no source
// file or manifest changed since it was saved.
func freshSnapshot(s *store.Store, engine *movefcg.Engine, root string) (*movefcg.Index, bool) {
	idx, err := s.LoadIndex()
	if err != nil {
		if !errors.Is(err, store.ErrNoSnapshot) {
			logger.Warn("snapshot unreadable, rescanning", "db", flagDB, "error", err)
		}
		return nil, false
	}
	if idx.Root != root {
		return nil, false
	}
	files, err := engine.Files(root)
	if err != nil {
		return nil, false
	}
	changed, err := s.Changed(root, files)
	if err != nil || changed {
		return nil, false
	}
	return idx, true
}

// openStore opens and migrates the database named by --db.
func openStore() (*store.Store, error) {
	if dir := filepath.Dir(flagDB); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	s, err := store.NewStore(flagDB)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	return s, nil
}

func closeStore(s *store.Store) {
	if s != nil {
		s.Close()
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine, s, err := openProject(ctx, args[0])
	if err != nil {
		return outputError("query", err)
	}
	defer closeStore(s)

	res, err := engine.QueryFunction(ctx, args[1])
	if err != nil {
		return outputError("query", err)
	}
	if res.Ambiguous() {
		logger.Warn("ambiguous function name, using first match",
			"name", args[1], "candidates", res.Candidates, "match", res.Function.QualifiedName())
	}
	return outputQuery(cmd.OutOrStdout(), res)
}
