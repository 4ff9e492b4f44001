package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/movefcg/internal/runtime"
	"github.com/jward/movefcg/internal/watch"
)

var indexCmd = &cobra.Command{
	Use:   "index <projectPath>",
	Short: "Index a project and print a summary",
	Long:  "Scans the project and reports files, modules, functions and diagnostics. With --db the index is saved as a SQLite snapshot.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	root, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("index", fmt.Errorf("resolving path %q: %w", args[0], err))
	}
	engine, err := newEngine(root)
	if err != nil {
		return outputError("index", err)
	}
	idx, err := engine.IndexProject(cmd.Context(), root)
	if err != nil {
		return outputError("index", err)
	}

	summary := summaryToCLI(idx)
	if flagDB != "" {
		s, err := openStore()
		if err != nil {
			return outputError("index", err)
		}
		defer s.Close()
		if err := s.SaveIndex(idx); err != nil {
			return outputError("index", fmt.Errorf("saving snapshot: %w", err))
		}
		summary.Snapshot = flagDB
	}
	logger.Info("indexed project", "root", root, "duration", time.Since(start).Round(time.Millisecond))
	return outputResult(cmd.OutOrStdout(), CLIResult{Command: "index", Results: summary})
}

var modulesCmd = &cobra.Command{
	Use:   "modules <projectPath>",
	Short: "List the modules of a project in scan order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, s, err := openProject(cmd.Context(), args[0])
		if err != nil {
			return outputError("modules", err)
		}
		defer closeStore(s)

		mods := engine.Index().OrderedModules()
		out := make([]CLIModule, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleToCLI(m))
		}
		n := len(out)
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "modules", Results: out, TotalCount: &n})
	},
}

var moduleCmd = &cobra.Command{
	Use:   "module <projectPath> <moduleKey>",
	Short: "List the functions of one module",
	Long:  "The module key is either address::name (0x1::coin) or a bare module name.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, s, err := openProject(cmd.Context(), args[0])
		if err != nil {
			return outputError("module", err)
		}
		defer closeStore(s)

		fns, err := engine.QueryModuleFunctions(args[1])
		if err != nil {
			return outputError("module", fmt.Errorf("%w: %s", err, args[1]))
		}
		out := make([]CLIFunction, 0, len(fns))
		for _, fn := range fns {
			out = append(out, functionToCLI(fn))
		}
		n := len(out)
		return outputResult(cmd.OutOrStdout(), CLIResult{Command: "module", Results: out, TotalCount: &n})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <projectPath> <functionName>...",
	Short: "Run several function queries against one index build",
	Long:  "Every query is answered; the command exits with status 1 when any of them failed.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBatch,
}

var errBatchFailed = errors.New("one or more queries failed")

func runBatch(cmd *cobra.Command, args []string) error {
	engine, s, err := openProject(cmd.Context(), args[0])
	if err != nil {
		return outputError("batch", err)
	}
	defer closeStore(s)

	names := args[1:]
	results, failed, err := engine.QueryFunctions(cmd.Context(), names)
	if err != nil {
		return outputError("batch", err)
	}

	out := make([]CLIBatchEntry, 0, len(names))
	next := 0
	for _, name := range names {
		if qerr, ok := failed[name]; ok {
			out = append(out, CLIBatchEntry{Query: name, Error: qerr.Error()})
			continue
		}
		j := results[next].JSON()
		next++
		out = append(out, CLIBatchEntry{Query: name, Result: &j})
	}
	n := len(out)
	if err := outputResult(cmd.OutOrStdout(), CLIResult{Command: "batch", Results: out, TotalCount: &n}); err != nil {
		return err
	}
	if len(failed) > 0 {
		errorHandled = true
		return errBatchFailed
	}
	return nil
}

var scriptCmd = &cobra.Command{
	Use:   "script <projectPath> <file.risor>",
	Short: "Run a Risor script against the project index",
	Long: `Runs a Risor script with index host functions: package_info, modules,
module_functions, functions_named, query_function, diagnostics and outline.
With --db the snapshot tables are also readable through db_query and
db_tables.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, s, err := openProject(cmd.Context(), args[0])
		if err != nil {
			return outputError("script", err)
		}
		defer closeStore(s)

		script, err := filepath.Abs(args[1])
		if err != nil {
			return outputError("script", err)
		}
		opts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(logger)}
		if s != nil {
			opts = append(opts, runtime.WithRuntimeStore(s))
		}
		rt := runtime.NewRuntime(engine, filepath.Dir(script), opts...)
		if err := rt.RunScript(cmd.Context(), script, nil); err != nil {
			return outputError("script", err)
		}
		return nil
	},
}

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <projectPath> <functionName>",
	Short: "Re-run a function query whenever the project changes",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", watch.DefaultDebounce, "quiet period before reindexing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, s, err := openProject(ctx, args[0])
	if err != nil {
		return outputError("watch", err)
	}
	defer closeStore(s)

	name := args[1]
	w := cmd.OutOrStdout()
	report := func(ctx context.Context) {
		res, err := engine.QueryFunction(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			return
		}
		if err := outputQuery(w, res); err != nil {
			logger.Warn("write result", "error", err)
		}
	}
	report(ctx)

	root := engine.Index().Root
	m, err := engine.Matcher(root)
	if err != nil {
		return outputError("watch", err)
	}
	watcher, err := watch.New(root, m, watch.WithDebounce(flagDebounce), watch.WithLogger(logger))
	if err != nil {
		return outputError("watch", err)
	}
	return watcher.Run(ctx, func(ctx context.Context, paths []string) {
		idx, err := engine.Reindex(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warn("reindex failed", "error", err)
			}
			return
		}
		logger.Info("reindexed", "changed", len(paths), "functions", idx.FunctionCount())
		if s != nil {
			if err := s.SaveIndex(idx); err != nil {
				logger.Warn("saving snapshot", "db", flagDB, "error", err)
			}
		}
		report(ctx)
	})
}
