package movefcg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/jward/movefcg/internal/extract"
	"github.com/jward/movefcg/internal/model"
	"github.com/jward/movefcg/syntax"
)

// fileResult is the outcome of extracting one file. result is nil when the
// file was skipped.
type fileResult struct {
	file   string
	result *extract.Result
	diags  []Diagnostic
}

// extractFiles parses and extracts files with a bounded worker pool. Each
// result is stored at its file's position so the merge sees scan order
// regardless of completion order. Only cancellation fails the whole run.
//
//	Phase A (parallel): read, parse and extract, one parser per worker.
//	Phase B (serial):   merge, see Engine.merge.
func (e *Engine) extractFiles(ctx context.Context, root string, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	workers := min(e.workers, len(files))
	parsers := make(chan syntax.Parser, workers)
	for range workers {
		parsers <- e.newParser()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := <-parsers
			defer func() { parsers <- p }()

			res, err := e.extractFile(gctx, p, root, file)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("movefcg: extract: %w", err)
	}
	return results, nil
}

// extractFile handles one file. Per-file failures become diagnostics; the
// returned error is reserved for cancellation.
func (e *Engine) extractFile(ctx context.Context, p syntax.Parser, root, file string) (fileResult, error) {
	out := fileResult{file: file}
	skip := func(kind DiagnosticKind, err error) (fileResult, error) {
		e.logger.Warn("skipping file", "path", file, "error", err)
		out.diags = append(out.diags, Diagnostic{Kind: kind, File: file, Message: err.Error()})
		return out, nil
	}

	path := filepath.Join(root, filepath.FromSlash(file))
	if e.maxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return skip(model.FileReadFailure, err)
		}
		if info.Size() > e.maxFileSize {
			return skip(model.FileReadFailure, fmt.Errorf("size %d exceeds limit %d", info.Size(), e.maxFileSize))
		}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return skip(model.FileReadFailure, err)
	}

	tree, err := p.Parse(ctx, src)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return out, err
		}
		return skip(model.FileParseFailure, err)
	}
	if tree.Root != nil && tree.Root.HasError() {
		e.logger.Debug("partial parse", "path", file)
		out.diags = append(out.diags, Diagnostic{
			Kind:    model.PartialParse,
			File:    file,
			Message: "syntax errors; declarations outside them were kept",
		})
	}
	out.result = extract.Extract(tree, file)
	return out, nil
}

// merge assembles the per-file results in scan order. The first module
// declared under a key wins; later ones are reported as collisions. Every
// named function is indexed by simple name even when its module collided.
func (e *Engine) merge(idx *Index, results []fileResult) {
	for _, fr := range results {
		idx.Diagnostics = append(idx.Diagnostics, fr.diags...)
		if fr.result == nil {
			continue
		}
		idx.Files = append(idx.Files, fr.file)

		for _, m := range fr.result.Modules {
			if m.Identity.Name == "" {
				continue
			}
			for _, fn := range fr.result.Functions {
				if fn.Name != "" && fn.Module == m.Identity {
					m.Functions = append(m.Functions, fn)
				}
			}
			key := m.Identity.Key()
			if prev, ok := idx.Modules[key]; ok {
				msg := fmt.Sprintf("module %s already declared in %s", key, prev.File)
				e.logger.Warn("module key collision", "path", fr.file, "module", key, "first", prev.File)
				idx.Diagnostics = append(idx.Diagnostics, Diagnostic{Kind: model.ModuleKeyCollision, File: fr.file, Message: msg})
				continue
			}
			idx.Modules[key] = m
			idx.ModuleOrder = append(idx.ModuleOrder, key)
		}

		for _, fn := range fr.result.Functions {
			if fn.Name == "" || fn.Module.Name == "" {
				continue
			}
			idx.Functions[fn.Name] = append(idx.Functions[fn.Name], fn)
		}
	}
}
