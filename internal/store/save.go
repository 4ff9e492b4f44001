package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/jward/movefcg/internal/manifest"
	"github.com/jward/movefcg/internal/model"
)

// SaveIndex replaces the snapshot with idx in a single transaction. Source
// and manifest hashes are read from idx.Root so Changed can detect edits
// later.
//
// Insert order respects FK dependencies:
//  1. Files (parsed files in scan order, then files that were skipped)
//  2. Modules, with their structs, constants and uses
//  3. Functions in scan order, with their parameters
//  4. Package data: dependencies, addresses, diagnostics, metadata
func (s *Store) SaveIndex(idx *model.ProjectIndex) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save index: begin: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tables {
		if _, err := tx.Exec("DELETE FROM " + t); err != nil {
			return fmt.Errorf("save index: clear %s: %w", t, err)
		}
	}

	// 1. Files
	fileIDs := make(map[string]int64, len(idx.Files))
	fileOrd := make(map[string]int, len(idx.Files))
	for i, f := range idx.Files {
		id, err := insertFileTx(tx, f, hashFile(idx.Root, f), true, i)
		if err != nil {
			return fmt.Errorf("save index: file %s: %w", f, err)
		}
		fileIDs[f] = id
		fileOrd[f] = i
	}
	for _, d := range idx.Diagnostics {
		if _, seen := fileIDs[d.File]; seen || !skippedFile(d.Kind) {
			continue
		}
		id, err := insertFileTx(tx, d.File, hashFile(idx.Root, d.File), false, -1)
		if err != nil {
			return fmt.Errorf("save index: file %s: %w", d.File, err)
		}
		fileIDs[d.File] = id
	}

	// 2. Modules
	for i, m := range idx.OrderedModules() {
		if err := insertModuleTx(tx, m, fileIDs[m.File], i); err != nil {
			return fmt.Errorf("save index: module %s: %w", m.Identity.Key(), err)
		}
	}

	// 3. Functions
	var fns []*model.FunctionRecord
	for _, group := range idx.Functions {
		fns = append(fns, group...)
	}
	sort.Slice(fns, func(i, j int) bool {
		fi, fj := fileOrd[fns[i].Span.File], fileOrd[fns[j].Span.File]
		if fi != fj {
			return fi < fj
		}
		return fns[i].Ordinal < fns[j].Ordinal
	})
	for _, fn := range fns {
		if err := insertFunctionTx(tx, fn, fileIDs[fn.Span.File]); err != nil {
			return fmt.Errorf("save index: function %s: %w", fn.QualifiedName(), err)
		}
	}

	// 4. Package data
	for i, d := range idx.Dependencies {
		if _, err := tx.Exec(
			"INSERT INTO dependencies (name, version, path, ordinal) VALUES (?, ?, ?, ?)",
			d.Name, d.Version, d.Path, i,
		); err != nil {
			return fmt.Errorf("save index: dependency %s: %w", d.Name, err)
		}
	}
	for name, value := range idx.Addresses {
		if _, err := tx.Exec("INSERT INTO addresses (name, value) VALUES (?, ?)", name, value); err != nil {
			return fmt.Errorf("save index: address %s: %w", name, err)
		}
	}
	for i, d := range idx.Diagnostics {
		if _, err := tx.Exec(
			"INSERT INTO diagnostics (kind, file, message, ordinal) VALUES (?, ?, ?, ?)",
			string(d.Kind), d.File, d.Message, i,
		); err != nil {
			return fmt.Errorf("save index: diagnostic: %w", err)
		}
	}
	meta := map[string]string{
		"schema_version": SchemaVersion,
		"root":           idx.Root,
		"package_name":   idx.PackageName,
		"manifest_hash":  hashFile(idx.Root, manifest.FileName),
	}
	for k, v := range meta {
		if _, err := tx.Exec(
			"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, v,
		); err != nil {
			return fmt.Errorf("save index: metadata %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save index: commit: %w", err)
	}
	return nil
}

// skippedFile reports whether a diagnostic kind means its file was left out
// of the index.
func skippedFile(kind model.DiagnosticKind) bool {
	return kind == model.FileParseFailure || kind == model.FileReadFailure
}

func insertFileTx(tx *sql.Tx, path, hash string, parsed bool, ordinal int) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO files (path, hash, parsed, ordinal) VALUES (?, ?, ?, ?)",
		path, hash, parsed, ordinal,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertModuleTx(tx *sql.Tx, m *model.ModuleRecord, fileID int64, ordinal int) error {
	res, err := tx.Exec(
		`INSERT INTO modules (file_id, address, name, start_line, end_line, source, friends, ordinal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, m.Identity.Address, m.Identity.Name,
		m.Span.StartLine, m.Span.EndLine, m.Span.Text,
		marshalList(m.Friends), ordinal,
	)
	if err != nil {
		return err
	}
	moduleID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i, st := range m.Structs {
		if _, err := tx.Exec(
			`INSERT INTO structs (module_id, name, type_params, abilities, fields, start_line, end_line, source, ordinal)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			moduleID, st.Name, st.TypeParams, marshalList(st.Abilities), marshalList(st.Fields),
			st.Span.StartLine, st.Span.EndLine, st.Span.Text, i,
		); err != nil {
			return fmt.Errorf("struct %s: %w", st.Name, err)
		}
	}
	for i, c := range m.Constants {
		if _, err := tx.Exec(
			`INSERT INTO constants (module_id, name, type_expr, value, start_line, end_line, source, ordinal)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			moduleID, c.Name, c.Type, c.Value, c.Span.StartLine, c.Span.EndLine, c.Span.Text, i,
		); err != nil {
			return fmt.Errorf("constant %s: %w", c.Name, err)
		}
	}
	for i, u := range m.Uses {
		if _, err := tx.Exec(
			"INSERT INTO uses (module_id, address, module, alias, members, ordinal) VALUES (?, ?, ?, ?, ?, ?)",
			moduleID, u.Address, u.Module, u.Alias, marshalList(u.Members), i,
		); err != nil {
			return fmt.Errorf("use %s: %w", u.ModuleRef().Key(), err)
		}
	}
	return nil
}

func insertFunctionTx(tx *sql.Tx, fn *model.FunctionRecord, fileID int64) error {
	res, err := tx.Exec(
		`INSERT INTO functions (file_id, module_address, module_name, name, visibility, modifiers,
		   type_params, return_type, acquires, attributes, start_line, end_line, source, ordinal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, fn.Module.Address, fn.Module.Name, fn.Name, fn.Visibility.String(),
		marshalList(fn.Modifiers), fn.TypeParams, fn.ReturnType,
		marshalList(fn.Acquires), marshalList(fn.Attributes),
		fn.Span.StartLine, fn.Span.EndLine, fn.Span.Text, fn.Ordinal,
	)
	if err != nil {
		return err
	}
	functionID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, p := range fn.Parameters {
		if _, err := tx.Exec(
			"INSERT INTO function_parameters (function_id, ordinal, name, type_expr) VALUES (?, ?, ?, ?)",
			functionID, i, p.Name, p.Type,
		); err != nil {
			return fmt.Errorf("parameter %s: %w", p.Name, err)
		}
	}
	return nil
}
