package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/movefcg/internal/model"
)

// LoadIndex rebuilds the project index saved by SaveIndex. Function records
// are shared between their module and the by-name table, as they are after a
// fresh build.
func (s *Store) LoadIndex() (*model.ProjectIndex, error) {
	version, err := s.Metadata("schema_version")
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if version == "" {
		return nil, ErrNoSnapshot
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("load index: schema version %s, want %s", version, SchemaVersion)
	}
	root, err := s.Metadata("root")
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	pkg, err := s.Metadata("package_name")
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	idx := model.NewProjectIndex(root, pkg)
	files, err := s.loadFiles(idx)
	if err != nil {
		return nil, err
	}
	modules, err := s.loadModules(idx, files)
	if err != nil {
		return nil, err
	}
	if err := s.loadFunctions(idx, files, modules); err != nil {
		return nil, err
	}
	if err := s.loadPackage(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// loadFiles fills idx.Files with the parsed files in scan order and returns
// every file path by row id.
func (s *Store) loadFiles(idx *model.ProjectIndex) (map[int64]string, error) {
	rows, err := s.db.Query("SELECT id, path, parsed FROM files ORDER BY ordinal, id")
	if err != nil {
		return nil, fmt.Errorf("load index: query files: %w", err)
	}
	defer rows.Close()

	paths := make(map[int64]string)
	for rows.Next() {
		var (
			id     int64
			path   string
			parsed bool
		)
		if err := rows.Scan(&id, &path, &parsed); err != nil {
			return nil, fmt.Errorf("load index: scan file: %w", err)
		}
		paths[id] = path
		if parsed {
			idx.Files = append(idx.Files, path)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load index: files: %w", err)
	}
	return paths, nil
}

// loadModules restores modules in scan order and returns them keyed by
// "file\x00key" for attaching functions.
func (s *Store) loadModules(idx *model.ProjectIndex, files map[int64]string) (map[string]*model.ModuleRecord, error) {
	rows, err := s.db.Query(`SELECT id, file_id, address, name, start_line, end_line, source, friends
		FROM modules ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("load index: query modules: %w", err)
	}

	type loaded struct {
		id  int64
		mod *model.ModuleRecord
	}
	var mods []loaded
	for rows.Next() {
		var (
			id, fileID int64
			m          model.ModuleRecord
			friends    sql.NullString
			source     sql.NullString
		)
		if err := rows.Scan(&id, &fileID, &m.Identity.Address, &m.Identity.Name,
			&m.Span.StartLine, &m.Span.EndLine, &source, &friends); err != nil {
			rows.Close()
			return nil, fmt.Errorf("load index: scan module: %w", err)
		}
		m.File = files[fileID]
		m.Span.File = m.File
		m.Span.Text = source.String
		m.Friends = unmarshalList[string](friends.String)
		mods = append(mods, loaded{id: id, mod: &m})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("load index: modules: %w", err)
	}

	byFile := make(map[string]*model.ModuleRecord, len(mods))
	for _, l := range mods {
		if err := s.loadModuleMembers(l.id, l.mod); err != nil {
			return nil, fmt.Errorf("load index: module %s: %w", l.mod.Identity.Key(), err)
		}
		key := l.mod.Identity.Key()
		idx.Modules[key] = l.mod
		idx.ModuleOrder = append(idx.ModuleOrder, key)
		byFile[l.mod.File+"\x00"+key] = l.mod
	}
	return byFile, nil
}

func (s *Store) loadModuleMembers(moduleID int64, m *model.ModuleRecord) error {
	rows, err := s.db.Query(`SELECT name, type_params, abilities, fields, start_line, end_line, source
		FROM structs WHERE module_id = ? ORDER BY ordinal`, moduleID)
	if err != nil {
		return fmt.Errorf("query structs: %w", err)
	}
	for rows.Next() {
		st := &model.StructRecord{Module: m.Identity}
		var typeParams, abilities, fds, source sql.NullString
		if err := rows.Scan(&st.Name, &typeParams, &abilities, &fds,
			&st.Span.StartLine, &st.Span.EndLine, &source); err != nil {
			rows.Close()
			return fmt.Errorf("scan struct: %w", err)
		}
		st.TypeParams = typeParams.String
		st.Abilities = unmarshalList[string](abilities.String)
		st.Fields = unmarshalList[model.Field](fds.String)
		st.Span.File = m.File
		st.Span.Text = source.String
		m.Structs = append(m.Structs, st)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("structs: %w", err)
	}

	rows, err = s.db.Query(`SELECT name, type_expr, value, start_line, end_line, source
		FROM constants WHERE module_id = ? ORDER BY ordinal`, moduleID)
	if err != nil {
		return fmt.Errorf("query constants: %w", err)
	}
	for rows.Next() {
		c := &model.ConstantRecord{Module: m.Identity}
		var typ, value, source sql.NullString
		if err := rows.Scan(&c.Name, &typ, &value, &c.Span.StartLine, &c.Span.EndLine, &source); err != nil {
			rows.Close()
			return fmt.Errorf("scan constant: %w", err)
		}
		c.Type = typ.String
		c.Value = value.String
		c.Span.File = m.File
		c.Span.Text = source.String
		m.Constants = append(m.Constants, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("constants: %w", err)
	}

	rows, err = s.db.Query(`SELECT address, module, alias, members
		FROM uses WHERE module_id = ? ORDER BY ordinal`, moduleID)
	if err != nil {
		return fmt.Errorf("query uses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			u                       model.UseDecl
			address, alias, members sql.NullString
		)
		if err := rows.Scan(&address, &u.Module, &alias, &members); err != nil {
			return fmt.Errorf("scan use: %w", err)
		}
		u.Address = address.String
		u.Alias = alias.String
		u.Members = unmarshalList[model.UseMember](members.String)
		m.Uses = append(m.Uses, u)
	}
	return rows.Err()
}

// loadFunctions restores functions ordered by file then declaration, which
// is the order the engine merges them in.
func (s *Store) loadFunctions(idx *model.ProjectIndex, files map[int64]string, modules map[string]*model.ModuleRecord) error {
	rows, err := s.db.Query(`SELECT f.id, f.file_id, f.module_address, f.module_name, f.name, f.visibility,
		  f.modifiers, f.type_params, f.return_type, f.acquires, f.attributes,
		  f.start_line, f.end_line, f.source, f.ordinal
		FROM functions f JOIN files fl ON fl.id = f.file_id
		ORDER BY fl.ordinal, f.ordinal`)
	if err != nil {
		return fmt.Errorf("load index: query functions: %w", err)
	}

	byID := make(map[int64]*model.FunctionRecord)
	for rows.Next() {
		fn := &model.FunctionRecord{}
		var (
			id, fileID                      int64
			visibility                      string
			modifiers, acquires, attributes sql.NullString
			typeParams, returnType, source  sql.NullString
		)
		if err := rows.Scan(&id, &fileID, &fn.Module.Address, &fn.Module.Name, &fn.Name, &visibility,
			&modifiers, &typeParams, &returnType, &acquires, &attributes,
			&fn.Span.StartLine, &fn.Span.EndLine, &source, &fn.Ordinal); err != nil {
			rows.Close()
			return fmt.Errorf("load index: scan function: %w", err)
		}
		fn.Visibility = model.ParseVisibility(visibility)
		fn.Modifiers = unmarshalList[model.Modifier](modifiers.String)
		fn.TypeParams = typeParams.String
		fn.ReturnType = returnType.String
		fn.Acquires = unmarshalList[string](acquires.String)
		fn.Attributes = unmarshalList[string](attributes.String)
		fn.Span.File = files[fileID]
		fn.Span.Text = source.String

		byID[id] = fn
		idx.Functions[fn.Name] = append(idx.Functions[fn.Name], fn)
		if m, ok := modules[fn.Span.File+"\x00"+fn.Module.Key()]; ok {
			m.Functions = append(m.Functions, fn)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("load index: functions: %w", err)
	}

	params, err := s.db.Query("SELECT function_id, name, type_expr FROM function_parameters ORDER BY function_id, ordinal")
	if err != nil {
		return fmt.Errorf("load index: query parameters: %w", err)
	}
	defer params.Close()
	for params.Next() {
		var (
			functionID int64
			name, typ  sql.NullString
		)
		if err := params.Scan(&functionID, &name, &typ); err != nil {
			return fmt.Errorf("load index: scan parameter: %w", err)
		}
		if fn, ok := byID[functionID]; ok {
			fn.Parameters = append(fn.Parameters, model.Parameter{Name: name.String, Type: typ.String})
		}
	}
	if err := params.Err(); err != nil {
		return fmt.Errorf("load index: parameters: %w", err)
	}
	return nil
}

func (s *Store) loadPackage(idx *model.ProjectIndex) error {
	rows, err := s.db.Query("SELECT name, version, path FROM dependencies ORDER BY ordinal")
	if err != nil {
		return fmt.Errorf("load index: query dependencies: %w", err)
	}
	for rows.Next() {
		var (
			d             model.Dependency
			version, path sql.NullString
		)
		if err := rows.Scan(&d.Name, &version, &path); err != nil {
			rows.Close()
			return fmt.Errorf("load index: scan dependency: %w", err)
		}
		d.Version = version.String
		d.Path = path.String
		idx.Dependencies = append(idx.Dependencies, d)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("load index: dependencies: %w", err)
	}

	rows, err = s.db.Query("SELECT name, value FROM addresses")
	if err != nil {
		return fmt.Errorf("load index: query addresses: %w", err)
	}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			rows.Close()
			return fmt.Errorf("load index: scan address: %w", err)
		}
		idx.Addresses[name] = value
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("load index: addresses: %w", err)
	}

	rows, err = s.db.Query("SELECT kind, file, message FROM diagnostics ORDER BY ordinal")
	if err != nil {
		return fmt.Errorf("load index: query diagnostics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			kind          string
			file, message sql.NullString
		)
		if err := rows.Scan(&kind, &file, &message); err != nil {
			return fmt.Errorf("load index: scan diagnostic: %w", err)
		}
		idx.Diagnostics = append(idx.Diagnostics, model.Diagnostic{
			Kind:    model.DiagnosticKind(kind),
			File:    file.String,
			Message: message.String,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load index: diagnostics: %w", err)
	}
	return nil
}
