package main

import "github.com/jward/movefcg"

// CLIResult is the JSON envelope for subcommand output and errors.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIIndexSummary is the result of the index command.
type CLIIndexSummary struct {
	Root         string          `json:"root"`
	Package      string          `json:"package"`
	Files        int             `json:"files"`
	Modules      int             `json:"modules"`
	Functions    int             `json:"functions"`
	Dependencies []string        `json:"dependencies"`
	Diagnostics  []CLIDiagnostic `json:"diagnostics"`
	Snapshot     string          `json:"snapshot,omitempty"`
}

type CLIDiagnostic struct {
	Kind    string `json:"kind"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

// CLIModule is a JSON-friendly module summary.
type CLIModule struct {
	Key       string `json:"key"`
	Address   string `json:"address,omitempty"`
	Name      string `json:"name"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Functions int    `json:"functions"`
	Structs   int    `json:"structs"`
	Constants int    `json:"constants"`
}

// CLIFunction is a JSON-friendly function record.
type CLIFunction struct {
	Name          string                  `json:"name"`
	QualifiedName string                  `json:"qualified_name"`
	Visibility    string                  `json:"visibility"`
	Modifiers     []string                `json:"modifiers,omitempty"`
	Parameters    []movefcg.ParameterJSON `json:"parameters"`
	ReturnType    string                  `json:"return_type,omitempty"`
	File          string                  `json:"file"`
	StartLine     int                     `json:"start_line"`
	EndLine       int                     `json:"end_line"`
}

// CLIBatchEntry is one query of the batch command. Exactly one of Result and
// Error is set.
type CLIBatchEntry struct {
	Query  string              `json:"query"`
	Result *movefcg.ResultJSON `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func moduleToCLI(m *movefcg.Module) CLIModule {
	return CLIModule{
		Key:       m.Identity.Key(),
		Address:   m.Identity.Address,
		Name:      m.Identity.Name,
		File:      m.File,
		StartLine: m.Span.StartLine,
		EndLine:   m.Span.EndLine,
		Functions: len(m.Functions),
		Structs:   len(m.Structs),
		Constants: len(m.Constants),
	}
}

func functionToCLI(fn *movefcg.Function) CLIFunction {
	out := CLIFunction{
		Name:          fn.Name,
		QualifiedName: fn.QualifiedName(),
		Visibility:    fn.Visibility.String(),
		Parameters:    make([]movefcg.ParameterJSON, 0, len(fn.Parameters)),
		ReturnType:    fn.ReturnType,
		File:          fn.Span.File,
		StartLine:     fn.Span.StartLine,
		EndLine:       fn.Span.EndLine,
	}
	for _, m := range fn.Modifiers {
		out.Modifiers = append(out.Modifiers, string(m))
	}
	for _, p := range fn.Parameters {
		out.Parameters = append(out.Parameters, movefcg.ParameterJSON{Name: p.Name, Type: p.Type})
	}
	return out
}

func summaryToCLI(idx *movefcg.Index) CLIIndexSummary {
	out := CLIIndexSummary{
		Root:         idx.Root,
		Package:      idx.PackageName,
		Files:        len(idx.Files),
		Modules:      len(idx.Modules),
		Functions:    idx.FunctionCount(),
		Dependencies: make([]string, 0, len(idx.Dependencies)),
		Diagnostics:  make([]CLIDiagnostic, 0, len(idx.Diagnostics)),
	}
	for _, d := range idx.Dependencies {
		out.Dependencies = append(out.Dependencies, d.Name)
	}
	for _, d := range idx.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, CLIDiagnostic{Kind: string(d.Kind), File: d.File, Message: d.Message})
	}
	return out
}
