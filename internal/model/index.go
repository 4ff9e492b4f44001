package model

import "fmt"

// DiagnosticKind classifies a recoverable problem found while indexing.
type DiagnosticKind string

const (
	FileParseFailure   DiagnosticKind = "file_parse_failure"
	PartialParse       DiagnosticKind = "partial_parse"
	FileReadFailure    DiagnosticKind = "file_read_failure"
	ManifestMalformed  DiagnosticKind = "manifest_malformed"
	ModuleKeyCollision DiagnosticKind = "module_key_collision"
)

type Diagnostic struct {
	Kind    DiagnosticKind
	File    string
	Message string
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.File, d.Message)
}

// ProjectIndex is the read-only result of one index build.
type ProjectIndex struct {
	Root         string
	PackageName  string
	Modules      map[string]*ModuleRecord
	Functions    map[string][]*FunctionRecord
	Dependencies []Dependency
	// Addresses maps named addresses from the manifest to their values.
	Addresses    map[string]string
	Files        []string
	Diagnostics  []Diagnostic

	// ModuleOrder lists module keys in scan order.
	ModuleOrder []string
}

// NewProjectIndex returns an empty index for root.
func NewProjectIndex(root, packageName string) *ProjectIndex {
	if packageName == "" {
		packageName = "unknown"
	}
	return &ProjectIndex{
		Root:        root,
		PackageName: packageName,
		Modules:     make(map[string]*ModuleRecord),
		Functions:   make(map[string][]*FunctionRecord),
		Addresses:   make(map[string]string),
	}
}

// OrderedModules returns the modules in scan order.
func (p *ProjectIndex) OrderedModules() []*ModuleRecord {
	mods := make([]*ModuleRecord, 0, len(p.ModuleOrder))
	for _, key := range p.ModuleOrder {
		if m, ok := p.Modules[key]; ok {
			mods = append(mods, m)
		}
	}
	return mods
}

// FunctionCount is the total number of indexed functions.
func (p *ProjectIndex) FunctionCount() int {
	n := 0
	for _, fns := range p.Functions {
		n += len(fns)
	}
	return n
}

// DiagnosticsOf returns the diagnostics of the given kind.
func (p *ProjectIndex) DiagnosticsOf(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range p.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
