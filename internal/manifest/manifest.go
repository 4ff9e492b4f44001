// Package manifest reads package metadata from Move.toml with simple
// `[section] key = value` pattern matching. It is deliberately not a TOML
// parser: anything it cannot match falls back to defaults.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jward/movefcg/internal/model"
)

// FileName is the manifest file looked up at the project root.
const FileName = "Move.toml"

// DefaultPackageName is used when no manifest or no package name is found.
const DefaultPackageName = "unknown"

// ErrMalformed is wrapped when a manifest exists but yields no package name.
var ErrMalformed = errors.New("malformed manifest")

type Manifest struct {
	PackageName  string
	Dependencies []model.Dependency
	// Addresses holds the [addresses] section, e.g. std = "0x1".
	Addresses map[string]string
}

var (
	headerRe    = regexp.MustCompile(`(?m)^\s*\[([^\]\n]+)\]\s*$`)
	nameRe      = regexp.MustCompile(`(?m)^\s*name\s*=\s*["']([^"']+)["']`)
	depEntryRe  = regexp.MustCompile(`([\w-]+)\s*=\s*\{([^}]+)\}`)
	versionRe   = regexp.MustCompile(`version\s*=\s*["']([^"']+)["']`)
	pathRe      = regexp.MustCompile(`(?:local|path)\s*=\s*["']([^"']+)["']`)
	addrEntryRe = regexp.MustCompile(`(?m)^\s*([\w-]+)\s*=\s*["']([^"']*)["']`)
)

// Default returns the manifest used when none can be read.
func Default() Manifest {
	return Manifest{PackageName: DefaultPackageName, Addresses: map[string]string{}}
}

// Read loads root/Move.toml. A missing manifest returns Default and no
// error. An unreadable or malformed one returns the best-effort result
// together with an error the caller may record as a diagnostic.
func Read(root string) (Manifest, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("manifest: read %s: %w", path, err)
	}
	m := Parse(string(data))
	if m.PackageName == DefaultPackageName {
		return m, fmt.Errorf("manifest: %s: %w: no [package] name", path, ErrMalformed)
	}
	return m, nil
}

// Parse extracts the package name, dependencies and named addresses from
// manifest text.
func Parse(content string) Manifest {
	m := Default()
	sections := split(content)
	if match := nameRe.FindStringSubmatch(sections["package"]); match != nil {
		m.PackageName = match[1]
	}
	if deps, ok := sections["dependencies"]; ok {
		for _, dep := range depEntryRe.FindAllStringSubmatch(deps, -1) {
			d := model.Dependency{Name: dep[1]}
			if v := versionRe.FindStringSubmatch(dep[2]); v != nil {
				d.Version = v[1]
			}
			if p := pathRe.FindStringSubmatch(dep[2]); p != nil {
				d.Path = p[1]
			}
			m.Dependencies = append(m.Dependencies, d)
		}
	}
	for _, a := range addrEntryRe.FindAllStringSubmatch(sections["addresses"], -1) {
		m.Addresses[a[1]] = a[2]
	}
	return m
}

// split maps each `[section]` header to the text up to the next header.
// Only the first occurrence of a section is kept.
func split(content string) map[string]string {
	sections := make(map[string]string)
	locs := headerRe.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		name := strings.TrimSpace(content[loc[2]:loc[3]])
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, seen := sections[name]; !seen {
			sections[name] = content[loc[1]:end]
		}
	}
	return sections
}
