// Package rust normalizes Cargo.toml manifests and Cargo.lock resolutions.
package rust

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceCrates = "crates.io"

// CargoToml parses [dependencies] and [dev-dependencies] tables. A
// dependency value is either a plain constraint string or a table whose
// keys (version, git, path) determine the version and source.
type CargoToml struct{}

func (c *CargoToml) Type() string { return "Cargo.toml" }

func (c *CargoToml) Supports(relPath string) bool {
	return strings.EqualFold(baseOf(relPath), "cargo.toml")
}

type cargoFile struct {
	Dependencies    map[string]any `toml:"dependencies"`
	DevDependencies map[string]any `toml:"dev-dependencies"`
}

func (c *CargoToml) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var cargo cargoFile
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed Cargo.toml")
	}

	var records []record.Record
	emit := func(deps map[string]any, dev bool) {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			version, source := cargoVersion(deps[name])
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemRust,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: source},
				Metadata:     record.Metadata{DevDependency: dev},
			})
		}
	}
	emit(cargo.Dependencies, false)
	emit(cargo.DevDependencies, true)
	return records, nil
}

func cargoVersion(value any) (version, source string) {
	switch v := value.(type) {
	case string:
		return v, sourceCrates
	case map[string]any:
		if git, ok := v["git"].(string); ok {
			version = record.VersionAny
			for _, key := range []string{"rev", "tag", "branch"} {
				if ref, ok := v[key].(string); ok {
					version = ref
					break
				}
			}
			return version, "git+" + git
		}
		if path, ok := v["path"].(string); ok {
			return record.VersionAny, "file://" + path
		}
		if ver, ok := v["version"].(string); ok {
			return ver, sourceCrates
		}
		return record.VersionAny, sourceCrates
	default:
		return fmt.Sprintf("%v", value), sourceCrates
	}
}

func baseOf(relPath string) string {
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
