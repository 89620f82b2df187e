package python

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// devGroupNames is the vocabulary marking an optional-dependency group as
// development-only. Matched case-insensitively.
var devGroupNames = map[string]bool{
	"dev":              true,
	"test":             true,
	"testing":          true,
	"dev-dependencies": true,
}

// PyProject parses pyproject.toml: PEP 621 [project] dependencies plus the
// legacy [tool.poetry.dependencies] table.
type PyProject struct{}

func (p *PyProject) Type() string { return "pyproject.toml" }

func (p *PyProject) Supports(relPath string) bool {
	return baseOf(relPath) == "pyproject.toml"
}

type pyprojectFile struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
			Group        map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (p *PyProject) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var file pyprojectFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed pyproject.toml")
	}

	var records []record.Record
	add := func(name, version, source string, dev bool) {
		records = append(records, record.Record{
			Ecosystem:    record.EcosystemPython,
			ManifestPath: relPath,
			Dependency:   record.Dependency{Name: name, Version: version, Source: source},
			Metadata:     record.Metadata{DevDependency: dev},
		})
	}

	for _, spec := range file.Project.Dependencies {
		if name, version, ok := parseSpec(spec); ok {
			add(name, version, sourcePyPI, false)
		}
	}
	for _, group := range sortedKeys(file.Project.OptionalDependencies) {
		dev := devGroupNames[strings.ToLower(group)]
		for _, spec := range file.Project.OptionalDependencies[group] {
			if name, version, ok := parseSpec(spec); ok {
				add(name, version, sourcePyPI, dev)
			}
		}
	}

	devNames := make(map[string]bool)
	for name := range file.Tool.Poetry.Group["dev"].Dependencies {
		devNames[name] = true
	}
	for _, name := range sortedKeys(file.Tool.Poetry.Dependencies) {
		version, source := poetryVersion(file.Tool.Poetry.Dependencies[name])
		add(name, version, source, devNames[name])
	}

	return records, nil
}

// sortedKeys returns the map's keys in lexical order so record emission is
// deterministic across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// poetryVersion resolves a poetry dependency value, which is either a plain
// constraint string or a table whose keys determine the source: a "git" key
// is a version-control locator (version taken from rev/tag/branch), a "path"
// key is a local path, anything else is the default registry.
func poetryVersion(value any) (version, source string) {
	switch v := value.(type) {
	case string:
		return v, sourcePyPI
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
			return ver, sourcePyPI
		}
		return record.VersionAny, sourcePyPI
	default:
		return fmt.Sprintf("%v", value), sourcePyPI
	}
}
