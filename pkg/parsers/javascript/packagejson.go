// Package javascript normalizes npm manifests and resolved lockfiles:
// package.json declarations, package-lock.json, yarn.lock, and
// pnpm-lock.yaml.
package javascript

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceNPMRegistry = "npm_registry"

// PackageJSON parses package.json declarations. It also accepts
// package-ts.json (same grammar) and claims tsconfig.json so the dispatcher
// reports it handled rather than unroutable; tsconfig carries no dependencies.
type PackageJSON struct{}

func (p *PackageJSON) Type() string { return "package.json" }

func (p *PackageJSON) Supports(relPath string) bool {
	switch baseOf(relPath) {
	case "package.json", "package-ts.json", "tsconfig.json":
		return true
	}
	return false
}

type packageFile struct {
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

func (p *PackageJSON) Parse(root, relPath string) ([]record.Record, error) {
	if baseOf(relPath) == "tsconfig.json" {
		return nil, nil
	}

	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var pkg packageFile
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed package.json")
	}

	var records []record.Record
	add := func(deps map[string]string, dev bool) {
		for _, name := range sortedKeys(deps) {
			version := deps[name]
			if version == "" {
				version = record.VersionAny
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemNPM,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: sourceNPMRegistry},
				Metadata:     record.Metadata{DevDependency: dev},
			})
		}
	}
	add(pkg.Dependencies, false)
	add(pkg.DevDependencies, true)
	add(pkg.PeerDependencies, false)
	return records, nil
}

func baseOf(relPath string) string {
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
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
