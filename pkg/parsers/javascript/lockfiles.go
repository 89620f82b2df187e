package javascript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// Lockfiles parses resolved npm dependency graphs: package-lock.json,
// yarn.lock, and pnpm-lock.yaml. Every record it emits carries the lockfile
// flag plus integrity digest and resolved URL when present.
type Lockfiles struct{}

func (l *Lockfiles) Type() string { return "npm lockfile" }

func (l *Lockfiles) Supports(relPath string) bool {
	switch baseOf(relPath) {
	case "package-lock.json", "yarn.lock", "pnpm-lock.yaml":
		return true
	}
	return false
}

func (l *Lockfiles) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	switch baseOf(relPath) {
	case "package-lock.json":
		return parsePackageLock(data, relPath)
	case "yarn.lock":
		return parseYarnLock(data, relPath), nil
	case "pnpm-lock.yaml":
		return parsePnpmLock(data, relPath)
	}
	return nil, nil
}

func lockRecord(relPath, name, version, resolved, integrity string) record.Record {
	extra := map[string]string{"lockfile": "true"}
	if integrity != "" {
		extra["integrity"] = integrity
	}
	return record.Record{
		Ecosystem:    record.EcosystemNPM,
		ManifestPath: relPath,
		Dependency: record.Dependency{
			Name:     name,
			Version:  version,
			Source:   sourceNPMRegistry,
			Resolved: resolved,
		},
		Metadata: record.Metadata{Extra: extra},
	}
}

// lockEntry is one node of the package-lock dependency tree. Nodes nest
// without an artificial depth bound; the tree owns its children and holds no
// back-references, so it can be discarded as soon as it is flattened.
type lockEntry struct {
	Version      string               `json:"version"`
	Resolved     string               `json:"resolved"`
	Integrity    string               `json:"integrity"`
	Dependencies map[string]lockEntry `json:"dependencies"`
}

func parsePackageLock(data []byte, relPath string) ([]record.Record, error) {
	var lock struct {
		Dependencies map[string]lockEntry `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed package-lock.json")
	}

	var records []record.Record
	var flatten func(deps map[string]lockEntry)
	flatten = func(deps map[string]lockEntry) {
		for _, name := range sortedKeys(deps) {
			entry := deps[name]
			records = append(records, lockRecord(relPath, name, entry.Version, entry.Resolved, entry.Integrity))
			flatten(entry.Dependencies)
		}
	}
	flatten(lock.Dependencies)
	return records, nil
}

// parseYarnLock reads the yarn v1 text format: entries start at column zero
// with "package@range:" and carry indented version/resolved/integrity lines.
func parseYarnLock(data []byte, relPath string) []record.Record {
	var records []record.Record
	var name, version, resolved, integrity string

	flush := func() {
		if name != "" && version != "" {
			records = append(records, lockRecord(relPath, name, version, resolved, integrity))
		}
		name, version, resolved, integrity = "", "", "", ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, " ") {
			flush()
			name = yarnEntryName(line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "version "):
			version = strings.Trim(trimmed[len("version "):], `"`)
		case strings.HasPrefix(trimmed, "resolved "):
			resolved = strings.Trim(trimmed[len("resolved "):], `"`)
		case strings.HasPrefix(trimmed, "integrity "):
			integrity = strings.TrimSpace(trimmed[len("integrity "):])
		}
	}
	flush()
	return records
}

// yarnEntryName extracts the package name from an entry header such as
// `lodash@^4.17.0:` or `"@babel/core@^7.0.0", "@babel/core@^7.2.0":`.
// The version range after the final "@" is not part of the name.
func yarnEntryName(header string) string {
	header = strings.TrimSuffix(strings.TrimSpace(header), ":")
	first, _, _ := strings.Cut(header, ",")
	first = strings.Trim(strings.TrimSpace(first), `"`)
	if i := strings.LastIndexByte(first, '@'); i > 0 {
		return first[:i]
	}
	return first
}

func parsePnpmLock(data []byte, relPath string) ([]record.Record, error) {
	var lock struct {
		Packages  map[string]pnpmEntry `yaml:"packages"`
		Snapshots map[string]pnpmEntry `yaml:"snapshots"`
	}
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed pnpm-lock.yaml")
	}

	var records []record.Record
	emit := func(entries map[string]pnpmEntry) {
		for _, key := range sortedKeys(entries) {
			name, version, ok := splitPnpmKey(key)
			if !ok {
				continue
			}
			entry := entries[key]
			records = append(records, lockRecord(relPath, name, version, entry.Resolution.Tarball, entry.Resolution.Integrity))
		}
	}
	emit(lock.Packages)
	emit(lock.Snapshots)
	return records, nil
}

type pnpmEntry struct {
	Resolution struct {
		Tarball   string `yaml:"tarball"`
		Integrity string `yaml:"integrity"`
	} `yaml:"resolution"`
}

// splitPnpmKey handles both "/name/1.0.0" (v6 and earlier) and "name@1.0.0"
// (v9) package keys, including scoped names.
func splitPnpmKey(key string) (name, version string, ok bool) {
	key = strings.Trim(key, "/")
	if i := strings.LastIndexByte(key, '@'); i > 0 {
		return key[:i], key[i+1:], true
	}
	if i := strings.LastIndexByte(key, '/'); i > 0 {
		return key[:i], key[i+1:], true
	}
	return "", "", false
}
