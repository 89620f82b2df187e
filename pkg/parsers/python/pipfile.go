package python

import (
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// Pipfile parses pipenv's TOML manifest: [packages] and [dev-packages]
// tables. Values follow the same shapes as poetry's dependency tables
// (string constraint, or a table with version/git/path keys).
type Pipfile struct{}

func (p *Pipfile) Type() string { return "Pipfile" }

func (p *Pipfile) Supports(relPath string) bool {
	return baseOf(relPath) == "Pipfile"
}

type pipfileDoc struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

func (p *Pipfile) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var doc pipfileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed Pipfile")
	}

	var records []record.Record
	emit := func(table map[string]any, dev bool) {
		for _, name := range sortedKeys(table) {
			version, source := poetryVersion(table[name])
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemPython,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: source},
				Metadata:     record.Metadata{DevDependency: dev},
			})
		}
	}
	emit(doc.Packages, false)
	emit(doc.DevPackages, true)
	return records, nil
}

// PipfileLock parses Pipfile.lock resolved entries from the default and
// develop sections.
type PipfileLock struct{}

func (p *PipfileLock) Type() string { return "Pipfile.lock" }

func (p *PipfileLock) Supports(relPath string) bool {
	return baseOf(relPath) == "Pipfile.lock"
}

type pipfileLockDoc struct {
	Default map[string]pipfileLockEntry `json:"default"`
	Develop map[string]pipfileLockEntry `json:"develop"`
}

type pipfileLockEntry struct {
	Version string   `json:"version"`
	Hashes  []string `json:"hashes"`
}

func (p *PipfileLock) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var lock pipfileLockDoc
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed Pipfile.lock")
	}

	var records []record.Record
	emit := func(section map[string]pipfileLockEntry, dev bool) {
		for _, name := range sortedKeys(section) {
			entry := section[name]
			// Locked versions are pinned as "==1.2.3"; keep the resolved
			// number itself.
			version := strings.TrimPrefix(entry.Version, "==")
			if version == "" {
				version = record.VersionAny
			}
			extra := map[string]string{"lockfile": "true"}
			if len(entry.Hashes) > 0 {
				extra["integrity"] = entry.Hashes[0]
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemPython,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: sourcePyPI},
				Metadata:     record.Metadata{DevDependency: dev, Extra: extra},
			})
		}
	}
	emit(lock.Default, false)
	emit(lock.Develop, true)
	return records, nil
}
