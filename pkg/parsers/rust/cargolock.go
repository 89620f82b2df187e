package rust

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// CargoLock parses the [[package]] entries of Cargo.lock. Every entry is
// resolved, including the workspace's own crates; those carry no source and
// are skipped.
type CargoLock struct{}

func (c *CargoLock) Type() string { return "Cargo.lock" }

func (c *CargoLock) Supports(relPath string) bool {
	return strings.EqualFold(baseOf(relPath), "cargo.lock")
}

type cargoLockFile struct {
	Packages []struct {
		Name     string `toml:"name"`
		Version  string `toml:"version"`
		Source   string `toml:"source"`
		Checksum string `toml:"checksum"`
	} `toml:"package"`
}

func (c *CargoLock) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var lock cargoLockFile
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed Cargo.lock")
	}

	var records []record.Record
	for _, pkg := range lock.Packages {
		if pkg.Source == "" {
			continue // workspace member, not an external dependency
		}
		extra := map[string]string{"lockfile": "true"}
		if pkg.Checksum != "" {
			extra["integrity"] = pkg.Checksum
		}
		records = append(records, record.Record{
			Ecosystem:    record.EcosystemRust,
			ManifestPath: relPath,
			Dependency: record.Dependency{
				Name:     pkg.Name,
				Version:  pkg.Version,
				Source:   sourceCrates,
				Resolved: pkg.Source,
			},
			Metadata: record.Metadata{Extra: extra},
		})
	}
	return records, nil
}
