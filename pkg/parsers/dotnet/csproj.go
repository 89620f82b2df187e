// Package dotnet normalizes MSBuild project files and NuGet lockfiles.
package dotnet

import (
	"encoding/json"
	"encoding/xml"
	"sort"
	"strings"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceNuGet = "nuget"

// Csproj parses PackageReference items from any *.csproj project file.
type Csproj struct{}

func (c *Csproj) Type() string { return "csproj" }

func (c *Csproj) Supports(relPath string) bool {
	return strings.HasSuffix(strings.ToLower(relPath), ".csproj")
}

type csprojFile struct {
	ItemGroups []struct {
		PackageReferences []struct {
			Include string `xml:"Include,attr"`
			Version string `xml:"Version,attr"`
			// Some projects put the version in a child element instead.
			VersionElem string `xml:"Version"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

func (c *Csproj) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var file csprojFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed csproj XML")
	}

	var records []record.Record
	for _, group := range file.ItemGroups {
		for _, ref := range group.PackageReferences {
			if ref.Include == "" {
				continue
			}
			version := ref.Version
			if version == "" {
				version = strings.TrimSpace(ref.VersionElem)
			}
			if version == "" {
				version = record.VersionAny
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemDotNet,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: ref.Include, Version: version, Source: sourceNuGet},
			})
		}
	}
	return records, nil
}

// PackagesLock parses packages.lock.json. Entries are grouped per target
// framework; the same package pinned under multiple frameworks produces one
// record per framework (deduplication is a downstream concern).
type PackagesLock struct{}

func (p *PackagesLock) Type() string { return "packages.lock.json" }

func (p *PackagesLock) Supports(relPath string) bool {
	return baseOf(relPath) == "packages.lock.json"
}

type packagesLockFile struct {
	Dependencies map[string]map[string]struct {
		Type        string `json:"type"`
		Resolved    string `json:"resolved"`
		ContentHash string `json:"contentHash"`
	} `json:"dependencies"`
}

func (p *PackagesLock) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var lock packagesLockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed packages.lock.json")
	}

	frameworks := make([]string, 0, len(lock.Dependencies))
	for framework := range lock.Dependencies {
		frameworks = append(frameworks, framework)
	}
	sort.Strings(frameworks)

	var records []record.Record
	for _, framework := range frameworks {
		deps := lock.Dependencies[framework]
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry := deps[name]
			version := entry.Resolved
			if version == "" {
				version = record.VersionAny
			}
			extra := map[string]string{
				"lockfile":  "true",
				"framework": framework,
			}
			if entry.Type != "" {
				extra["reference_type"] = entry.Type
			}
			if entry.ContentHash != "" {
				extra["integrity"] = entry.ContentHash
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemDotNet,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: sourceNuGet},
				Metadata:     record.Metadata{Extra: extra},
			})
		}
	}
	return records, nil
}

func baseOf(relPath string) string {
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
