// Package php normalizes composer.json declarations and composer.lock
// resolutions.
package php

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourcePackagist = "packagist"

// Composer parses composer.json require and require-dev maps. Platform
// entries such as "php" or "ext-json" are kept; downstream consumers can
// filter on the name if they want packages only.
type Composer struct{}

func (c *Composer) Type() string { return "composer.json" }

func (c *Composer) Supports(relPath string) bool {
	return baseOf(relPath) == "composer.json"
}

type composerFile struct {
	Require    map[string]string `json:"require"`
	RequireDev map[string]string `json:"require-dev"`
}

func (c *Composer) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var file composerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed composer.json")
	}

	var records []record.Record
	emit := func(deps map[string]string, dev bool) {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			version := deps[name]
			if version == "" {
				version = record.VersionAny
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemPHP,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: sourcePackagist},
				Metadata:     record.Metadata{DevDependency: dev},
			})
		}
	}
	emit(file.Require, false)
	emit(file.RequireDev, true)
	return records, nil
}

// ComposerLock parses composer.lock packages and packages-dev lists.
type ComposerLock struct{}

func (c *ComposerLock) Type() string { return "composer.lock" }

func (c *ComposerLock) Supports(relPath string) bool {
	return baseOf(relPath) == "composer.lock"
}

type composerLockFile struct {
	Packages    []composerLockPackage `json:"packages"`
	PackagesDev []composerLockPackage `json:"packages-dev"`
}

type composerLockPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Dist    struct {
		URL    string `json:"url"`
		Shasum string `json:"shasum"`
	} `json:"dist"`
}

func (c *ComposerLock) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var lock composerLockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed composer.lock")
	}

	var records []record.Record
	emit := func(pkgs []composerLockPackage, dev bool) {
		for _, pkg := range pkgs {
			extra := map[string]string{"lockfile": "true"}
			if pkg.Dist.Shasum != "" {
				extra["integrity"] = pkg.Dist.Shasum
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemPHP,
				ManifestPath: relPath,
				Dependency: record.Dependency{
					Name:     pkg.Name,
					Version:  pkg.Version,
					Source:   sourcePackagist,
					Resolved: pkg.Dist.URL,
				},
				Metadata: record.Metadata{DevDependency: dev, Extra: extra},
			})
		}
	}
	emit(lock.Packages, false)
	emit(lock.PackagesDev, true)
	return records, nil
}

func baseOf(relPath string) string {
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
