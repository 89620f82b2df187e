// Package java normalizes Maven pom.xml manifests.
package java

import (
	"encoding/xml"
	"strings"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// POM parses pom.xml dependency declarations. Dependency names use the
// Maven "groupId:artifactId" coordinate form; version property placeholders
// such as "${spring.version}" are kept verbatim since this system never
// performs version-range solving.
type POM struct{}

func (p *POM) Type() string { return "pom.xml" }

func (p *POM) Supports(relPath string) bool {
	return baseOf(relPath) == "pom.xml"
}

type pomProject struct {
	Dependencies struct {
		Dependency []pomDependency `xml:"dependency"`
	} `xml:"dependencies"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

func (p *POM) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed pom.xml")
	}

	var records []record.Record
	for _, dep := range pom.Dependencies.Dependency {
		if dep.ArtifactID == "" {
			continue
		}
		name := dep.ArtifactID
		if dep.GroupID != "" {
			name = dep.GroupID + ":" + dep.ArtifactID
		}
		version := strings.TrimSpace(dep.Version)
		if version == "" {
			version = record.VersionAny
		}
		records = append(records, record.Record{
			Ecosystem:    record.EcosystemJava,
			ManifestPath: relPath,
			Dependency:   record.Dependency{Name: name, Version: version, Source: "maven"},
			Metadata:     record.Metadata{DevDependency: strings.EqualFold(dep.Scope, "test")},
		})
	}
	return records, nil
}

func baseOf(relPath string) string {
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
