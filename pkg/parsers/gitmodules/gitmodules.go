// Package gitmodules normalizes vendored submodule declarations from
// .gitmodules files (git-config syntax).
package gitmodules

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceVCS = "version-control"

var sectionRE = regexp.MustCompile(`^\[submodule\s+"([^"]+)"\]$`)

// GitModules parses submodule sections. The pinned commit lives in the git
// index, not the file, so the version is the tracked branch when declared
// and unconstrained otherwise.
type GitModules struct{}

func (g *GitModules) Type() string { return ".gitmodules" }

func (g *GitModules) Supports(relPath string) bool {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	return base == ".gitmodules"
}

type submodule struct {
	name   string
	path   string
	url    string
	branch string
	line   int
}

func (g *GitModules) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	var modules []submodule
	var current *submodule
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if m := sectionRE.FindStringSubmatch(line); m != nil {
			modules = append(modules, submodule{name: m[1], line: lineNo})
			current = &modules[len(modules)-1]
			continue
		}
		if current == nil || strings.HasPrefix(line, "[") {
			current = nil
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "path":
			current.path = strings.TrimSpace(value)
		case "url":
			current.url = strings.TrimSpace(value)
		case "branch":
			current.branch = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var records []record.Record
	for _, mod := range modules {
		if mod.url == "" {
			continue
		}
		version := mod.branch
		if version == "" {
			version = record.VersionAny
		}
		extra := map[string]string{}
		if mod.path != "" {
			extra["path"] = mod.path
		}
		rec := record.Record{
			Ecosystem:    record.EcosystemGit,
			ManifestPath: relPath,
			Dependency: record.Dependency{
				Name:     mod.name,
				Version:  version,
				Source:   sourceVCS,
				Resolved: mod.url,
			},
			Metadata: record.Metadata{LineNumber: mod.line},
		}
		if len(extra) > 0 {
			rec.Metadata.Extra = extra
		}
		records = append(records, rec)
	}
	return records, nil
}
