// Package python normalizes Python manifests: requirements.txt line lists,
// PEP 621 / poetry pyproject.toml documents, and setup.py build scripts.
package python

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourcePyPI = "pypi"

// requirementRE captures "name [operator version]". The operator set covers
// ==, >=, <=, >, <, ~= and != in any combination.
var requirementRE = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)(?:\s*([<>=~!]+)\s*([0-9a-zA-Z_.*+-]+))?`)

// Requirements parses requirements.txt files.
type Requirements struct{}

func (r *Requirements) Type() string { return "requirements.txt" }

func (r *Requirements) Supports(relPath string) bool {
	return baseOf(relPath) == "requirements.txt"
}

func (r *Requirements) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		// Blank lines, comments, and include/reference directives (-r, -f,
		// editable installs, index options) carry no dependency of their own.
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		m := requirementRE.FindStringSubmatch(line)
		if m == nil || m[1] == "" {
			continue
		}
		name, op, ver := m[1], m[2], m[3]
		version := record.VersionAny
		if ver != "" {
			if op == "" {
				op = "=="
			}
			version = op + ver
		}

		records = append(records, record.Record{
			Ecosystem:    record.EcosystemPython,
			ManifestPath: relPath,
			Dependency: record.Dependency{
				Name:    name,
				Version: version,
				Source:  sourcePyPI,
			},
			Metadata: record.Metadata{LineNumber: lineNum},
		})
	}
	return records, scanner.Err()
}

// parseSpec splits a PEP 508 requirement string into name and version
// expression, dropping environment markers. Returns ok=false for strings
// that do not begin with a package name.
func parseSpec(spec string) (name, version string, ok bool) {
	spec, _, _ = strings.Cut(spec, ";")
	spec = strings.TrimSpace(spec)

	m := regexp.MustCompile(`^([a-zA-Z0-9_.-]+)(.*)`).FindStringSubmatch(spec)
	if m == nil || m[1] == "" {
		return "", "", false
	}
	version = strings.TrimSpace(m[2])
	if version == "" {
		version = record.VersionAny
	}
	return m[1], version, true
}

func baseOf(relPath string) string {
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
