// Package ruby normalizes Gemfile declarations and Gemfile.lock resolutions.
package ruby

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceRubyGems = "rubygems"

// gemLineRE captures `gem "name"` with an optional first constraint argument.
var gemLineRE = regexp.MustCompile(`^\s*gem\s+['"]([^'"]+)['"](?:\s*,\s*['"]([^'"]+)['"])?`)

// Gemfile parses gem declarations line by line.
type Gemfile struct{}

func (g *Gemfile) Type() string { return "Gemfile" }

func (g *Gemfile) Supports(relPath string) bool {
	return baseOf(relPath) == "Gemfile"
}

func (g *Gemfile) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	inDevGroup := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Track group blocks so :development/:test members get the dev flag.
		if strings.HasPrefix(trimmed, "group") {
			if strings.Contains(trimmed, ":development") || strings.Contains(trimmed, ":test") {
				inDevGroup++
			}
			continue
		}
		if trimmed == "end" && inDevGroup > 0 {
			inDevGroup--
			continue
		}

		m := gemLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		version := m[2]
		if version == "" {
			version = record.VersionAny
		}
		records = append(records, record.Record{
			Ecosystem:    record.EcosystemRuby,
			ManifestPath: relPath,
			Dependency:   record.Dependency{Name: m[1], Version: version, Source: sourceRubyGems},
			Metadata:     record.Metadata{DevDependency: inDevGroup > 0, LineNumber: lineNum},
		})
	}
	return records, scanner.Err()
}

func baseOf(relPath string) string {
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		return relPath[i+1:]
	}
	return relPath
}
