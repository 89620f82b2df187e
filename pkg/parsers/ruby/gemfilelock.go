package ruby

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// specLineRE matches resolved entries in the GEM specs block, which are
// indented exactly four spaces: `    rails (7.1.2)`.
var specLineRE = regexp.MustCompile(`^    ([a-zA-Z0-9_.-]+) \(([^)]+)\)$`)

// GemfileLock parses the resolved specs block of Gemfile.lock.
type GemfileLock struct{}

func (g *GemfileLock) Type() string { return "Gemfile.lock" }

func (g *GemfileLock) Supports(relPath string) bool {
	return baseOf(relPath) == "Gemfile.lock"
}

func (g *GemfileLock) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	inSpecs := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "specs:":
			inSpecs = true
			continue
		case "":
			inSpecs = false
			continue
		}
		if !inSpecs {
			continue
		}
		if m := specLineRE.FindStringSubmatch(line); m != nil {
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemRuby,
				ManifestPath: relPath,
				Dependency: record.Dependency{
					Name:    m[1],
					Version: m[2],
					Source:  sourceRubyGems,
				},
				Metadata: record.Metadata{Extra: map[string]string{"lockfile": "true"}},
			})
		}
	}
	return records, scanner.Err()
}
