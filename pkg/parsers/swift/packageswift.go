// Package swift normalizes SwiftPM dependency declarations from
// Package.swift manifests.
package swift

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceSwiftPM = "swiftpm"

// Package.swift is executable Swift, not data, so a full parse is out of
// reach. The declaration shapes SwiftPM documents are regular enough that a
// line scan recovers them reliably.
var (
	packageURLRE     = regexp.MustCompile(`\.package\s*\(\s*url:\s*"([^"]+)"`)
	packageVersionRE = regexp.MustCompile(`(?:from|exact|branch|revision):\s*"([^"]+)"`)
)

// PackageSwift extracts .package(url:...) declarations.
type PackageSwift struct{}

func (p *PackageSwift) Type() string { return "Package.swift" }

func (p *PackageSwift) Supports(relPath string) bool {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	return base == "Package.swift"
}

func (p *PackageSwift) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		urlMatch := packageURLRE.FindStringSubmatch(line)
		if urlMatch == nil {
			continue
		}
		url := urlMatch[1]
		version := record.VersionAny
		if m := packageVersionRE.FindStringSubmatch(line); m != nil {
			version = m[1]
		}
		records = append(records, record.Record{
			Ecosystem:    record.EcosystemSwift,
			ManifestPath: relPath,
			Dependency: record.Dependency{
				Name:     packageName(url),
				Version:  version,
				Source:   sourceSwiftPM,
				Resolved: url,
			},
			Metadata: record.Metadata{LineNumber: lineNo},
		})
	}
	return records, scanner.Err()
}

// packageName derives the conventional package name from its repository URL:
// the last path segment with any .git suffix removed.
func packageName(url string) string {
	name := url
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}
