// Package makefile extracts system library linkage from Makefiles: -l
// flags in linker variable assignments and pkg-config module lookups.
package makefile

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const (
	sourceSystem    = "system"
	sourcePkgConfig = "pkg-config"
)

var (
	linkerAssignRE = regexp.MustCompile(`^\s*(LIBS|LDLIBS|LDFLAGS)\s*[:+?]?=\s*(.*)$`)
	// pkg-config invocations appear in backticks or $(shell ...).
	pkgConfigRE = regexp.MustCompile("(?:`|\\$\\(shell\\s+)[^`)]*pkg-config\\s+([^`)]+)")
)

// toolchainLibs are always present on the link line and carry no supply
// chain signal.
var toolchainLibs = map[string]bool{"m": true, "c": true, "gcc": true}

// Makefile handles Makefile and *.mk files.
type Makefile struct{}

func (m *Makefile) Type() string { return "makefile" }

func (m *Makefile) Supports(relPath string) bool {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	return base == "Makefile" || strings.HasSuffix(base, ".mk")
}

func (m *Makefile) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	seen := map[string]bool{}
	emit := func(name, source, variable string, lineNo int) {
		key := source + "/" + name
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		extra := map[string]string{}
		if variable != "" {
			extra["variable"] = variable
		}
		rec := record.Record{
			Ecosystem:    record.EcosystemMakefile,
			ManifestPath: relPath,
			Dependency:   record.Dependency{Name: name, Version: record.VersionAny, Source: source},
			Metadata:     record.Metadata{LineNumber: lineNo},
		}
		if len(extra) > 0 {
			rec.Metadata.Extra = extra
		}
		records = append(records, rec)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if match := linkerAssignRE.FindStringSubmatch(line); match != nil {
			variable, value := match[1], match[2]
			for _, token := range strings.Fields(value) {
				if !strings.HasPrefix(token, "-l") || len(token) == 2 {
					continue
				}
				lib := token[2:]
				if toolchainLibs[lib] || strings.HasPrefix(lib, "$(") {
					continue
				}
				emit(lib, sourceSystem, variable, lineNo)
			}
		}

		for _, match := range pkgConfigRE.FindAllStringSubmatch(line, -1) {
			for _, token := range strings.Fields(match[1]) {
				if strings.HasPrefix(token, "-") || strings.HasPrefix(token, "$(") {
					continue
				}
				emit(token, sourcePkgConfig, "", lineNo)
			}
		}
	}
	return records, scanner.Err()
}
