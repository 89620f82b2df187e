// Package rlang normalizes R package DESCRIPTION files, which use the
// Debian control format: "Field: value" lines where indentation continues
// the previous field.
package rlang

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceCRAN = "cran"

// dependencyFields maps DCF field names to whether their entries are
// development-only.
var dependencyFields = map[string]bool{
	"Depends":   false,
	"Imports":   false,
	"LinkingTo": false,
	"Suggests":  true,
	"Enhances":  true,
}

// dependencyFieldOrder fixes the emission order of the tracked fields so
// identical files always yield identically ordered records.
var dependencyFieldOrder = []string{"Depends", "Imports", "LinkingTo", "Suggests", "Enhances"}

// Description parses the dependency fields of a DESCRIPTION file. The "R"
// entry in Depends names the language version and is skipped.
type Description struct{}

func (d *Description) Type() string { return "DESCRIPTION" }

func (d *Description) Supports(relPath string) bool {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	return base == "DESCRIPTION"
}

func (d *Description) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	fields := parseDCF(data)

	var records []record.Record
	for _, field := range dependencyFieldOrder {
		value, ok := fields[field]
		if !ok {
			continue
		}
		dev := dependencyFields[field]
		for _, entry := range strings.Split(value, ",") {
			name, version := splitEntry(entry)
			if name == "" || name == "R" {
				continue
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemR,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: sourceCRAN},
				Metadata: record.Metadata{
					DevDependency: dev,
					Extra:         map[string]string{"field": field},
				},
			})
		}
	}
	return records, nil
}

// parseDCF folds continuation lines (leading whitespace) into the preceding
// field and returns the field→value map.
func parseDCF(data []byte) map[string]string {
	fields := map[string]string{}
	var current string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			current = ""
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if current != "" {
				fields[current] += " " + strings.TrimSpace(line)
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		current = strings.TrimSpace(name)
		fields[current] = strings.TrimSpace(value)
	}
	return fields
}

// splitEntry decomposes "dplyr (>= 1.0.0)" into name and constraint.
func splitEntry(entry string) (name, version string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", ""
	}
	version = record.VersionAny
	if open := strings.IndexByte(entry, '('); open >= 0 {
		constraint := strings.TrimSpace(strings.TrimSuffix(entry[open+1:], ")"))
		if constraint != "" {
			version = constraint
		}
		entry = strings.TrimSpace(entry[:open])
	}
	return entry, version
}
