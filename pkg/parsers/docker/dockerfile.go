// Package docker normalizes base-image declarations from Dockerfiles.
package docker

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceDockerRegistry = "docker_registry"

// Dockerfile extracts every FROM instruction as a dependency. Multi-stage
// builds produce one record per stage, including stages that reference an
// earlier stage alias; filtering those out would hide the original base.
type Dockerfile struct{}

func (d *Dockerfile) Type() string { return "dockerfile" }

// Supports matches any basename containing "dockerfile" case-insensitively,
// which covers Dockerfile, dockerfile.prod and Dockerfile.ci.
func (d *Dockerfile) Supports(relPath string) bool {
	base := relPath
	if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
		base = relPath[i+1:]
	}
	return strings.Contains(strings.ToLower(base), "dockerfile")
}

func (d *Dockerfile) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.EqualFold(fields[0], "FROM") {
			continue
		}
		ref := fields[1]
		// FROM --platform=... image
		if strings.HasPrefix(ref, "--") {
			if len(fields) < 3 {
				continue
			}
			ref = fields[2]
		}
		name, version := SplitImageRef(ref)
		extra := map[string]string{}
		for i, f := range fields {
			if strings.EqualFold(f, "AS") && i+1 < len(fields) {
				extra["stage"] = fields[i+1]
			}
		}
		rec := record.Record{
			Ecosystem:    record.EcosystemDocker,
			ManifestPath: relPath,
			Dependency:   record.Dependency{Name: name, Version: version, Source: sourceDockerRegistry},
			Metadata:     record.Metadata{LineNumber: lineNo},
		}
		if len(extra) > 0 {
			rec.Metadata.Extra = extra
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// SplitImageRef splits an image reference into name and version. A digest
// suffix takes precedence over a tag; a tag is the text after the last ":"
// that follows the last "/", so registry ports are not mistaken for tags.
// References without either get the "latest" default.
func SplitImageRef(ref string) (name, version string) {
	if at := strings.IndexByte(ref, '@'); at >= 0 {
		return ref[:at], ref[at+1:]
	}
	slash := strings.LastIndexByte(ref, '/')
	if colon := strings.LastIndexByte(ref, ':'); colon > slash {
		return ref[:colon], ref[colon+1:]
	}
	return ref, "latest"
}
