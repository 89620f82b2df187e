// Package pipelines normalizes image and action references from orchestration
// and CI configuration: docker-compose files, GitHub Actions workflows and
// GitLab CI pipelines.
package pipelines

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/parsers/docker"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceDockerRegistry = "docker_registry"

// Compose parses service image references from docker-compose files.
type Compose struct{}

func (c *Compose) Type() string { return "docker-compose" }

func (c *Compose) Supports(relPath string) bool {
	base := baseOf(relPath)
	return base == "docker-compose.yml" || base == "docker-compose.yaml"
}

type composeFile struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

func (c *Compose) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var file composeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed compose file")
	}

	names := make([]string, 0, len(file.Services))
	for name := range file.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	var records []record.Record
	for _, service := range names {
		image := file.Services[service].Image
		if image == "" {
			continue // built from a local Dockerfile, covered by its own parser
		}
		name, version := docker.SplitImageRef(image)
		records = append(records, record.Record{
			Ecosystem:    record.EcosystemDocker,
			ManifestPath: relPath,
			Dependency:   record.Dependency{Name: name, Version: version, Source: sourceDockerRegistry},
			Metadata:     record.Metadata{Extra: map[string]string{"service": service}},
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
