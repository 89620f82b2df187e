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

// GitLabCI parses the global image and every per-job image from
// .gitlab-ci.yml. An image may be a plain string or a mapping with a
// name key; both forms occur in the wild.
type GitLabCI struct{}

func (g *GitLabCI) Type() string { return "gitlab-ci" }

func (g *GitLabCI) Supports(relPath string) bool {
	return baseOf(relPath) == ".gitlab-ci.yml"
}

func (g *GitLabCI) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed .gitlab-ci.yml")
	}

	var records []record.Record
	if image := imageRef(doc["image"]); image != "" {
		records = append(records, gitlabImageRecord(relPath, image, "global"))
	}

	jobs := make([]string, 0, len(doc))
	for key := range doc {
		jobs = append(jobs, key)
	}
	sort.Strings(jobs)

	for _, job := range jobs {
		if job == "image" || strings.HasPrefix(job, ".") {
			continue // reserved keys and hidden job templates
		}
		body, ok := doc[job].(map[string]any)
		if !ok {
			continue
		}
		if image := imageRef(body["image"]); image != "" {
			records = append(records, gitlabImageRecord(relPath, image, job))
		}
	}
	return records, nil
}

// imageRef extracts the image reference from either YAML shape.
func imageRef(v any) string {
	switch image := v.(type) {
	case string:
		return image
	case map[string]any:
		if name, ok := image["name"].(string); ok {
			return name
		}
	}
	return ""
}

func gitlabImageRecord(relPath, image, job string) record.Record {
	name, version := docker.SplitImageRef(image)
	return record.Record{
		Ecosystem:    record.EcosystemDocker,
		ManifestPath: relPath,
		Dependency:   record.Dependency{Name: name, Version: version, Source: sourceDockerRegistry},
		Metadata:     record.Metadata{Extra: map[string]string{"job": job}},
	}
}
