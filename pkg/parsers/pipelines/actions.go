package pipelines

import (
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/parsers/docker"
	"github.com/disruptiq/depscan/pkg/record"
)

const sourceGitHub = "github"

// GitHubWorkflow parses action references from workflow files under
// .github/workflows/. Local actions ("./path") are skipped; docker://
// references are recorded as docker images.
type GitHubWorkflow struct{}

func (g *GitHubWorkflow) Type() string { return "github-workflow" }

func (g *GitHubWorkflow) Supports(relPath string) bool {
	if path.Dir(relPath) != ".github/workflows" {
		return false
	}
	return strings.HasSuffix(relPath, ".yml") || strings.HasSuffix(relPath, ".yaml")
}

type workflowFile struct {
	Jobs map[string]struct {
		Steps []struct {
			Uses string `yaml:"uses"`
		} `yaml:"steps"`
	} `yaml:"jobs"`
}

func (g *GitHubWorkflow) Parse(root, relPath string) ([]record.Record, error) {
	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	var file workflowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed workflow file")
	}

	jobs := make([]string, 0, len(file.Jobs))
	for name := range file.Jobs {
		jobs = append(jobs, name)
	}
	sort.Strings(jobs)

	var records []record.Record
	for _, job := range jobs {
		for _, step := range file.Jobs[job].Steps {
			uses := strings.TrimSpace(step.Uses)
			if uses == "" || strings.HasPrefix(uses, "./") {
				continue
			}
			extra := map[string]string{"job": job}
			if image, ok := strings.CutPrefix(uses, "docker://"); ok {
				name, version := docker.SplitImageRef(image)
				records = append(records, record.Record{
					Ecosystem:    record.EcosystemDocker,
					ManifestPath: relPath,
					Dependency:   record.Dependency{Name: name, Version: version, Source: sourceDockerRegistry},
					Metadata:     record.Metadata{Extra: extra},
				})
				continue
			}
			name, version := uses, "main"
			if at := strings.LastIndexByte(uses, '@'); at >= 0 {
				name, version = uses[:at], uses[at+1:]
			}
			records = append(records, record.Record{
				Ecosystem:    record.EcosystemGitHubActions,
				ManifestPath: relPath,
				Dependency:   record.Dependency{Name: name, Version: version, Source: sourceGitHub},
				Metadata:     record.Metadata{Extra: extra},
			})
		}
	}
	return records, nil
}
