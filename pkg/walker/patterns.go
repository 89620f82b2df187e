package walker

import (
	"path"
	"strings"

	"github.com/disruptiq/depscan/pkg/record"
)

// ecosystemPattern binds an ecosystem tag to its ordered filename signatures.
// A signature is an exact basename, a suffix wildcard ("*.csproj"), or a
// path glob (".github/workflows/*.yml").
type ecosystemPattern struct {
	ecosystem record.Ecosystem
	patterns  []string
}

// manifestPatterns is checked in declaration order; the first ecosystem whose
// signature matches a file wins and short-circuits further checks.
var manifestPatterns = []ecosystemPattern{
	{record.EcosystemNPM, []string{"package.json", "package-lock.json", "yarn.lock", "pnpm-lock.yaml", "package-ts.json", "tsconfig.json"}},
	{record.EcosystemPython, []string{"requirements.txt", "pyproject.toml", "Pipfile", "Pipfile.lock", "setup.py", "setup.cfg"}},
	{record.EcosystemGo, []string{"go.mod", "go.sum"}},
	{record.EcosystemRust, []string{"Cargo.toml", "Cargo.lock"}},
	{record.EcosystemJava, []string{"pom.xml", "build.gradle", "gradle.lockfile"}},
	{record.EcosystemRuby, []string{"Gemfile", "Gemfile.lock"}},
	{record.EcosystemPHP, []string{"composer.json", "composer.lock"}},
	{record.EcosystemDotNet, []string{"*.csproj", "packages.lock.json"}},
	{record.EcosystemDocker, []string{"Dockerfile", "docker-compose.yml", "docker-compose.yaml"}},
	{record.EcosystemGitHubActions, []string{".github/workflows/*.yml", ".github/workflows/*.yaml", ".gitlab-ci.yml"}},
	{record.EcosystemGit, []string{".gitmodules"}},
	{record.EcosystemSwift, []string{"Package.swift"}},
	{record.EcosystemR, []string{"DESCRIPTION"}},
	{record.EcosystemMakefile, []string{"Makefile", "*.mk"}},
}

// matchesManifest reports whether the slash-separated relative path matches
// any ecosystem signature. Checks run in table order and stop at the first hit.
func matchesManifest(relPath string) bool {
	base := path.Base(relPath)
	for _, ep := range manifestPatterns {
		for _, pattern := range ep.patterns {
			if matchSignature(pattern, relPath, base) {
				return true
			}
		}
	}
	return false
}

// matchSignature applies one signature. A glob-engine failure (malformed
// pattern) counts as no match rather than dropping the file.
func matchSignature(pattern, relPath, base string) bool {
	switch {
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(base, pattern[1:])
	case strings.Contains(pattern, "*"):
		ok, err := path.Match(pattern, relPath)
		return err == nil && ok
	default:
		return base == pattern
	}
}

// isDockerfileName reports whether a basename looks like a container build
// file. Applied independently of the pattern table so that variants such as
// "Dockerfile.prod" or "app.dockerfile" are still classified.
func isDockerfileName(base string) bool {
	return strings.Contains(strings.ToLower(base), "dockerfile")
}
