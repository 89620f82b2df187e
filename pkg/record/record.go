// Package record defines the canonical dependency record shared by every
// manifest parser and downstream consumer (risk analysis, SBOM emission,
// vulnerability enrichment).
//
// A Record is produced once by a parser and never mutated afterwards.
// Ecosystem peculiarities (integrity digests, CI job context, DCF field
// names) live only in Metadata.Extra; the seven core fields are identical
// across all ecosystems so consumers never need ecosystem-specific branching.
//
// Multiple records with the same (ecosystem, name, version) may legitimately
// coexist when a dependency is declared in several manifests. Deduplication
// is a downstream concern.
package record

// Ecosystem identifies the packaging system a dependency belongs to.
type Ecosystem string

// Supported ecosystem tags.
const (
	EcosystemNPM           Ecosystem = "npm"
	EcosystemPython        Ecosystem = "python"
	EcosystemGo            Ecosystem = "go"
	EcosystemRust          Ecosystem = "rust"
	EcosystemJava          Ecosystem = "java"
	EcosystemRuby          Ecosystem = "ruby"
	EcosystemPHP           Ecosystem = "php"
	EcosystemDotNet        Ecosystem = "dotnet"
	EcosystemDocker        Ecosystem = "docker"
	EcosystemGitHubActions Ecosystem = "github_actions"
	EcosystemSwift         Ecosystem = "swift"
	EcosystemR             Ecosystem = "r"
	EcosystemMakefile      Ecosystem = "makefile"
	EcosystemGit           Ecosystem = "git"
)

// VersionAny is the sentinel version meaning "unconstrained".
const VersionAny = "*"

// Record is the normalized representation of one dependency declaration.
type Record struct {
	Ecosystem    Ecosystem  `json:"ecosystem"`
	ManifestPath string     `json:"manifest_path"` // relative to the scan root, slash-separated
	Dependency   Dependency `json:"dependency"`
	Metadata     Metadata   `json:"metadata"`
}

// Dependency identifies the declared package.
type Dependency struct {
	Name string `json:"name"`
	// Version is the free-form version expression as declared
	// (e.g. "==2.0.1", "^1.2", "v0.31.0"). VersionAny if unconstrained.
	Version string `json:"version"`
	// Source is the registry or locator kind: a registry name ("pypi",
	// "crates.io"), a version-control locator ("git+https://..."), a local
	// path ("file://..."), or "system".
	Source string `json:"source"`
	// Resolved is the concrete locator/URL for lockfile entries, empty otherwise.
	Resolved string `json:"resolved,omitempty"`
}

// Metadata carries declaration context. Extra holds per-ecosystem extension
// fields; extensions are additive and never replace the core fields.
type Metadata struct {
	DevDependency bool `json:"dev_dependency"`
	// LineNumber is the 1-based line of the declaration; 0 when the source
	// format cannot produce one (structured TOML/JSON/YAML documents).
	LineNumber    int               `json:"line_number,omitempty"`
	ScriptSection bool              `json:"script_section"` // reserved
	Extra         map[string]string `json:"extra,omitempty"`
}

// Key returns the (ecosystem, name, version) identity used by the enrichment
// cache and by SBOM-level deduplication.
func (r Record) Key() string {
	return string(r.Ecosystem) + "/" + r.Dependency.Name + "/" + r.Dependency.Version
}
