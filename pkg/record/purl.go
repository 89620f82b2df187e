package record

import "strings"

// purlTypes maps ecosystem tags to package-url type identifiers.
// Ecosystems without a registered purl type fall back to pkg:generic.
var purlTypes = map[Ecosystem]string{
	EcosystemNPM:    "npm",
	EcosystemPython: "pypi",
	EcosystemRust:   "cargo",
	EcosystemJava:   "maven",
	EcosystemDocker: "docker",
	EcosystemSwift:  "swift",
	EcosystemGo:     "golang",
	EcosystemPHP:    "composer",
	EcosystemDotNet: "nuget",
	EcosystemRuby:   "gem",
}

var purlVersionCleaner = strings.NewReplacer(
	"^", "", "~", "", ">", "", "<", "", "=", "",
)

// PackageURL builds a purl string for the record. Range operators are
// stripped from the version so the purl stays a plain identifier.
func (r Record) PackageURL() string {
	version := strings.TrimSpace(purlVersionCleaner.Replace(r.Dependency.Version))
	if t, ok := purlTypes[r.Ecosystem]; ok {
		return "pkg:" + t + "/" + r.Dependency.Name + "@" + version
	}
	return "pkg:generic/" + string(r.Ecosystem) + "/" + r.Dependency.Name + "@" + version
}
