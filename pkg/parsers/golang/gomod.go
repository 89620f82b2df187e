// Package golang normalizes Go module manifests. go.mod is parsed with the
// canonical x/mod modfile parser; go.sum is routed but yields nothing, since
// it records checksums rather than dependency declarations.
package golang

import (
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/parsers"
	"github.com/disruptiq/depscan/pkg/record"
)

// GoMod parses go.mod require directives.
type GoMod struct{}

func (g *GoMod) Type() string { return "go.mod" }

func (g *GoMod) Supports(relPath string) bool {
	switch baseOf(relPath) {
	case "go.mod", "go.sum":
		return true
	}
	return false
}

func (g *GoMod) Parse(root, relPath string) ([]record.Record, error) {
	if baseOf(relPath) == "go.sum" {
		return nil, nil
	}

	data, err := parsers.ReadManifest(root, relPath)
	if err != nil {
		return nil, err
	}
	mod, err := modfile.Parse(relPath, data, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, err, "malformed go.mod")
	}

	var records []record.Record
	for _, req := range mod.Require {
		var extra map[string]string
		if req.Indirect {
			extra = map[string]string{"indirect": "true"}
		}
		records = append(records, record.Record{
			Ecosystem:    record.EcosystemGo,
			ManifestPath: relPath,
			Dependency: record.Dependency{
				Name:    req.Mod.Path,
				Version: req.Mod.Version,
				Source:  "go",
			},
			Metadata: record.Metadata{
				LineNumber: req.Syntax.Start.Line,
				Extra:      extra,
			},
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
