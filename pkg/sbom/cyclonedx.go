// Package sbom emits a CycloneDX 1.4 software bill of materials from
// canonical dependency records.
package sbom

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/disruptiq/depscan/pkg/errors"
	"github.com/disruptiq/depscan/pkg/record"
)

const specVersion = "1.4"

// Document is a CycloneDX BOM.
type Document struct {
	BOMFormat    string      `json:"bomFormat"`
	SpecVersion  string      `json:"specVersion"`
	SerialNumber string      `json:"serialNumber"`
	Version      int         `json:"version"`
	Metadata     Metadata    `json:"metadata"`
	Components   []Component `json:"components"`
}

// Metadata describes the BOM itself.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Tools     []Tool `json:"tools"`
}

// Tool identifies the producer of the BOM.
type Tool struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Component is one deduplicated dependency.
type Component struct {
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	Version    string     `json:"version"`
	PURL       string     `json:"purl"`
	Hashes     []Hash     `json:"hashes,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

// Hash is a component integrity digest.
type Hash struct {
	Alg     string `json:"alg"`
	Content string `json:"content"`
}

// Property is a name/value annotation on a component.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Build assembles a BOM from records. Records sharing a (name, version)
// identity collapse into one component regardless of which ecosystem
// declared them; the first occurrence supplies the ecosystem annotation and
// purl, and a component is flagged as a development dependency only when
// every occurrence is one.
func Build(toolVersion string, records []record.Record) *Document {
	type entry struct {
		rec    record.Record
		allDev bool
	}
	byKey := map[string]*entry{}
	keys := []string{}
	for _, rec := range records {
		key := rec.Dependency.Name + "/" + rec.Dependency.Version
		e, ok := byKey[key]
		if !ok {
			byKey[key] = &entry{rec: rec, allDev: rec.Metadata.DevDependency}
			keys = append(keys, key)
			continue
		}
		e.allDev = e.allDev && rec.Metadata.DevDependency
	}
	sort.Strings(keys)

	components := make([]Component, 0, len(keys))
	for _, key := range keys {
		e := byKey[key]
		c := Component{
			Type:    "library",
			Name:    e.rec.Dependency.Name,
			Version: e.rec.Dependency.Version,
			PURL:    e.rec.PackageURL(),
			Properties: []Property{
				{Name: "depscan:ecosystem", Value: string(e.rec.Ecosystem)},
				{Name: "depscan:dev", Value: strconv.FormatBool(e.allDev)},
			},
		}
		if h, ok := integrityHash(e.rec.Metadata.Extra["integrity"]); ok {
			c.Hashes = []Hash{h}
		}
		components = append(components, c)
	}

	return &Document{
		BOMFormat:    "CycloneDX",
		SpecVersion:  specVersion,
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Version:      1,
		Metadata: Metadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Tools:     []Tool{{Vendor: "disruptiq", Name: "depscan", Version: toolVersion}},
		},
		Components: components,
	}
}

// integrityHash converts an SRI-style integrity string ("sha256-<digest>")
// into a CycloneDX hash. Unrecognized algorithms are omitted rather than
// emitted with a wrong label.
func integrityHash(integrity string) (Hash, bool) {
	alg, content, ok := strings.Cut(integrity, "-")
	if !ok || content == "" {
		return Hash{}, false
	}
	switch alg {
	case "sha256":
		return Hash{Alg: "SHA-256", Content: content}, true
	case "sha512":
		return Hash{Alg: "SHA-512", Content: content}, true
	case "sha1":
		return Hash{Alg: "SHA-1", Content: content}, true
	}
	return Hash{}, false
}

// Save writes the BOM as indented JSON.
func Save(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding SBOM")
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeSaveFailed, err, "writing SBOM to %s", path)
	}
	return nil
}
