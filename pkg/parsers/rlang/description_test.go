package rlang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disruptiq/depscan/pkg/record"
)

func TestDescriptionParse(t *testing.T) {
	dir := t.TempDir()
	content := `Package: analyzer
Version: 0.1.0
Depends:
    R (>= 4.1.0),
    dplyr (>= 1.0.0)
Imports: ggplot2,
    tibble (>= 3.0)
Suggests:
    testthat (>= 3.0.0)
LinkingTo: Rcpp
Description: Example package used as a parsing fixture
    spanning two lines.
`
	if err := os.WriteFile(filepath.Join(dir, "DESCRIPTION"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	parser := &Description{}
	records, err := parser.Parse(dir, "DESCRIPTION")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records (R skipped), got %d", len(records))
	}

	byName := map[string]record.Record{}
	for _, r := range records {
		byName[r.Dependency.Name] = r
	}
	if _, ok := byName["R"]; ok {
		t.Error("language version entry should be skipped")
	}
	dplyr := byName["dplyr"]
	if dplyr.Dependency.Version != ">= 1.0.0" || dplyr.Metadata.DevDependency {
		t.Errorf("dplyr = %+v", dplyr)
	}
	if v := byName["ggplot2"].Dependency.Version; v != record.VersionAny {
		t.Errorf("unconstrained version = %q", v)
	}
	testthat := byName["testthat"]
	if !testthat.Metadata.DevDependency {
		t.Error("Suggests entries are dev dependencies")
	}
	if testthat.Metadata.Extra["field"] != "Suggests" {
		t.Errorf("field context = %q", testthat.Metadata.Extra["field"])
	}
	if byName["Rcpp"].Metadata.Extra["field"] != "LinkingTo" {
		t.Error("LinkingTo entry missing")
	}
}

func TestSplitEntry(t *testing.T) {
	tests := []struct {
		entry, name, version string
	}{
		{"dplyr (>= 1.0.0)", "dplyr", ">= 1.0.0"},
		{"  tibble  ", "tibble", record.VersionAny},
		{"pkg ()", "pkg", record.VersionAny},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, version := splitEntry(tt.entry)
		if name != tt.name || version != tt.version {
			t.Errorf("splitEntry(%q) = %q, %q; want %q, %q", tt.entry, name, version, tt.name, tt.version)
		}
	}
}

func TestDescriptionFieldOrderStable(t *testing.T) {
	dir := t.TempDir()
	content := `Package: pkg
Suggests: testthat
Imports: dplyr
Depends: rlang
`
	if err := os.WriteFile(filepath.Join(dir, "DESCRIPTION"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	records, err := (&Description{}).Parse(dir, "DESCRIPTION")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"rlang", "dplyr", "testthat"}
	for i := range want {
		if records[i].Dependency.Name != want[i] {
			t.Fatalf("record %d = %s, want %s (Depends, Imports, Suggests order)", i, records[i].Dependency.Name, want[i])
		}
	}
}
