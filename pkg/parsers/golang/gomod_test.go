package golang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disruptiq/depscan/pkg/record"
)

func TestGoModParse(t *testing.T) {
	dir := t.TempDir()
	content := `module example.com/demo

go 1.22

require (
	github.com/spf13/cobra v1.8.0
	golang.org/x/sys v0.20.0 // indirect
)

require gopkg.in/yaml.v3 v3.0.1
`
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := (&GoMod{}).Parse(dir, "go.mod")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	byName := make(map[string]record.Record)
	for _, r := range records {
		byName[r.Dependency.Name] = r
	}
	if r := byName["github.com/spf13/cobra"]; r.Dependency.Version != "v1.8.0" || r.Metadata.LineNumber == 0 {
		t.Errorf("cobra = %+v", r)
	}
	if r := byName["golang.org/x/sys"]; r.Metadata.Extra["indirect"] != "true" {
		t.Errorf("x/sys should carry the indirect flag, got %+v", r.Metadata)
	}
	if _, ok := byName["gopkg.in/yaml.v3"]; !ok {
		t.Error("single-line require missing")
	}
}

func TestGoModMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module \x00broken\nrequire ("), 0o644); err != nil {
		t.Fatal(err)
	}
	records, err := (&GoMod{}).Parse(dir, "go.mod")
	if err == nil {
		t.Fatal("expected error for malformed go.mod")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestGoSumYieldsNothing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.sum"), []byte("example.com/m v1.0.0 h1:abc=\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := &GoMod{}
	if !p.Supports("go.sum") {
		t.Fatal("go.sum should be routed")
	}
	records, err := p.Parse(dir, "go.sum")
	if err != nil || len(records) != 0 {
		t.Errorf("go.sum should yield nothing, got %d records, err %v", len(records), err)
	}
}
