package python

import (
	"testing"

	"github.com/disruptiq/depscan/pkg/record"
)

func TestPipfileParse(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Pipfile", `[[source]]
url = "https://pypi.org/simple"
verify_ssl = true
name = "pypi"

[packages]
requests = "*"
flask = "==2.0.1"
internal = {path = "./libs/internal"}
tracker = {git = "https://github.com/org/tracker.git", tag = "v1.4.0"}

[dev-packages]
pytest = ">=7.0"
`)

	parser := &Pipfile{}
	records, err := parser.Parse(dir, "Pipfile")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}

	byName := map[string]record.Record{}
	for _, r := range records {
		byName[r.Dependency.Name] = r
	}
	if r := byName["requests"]; r.Dependency.Version != record.VersionAny || r.Dependency.Source != sourcePyPI {
		t.Errorf("requests = %+v", r.Dependency)
	}
	if r := byName["flask"]; r.Dependency.Version != "==2.0.1" {
		t.Errorf("flask version = %q", r.Dependency.Version)
	}
	if r := byName["internal"]; r.Dependency.Source != "file://./libs/internal" {
		t.Errorf("path source = %q", r.Dependency.Source)
	}
	if r := byName["tracker"]; r.Dependency.Version != "v1.4.0" || r.Dependency.Source != "git+https://github.com/org/tracker.git" {
		t.Errorf("git source = %+v", r.Dependency)
	}
	if r := byName["pytest"]; !r.Metadata.DevDependency {
		t.Error("dev-packages entry should be dev")
	}
}

func TestPipfileLockParse(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Pipfile.lock", `{
  "_meta": {"hash": {"sha256": "abc"}},
  "default": {
    "requests": {
      "version": "==2.31.0",
      "hashes": ["sha256:deadbeef"]
    }
  },
  "develop": {
    "pytest": {"version": "==7.4.3"}
  }
}`)

	records, err := (&PipfileLock{}).Parse(dir, "Pipfile.lock")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	byName := map[string]record.Record{}
	for _, r := range records {
		byName[r.Dependency.Name] = r
	}
	requests := byName["requests"]
	if requests.Dependency.Version != "2.31.0" {
		t.Errorf("pinned version should drop the == prefix, got %q", requests.Dependency.Version)
	}
	if requests.Metadata.Extra["integrity"] != "sha256:deadbeef" {
		t.Errorf("integrity = %q", requests.Metadata.Extra["integrity"])
	}
	pytest := byName["pytest"]
	if !pytest.Metadata.DevDependency || pytest.Metadata.Extra["lockfile"] != "true" {
		t.Errorf("pytest = %+v", pytest.Metadata)
	}
}

func TestPipfileOrderStable(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Pipfile", `[packages]
zope = "*"
attrs = "*"
numpy = "*"
`)

	records, err := (&Pipfile{}).Parse(dir, "Pipfile")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"attrs", "numpy", "zope"}
	for i := range want {
		if records[i].Dependency.Name != want[i] {
			t.Fatalf("record %d = %s, want %s", i, records[i].Dependency.Name, want[i])
		}
	}
}
