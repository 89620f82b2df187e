package ruby

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disruptiq/depscan/pkg/record"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGemfileParse(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Gemfile", `source "https://rubygems.org"

gem "rails", "~> 7.1"
gem "pg"
# gem "commented-out"

group :development, :test do
  gem "rspec-rails", ">= 6.0"
end
`)

	records, err := (&Gemfile{}).Parse(dir, "Gemfile")
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

	if r := byName["rails"]; r.Dependency.Version != "~> 7.1" || r.Metadata.LineNumber != 3 {
		t.Errorf("rails = %+v", r)
	}
	if r := byName["pg"]; r.Dependency.Version != record.VersionAny {
		t.Errorf("pg version = %q", r.Dependency.Version)
	}
	if r := byName["rspec-rails"]; !r.Metadata.DevDependency {
		t.Error("rspec-rails should be a dev dependency")
	}
	if _, ok := byName["commented-out"]; ok {
		t.Error("commented gem should be skipped")
	}
}

func TestGemfileLockParse(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Gemfile.lock", `GEM
  remote: https://rubygems.org/
  specs:
    actionpack (7.1.2)
      activesupport (= 7.1.2)
    rake (13.1.0)

PLATFORMS
  ruby

DEPENDENCIES
  rails (~> 7.1)
`)

	records, err := (&GemfileLock{}).Parse(dir, "Gemfile.lock")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}
	byName := make(map[string]record.Record)
	for _, r := range records {
		byName[r.Dependency.Name] = r
	}
	if r := byName["actionpack"]; r.Dependency.Version != "7.1.2" || r.Metadata.Extra["lockfile"] != "true" {
		t.Errorf("actionpack = %+v", r)
	}
	if r := byName["rake"]; r.Dependency.Version != "13.1.0" {
		t.Errorf("rake = %+v", r.Dependency)
	}
}
