package gitmodules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disruptiq/depscan/pkg/record"
)

func TestGitModulesParse(t *testing.T) {
	dir := t.TempDir()
	content := `[submodule "libs/zstd"]
	path = libs/zstd
	url = https://github.com/facebook/zstd.git
	branch = release
[submodule "docs-theme"]
	path = docs/theme
	url = git@github.com:org/theme.git
[submodule "broken"]
	path = no/url/here
`
	if err := os.WriteFile(filepath.Join(dir, ".gitmodules"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	parser := &GitModules{}
	records, err := parser.Parse(dir, ".gitmodules")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (url-less section skipped), got %d", len(records))
	}

	zstd := records[0]
	if zstd.Dependency.Name != "libs/zstd" || zstd.Dependency.Version != "release" {
		t.Errorf("zstd = %+v", zstd.Dependency)
	}
	if zstd.Dependency.Resolved != "https://github.com/facebook/zstd.git" {
		t.Errorf("zstd resolved = %q", zstd.Dependency.Resolved)
	}
	if zstd.Metadata.LineNumber != 1 {
		t.Errorf("zstd line = %d", zstd.Metadata.LineNumber)
	}
	if zstd.Metadata.Extra["path"] != "libs/zstd" {
		t.Errorf("zstd path = %q", zstd.Metadata.Extra["path"])
	}

	theme := records[1]
	if theme.Dependency.Version != record.VersionAny {
		t.Errorf("branchless submodule version = %q", theme.Dependency.Version)
	}
	if theme.Ecosystem != record.EcosystemGit {
		t.Errorf("ecosystem = %q", theme.Ecosystem)
	}
}
