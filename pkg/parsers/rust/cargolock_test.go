package rust

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disruptiq/depscan/pkg/record"
)

func TestCargoLockParse(t *testing.T) {
	dir := t.TempDir()
	content := `version = 3

[[package]]
name = "demo"
version = "0.1.0"

[[package]]
name = "serde"
version = "1.0.195"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "63261df402c67811e9ac6def069e4786148c4563f4b50fd4bf30aa370d626b02"

[[package]]
name = "tokio"
version = "1.35.1"
source = "registry+https://github.com/rust-lang/crates.io-index"
`
	if err := os.WriteFile(filepath.Join(dir, "Cargo.lock"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	parser := &CargoLock{}
	if !parser.Supports("Cargo.lock") || parser.Supports("Cargo.toml") {
		t.Fatal("Supports mismatch")
	}
	records, err := parser.Parse(dir, "Cargo.lock")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (workspace member skipped), got %d", len(records))
	}

	byName := map[string]record.Record{}
	for _, r := range records {
		byName[r.Dependency.Name] = r
	}
	serde := byName["serde"]
	if serde.Dependency.Version != "1.0.195" {
		t.Errorf("serde version = %q", serde.Dependency.Version)
	}
	if serde.Dependency.Resolved == "" || serde.Metadata.Extra["integrity"] == "" {
		t.Errorf("serde lock fields = %+v", serde)
	}
	if _, ok := byName["tokio"].Metadata.Extra["integrity"]; ok {
		t.Error("tokio has no checksum, integrity should be absent")
	}
}
