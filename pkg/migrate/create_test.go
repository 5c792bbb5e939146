package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Return Requests!")
	if err != nil {
		t.Fatalf("CreateSQLMigration error: %v", err)
	}
	if base := filepath.Base(path); !strings.HasSuffix(base, "_add_return_requests.sql") {
		t.Fatalf("unexpected filename %q", base)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(string(body), marker) {
			t.Fatalf("template missing %q", marker)
		}
	}
}

func TestCreateSQLMigrationRejectsUnusableNames(t *testing.T) {
	dir := t.TempDir()

	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected error for name without usable characters")
	}
	if _, err := CreateSQLMigration("", "add_orders"); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
