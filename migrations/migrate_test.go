package migrations

import (
	"testing"
)

func TestStatements(t *testing.T) {
	got := statements("CREATE TABLE a (id INT);\n\n  CREATE TABLE b (id INT);\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[1] != "CREATE TABLE b (id INT)" {
		t.Errorf("unexpected statement %q", got[1])
	}
}

func TestEmbeddedMigrationsSplit(t *testing.T) {
	entries, err := migrationFiles.ReadDir(".")
	if err != nil {
		t.Fatalf("read embedded: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migrations")
	}
	for _, e := range entries {
		data, err := migrationFiles.ReadFile(e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if len(statements(string(data))) == 0 {
			t.Errorf("%s has no statements", e.Name())
		}
	}
}
