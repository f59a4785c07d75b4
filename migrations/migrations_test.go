package migrations

import (
	"strings"
	"testing"
)

func TestFilesOrdered(t *testing.T) {
	files, err := Files()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected schema and seed migrations, got %v", files)
	}
	if files[0] != "001_schema.sql" {
		t.Errorf("expected schema first, got %s", files[0])
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("files out of order: %v", files)
		}
	}
}

func TestSchemaCreatesTables(t *testing.T) {
	data, err := Read("001_schema.sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sql := string(data)
	for _, table := range []string{"geofences", "stations", "drivers", "bookings"} {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema does not create %s", table)
		}
	}
}
