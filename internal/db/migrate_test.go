package db_test

import (
	"context"
	"testing"

	dbfs "github.com/garnizeh/crackedclub/db"
	"github.com/garnizeh/crackedclub/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count < 1 {
		t.Fatalf("expected at least 1 migration recorded, got %d", count)
	}

	for _, table := range []string{"applications", "waitlist", "jobs", "dead_letter_jobs", "payload_schemas", "prompt_templates"} {
		var name string
		if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}
}

func TestMigrate_Seeds(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	var schemas int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM payload_schemas WHERE version IN ('application_v1', 'screen_v1')`).Scan(&schemas); err != nil {
		t.Fatalf("count schemas: %v", err)
	}
	if schemas != 2 {
		t.Fatalf("expected 2 seeded schemas, got %d", schemas)
	}

	var schemaVersion string
	if err := d.QueryRow(ctx, `SELECT schema_version FROM prompt_templates WHERE name = 'screen' AND version = 'v1'`).Scan(&schemaVersion); err != nil {
		t.Fatalf("seeded template missing: %v", err)
	}
	if schemaVersion != "screen_v1" {
		t.Fatalf("unexpected template schema version %q", schemaVersion)
	}
}
