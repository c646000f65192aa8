package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Migrate applies migrations and seed files found in the embedded filesystems.
// It creates a `schema_migrations` table to track applied migrations and applies
// any SQL files in `migrations/` that have not yet been recorded. Seed files
// under `seed/` are upserted on every run:
//
//	seed/schema_<version>.json       -> payload_schemas
//	seed/template_<name>_<ver>.txt   -> prompt_templates
func Migrate(ctx context.Context, d *DB, migrationFS embed.FS, seedFS embed.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	files, err := listFiles(migrationFS, "migrations", ".sql")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join("migrations", fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("migration applied", "version", version)
	}

	return seed(ctx, d, seedFS)
}

func seed(ctx context.Context, d *DB, seedFS embed.FS) error {
	schemas, err := listFiles(seedFS, "seed", ".json")
	if err != nil {
		// seeds are optional
		return nil
	}
	for _, fname := range schemas {
		version, ok := strings.CutPrefix(strings.TrimSuffix(fname, ".json"), "schema_")
		if !ok {
			continue
		}
		b, err := fs.ReadFile(seedFS, path.Join("seed", fname))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, `INSERT INTO payload_schemas (version, description, schema_json, created, updated) VALUES (?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(version) DO UPDATE SET schema_json=excluded.schema_json, updated=strftime('%s','now')`, version, "seeded "+version, string(b)); err != nil {
			return fmt.Errorf("seed schema %s: %w", version, err)
		}
	}

	templates, err := listFiles(seedFS, "seed", ".txt")
	if err != nil {
		return nil
	}
	for _, fname := range templates {
		name, version, ok := templateKey(fname)
		if !ok {
			continue
		}
		b, err := fs.ReadFile(seedFS, path.Join("seed", fname))
		if err != nil {
			return fmt.Errorf("read seed %s: %w", fname, err)
		}
		schemaVersion := name + "_" + version
		if _, err := d.Exec(ctx, `INSERT INTO prompt_templates (name, version, template_text, schema_version, metadata, created, updated) VALUES (?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(name, version) DO UPDATE SET template_text=excluded.template_text, schema_version=excluded.schema_version, updated=strftime('%s','now')`, name, version, string(b), schemaVersion, `{"owner":"system"}`); err != nil {
			return fmt.Errorf("seed template %s:%s: %w", name, version, err)
		}
	}
	return nil
}

// templateKey splits "template_screen_v1.txt" into ("screen", "v1").
func templateKey(fname string) (string, string, bool) {
	base, ok := strings.CutPrefix(strings.TrimSuffix(fname, ".txt"), "template_")
	if !ok {
		return "", "", false
	}
	i := strings.LastIndex(base, "_")
	if i <= 0 || i == len(base)-1 {
		return "", "", false
	}
	return base[:i], base[i+1:], true
}

func listFiles(fsys fs.FS, dir, ext string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
