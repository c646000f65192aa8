package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/crackedclub/db"
	"github.com/garnizeh/crackedclub/internal/db"
)

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations and refresh seeded schemas and templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := db.New(ctx, c.cfg.DatabasePath, c.logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Migrate(ctx, conn, dbfs.Migrations, dbfs.SeedFiles); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s migrated.\n", c.cfg.DatabasePath)
			return nil
		},
	}
}

func backupCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "backup [destination]",
		Short: "Write a consistent copy of the database",
		Long: `Write a consistent copy of the database using VACUUM INTO. The
server may keep running. The destination defaults to <database_path>.bak.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := c.cfg.DatabasePath + ".bak"
			if len(args) == 1 {
				dst = args[0]
			}
			if _, err := os.Stat(dst); err == nil {
				if !force {
					return fmt.Errorf("%s already exists (use --force to replace it)", dst)
				}
				if err := os.Remove(dst); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			conn, err := db.New(ctx, c.cfg.DatabasePath, c.logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if _, err := conn.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			st, err := os.Stat(dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backup written to %s (%s).\n", dst, humanize.Bytes(uint64(st.Size())))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing backup file")
	return cmd
}

func restoreCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [source]",
		Short: "Replace the database with a backup (stop the server first)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := c.cfg.DatabasePath + ".bak"
			if len(args) == 1 {
				src = args[0]
			}
			n, err := copyFile(src, c.cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			for _, suffix := range []string{"-wal", "-shm"} {
				if err := os.Remove(c.cfg.DatabasePath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database restored from %s (%s).\n", src, humanize.Bytes(uint64(n)))
			return nil
		},
	}
}

// copyFile writes src to a temporary file next to dst and renames it into
// place, so dst is never left half written.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".restore-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dst)
}
