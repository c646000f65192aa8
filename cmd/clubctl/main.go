// Command clubctl maintains a crackedclub database: migrations, backups,
// admin credentials and review of stored submissions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/garnizeh/crackedclub/internal/config"
	"github.com/garnizeh/crackedclub/internal/db"
	"github.com/garnizeh/crackedclub/internal/repository/sqlite"
)

// Version information set at build time.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// cli carries the state shared by all subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "clubctl",
		Short: "Maintenance tool for the cracked engineers club service",
		Long: `clubctl works directly on the service's sqlite database.

It reads the same configuration as the server (defaults, .env, CCC_*
environment variables and an optional YAML file).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.SetDefaults()
			c.cfg = cfg
			c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to config YAML file")

	rootCmd.AddCommand(
		migrateCmd(c),
		backupCmd(c),
		restoreCmd(c),
		hashPasswordCmd(),
		applicationsCmd(c),
		waitlistCmd(c),
		deadlettersCmd(c),
		schemasCmd(c),
		templatesCmd(c),
		modelsCmd(c),
		screenCmd(c),
		versionCmd(),
	)
	return rootCmd
}

// openRepo opens the configured database. The caller closes the returned DB.
func (c *cli) openRepo(ctx context.Context) (*db.DB, *sqlite.SQLiteRepo, error) {
	conn, err := db.New(ctx, c.cfg.DatabasePath, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return conn, sqlite.New(conn, c.logger), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clubctl %s (built %s)\n", version, buildTime)
		},
	}
}
