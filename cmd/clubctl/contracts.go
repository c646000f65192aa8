package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/qri-io/jsonschema"
	"github.com/spf13/cobra"

	"github.com/garnizeh/crackedclub/internal/schema"
	"github.com/garnizeh/crackedclub/internal/screen"
)

// activeSchemas are the versions the configured service validates against.
func (c *cli) activeSchemas() map[string]string {
	return map[string]string{
		c.cfg.Submission.SchemaVersion: "submission",
		c.cfg.Screening.SchemaVersion:  "screening",
	}
}

func schemasCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the stored payload contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			items, err := repo.ListSchemas(ctx)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No schemas stored.")
				return nil
			}
			active := c.activeSchemas()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tUSED BY\tUPDATED\tDESCRIPTION")
			for _, s := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Version, orDash(active[s.Version]), humanize.Time(time.Unix(s.Updated, 0)), oneLine(s.Description, 60))
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(schemaCheckCmd(c), schemaAddCmd(c), schemaRemoveCmd(c))
	return cmd
}

func schemaCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Compile every stored schema and verify the configured versions exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			loader, err := schema.NewLoader(ctx, repo)
			if err != nil {
				return err
			}
			versions := loader.Versions()
			for v, user := range c.activeSchemas() {
				if _, ok := loader.GetSchema(v); !ok {
					return fmt.Errorf("%s schema %q is not stored", user, v)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d schemas compile: %v\n", len(versions), versions)
			return nil
		},
	}
}

func schemaAddCmd(c *cli) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <version> <file>",
		Short: "Store or replace a schema version from a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			if err := json.Unmarshal(doc, &jsonschema.Schema{}); err != nil {
				return fmt.Errorf("schema %s does not compile: %w", args[0], err)
			}

			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if _, err := repo.CreateSchema(ctx, args[0], description, string(doc)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored schema %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Short description of the contract")
	return cmd
}

func schemaRemoveCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <version>",
		Short: "Delete a schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := args[0]
			if user, ok := c.activeSchemas()[version]; ok && !force {
				return fmt.Errorf("schema %s is used for %s; pass --force to delete it anyway", version, user)
			}

			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := repo.DeleteSchema(ctx, version); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("schema %s not found", version)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted schema %s\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Delete even when the configuration uses this version")
	return cmd
}

func (c *cli) activeTemplate(name, version string) bool {
	return name == screen.TemplateName && version == c.cfg.Screening.TemplateVersion
}

func templatesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the stored prompt templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			items, err := repo.ListTemplates(ctx)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No prompt templates.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tSCHEMA\tACTIVE\tUPDATED")
			for _, t := range items {
				schemaVer := "-"
				if t.SchemaVer != nil {
					schemaVer = *t.SchemaVer
				}
				active := ""
				if c.activeTemplate(t.Name, t.Version) {
					active = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.Version, schemaVer, orDash(active), humanize.Time(time.Unix(t.Updated, 0)))
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(templateShowCmd(c), templateRemoveCmd(c))
	return cmd
}

func templateShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name> <version>",
		Short: "Print a prompt template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			t, err := repo.GetTemplate(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("template %s@%s not found", args[0], args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.TemplateTxt)
			return nil
		},
	}
}

func templateRemoveCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <name> <version>",
		Short: "Delete a prompt template version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, version := args[0], args[1]
			if c.activeTemplate(name, version) && !force {
				return fmt.Errorf("template %s@%s is used for screening; pass --force to delete it anyway", name, version)
			}

			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := repo.DeleteTemplate(ctx, name, version); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("template %s@%s not found", name, version)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted template %s@%s\n", name, version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Delete even when screening uses this version")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
