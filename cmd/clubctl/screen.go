package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/schema"
	"github.com/garnizeh/crackedclub/internal/screen"
	"github.com/garnizeh/crackedclub/pkg/ollama"
)

func modelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available on the configured Ollama instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ollama.NewDefaultClient(c.cfg.Ollama)
			if err != nil {
				return err
			}
			defer client.Close()

			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models at %s: %w", c.cfg.Ollama.BaseURL, err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, humanize.Bytes(uint64(m.Size)), humanize.Time(m.ModifiedAt))
			}
			return w.Flush()
		},
	}
}

func screenCmd(c *cli) *cobra.Command {
	var (
		model string
		store bool
	)

	cmd := &cobra.Command{
		Use:   "screen <application-id>",
		Short: "Run the LLM screening for one stored application and print the note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if model == "" {
				model = c.cfg.Screening.Model
			}
			if model == "" {
				return fmt.Errorf("no model: set screening.model or pass --model")
			}

			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			a, err := repo.GetApplication(ctx, args[0])
			if err != nil {
				return err
			}
			if a == nil {
				return fmt.Errorf("application %s not found", args[0])
			}
			var p application.Payload
			if err := json.Unmarshal(a.PayloadJSON, &p); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}

			loader, err := schema.NewLoader(ctx, repo)
			if err != nil {
				return err
			}
			client, err := ollama.NewDefaultClient(c.cfg.Ollama)
			if err != nil {
				return err
			}
			defer client.Close()

			s, err := screen.NewScreener(ctx, screen.Config{
				Model:           model,
				TemplateVersion: c.cfg.Screening.TemplateVersion,
				SchemaVersion:   c.cfg.Screening.SchemaVersion,
				Timeout:         c.cfg.Screening.Timeout,
			}, client, repo, repo, loader)
			if err != nil {
				return err
			}
			note, err := s.Screen(ctx, p)
			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(note, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if store {
				compact, _ := json.Marshal(note)
				if err := repo.SetScreening(ctx, a.ID, compact); err != nil {
					return fmt.Errorf("store screening: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored on application %s.\n", a.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (defaults to screening.model)")
	cmd.Flags().BoolVar(&store, "store", false, "Save the note on the application")
	return cmd
}
