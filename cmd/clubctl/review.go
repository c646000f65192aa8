package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func applicationsCmd(c *cli) *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:     "applications",
		Aliases: []string{"apps"},
		Short:   "List stored applications, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			items, err := repo.ListApplications(ctx, status, limit, offset)
			if err != nil {
				return err
			}
			total, err := repo.CountApplications(ctx, status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tRECEIVED\tVIBE")
			for _, a := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Email, a.Status, humanize.Time(time.UnixMilli(a.Created)), vibe(a.ScreeningJSON))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s of %s applications\n", humanize.Comma(int64(len(items))), humanize.Comma(total))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list applications with this status (queued, delivered, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print one application as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
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
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		},
	})
	return cmd
}

// vibe pulls the verdict out of a stored screening note.
func vibe(note json.RawMessage) string {
	if len(note) == 0 {
		return "-"
	}
	var n struct {
		Vibe string `json:"vibe"`
	}
	if json.Unmarshal(note, &n) != nil || n.Vibe == "" {
		return "?"
	}
	return n.Vibe
}

func waitlistCmd(c *cli) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "waitlist",
		Short: "List waitlist signups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			items, err := repo.ListWaitlist(ctx, limit, offset)
			if err != nil {
				return err
			}
			total, err := repo.CountWaitlist(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tJOINED")
			for _, e := range items {
				fmt.Fprintf(w, "%s\t%s\n", e.Email, humanize.Time(time.UnixMilli(e.Created)))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s on the waitlist\n", humanize.Comma(total))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

func deadlettersCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "deadletters",
		Short: "List background jobs that exhausted their attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, repo, err := c.openRepo(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()

			items, err := repo.ListDeadLetters(ctx, limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No dead-lettered jobs.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "JOB\tTYPE\tATTEMPTS\tFAILED\tERROR")
			for _, d := range items {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", d.JobID, d.Type, d.Attempts, humanize.Time(d.FailedAt), oneLine(d.LastError, 80))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to print")
	return cmd
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
