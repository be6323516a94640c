package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"docconv/internal/format"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent operations",
	Long: `List recorded upload, convert, split and download outcomes, newest first.
Entries older than history.retention_days are pruned automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, modeCLI)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if a.history == nil {
			fmt.Fprintln(out, "History is disabled.")
			return nil
		}

		entries, err := a.history.List(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No operations recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tOPERATION\tSTATUS\tFILE\tMESSAGE")
		fmt.Fprintln(w, "----\t---------\t------\t----\t-------")
		for _, e := range entries {
			file := e.FileName
			if file == "" {
				file = e.FileID
			}
			if file == "" {
				file = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				humanize.Time(e.CreatedAt),
				e.Operation,
				e.Status,
				format.Truncate(file, 40),
				strings.ReplaceAll(e.Message, "\n", " "),
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show (0 for all)")
}
