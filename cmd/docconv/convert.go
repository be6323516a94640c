package main

import (
	"context"

	"github.com/spf13/cobra"

	"docconv/internal/console"
	"docconv/internal/session"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the uploaded document",
	Long: `Convert the most recently uploaded document (or --file-id) into the
selected output format (--format, default from config).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, func(ctx context.Context, ctrl *session.Controller, p *console.Printer) error {
			if err := ctrl.Convert(ctx); err != nil {
				return err
			}
			p.Result(ctrl.Snapshot())
			return nil
		})
	},
}
