package main

import (
	"context"

	"github.com/spf13/cobra"

	"docconv/internal/console"
	"docconv/internal/session"
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a document",
	Long: `Upload a document to the conversion service. The returned file id is
saved in the data directory and used by later convert, split and download
commands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, func(ctx context.Context, ctrl *session.Controller, p *console.Printer) error {
			if err := ctrl.UploadPath(ctx, args[0]); err != nil {
				return err
			}
			p.Result(ctrl.Snapshot())
			return nil
		})
	},
}
