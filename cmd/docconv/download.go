package main

import (
	"context"

	"github.com/spf13/cobra"

	"docconv/internal/console"
	"docconv/internal/session"
	"docconv/pkg/protocol"
)

var downloadDir string

var downloadCmd = &cobra.Command{
	Use:   "download original|split",
	Short: "Download the converted or split document",
	Long: `Download the converted document (original) or the split document (split).
Files are saved as document.<format> or split_document.<format> in the
configured download store. --dir saves to a local directory instead.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(protocol.FileOriginal), string(protocol.FileSplit)},
	RunE: func(cmd *cobra.Command, args []string) error {
		fileType := protocol.FileType(args[0])
		return runSession(cmd, func(ctx context.Context, ctrl *session.Controller, _ *console.Printer) error {
			return ctrl.Download(ctx, fileType)
		}, withDownloadDir(downloadDir))
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadDir, "dir", "o", "", "save into this local directory")
}
