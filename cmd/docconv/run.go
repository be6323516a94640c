package main

import (
	"context"

	"github.com/spf13/cobra"

	"docconv/internal/console"
	"docconv/internal/session"
	"docconv/pkg/protocol"
)

var (
	runNoSplit  bool
	runDir      string
	runSplitOpt splitFlags
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Upload, convert, split and download in one go",
	Long: `Run the whole pipeline for FILE: upload, convert, split, then download
the converted and split documents. The pipeline stops at the first failure.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, func(ctx context.Context, ctrl *session.Controller, p *console.Printer) error {
			if err := ctrl.UploadPath(ctx, args[0]); err != nil {
				return err
			}
			if err := ctrl.Convert(ctx); err != nil {
				return err
			}
			if err := ctrl.Download(ctx, protocol.FileOriginal); err != nil {
				return err
			}
			if !runNoSplit {
				form := ctrl.Snapshot().Splitter
				runSplitOpt.apply(cmd, &form)
				ctrl.SetSplitterForm(form)

				if err := ctrl.Split(ctx); err != nil {
					return err
				}
				if err := ctrl.Download(ctx, protocol.FileSplit); err != nil {
					return err
				}
			}
			p.Result(ctrl.Snapshot())
			return nil
		}, withDownloadDir(runDir))
	},
}

func init() {
	runCmd.Flags().BoolVar(&runNoSplit, "no-split", false, "stop after converting")
	runCmd.Flags().StringVarP(&runDir, "dir", "o", "", "save into this local directory")
	addSplitFlags(runCmd, &runSplitOpt)
}
