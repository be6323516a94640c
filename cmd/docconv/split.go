package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"docconv/internal/console"
	"docconv/internal/session"
	"docconv/internal/splitter"
)

// splitFlags mirror the splitter form. Sizes stay strings so they are parsed
// the same way as typed input.
type splitFlags struct {
	splitterType  string
	chunkSize     string
	chunkOverlap  string
	keepSeparator bool
	separators    string
}

var splitOpts splitFlags

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split the converted document into chunks",
	Long: `Split the converted document into chunks. Options default to the
splitter section of the config file.

Separators apply to the recursive and character splitters only. They are
comma separated and \n stands for a newline:

  docconv split --type recursive --separators '\n\n,\n, '`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, func(ctx context.Context, ctrl *session.Controller, p *console.Printer) error {
			form := ctrl.Snapshot().Splitter
			splitOpts.apply(cmd, &form)
			ctrl.SetSplitterForm(form)

			if err := ctrl.Split(ctx); err != nil {
				return err
			}
			p.Result(ctrl.Snapshot())
			return nil
		})
	},
}

// apply overrides the form with every flag set on the command line
func (f splitFlags) apply(cmd *cobra.Command, form *splitter.Form) {
	flags := cmd.Flags()
	if flags.Changed("type") {
		form.Type = strings.TrimSpace(f.splitterType)
	}
	if flags.Changed("chunk-size") {
		form.ChunkSize = f.chunkSize
	}
	if flags.Changed("chunk-overlap") {
		form.ChunkOverlap = f.chunkOverlap
	}
	if flags.Changed("keep-separator") {
		form.KeepSeparator = f.keepSeparator
	}
	if flags.Changed("separators") {
		form.Separators = f.separators
	}
}

func addSplitFlags(cmd *cobra.Command, f *splitFlags) {
	cmd.Flags().StringVar(&f.splitterType, "type", splitter.DefaultType, "splitter type: "+strings.Join(splitter.Types(), ", "))
	cmd.Flags().StringVar(&f.chunkSize, "chunk-size", "", "maximum chunk size")
	cmd.Flags().StringVar(&f.chunkOverlap, "chunk-overlap", "", "overlap between chunks")
	cmd.Flags().BoolVar(&f.keepSeparator, "keep-separator", true, "keep separators in the chunks")
	cmd.Flags().StringVar(&f.separators, "separators", "", `comma separated separators, \n for newline`)
}

func init() {
	addSplitFlags(splitCmd, &splitOpts)
}
