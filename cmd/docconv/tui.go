package main

import (
	"github.com/spf13/cobra"

	"docconv/internal/logging"
	"docconv/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch a BubbleTea terminal UI for uploading, converting, splitting and
downloading documents. Logs go to docconv.log in the data directory.

Key bindings:
  o               Choose a file to upload (or paste a path)
  c               Convert
  s               Split
  d / D           Download converted / split document
  f               Cycle output format
  t               Cycle splitter type
  k               Toggle keep separator
  Tab             Edit chunk size, overlap and separators
  x               Dismiss the status message
  ?               More help
  q, Ctrl+C       Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, modeInteractive)
		if err != nil {
			return err
		}
		defer a.Close()

		logger := logging.Component(a.logger, "tui")
		logger.Info().Str("api", a.client.BaseURL()).Msg("starting TUI")

		ctrl := a.newController(logger)
		return tui.Run(cmd.Context(), tui.ModelConfig{
			Session:  ctrl,
			Health:   a.client,
			APIURL:   a.client.BaseURL(),
			StartDir: workingDir(),
		})
	},
}
