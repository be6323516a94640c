package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docconv/internal/version"
)

var (
	cfgFile      string
	apiURL       string
	outputFormat string
	fileIDFlag   string
	verbose      bool
	noColor      bool
)

// errOperationFailed marks a run whose outcome was already reported as an
// error status; main only sets the exit code.
var errOperationFailed = errors.New("operation failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docconv",
	Short: "docconv - upload, convert and split documents",
	Long: `docconv is a client for the document conversion service. It uploads a
document, converts it to Markdown or JSON, splits the converted text into
chunks and downloads the results.

Without a subcommand it starts the interactive terminal UI.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "docconv %s\n", version.Full())
		buildInfo := version.GetBuildInfo()

		if buildInfo.GitCommit != "unknown" {
			fmt.Fprintf(out, "Git commit: %s\n", buildInfo.GitCommit)
		}
		if buildInfo.GitTag != "" {
			fmt.Fprintf(out, "Git tag: %s\n", buildInfo.GitTag)
		}
		if buildInfo.GitDirty {
			fmt.Fprintf(out, "Git status: dirty (uncommitted changes)\n")
		}
		if buildInfo.BuildDate != "unknown" {
			fmt.Fprintf(out, "Build date: %s\n", buildInfo.BuildDate)
		}
		fmt.Fprintf(out, "Go version: %s\n", buildInfo.GoVersion)
		fmt.Fprintf(out, "Platform: %s\n", buildInfo.Platform)
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: <data dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "conversion service base URL, e.g. http://localhost:5000/api")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "", "output format: md or json")
	rootCmd.PersistentFlags().StringVar(&fileIDFlag, "file-id", "", "use this file id instead of the saved session")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sshCmd)
	rootCmd.AddCommand(sshKeysCmd)

	// If no command is specified, default to the TUI
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return tuiCmd.RunE(cmd, args)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errOperationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
