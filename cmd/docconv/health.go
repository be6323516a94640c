package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docconv/internal/session"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the conversion service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, modeCLI)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()

		resp, err := a.client.Health(ctx)
		if err != nil {
			a.printer.Status(session.Status{
				Message: fmt.Sprintf("%s is unreachable: %v", a.client.BaseURL(), err),
				Type:    session.StatusError,
			})
			return errOperationFailed
		}
		if resp.Status != "healthy" {
			a.printer.Status(session.Status{
				Message: fmt.Sprintf("%s reports %q: %s", a.client.BaseURL(), resp.Status, resp.Message),
				Type:    session.StatusError,
			})
			return errOperationFailed
		}

		msg := resp.Message
		if msg == "" {
			msg = "healthy"
		}
		a.printer.Status(session.Status{
			Message: fmt.Sprintf("%s: %s", a.client.BaseURL(), msg),
			Type:    session.StatusSuccess,
		})
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "give up after this long")
}
