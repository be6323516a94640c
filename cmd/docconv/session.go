package main

import (
	"context"

	"github.com/spf13/cobra"

	"docconv/internal/console"
	"docconv/internal/logging"
	"docconv/internal/session"
	"docconv/pkg/protocol"
)

// sessionOp is one CLI operation against the restored session
type sessionOp func(ctx context.Context, ctrl *session.Controller, p *console.Printer) error

// runSession restores the saved session, runs op while the printer follows
// the controller, then saves the session again. Any error status makes the
// command exit non-zero.
func runSession(cmd *cobra.Command, op sessionOp, opts ...appOption) error {
	a, err := newApp(cmd, modeCLI, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl := a.newController(logging.Component(a.logger, "session"))

	statePath := a.dd.SessionFile()
	st, err := session.LoadState(statePath)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ignoring saved session")
	}
	if fileIDFlag != "" && fileIDFlag != st.FileID {
		// An explicit id may belong to a document converted elsewhere
		st = session.State{FileID: fileIDFlag, OutputFormat: st.OutputFormat, Converted: true}
	}
	ctrl.Restore(st)
	if outputFormat != "" {
		ctrl.SetOutputFormat(protocol.OutputFormat(outputFormat))
	}

	ctx := cmd.Context()
	watchCtx, stopWatch := context.WithCancel(ctx)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		a.printer.Watch(watchCtx, ctrl)
	}()

	opErr := op(ctx, ctrl, a.printer)

	stopWatch()
	<-watched
	a.printer.FinishTransfers()

	if err := session.SaveState(statePath, ctrl.State()); err != nil {
		a.logger.Warn().Err(err).Msg("failed to save session")
	}

	if opErr != nil || a.printer.Failed() {
		a.logger.Debug().AnErr("error", opErr).Msg("operation failed")
		return errOperationFailed
	}
	return nil
}
