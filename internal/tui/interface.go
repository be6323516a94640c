package tui

import (
	"context"

	"docconv/internal/session"
	"docconv/internal/splitter"
	"docconv/pkg/protocol"
)

// Session abstracts the controller driven by the TUI.
// *session.Controller implements it.
type Session interface {
	Snapshot() session.View
	Changes() <-chan struct{}

	UploadPath(ctx context.Context, path string) error
	Convert(ctx context.Context) error
	Split(ctx context.Context) error
	Download(ctx context.Context, fileType protocol.FileType) error

	CycleOutputFormat() protocol.OutputFormat
	SetSplitterForm(f splitter.Form)
	DismissStatus(id uint64) bool
}

// HealthChecker reports whether the conversion service is reachable.
// *api.Client implements it.
type HealthChecker interface {
	Health(ctx context.Context) (*protocol.HealthResponse, error)
}
