// Package session holds the upload/convert/split/download controller shared by
// every front end. A Controller owns the session's file id, the enabled and
// loading state of each control, the single status slot and the latest results.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"docconv/internal/api"
	"docconv/internal/history"
	"docconv/internal/splitter"
	"docconv/pkg/protocol"
)

// DefaultDismissAfter is how long a success status stays visible
const DefaultDismissAfter = 5 * time.Second

// ErrNoFile is returned by handlers invoked before an upload succeeded
var ErrNoFile = errors.New("no file uploaded")

// API is the remote conversion service
type API interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64) (*protocol.UploadResponse, error)
	Convert(ctx context.Context, fileID string, format protocol.OutputFormat) (*protocol.ConvertResponse, error)
	Split(ctx context.Context, fileID string, params protocol.SplitterParams, format protocol.OutputFormat) (*protocol.SplitResponse, error)
	Download(ctx context.Context, fileID string, fileType protocol.FileType) (*api.Download, error)
}

// Store receives downloaded documents
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Recorder logs operation outcomes
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Timer is a pending auto-dismiss
type Timer interface {
	Stop() bool
}

// Config wires a Controller to its collaborators
type Config struct {
	API     API
	Store   Store
	History Recorder // optional
	Logger  zerolog.Logger

	OutputFormat protocol.OutputFormat
	Splitter     *splitter.Form

	// DismissAfter defaults to DefaultDismissAfter
	DismissAfter time.Duration
	// AfterFunc defaults to time.AfterFunc
	AfterFunc func(d time.Duration, f func()) Timer

	// OnStatus observes every message shown. It runs with the controller
	// locked and must not call back into it.
	OnStatus func(Status)
}

// Controller coordinates one client session
type Controller struct {
	api          API
	store        Store
	history      Recorder
	logger       zerolog.Logger
	dismissAfter time.Duration
	afterFunc    func(time.Duration, func()) Timer
	onStatus     func(Status)

	mu       sync.Mutex
	st       state
	statusID uint64
	timer    Timer

	changes chan struct{}
}

// state is guarded by Controller.mu
type state struct {
	fileID string
	file   *FileInfo

	canConvert bool
	canSplit   bool
	converted  bool
	splitDone  bool

	converting  bool
	splitting   bool
	downloading bool

	status *Status

	convert *ConvertResult
	split   *SplitResult
	saved   string

	outputFormat protocol.OutputFormat
	form         splitter.Form
}

// New creates a Controller
func New(cfg Config) *Controller {
	c := &Controller{
		api:          cfg.API,
		store:        cfg.Store,
		history:      cfg.History,
		logger:       cfg.Logger.With().Str("component", "session").Logger(),
		dismissAfter: cfg.DismissAfter,
		afterFunc:    cfg.AfterFunc,
		onStatus:     cfg.OnStatus,
		changes:      make(chan struct{}, 1),
	}
	if c.dismissAfter <= 0 {
		c.dismissAfter = DefaultDismissAfter
	}
	if c.afterFunc == nil {
		c.afterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}

	c.st.outputFormat = cfg.OutputFormat
	if c.st.outputFormat == "" {
		c.st.outputFormat = protocol.FormatMarkdown
	}
	c.st.form = splitter.DefaultForm()
	if cfg.Splitter != nil {
		c.st.form = *cfg.Splitter
	}
	return c
}

// Changes delivers a signal after every state change. Signals are coalesced,
// so a receiver should read Snapshot after each one.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// update applies fn under the lock and signals listeners
func (c *Controller) update(fn func(s *state)) {
	c.mu.Lock()
	fn(&c.st)
	c.mu.Unlock()
	c.notify()
}

// FileID returns the current session file id, empty before the first upload
func (c *Controller) FileID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.fileID
}

// SetOutputFormat selects the format used by convert, split and download names
func (c *Controller) SetOutputFormat(f protocol.OutputFormat) {
	c.update(func(s *state) { s.outputFormat = f })
}

// CycleOutputFormat advances to the next known output format
func (c *Controller) CycleOutputFormat() protocol.OutputFormat {
	var next protocol.OutputFormat
	c.update(func(s *state) {
		formats := protocol.OutputFormats()
		next = formats[0]
		for i, f := range formats {
			if f == s.outputFormat {
				next = formats[(i+1)%len(formats)]
				break
			}
		}
		s.outputFormat = next
	})
	return next
}

// SetSplitterForm replaces the splitter form
func (c *Controller) SetSplitterForm(f splitter.Form) {
	c.update(func(s *state) { s.form = f })
}

// SetSplitterType changes the splitter type; separator visibility follows it
func (c *Controller) SetSplitterType(t string) {
	c.update(func(s *state) { s.form.Type = t })
}

// record writes an outcome to history; failures are logged, never surfaced
func (c *Controller) record(ctx context.Context, op string, st Status, fileID, fileName string, detail map[string]any) {
	if c.history == nil {
		return
	}
	_, err := c.history.Record(context.WithoutCancel(ctx), history.Entry{
		Operation: op,
		FileID:    fileID,
		FileName:  fileName,
		Status:    string(st.Type),
		Message:   st.Message,
		Detail:    detail,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Msg("failed to record history")
	}
}

func rawParams(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
