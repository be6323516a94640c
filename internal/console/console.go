// Package console renders a session controller on a plain terminal: one
// coloured line per status message, a spinner while a request is loading
// and progress bars for uploads and downloads.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"docconv/internal/session"
)

// Printer writes statuses to out and animations to errOut
type Printer struct {
	out    io.Writer
	errOut io.Writer

	success *color.Color
	failure *color.Color
	info    *color.Color
	label   *color.Color

	mu       sync.Mutex
	spin     *spinner.Spinner
	spinning bool
	bars     map[string]*progressbar.ProgressBar
	animate  bool
	failed   bool
}

// Option configures a Printer
type Option func(*Printer)

// WithoutAnimation disables the spinner and progress bars (e.g. when stderr is not a terminal)
func WithoutAnimation() Option {
	return func(p *Printer) { p.animate = false }
}

// WithNoColor disables ANSI colours
func WithNoColor() Option {
	return func(p *Printer) {
		for _, c := range []*color.Color{p.success, p.failure, p.info, p.label} {
			c.DisableColor()
		}
	}
}

// New creates a Printer
func New(out, errOut io.Writer, opts ...Option) *Printer {
	p := &Printer{
		out:     out,
		errOut:  errOut,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		info:    color.New(color.FgCyan),
		label:   color.New(color.Bold),
		bars:    make(map[string]*progressbar.ProgressBar),
		animate: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = errOut
	p.spin = s
	return p
}

// Status prints one status line. It is installed as the controller's OnStatus hook.
func (p *Printer) Status(st session.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinnerLocked()
	switch st.Type {
	case session.StatusSuccess:
		p.success.Fprintf(p.out, "✓ %s\n", st.Message)
	case session.StatusError:
		p.failed = true
		p.failure.Fprintf(p.out, "✗ %s\n", st.Message)
	default:
		p.info.Fprintf(p.out, "ℹ %s\n", st.Message)
	}
}

// Failed reports whether an error status has been printed
func (p *Printer) Failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// Watch follows ctrl until ctx is done, keeping the spinner in step with the
// controller's loading state.
func (p *Printer) Watch(ctx context.Context, ctrl *session.Controller) {
	for {
		select {
		case <-ctx.Done():
			p.Loading(false, "")
			return
		case <-ctrl.Changes():
			v := ctrl.Snapshot()
			p.Loading(v.Loading(), loadingLabel(v))
		}
	}
}

func loadingLabel(v session.View) string {
	switch {
	case v.Converting:
		return "Converting..."
	case v.Splitting:
		return "Splitting..."
	case v.Downloading:
		return "Downloading..."
	}
	return ""
}

// Loading starts or stops the spinner
func (p *Printer) Loading(on bool, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !on {
		p.stopSpinnerLocked()
		return
	}
	if !p.animate {
		return
	}
	p.spin.Suffix = " " + label
	if !p.spinning {
		p.spin.Start()
		p.spinning = true
	}
}

func (p *Printer) stopSpinnerLocked() {
	if p.spinning {
		p.spin.Stop()
		p.spinning = false
	}
}

// Progress is an api.ProgressFunc drawing one bar per transfer
func (p *Printer) Progress(op string, done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.animate {
		return
	}

	bar, ok := p.bars[op]
	if !ok {
		p.stopSpinnerLocked()
		bar = progressbar.NewOptions64(
			total,
			progressbar.OptionSetWriter(p.errOut),
			progressbar.OptionSetDescription(op),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		p.bars[op] = bar
	}
	_ = bar.Set64(done)
	if total > 0 && done >= total {
		_ = bar.Finish()
		delete(p.bars, op)
	}
}

// FinishTransfers closes bars whose size was unknown
func (p *Printer) FinishTransfers() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for op, bar := range p.bars {
		_ = bar.Finish()
		delete(p.bars, op)
	}
}

// Result prints the convert and split results held in v
func (p *Printer) Result(v session.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v.File != nil {
		fmt.Fprintf(p.out, "%s %s (%s)\n", p.label.Sprint("File:"), v.File.Name, v.File.SizeText())
	}
	if v.FileID != "" {
		fmt.Fprintf(p.out, "%s %s\n", p.label.Sprint("File ID:"), v.FileID)
	}
	if v.Convert != nil {
		fmt.Fprintf(p.out, "%s %s\n", p.label.Sprint("Content length:"), v.Convert.LengthText())
	}
	if v.Split != nil {
		fmt.Fprintf(p.out, "%s %d\n", p.label.Sprint("Chunks:"), v.Split.ChunkCount)
		fmt.Fprintf(p.out, "%s %s\n", p.label.Sprint("Parameters:"), v.Split.ParamsText())
		for _, c := range v.Split.Chunks() {
			fmt.Fprintf(p.out, "\n%s\n%s\n", p.label.Sprint(c.Label), c.Text)
		}
	}
}
