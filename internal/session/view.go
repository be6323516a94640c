package session

import (
	"encoding/json"
	"fmt"

	"docconv/internal/format"
	"docconv/internal/splitter"
	"docconv/pkg/protocol"
)

// FileInfo describes the selected file
type FileInfo struct {
	Name string
	Size int64
}

// SizeText is the human-readable file size
func (f FileInfo) SizeText() string {
	return format.FileSize(f.Size)
}

// ConvertResult is the latest successful conversion
type ConvertResult struct {
	ContentLength  int
	ContentPreview string
	OutputFormat   protocol.OutputFormat
}

// LengthText is the content length with thousands separators
func (r ConvertResult) LengthText() string {
	return format.Count(r.ContentLength)
}

// SplitResult is the latest successful split
type SplitResult struct {
	ChunkCount int
	Params     json.RawMessage
	Preview    []string
}

// ParamsText renders the echoed splitter parameters as compact JSON
func (r SplitResult) ParamsText() string {
	return format.CompactJSON(r.Params)
}

// Chunk is one labelled preview block
type Chunk struct {
	Label string
	Text  string
}

// Chunks labels each preview chunk "Chunk <n>" and truncates its text
func (r SplitResult) Chunks() []Chunk {
	chunks := make([]Chunk, len(r.Preview))
	for i, text := range r.Preview {
		chunks[i] = Chunk{
			Label: fmt.Sprintf("Chunk %d", i+1),
			Text:  format.Truncate(text, format.PreviewLength),
		}
	}
	return chunks
}

// View is an immutable copy of the controller state for rendering
type View struct {
	FileID string
	File   *FileInfo

	CanConvert  bool
	CanSplit    bool
	Converting  bool
	Splitting   bool
	Downloading bool

	Status  *Status
	Convert *ConvertResult
	Split   *SplitResult
	Saved   string

	OutputFormat protocol.OutputFormat
	Splitter     splitter.Form
}

// ConvertEnabled reports whether the convert control accepts input
func (v View) ConvertEnabled() bool {
	return v.CanConvert && !v.Converting
}

// SplitEnabled reports whether the split control accepts input
func (v View) SplitEnabled() bool {
	return v.CanSplit && !v.Splitting
}

// SeparatorsVisible reports whether the separators input is shown
func (v View) SeparatorsVisible() bool {
	return v.Splitter.SeparatorsVisible()
}

// Loading reports whether any request with a loading indicator is in flight
func (v View) Loading() bool {
	return v.Converting || v.Splitting || v.Downloading
}

// Snapshot copies the current state
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.st
	v := View{
		FileID:       s.fileID,
		CanConvert:   s.canConvert,
		CanSplit:     s.canSplit,
		Converting:   s.converting,
		Splitting:    s.splitting,
		Downloading:  s.downloading,
		Saved:        s.saved,
		OutputFormat: s.outputFormat,
		Splitter:     s.form,
	}
	if s.file != nil {
		f := *s.file
		v.File = &f
	}
	if s.status != nil {
		st := *s.status
		v.Status = &st
	}
	if s.convert != nil {
		r := *s.convert
		v.Convert = &r
	}
	if s.split != nil {
		r := *s.split
		r.Params = append(json.RawMessage(nil), r.Params...)
		r.Preview = append([]string(nil), r.Preview...)
		v.Split = &r
	}
	return v
}
