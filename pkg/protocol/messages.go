package protocol

import "encoding/json"

// OutputFormat selects the converted document format
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "md"
	FormatJSON     OutputFormat = "json"
)

// OutputFormats lists the formats the converter backend produces, in UI order
func OutputFormats() []OutputFormat {
	return []OutputFormat{FormatMarkdown, FormatJSON}
}

// FileType selects which artifact a download returns
type FileType string

const (
	FileOriginal FileType = "original" // converted document
	FileSplit    FileType = "split"    // split document
)

// Valid reports whether t is a known download artifact
func (t FileType) Valid() bool {
	return t == FileOriginal || t == FileSplit
}

// Splitter types understood by the backend splitter service
const (
	SplitterRecursive = "recursive"
	SplitterCharacter = "character"
	SplitterToken     = "token"
	SplitterMarkdown  = "markdown"
	SplitterPython    = "python"
)

// UploadResponse is returned by POST /upload
type UploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename,omitempty"`
	FileType string `json:"file_type,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ConvertRequest is the body of POST /convert
type ConvertRequest struct {
	FileID       string       `json:"file_id"`
	OutputFormat OutputFormat `json:"output_format"`
}

// ConvertResponse is returned by POST /convert
type ConvertResponse struct {
	FileID         string       `json:"file_id,omitempty"`
	OutputFormat   OutputFormat `json:"output_format,omitempty"`
	ContentPreview string       `json:"content_preview,omitempty"`
	ContentLength  int          `json:"content_length"`
	Message        string       `json:"message,omitempty"`
}

// SplitterParams configures the backend text splitter.
// Separators is only sent for the recursive and character splitters.
type SplitterParams struct {
	SplitterType  string   `json:"splitter_type"`
	ChunkSize     int      `json:"chunk_size"`
	ChunkOverlap  int      `json:"chunk_overlap"`
	KeepSeparator bool     `json:"keep_separator"`
	Separators    []string `json:"separators,omitempty"`
}

// SplitRequest is the body of POST /split
type SplitRequest struct {
	FileID         string         `json:"file_id"`
	SplitterParams SplitterParams `json:"splitter_params"`
	OutputFormat   OutputFormat   `json:"output_format"`
}

// SplitResponse is returned by POST /split.
// SplitterParams is kept raw so the echoed object renders exactly as sent back.
type SplitResponse struct {
	FileID         string          `json:"file_id,omitempty"`
	ChunkCount     int             `json:"chunk_count"`
	SplitterParams json.RawMessage `json:"splitter_params,omitempty"`
	Preview        []string        `json:"preview"`
	Message        string          `json:"message,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
