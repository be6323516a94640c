// Package apitest runs an in-memory converter backend for tests. Every
// request is recorded, and any route can be scripted to return a fixed
// response instead of the built-in behavior.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"docconv/pkg/protocol"
)

// Request is one recorded API call
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into v
func (r Request) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Response is a scripted reply
type Response struct {
	Status      int
	JSON        any    // encoded as the body when set
	Body        []byte // raw body when JSON is nil
	ContentType string
}

type storedFile struct {
	name      string
	content   []byte
	converted []byte
	split     []byte
}

// Server is a fake converter API listening on a loopback port
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	scripted map[string]Response
	files    map[string]*storedFile
	nextID   int
}

// New starts a server and stops it when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		scripted: make(map[string]Response),
		files:    make(map[string]*storedFile),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record)

	api := e.Group("/api")
	api.POST("/upload", s.handleUpload)
	api.POST("/convert", s.handleConvert)
	api.POST("/split", s.handleSplit)
	api.GET("/download/:file_id/:file_type", s.handleDownload)
	api.GET("/health", s.handleHealth)

	s.Server = httptest.NewServer(e)
	t.Cleanup(s.Close)
	return s
}

// APIURL is the base URL to hand to api.New
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// Respond scripts every future call to method+path (e.g. "POST", "/api/convert").
// Paths with parameters are matched on the concrete request path.
func (s *Server) Respond(method, path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripted[method+" "+path] = resp
}

// Requests returns a copy of every recorded request
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many requests reached the server
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Last returns the most recent request, or false when there is none
func (s *Server) Last() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: req.Method,
			Path:   req.URL.Path,
			Header: req.Header.Clone(),
			Body:   body,
		})
		scripted, ok := s.scripted[req.Method+" "+req.URL.Path]
		s.mu.Unlock()

		if ok {
			return writeScripted(c, scripted)
		}
		return next(c)
	}
}

func writeScripted(c echo.Context, r Response) error {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	if r.JSON != nil {
		return c.JSON(status, r.JSON)
	}
	ct := r.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	return c.Blob(status, ct, r.Body)
}

func apiError(c echo.Context, status int, msg string) error {
	return c.JSON(status, protocol.ErrorResponse{Error: msg})
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apiError(c, http.StatusBadRequest, "No file provided")
	}
	if fh.Filename == "" {
		return apiError(c, http.StatusBadRequest, "No file selected")
	}

	src, err := fh.Open()
	if err != nil {
		return apiError(c, http.StatusInternalServerError, err.Error())
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return apiError(c, http.StatusInternalServerError, err.Error())
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("file-%d", s.nextID)
	s.files[id] = &storedFile{name: fh.Filename, content: content}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, protocol.UploadResponse{
		FileID:   id,
		Filename: fh.Filename,
		FileType: strings.TrimPrefix(filepath.Ext(fh.Filename), "."),
		Message:  "File uploaded successfully",
	})
}

func (s *Server) handleConvert(c echo.Context) error {
	var req protocol.ConvertRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid JSON body")
	}
	if req.FileID == "" {
		return apiError(c, http.StatusBadRequest, "No file_id provided")
	}

	s.mu.Lock()
	f, ok := s.files[req.FileID]
	if ok {
		f.converted = f.content
	}
	s.mu.Unlock()
	if !ok {
		return apiError(c, http.StatusNotFound, "File not found")
	}

	preview := string(f.converted)
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	return c.JSON(http.StatusOK, protocol.ConvertResponse{
		FileID:         req.FileID,
		OutputFormat:   req.OutputFormat,
		ContentPreview: preview,
		ContentLength:  len(f.converted),
		Message:        "File converted successfully",
	})
}

type rawSplitRequest struct {
	FileID         string          `json:"file_id"`
	SplitterParams json.RawMessage `json:"splitter_params"`
	OutputFormat   string          `json:"output_format"`
}

func (s *Server) handleSplit(c echo.Context) error {
	var req rawSplitRequest
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "Invalid JSON body")
	}
	if req.FileID == "" {
		return apiError(c, http.StatusBadRequest, "No file_id provided")
	}

	var params protocol.SplitterParams
	_ = json.Unmarshal(req.SplitterParams, &params)
	if params.ChunkSize <= 0 {
		params.ChunkSize = 1000
	}

	s.mu.Lock()
	f, ok := s.files[req.FileID]
	var chunks []string
	if ok && f.converted != nil {
		chunks = chunkText(string(f.converted), params.ChunkSize)
		f.split = []byte(strings.Join(chunks, "\n\n---\n\n"))
	}
	s.mu.Unlock()
	if !ok || f.converted == nil {
		return apiError(c, http.StatusNotFound, "Converted file not found. Please convert first.")
	}

	preview := chunks
	if len(preview) > 3 {
		preview = preview[:3]
	}
	return c.JSON(http.StatusOK, protocol.SplitResponse{
		FileID:         req.FileID,
		ChunkCount:     len(chunks),
		SplitterParams: req.SplitterParams,
		Preview:        preview,
		Message:        "Text split successfully",
	})
}

func (s *Server) handleDownload(c echo.Context) error {
	id := c.Param("file_id")
	fileType := protocol.FileType(c.Param("file_type"))

	s.mu.Lock()
	f, ok := s.files[id]
	var data []byte
	if ok {
		switch fileType {
		case protocol.FileOriginal:
			data = f.converted
		case protocol.FileSplit:
			data = f.split
		}
	}
	s.mu.Unlock()

	if data == nil {
		return apiError(c, http.StatusNotFound, "File not found")
	}

	name := id + ".md"
	if fileType == protocol.FileSplit {
		name = id + "_split.md"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", name))
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, protocol.HealthResponse{
		Status:  "healthy",
		Message: "Document converter API is running",
	})
}

func chunkText(text string, size int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
