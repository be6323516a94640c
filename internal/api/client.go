// Package api is the HTTP client for the document converter service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docconv/pkg/protocol"
)

// DefaultBaseURL is where the converter backend listens by default
const DefaultBaseURL = "http://localhost:5000/api"

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// ProgressFunc observes bytes moving through an upload or a download.
// total is -1 when the size is unknown.
type ProgressFunc func(op string, done, total int64)

// Client talks to the converter API
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	progress   ProgressFunc
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the request logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithProgress installs a transfer observer
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) { c.progress = fn }
}

// New creates a client for the API rooted at baseURL (e.g. http://host:5000/api)
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "docconv",
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends a file as the multipart field "file".
// size may be -1 when unknown; the body is then sent chunked.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, size int64) (*protocol.UploadResponse, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	if _, err := mw.CreateFormFile("file", name); err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	headLen := head.Len()
	contentType := mw.FormDataContentType()
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	tail := append([]byte(nil), head.Bytes()[headLen:]...)
	head.Truncate(headLen)

	body := io.MultiReader(&head, c.track("upload", r, size), bytes.NewReader(tail))

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = -1
	if size >= 0 {
		req.ContentLength = int64(headLen) + size + int64(len(tail))
	}

	var out protocol.UploadResponse
	if err := c.doJSON(req, "upload", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFile uploads the file at path under its base name
func (c *Client) UploadFile(ctx context.Context, path string) (*protocol.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return c.Upload(ctx, filepath.Base(path), f, info.Size())
}

// Convert asks the backend to convert an uploaded file
func (c *Client) Convert(ctx context.Context, fileID string, format protocol.OutputFormat) (*protocol.ConvertResponse, error) {
	var out protocol.ConvertResponse
	err := c.postJSON(ctx, "/convert", "convert", protocol.ConvertRequest{
		FileID:       fileID,
		OutputFormat: format,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Split asks the backend to split a converted file
func (c *Client) Split(ctx context.Context, fileID string, params protocol.SplitterParams, format protocol.OutputFormat) (*protocol.SplitResponse, error) {
	var out protocol.SplitResponse
	err := c.postJSON(ctx, "/split", "split", protocol.SplitRequest{
		FileID:         fileID,
		SplitterParams: params,
		OutputFormat:   format,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Download is an open download stream. The caller must Close it.
type Download struct {
	Body     io.ReadCloser
	Filename string // server-suggested name, may be empty
	Size     int64  // -1 when unknown
}

// Close releases the response body
func (d *Download) Close() error {
	return d.Body.Close()
}

// Download fetches a converted or split artifact
func (c *Client) Download(ctx context.Context, fileID string, fileType protocol.FileType) (*Download, error) {
	path := "/download/" + url.PathEscape(fileID) + "/" + url.PathEscape(string(fileType))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req, "download")
	if err != nil {
		return nil, err
	}

	return &Download{
		Body:     readCloser{Reader: c.track("download", resp.Body, resp.ContentLength), Closer: resp.Body},
		Filename: attachmentName(resp.Header.Get("Content-Disposition")),
		Size:     resp.ContentLength,
	}, nil
}

// Health reports whether the backend is up
func (c *Client) Health(ctx context.Context) (*protocol.HealthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var out protocol.HealthResponse
	if err := c.doJSON(req, "health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path, op string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, op, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// do sends req and returns the response on 2xx. Any other status is turned
// into an error and the body is closed.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	reqID := req.Header.Get(RequestIDHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Str("request_id", reqID).Msg("request failed")
		return nil, err
	}

	c.logger.Debug().
		Str("op", op).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) track(op string, r io.Reader, total int64) io.Reader {
	if c.progress == nil {
		return r
	}
	return &progressReader{r: r, op: op, total: total, fn: c.progress}
}

type progressReader struct {
	r     io.Reader
	op    string
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(p.op, p.done, p.total)
	}
	return n, err
}

type readCloser struct {
	io.Reader
	io.Closer
}

// attachmentName extracts the filename parameter of a Content-Disposition header
func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
