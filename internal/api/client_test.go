package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconv/internal/apitest"
	"docconv/pkg/protocol"
)

func TestClient_UploadConvertSplitDownload(t *testing.T) {
	srv := apitest.New(t)
	c := New(srv.APIURL())
	ctx := context.Background()

	content := "hello world, this is a document"
	up, err := c.Upload(ctx, "notes.txt", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, "file-1", up.FileID)
	assert.Equal(t, "notes.txt", up.Filename)
	assert.Equal(t, "txt", up.FileType)

	conv, err := c.Convert(ctx, up.FileID, protocol.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, len(content), conv.ContentLength)

	split, err := c.Split(ctx, up.FileID, protocol.SplitterParams{
		SplitterType: "recursive",
		ChunkSize:    10,
		ChunkOverlap: 0,
	}, protocol.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, 4, split.ChunkCount)
	assert.Len(t, split.Preview, 3)
	assert.Equal(t, "hello worl", split.Preview[0])
	assert.JSONEq(t, `{"splitter_type":"recursive","chunk_size":10,"chunk_overlap":0,"keep_separator":false}`, string(split.SplitterParams))

	dl, err := c.Download(ctx, up.FileID, protocol.FileOriginal)
	require.NoError(t, err)
	defer dl.Close()
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Equal(t, "file-1.md", dl.Filename)
}

func TestClient_UploadSendsMultipartField(t *testing.T) {
	srv := apitest.New(t)
	c := New(srv.APIURL())

	_, err := c.Upload(context.Background(), "report.pdf", strings.NewReader("%PDF"), 4)
	require.NoError(t, err)

	req, ok := srv.Last()
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/upload", req.Path)
	assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.Contains(t, string(req.Body), `name="file"; filename="report.pdf"`)
	assert.Contains(t, string(req.Body), "%PDF")
	assert.NotEmpty(t, req.Header.Get(RequestIDHeader))
}

func TestClient_UploadUnknownSize(t *testing.T) {
	srv := apitest.New(t)
	c := New(srv.APIURL())

	up, err := c.Upload(context.Background(), "a.md", strings.NewReader("# title"), -1)
	require.NoError(t, err)
	assert.NotEmpty(t, up.FileID)
}

func TestClient_UploadFile(t *testing.T) {
	srv := apitest.New(t)

	var events []int64
	c := New(srv.APIURL(), WithProgress(func(op string, done, total int64) {
		assert.Equal(t, "upload", op)
		assert.Equal(t, int64(5), total)
		events = append(events, done)
	}))

	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0600))

	up, err := c.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", up.Filename)
	require.NotEmpty(t, events)
	assert.Equal(t, int64(5), events[len(events)-1])
}

func TestClient_UploadFileMissing(t *testing.T) {
	c := New("http://127.0.0.1:1/api")
	_, err := c.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClient_ServerError(t *testing.T) {
	srv := apitest.New(t)
	srv.Respond(http.MethodPost, "/api/convert", apitest.Response{
		Status: http.StatusNotFound,
		JSON:   protocol.ErrorResponse{Error: "File not found"},
	})
	c := New(srv.APIURL())

	_, err := c.Convert(context.Background(), "nope", protocol.FormatMarkdown)
	require.Error(t, err)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "File not found", se.Error())
	assert.True(t, IsServerError(err))
}

func TestClient_ServerErrorWithoutMessage(t *testing.T) {
	srv := apitest.New(t)
	srv.Respond(http.MethodPost, "/api/convert", apitest.Response{
		Status: http.StatusInternalServerError,
		JSON:   map[string]string{},
	})
	c := New(srv.APIURL())

	_, err := c.Convert(context.Background(), "x", protocol.FormatMarkdown)
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Internal Server Error", se.Message)
}

func TestClient_HTMLErrorPage(t *testing.T) {
	srv := apitest.New(t)
	srv.Respond(http.MethodPost, "/api/upload", apitest.Response{
		Status:      http.StatusRequestEntityTooLarge,
		ContentType: "text/html; charset=utf-8",
		Body: []byte(`<!DOCTYPE html><html><head><title>413 Request Entity Too Large</title>
<style>body{}</style></head><body><h1>Request Entity Too Large</h1></body></html>`),
	})
	c := New(srv.APIURL())

	_, err := c.Upload(context.Background(), "big.pdf", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.False(t, IsServerError(err))
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Contains(t, err.Error(), "413 Request Entity Too Large")
	assert.NotContains(t, err.Error(), "<title>")
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	srv := apitest.New(t)
	srv.Respond(http.MethodGet, "/api/download/f/split", apitest.Response{
		Status:      http.StatusBadGateway,
		ContentType: "text/plain",
		Body:        []byte("upstream unavailable\n"),
	})
	c := New(srv.APIURL())

	_, err := c.Download(context.Background(), "f", protocol.FileSplit)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestClient_LongErrorBodyTruncatedByRune(t *testing.T) {
	srv := apitest.New(t)
	srv.Respond(http.MethodPost, "/api/convert", apitest.Response{
		Status:      http.StatusBadGateway,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(strings.Repeat("é", 300)),
	})
	c := New(srv.APIURL())

	_, err := c.Convert(context.Background(), "f", protocol.FormatMarkdown)
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.True(t, strings.HasSuffix(err.Error(), strings.Repeat("é", 200)+"..."), err.Error())
	assert.NotContains(t, err.Error(), strings.Repeat("é", 201))
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	srv := apitest.New(t)
	srv.Respond(http.MethodPost, "/api/split", apitest.Response{
		Status:      http.StatusOK,
		ContentType: "application/json",
		Body:        []byte("{not json"),
	})
	c := New(srv.APIURL())

	_, err := c.Split(context.Background(), "f", protocol.SplitterParams{}, protocol.FormatJSON)
	require.Error(t, err)
	assert.False(t, IsServerError(err))
	assert.Contains(t, err.Error(), "failed to decode split response")
}

func TestClient_TransportError(t *testing.T) {
	srv := apitest.New(t)
	url := srv.APIURL()
	srv.Close()

	c := New(url)
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.False(t, IsServerError(err))
}

func TestClient_Timeout(t *testing.T) {
	c := New(DefaultBaseURL, WithTimeout(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, c.httpClient.Timeout)

	c = New(DefaultBaseURL)
	assert.Zero(t, c.httpClient.Timeout)
}

func TestClient_Health(t *testing.T) {
	srv := apitest.New(t)
	c := New(srv.APIURL() + "/")

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, srv.APIURL(), c.BaseURL())
}

func TestClient_DownloadEscapesPath(t *testing.T) {
	srv := apitest.New(t)
	c := New(srv.APIURL())

	_, err := c.Download(context.Background(), "a b", protocol.FileOriginal)
	require.Error(t, err)

	req, ok := srv.Last()
	require.True(t, ok)
	assert.Equal(t, "/api/download/a b/original", req.Path)
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "x.md", attachmentName(`attachment; filename="x.md"`))
	assert.Equal(t, "y.json", attachmentName(`attachment; filename=y.json`))
	assert.Equal(t, "", attachmentName(""))
	assert.Equal(t, "", attachmentName("attachment"))
}
