package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconv/internal/api"
	"docconv/internal/apitest"
	"docconv/internal/filestore"
	"docconv/internal/history"
	"docconv/internal/splitter"
	"docconv/pkg/protocol"
)

// fakeTimers captures scheduled dismissals so tests fire them by hand
type fakeTimers struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.pending = append(ft.pending, t)
	return t
}

// fireAll runs every scheduled callback, stopped or not, as a late timer would
func (ft *fakeTimers) fireAll() {
	ft.mu.Lock()
	timers := ft.pending
	ft.pending = nil
	ft.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

func (ft *fakeTimers) count() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.pending)
}

type recorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *recorder) Record(_ context.Context, e history.Entry) (history.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Operation+":"+e.Status)
	}
	return out
}

type harness struct {
	srv    *apitest.Server
	ctrl   *Controller
	timers *fakeTimers
	hist   *recorder
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.New(t)
	dir := t.TempDir()
	store, err := filestore.NewLocal(filestore.Config{Dir: dir})
	require.NoError(t, err)

	h := &harness{srv: srv, timers: &fakeTimers{}, hist: &recorder{}, dir: dir}
	h.ctrl = New(Config{
		API:       api.New(srv.APIURL()),
		Store:     store,
		History:   h.hist,
		Logger:    zerolog.Nop(),
		AfterFunc: h.timers.AfterFunc,
	})
	return h
}

func statusOf(t *testing.T, c *Controller) Status {
	t.Helper()
	v := c.Snapshot()
	require.NotNil(t, v.Status, "expected a status message")
	return *v.Status
}

func TestGatingBeforeUpload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{"convert", func() error { return h.ctrl.Convert(ctx) }, "Please upload a file first"},
		{"split", func() error { return h.ctrl.Split(ctx) }, "Please upload and convert a file first"},
		{"download original", func() error { return h.ctrl.Download(ctx, protocol.FileOriginal) }, "No file to download"},
		{"download split", func() error { return h.ctrl.Download(ctx, protocol.FileSplit) }, "No file to download"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.ErrorIs(t, err, ErrNoFile)
			st := statusOf(t, h.ctrl)
			assert.Equal(t, tt.want, st.Message)
			assert.Equal(t, StatusError, st.Type)

			v := h.ctrl.Snapshot()
			assert.False(t, v.Converting)
			assert.False(t, v.Splitting)
		})
	}

	assert.Zero(t, h.srv.RequestCount(), "no request may be sent before an upload")
	assert.Empty(t, h.hist.ops())
}

func TestStatusReplacement(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ShowStatus("first", StatusInfo)
	second := h.ctrl.ShowStatus("second", StatusError)

	st := statusOf(t, h.ctrl)
	assert.Equal(t, second, st.ID)
	assert.Equal(t, "second", st.Message)
	assert.Equal(t, StatusError, st.Type)
}

func TestSuccessAutoDismiss(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ShowStatus("saved", StatusSuccess)
	require.Equal(t, 1, h.timers.count())
	assert.Equal(t, DefaultDismissAfter, h.timers.pending[0].d)

	h.timers.fireAll()
	assert.Nil(t, h.ctrl.Snapshot().Status)
}

func TestAutoDismissSkipsReplacedMessage(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ShowStatus("saved", StatusSuccess)
	h.ctrl.ShowStatus("Uploading file...", StatusInfo)
	h.timers.fireAll()

	st := statusOf(t, h.ctrl)
	assert.Equal(t, "Uploading file...", st.Message)
}

func TestOnlySuccessSchedulesDismiss(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ShowStatus("boom", StatusError)
	h.ctrl.ShowStatus("working", StatusInfo)
	assert.Zero(t, h.timers.count())
}

func TestDismissStatus(t *testing.T) {
	h := newHarness(t)

	old := h.ctrl.ShowStatus("first", StatusError)
	cur := h.ctrl.ShowStatus("second", StatusError)

	assert.False(t, h.ctrl.DismissStatus(old), "stale id must not dismiss the current message")
	assert.NotNil(t, h.ctrl.Snapshot().Status)

	assert.True(t, h.ctrl.DismissStatus(cur))
	assert.Nil(t, h.ctrl.Snapshot().Status)
	assert.False(t, h.ctrl.DismissStatus(cur))
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.srv.Respond(http.MethodPost, "/api/upload", apitest.Response{JSON: map[string]any{"file_id": "abc"}})
	h.srv.Respond(http.MethodPost, "/api/convert", apitest.Response{JSON: map[string]any{"content_length": 120}})
	h.srv.Respond(http.MethodPost, "/api/split", apitest.Response{JSON: map[string]any{
		"chunk_count":     3,
		"splitter_params": map[string]any{"splitter_type": "recursive", "chunk_size": 1000},
		"preview":         []string{"a", "b", "c"},
	}})

	v := h.ctrl.Snapshot()
	assert.False(t, v.ConvertEnabled())
	assert.False(t, v.SplitEnabled())

	require.NoError(t, h.ctrl.Upload(ctx, "report.pdf", strings.NewReader("pdf bytes"), 9))
	v = h.ctrl.Snapshot()
	assert.Equal(t, "abc", v.FileID)
	assert.True(t, v.ConvertEnabled())
	assert.False(t, v.SplitEnabled())
	require.NotNil(t, v.File)
	assert.Equal(t, "report.pdf", v.File.Name)
	assert.Equal(t, "9 Bytes", v.File.SizeText())
	assert.Equal(t, "File uploaded successfully!", v.Status.Message)
	assert.Equal(t, StatusSuccess, v.Status.Type)

	require.NoError(t, h.ctrl.Convert(ctx))
	v = h.ctrl.Snapshot()
	require.NotNil(t, v.Convert)
	assert.Equal(t, "120", v.Convert.LengthText())
	assert.True(t, v.SplitEnabled())
	assert.Equal(t, "Document converted successfully!", v.Status.Message)

	last, ok := h.srv.Last()
	require.True(t, ok)
	var convReq protocol.ConvertRequest
	require.NoError(t, last.JSON(&convReq))
	assert.Equal(t, protocol.ConvertRequest{FileID: "abc", OutputFormat: protocol.FormatMarkdown}, convReq)

	require.NoError(t, h.ctrl.Split(ctx))
	v = h.ctrl.Snapshot()
	require.NotNil(t, v.Split)
	assert.Equal(t, 3, v.Split.ChunkCount)
	assert.Equal(t, `{"chunk_size":1000,"splitter_type":"recursive"}`, v.Split.ParamsText())
	chunks := v.Split.Chunks()
	require.Len(t, chunks, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, "Chunk "+string(rune('1'+i)), chunks[i].Label)
		assert.Equal(t, want, chunks[i].Text)
	}
	assert.Equal(t, "Text split successfully!", v.Status.Message)

	assert.Equal(t, []string{"upload:success", "convert:success", "split:success"}, h.hist.ops())
	assert.Equal(t, 3, h.srv.RequestCount())
}

func TestUploadFailureChannels(t *testing.T) {
	tests := []struct {
		name string
		resp apitest.Response
		want string
	}{
		{
			name: "server reported",
			resp: apitest.Response{Status: http.StatusBadRequest, JSON: protocol.ErrorResponse{Error: "File type not allowed"}},
			want: "Upload failed: File type not allowed",
		},
		{
			name: "unparseable body",
			resp: apitest.Response{Status: http.StatusBadGateway, Body: []byte("bad gateway"), ContentType: "text/plain"},
			want: "Upload error: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.srv.Respond(http.MethodPost, "/api/upload", tt.resp)

			err := h.ctrl.Upload(context.Background(), "a.txt", strings.NewReader("x"), 1)
			require.Error(t, err)

			v := h.ctrl.Snapshot()
			assert.Empty(t, v.FileID)
			assert.False(t, v.CanConvert)
			assert.Equal(t, StatusError, v.Status.Type)
			assert.True(t, strings.HasPrefix(v.Status.Message, tt.want), v.Status.Message)
			assert.Equal(t, []string{"upload:error"}, h.hist.ops())
		})
	}
}

func TestUploadTransportError(t *testing.T) {
	ctrl := New(Config{API: api.New("http://127.0.0.1:1/api"), AfterFunc: (&fakeTimers{}).AfterFunc})

	err := ctrl.Upload(context.Background(), "a.txt", strings.NewReader("x"), 1)
	require.Error(t, err)
	st := statusOf(t, ctrl)
	assert.True(t, strings.HasPrefix(st.Message, "Upload error: "), st.Message)
}

func TestConvertFailureClearsLoading(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Upload(ctx, "a.txt", strings.NewReader("hello"), 5))

	h.srv.Respond(http.MethodPost, "/api/convert", apitest.Response{
		Status: http.StatusInternalServerError,
		JSON:   protocol.ErrorResponse{Error: "Conversion failed: corrupt"},
	})
	err := h.ctrl.Convert(ctx)
	require.Error(t, err)

	v := h.ctrl.Snapshot()
	assert.False(t, v.Converting)
	assert.True(t, v.ConvertEnabled())
	assert.False(t, v.CanSplit)
	assert.Equal(t, "Conversion failed: Conversion failed: corrupt", v.Status.Message)

	h.srv.Respond(http.MethodPost, "/api/convert", apitest.Response{Status: http.StatusOK, Body: []byte("{not json"), ContentType: "application/json"})
	require.Error(t, h.ctrl.Convert(ctx))
	v = h.ctrl.Snapshot()
	assert.False(t, v.Converting)
	assert.True(t, strings.HasPrefix(v.Status.Message, "Conversion error: "), v.Status.Message)
}

func TestSplitFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Upload(ctx, "a.txt", strings.NewReader("hello"), 5))

	// Not converted yet: the backend reports it.
	err := h.ctrl.Split(ctx)
	require.Error(t, err)
	v := h.ctrl.Snapshot()
	assert.False(t, v.Splitting)
	assert.Equal(t, "Splitting failed: Converted file not found. Please convert first.", v.Status.Message)
}

// blockingAPI holds Convert and Split open until released
type blockingAPI struct {
	API
	started chan struct{}
	release chan struct{}
}

func (b *blockingAPI) Convert(ctx context.Context, fileID string, f protocol.OutputFormat) (*protocol.ConvertResponse, error) {
	close(b.started)
	<-b.release
	return nil, errors.New("connection reset")
}

func (b *blockingAPI) Split(ctx context.Context, fileID string, p protocol.SplitterParams, f protocol.OutputFormat) (*protocol.SplitResponse, error) {
	close(b.started)
	<-b.release
	return &protocol.SplitResponse{ChunkCount: 1, Preview: []string{"x"}}, nil
}

func TestLoadingDuringCall(t *testing.T) {
	for _, op := range []string{"convert", "split"} {
		t.Run(op, func(t *testing.T) {
			fake := &blockingAPI{started: make(chan struct{}), release: make(chan struct{})}
			ctrl := New(Config{API: fake, AfterFunc: (&fakeTimers{}).AfterFunc})
			ctrl.Restore(State{FileID: "abc", Converted: true})

			done := make(chan error, 1)
			go func() {
				if op == "convert" {
					done <- ctrl.Convert(context.Background())
				} else {
					done <- ctrl.Split(context.Background())
				}
			}()

			<-fake.started
			v := ctrl.Snapshot()
			if op == "convert" {
				assert.True(t, v.Converting)
				assert.False(t, v.ConvertEnabled())
			} else {
				assert.True(t, v.Splitting)
				assert.False(t, v.SplitEnabled())
			}

			close(fake.release)
			<-done
			v = ctrl.Snapshot()
			assert.False(t, v.Converting)
			assert.False(t, v.Splitting)
			assert.False(t, v.Loading())
		})
	}
}

func TestSplitSeparators(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		wantSeps []string
	}{
		{"recursive sends separators", "recursive", []string{"\n", "--"}},
		{"other types omit them", "fixed", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			require.NoError(t, h.ctrl.Upload(ctx, "a.txt", strings.NewReader("hello world"), 11))
			require.NoError(t, h.ctrl.Convert(ctx))

			form := splitter.DefaultForm()
			form.Type = tt.typ
			form.Separators = `\n,--`
			h.ctrl.SetSplitterForm(form)
			require.NoError(t, h.ctrl.Split(ctx))

			last, _ := h.srv.Last()
			var body struct {
				SplitterParams map[string]any `json:"splitter_params"`
			}
			require.NoError(t, last.JSON(&body))
			params := body.SplitterParams
			assert.Equal(t, tt.typ, params["splitter_type"])
			if tt.wantSeps == nil {
				assert.NotContains(t, params, "separators")
				return
			}
			var got []string
			for _, s := range params["separators"].([]any) {
				got = append(got, s.(string))
			}
			assert.Equal(t, tt.wantSeps, got)
		})
	}
}

func TestSplitInvalidFormSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Restore(State{FileID: "abc", Converted: true})

	form := splitter.DefaultForm()
	form.ChunkSize = "lots"
	h.ctrl.SetSplitterForm(form)

	err := h.ctrl.Split(context.Background())
	assert.ErrorIs(t, err, splitter.ErrInvalidNumber)
	assert.Zero(t, h.srv.RequestCount())
	assert.True(t, strings.HasPrefix(statusOf(t, h.ctrl).Message, "Splitting error: "))
	assert.False(t, h.ctrl.Snapshot().Splitting)
}

func TestDownloadSavesDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Upload(ctx, "notes.txt", strings.NewReader("some notes"), 10))
	require.NoError(t, h.ctrl.Convert(ctx))
	require.NoError(t, h.ctrl.Split(ctx))

	require.NoError(t, h.ctrl.Download(ctx, protocol.FileOriginal))
	data, err := os.ReadFile(filepath.Join(h.dir, "document.md"))
	require.NoError(t, err)
	assert.Equal(t, "some notes", string(data))

	h.ctrl.SetOutputFormat(protocol.FormatJSON)
	require.NoError(t, h.ctrl.Download(ctx, protocol.FileSplit))
	assert.FileExists(t, filepath.Join(h.dir, "split_document.json"))

	v := h.ctrl.Snapshot()
	assert.Equal(t, filepath.Join(h.dir, "split_document.json"), v.Saved)
	assert.Equal(t, StatusSuccess, v.Status.Type)
	assert.False(t, v.Downloading)

	last, _ := h.srv.Last()
	assert.Equal(t, "/api/download/file-1/split", last.Path)
}

func TestDownloadFailure(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Restore(State{FileID: "missing"})

	err := h.ctrl.Download(context.Background(), protocol.FileOriginal)
	require.Error(t, err)
	assert.Equal(t, "Download failed: File not found", statusOf(t, h.ctrl).Message)
	assert.Equal(t, []string{"download:error"}, h.hist.ops())
}

func TestDownloadRejectsUnknownType(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Restore(State{FileID: "abc"})

	err := h.ctrl.Download(context.Background(), protocol.FileType("pdf"))
	require.Error(t, err)
	assert.Zero(t, h.srv.RequestCount())
	assert.True(t, strings.HasPrefix(statusOf(t, h.ctrl).Message, "Download error: "))
}

func TestUploadPathMissingFile(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.UploadPath(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.Zero(t, h.srv.RequestCount())
	assert.True(t, strings.HasPrefix(statusOf(t, h.ctrl).Message, "Upload error: "))
}

func TestUploadPath(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "slides.pptx")
	require.NoError(t, os.WriteFile(path, make([]byte, 1536), 0600))

	require.NoError(t, h.ctrl.UploadPath(context.Background(), path))
	v := h.ctrl.Snapshot()
	assert.Equal(t, "file-1", v.FileID)
	assert.Equal(t, "slides.pptx", v.File.Name)
	assert.Equal(t, "1.5 KB", v.File.SizeText())
}

func TestNewUploadKeepsSplitEnabled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Upload(ctx, "a.txt", strings.NewReader("one"), 3))
	require.NoError(t, h.ctrl.Convert(ctx))
	require.NoError(t, h.ctrl.Upload(ctx, "b.txt", strings.NewReader("two"), 3))

	v := h.ctrl.Snapshot()
	assert.Equal(t, "file-2", v.FileID)
	assert.True(t, v.CanSplit)
	assert.NotNil(t, v.Convert, "previous results stay on screen")
}

func TestFailedUploadKeepsFilePairedWithID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Upload(ctx, "a.txt", strings.NewReader("one"), 3))

	h.srv.Respond(http.MethodPost, "/api/upload", apitest.Response{
		Status: http.StatusBadRequest,
		JSON:   protocol.ErrorResponse{Error: "File type not allowed"},
	})
	require.Error(t, h.ctrl.Upload(ctx, "b.exe", strings.NewReader("x"), 1))

	st := h.ctrl.State()
	assert.Equal(t, "file-1", st.FileID)
	assert.Equal(t, "a.txt", st.FileName)
	assert.Equal(t, int64(3), st.FileSize)
	assert.Equal(t, "Upload failed: File type not allowed", statusOf(t, h.ctrl).Message)
}

func TestFirstFailedUploadKeepsFileInfo(t *testing.T) {
	h := newHarness(t)
	h.srv.Respond(http.MethodPost, "/api/upload", apitest.Response{
		Status: http.StatusBadRequest,
		JSON:   protocol.ErrorResponse{Error: "File type not allowed"},
	})
	require.Error(t, h.ctrl.Upload(context.Background(), "b.exe", strings.NewReader("x"), 1))

	v := h.ctrl.Snapshot()
	assert.Empty(t, v.FileID)
	require.NotNil(t, v.File)
	assert.Equal(t, "b.exe", v.File.Name)
}

func TestChangesSignal(t *testing.T) {
	h := newHarness(t)

	h.ctrl.ShowStatus("a", StatusInfo)
	h.ctrl.ShowStatus("b", StatusInfo)

	select {
	case <-h.ctrl.Changes():
	default:
		t.Fatal("expected a change notification")
	}
	select {
	case <-h.ctrl.Changes():
		t.Fatal("notifications should be coalesced")
	default:
	}
}

func TestOutputFormatAndSplitterType(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, protocol.FormatMarkdown, h.ctrl.Snapshot().OutputFormat)
	assert.Equal(t, protocol.FormatJSON, h.ctrl.CycleOutputFormat())
	assert.Equal(t, protocol.FormatMarkdown, h.ctrl.CycleOutputFormat())

	assert.True(t, h.ctrl.Snapshot().SeparatorsVisible())
	h.ctrl.SetSplitterType("token")
	assert.False(t, h.ctrl.Snapshot().SeparatorsVisible())
	h.ctrl.SetSplitterType("character")
	assert.True(t, h.ctrl.Snapshot().SeparatorsVisible())
}

func TestStatePersistence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Upload(ctx, "a.txt", strings.NewReader("hello"), 5))
	require.NoError(t, h.ctrl.Convert(ctx))
	h.ctrl.SetOutputFormat(protocol.FormatJSON)

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, SaveState(path, h.ctrl.State()))

	loaded, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, State{
		FileID:       "file-1",
		FileName:     "a.txt",
		FileSize:     5,
		OutputFormat: protocol.FormatJSON,
		Converted:    true,
	}, loaded)

	fresh := New(Config{API: api.New(h.srv.APIURL())})
	fresh.Restore(loaded)
	v := fresh.Snapshot()
	assert.True(t, v.ConvertEnabled())
	assert.True(t, v.SplitEnabled())
	assert.Equal(t, protocol.FormatJSON, v.OutputFormat)
}

func TestLoadStateMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	st, err := LoadState(filepath.Join(dir, "none.json"))
	require.NoError(t, err)
	assert.Equal(t, State{}, st)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0600))
	_, err = LoadState(bad)
	assert.Error(t, err)
}

func TestChunksTruncate(t *testing.T) {
	r := SplitResult{Preview: []string{strings.Repeat("x", 205), "short"}}
	chunks := r.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("x", 200)+"...", chunks[0].Text)
	assert.Equal(t, "Chunk 2", chunks[1].Label)
	assert.Equal(t, "short", chunks[1].Text)
}

func TestOnStatusSeesEveryMessage(t *testing.T) {
	srv := apitest.New(t)
	var seen []string
	ctrl := New(Config{
		API:       api.New(srv.APIURL()),
		AfterFunc: (&fakeTimers{}).AfterFunc,
		OnStatus:  func(s Status) { seen = append(seen, string(s.Type)+": "+s.Message) },
	})

	require.NoError(t, ctrl.Upload(context.Background(), "a.txt", strings.NewReader("x"), 1))
	assert.Equal(t, []string{
		"info: Uploading file...",
		"success: File uploaded successfully!",
	}, seen)
}
