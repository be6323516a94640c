package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"docconv/internal/api"
	"docconv/internal/format"
	"docconv/pkg/protocol"
)

const (
	msgUploading  = "Uploading file..."
	msgUploaded   = "File uploaded successfully!"
	msgConverted  = "Document converted successfully!"
	msgSplit      = "Text split successfully!"
	msgNeedUpload = "Please upload a file first"
	msgNeedConv   = "Please upload and convert a file first"
	msgNoDownload = "No file to download"
)

// failureMessage maps err onto the two error channels: a server-reported
// failure reads "<op> failed: ...", anything else "<op> error: ...".
func failureMessage(op string, err error) string {
	var se *api.ServerError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s failed: %s", op, se.Message)
	}
	return fmt.Sprintf("%s error: %s", op, err.Error())
}

// SelectFile displays the chosen file's name and size
func (c *Controller) SelectFile(name string, size int64) {
	c.update(func(s *state) { s.file = &FileInfo{Name: name, Size: size} })
}

// UploadPath opens path and uploads it
func (c *Controller) UploadPath(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		c.ShowStatus(failureMessage("Upload", err), StatusError)
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.ShowStatus(failureMessage("Upload", err), StatusError)
		return err
	}
	if info.IsDir() {
		err := fmt.Errorf("%s is a directory", path)
		c.ShowStatus(failureMessage("Upload", err), StatusError)
		return err
	}
	return c.Upload(ctx, filepath.Base(path), f, info.Size())
}

// Upload sends a document to the service. On success the returned file id
// becomes the session's and Convert is enabled. A failed upload puts back the
// previous file's info when a file id is already held.
func (c *Controller) Upload(ctx context.Context, name string, r io.Reader, size int64) error {
	c.mu.Lock()
	prev := c.st.file
	c.mu.Unlock()

	c.SelectFile(name, size)
	c.ShowStatus(msgUploading, StatusInfo)

	resp, err := c.api.Upload(ctx, name, r, size)
	if err != nil {
		// The file info must keep describing the current file id
		c.update(func(s *state) {
			if s.fileID != "" {
				s.file = prev
			}
		})
		st := c.fail("Upload", err)
		c.record(ctx, "upload", st, "", name, nil)
		return err
	}

	c.mu.Lock()
	c.st.fileID = resp.FileID
	c.st.canConvert = true
	c.st.converted = false
	c.st.splitDone = false
	st := c.showLocked(msgUploaded, StatusSuccess)
	c.mu.Unlock()
	c.notify()

	c.logger.Info().Str("file_id", resp.FileID).Str("file", name).Int64("size", size).Msg("uploaded")
	c.record(ctx, "upload", st, resp.FileID, name, map[string]any{"size": size, "file_type": resp.FileType})
	return nil
}

// Convert asks the service to convert the uploaded document into the
// selected output format. Convert reports loading for the whole call.
func (c *Controller) Convert(ctx context.Context) error {
	c.mu.Lock()
	fileID, outputFormat, fileName := c.st.fileID, c.st.outputFormat, c.st.fileName()
	if fileID == "" {
		c.showLocked(msgNeedUpload, StatusError)
		c.mu.Unlock()
		c.notify()
		return ErrNoFile
	}
	c.st.converting = true
	c.mu.Unlock()
	c.notify()
	defer c.update(func(s *state) { s.converting = false })

	resp, err := c.api.Convert(ctx, fileID, outputFormat)
	if err != nil {
		st := c.fail("Conversion", err)
		c.record(ctx, "convert", st, fileID, fileName, nil)
		return err
	}

	c.mu.Lock()
	c.st.convert = &ConvertResult{
		ContentLength:  resp.ContentLength,
		ContentPreview: resp.ContentPreview,
		OutputFormat:   outputFormat,
	}
	c.st.converted = true
	c.st.canSplit = true
	st := c.showLocked(msgConverted, StatusSuccess)
	c.mu.Unlock()
	c.notify()

	c.logger.Info().Str("file_id", fileID).Int("content_length", resp.ContentLength).Msg("converted")
	c.record(ctx, "convert", st, fileID, fileName, map[string]any{
		"output_format":  string(outputFormat),
		"content_length": resp.ContentLength,
	})
	return nil
}

// Split asks the service to split the converted document using the
// splitter form. Split reports loading for the whole call.
func (c *Controller) Split(ctx context.Context) error {
	c.mu.Lock()
	fileID, outputFormat, form, fileName := c.st.fileID, c.st.outputFormat, c.st.form, c.st.fileName()
	if fileID == "" {
		c.showLocked(msgNeedConv, StatusError)
		c.mu.Unlock()
		c.notify()
		return ErrNoFile
	}
	c.mu.Unlock()

	params, err := form.Params()
	if err != nil {
		st := c.fail("Splitting", err)
		c.record(ctx, "split", st, fileID, fileName, nil)
		return err
	}

	c.update(func(s *state) { s.splitting = true })
	defer c.update(func(s *state) { s.splitting = false })

	resp, err := c.api.Split(ctx, fileID, params, outputFormat)
	if err != nil {
		st := c.fail("Splitting", err)
		c.record(ctx, "split", st, fileID, fileName, nil)
		return err
	}

	c.mu.Lock()
	c.st.split = &SplitResult{
		ChunkCount: resp.ChunkCount,
		Params:     rawParams(resp.SplitterParams),
		Preview:    append([]string(nil), resp.Preview...),
	}
	c.st.splitDone = true
	st := c.showLocked(msgSplit, StatusSuccess)
	c.mu.Unlock()
	c.notify()

	c.logger.Info().Str("file_id", fileID).Int("chunks", resp.ChunkCount).Str("splitter", params.SplitterType).Msg("split")
	c.record(ctx, "split", st, fileID, fileName, map[string]any{
		"output_format": string(outputFormat),
		"splitter_type": params.SplitterType,
		"chunk_count":   resp.ChunkCount,
	})
	return nil
}

// Download fetches the converted (original) or split document and saves it
// as [split_]document.<format> through the configured store.
func (c *Controller) Download(ctx context.Context, fileType protocol.FileType) error {
	c.mu.Lock()
	fileID, fileName := c.st.fileID, c.st.fileName()
	if fileID == "" {
		c.showLocked(msgNoDownload, StatusError)
		c.mu.Unlock()
		c.notify()
		return ErrNoFile
	}
	c.mu.Unlock()

	if !fileType.Valid() {
		err := fmt.Errorf("unknown file type %q", fileType)
		c.fail("Download", err)
		return err
	}
	if c.store == nil {
		err := errors.New("no download store configured")
		c.fail("Download", err)
		return err
	}

	c.update(func(s *state) { s.downloading = true })
	defer c.update(func(s *state) { s.downloading = false })

	location, err := c.download(ctx, fileID, fileType)
	if err != nil {
		st := c.fail("Download", err)
		c.record(ctx, "download", st, fileID, fileName, map[string]any{"file_type": string(fileType)})
		return err
	}

	c.mu.Lock()
	c.st.saved = location
	st := c.showLocked("File saved to "+location, StatusSuccess)
	c.mu.Unlock()
	c.notify()

	c.logger.Info().Str("file_id", fileID).Str("type", string(fileType)).Str("location", location).Msg("downloaded")
	c.record(ctx, "download", st, fileID, fileName, map[string]any{
		"file_type": string(fileType),
		"location":  location,
	})
	return nil
}

func (c *Controller) download(ctx context.Context, fileID string, fileType protocol.FileType) (string, error) {
	dl, err := c.api.Download(ctx, fileID, fileType)
	if err != nil {
		return "", err
	}
	defer dl.Close()

	// The saved name follows the format selected when the payload arrives.
	c.mu.Lock()
	name := format.DownloadName(fileType, c.st.outputFormat)
	c.mu.Unlock()

	return c.store.Save(ctx, name, dl.Body)
}

// fail shows the failure status for err and returns it
func (c *Controller) fail(op string, err error) Status {
	c.mu.Lock()
	st := c.showLocked(failureMessage(op, err), StatusError)
	c.mu.Unlock()
	c.notify()
	return st
}

func (s *state) fileName() string {
	if s.file == nil {
		return ""
	}
	return s.file.Name
}
