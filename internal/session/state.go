package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"docconv/pkg/protocol"
)

// State is the part of a session that survives between CLI invocations
type State struct {
	FileID       string                `json:"file_id"`
	FileName     string                `json:"file_name,omitempty"`
	FileSize     int64                 `json:"file_size,omitempty"`
	OutputFormat protocol.OutputFormat `json:"output_format,omitempty"`
	Converted    bool                  `json:"converted"`
	Split        bool                  `json:"split"`
}

// State returns the persistable part of the session
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		FileID:       c.st.fileID,
		OutputFormat: c.st.outputFormat,
		Converted:    c.st.converted,
		Split:        c.st.splitDone,
	}
	if c.st.file != nil {
		st.FileName = c.st.file.Name
		st.FileSize = c.st.file.Size
	}
	return st
}

// Restore loads a previously saved session. Convert is enabled when a file id
// is present and Split when the file was converted.
func (c *Controller) Restore(st State) {
	c.update(func(s *state) {
		s.fileID = st.FileID
		s.canConvert = st.FileID != ""
		s.converted = st.Converted
		s.canSplit = st.Converted
		s.splitDone = st.Split
		if st.FileName != "" {
			s.file = &FileInfo{Name: st.FileName, Size: st.FileSize}
		}
		if st.OutputFormat != "" {
			s.outputFormat = st.OutputFormat
		}
	})
}

// LoadState reads a saved session. A missing file yields an empty State.
func LoadState(path string) (State, error) {
	var st State
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("failed to read session: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	return st, nil
}

// SaveState writes st to path
func SaveState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
