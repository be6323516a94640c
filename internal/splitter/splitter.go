// Package splitter turns the splitter form into the parameters sent with a
// split request.
package splitter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"docconv/pkg/protocol"
)

// ErrInvalidNumber is returned when a numeric form field holds no integer
var ErrInvalidNumber = errors.New("not a number")

// Defaults mirror the backend splitter's own defaults
const (
	DefaultType         = protocol.SplitterRecursive
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Types returns the splitter types the backend knows, in UI order
func Types() []string {
	return []string{
		protocol.SplitterRecursive,
		protocol.SplitterCharacter,
		protocol.SplitterToken,
		protocol.SplitterMarkdown,
		protocol.SplitterPython,
	}
}

// NextType returns the type after current in Types, wrapping around.
// Unknown types restart the cycle.
func NextType(current string) string {
	types := Types()
	for i, t := range types {
		if t == current {
			return types[(i+1)%len(types)]
		}
	}
	return types[0]
}

// ShowsSeparators reports whether the separators input applies to a splitter type
func ShowsSeparators(splitterType string) bool {
	return splitterType == protocol.SplitterRecursive || splitterType == protocol.SplitterCharacter
}

// Form is the raw state of the splitter options as typed by the user
type Form struct {
	Type          string
	ChunkSize     string
	ChunkOverlap  string
	KeepSeparator bool
	Separators    string
}

// DefaultForm returns a form pre-filled with the backend defaults
func DefaultForm() Form {
	return Form{
		Type:          DefaultType,
		ChunkSize:     strconv.Itoa(DefaultChunkSize),
		ChunkOverlap:  strconv.Itoa(DefaultChunkOverlap),
		KeepSeparator: true,
	}
}

// SeparatorsVisible reports whether the separators input should be shown
func (f Form) SeparatorsVisible() bool {
	return ShowsSeparators(f.Type)
}

// Params builds the request parameters from the form.
// Separators are only included for splitter types that accept them and only
// when the separators field is non-blank.
func (f Form) Params() (protocol.SplitterParams, error) {
	chunkSize, err := ParseInt(f.ChunkSize)
	if err != nil {
		return protocol.SplitterParams{}, fmt.Errorf("chunk size: %w", err)
	}
	chunkOverlap, err := ParseInt(f.ChunkOverlap)
	if err != nil {
		return protocol.SplitterParams{}, fmt.Errorf("chunk overlap: %w", err)
	}

	params := protocol.SplitterParams{
		SplitterType:  f.Type,
		ChunkSize:     chunkSize,
		ChunkOverlap:  chunkOverlap,
		KeepSeparator: f.KeepSeparator,
	}

	raw := strings.TrimSpace(f.Separators)
	if raw != "" && ShowsSeparators(f.Type) {
		params.Separators = ParseSeparators(raw)
	}
	return params, nil
}

// ParseSeparators splits a comma separated list, trims every entry and turns
// each literal `\n` into a newline: `\n,--` -> ["\n", "--"].
func ParseSeparators(raw string) []string {
	parts := strings.Split(raw, ",")
	seps := make([]string, 0, len(parts))
	for _, p := range parts {
		seps = append(seps, strings.ReplaceAll(strings.TrimSpace(p), `\n`, "\n"))
	}
	return seps
}

// ParseInt reads the leading integer of s, ignoring surrounding whitespace and
// any trailing garbage ("12px" -> 12).
func ParseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidNumber)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidNumber)
	}
	return n, nil
}
