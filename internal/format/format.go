// Package format holds the small display helpers shared by the TUI and CLI
// front ends: byte sizes, counts, preview truncation and download names.
package format

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"docconv/pkg/protocol"
)

// PreviewLength is the number of characters of a chunk shown in a split preview
const PreviewLength = 200

// Ellipsis marks truncated preview text
const Ellipsis = "..."

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FileSize renders a byte count in binary units with at most two decimals:
// 0 -> "0 Bytes", 1536 -> "1.5 KB", 1048576 -> "1 MB".
// Sizes past the largest unit stay in GB.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	i := 0
	div := int64(1)
	for i < len(sizeUnits)-1 && bytes >= div*1024 {
		div *= 1024
		i++
	}

	v := float64(bytes) / float64(div)
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// Truncate returns text unchanged when it has at most max characters,
// otherwise its first max characters followed by "...".
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + Ellipsis
}

// Count renders an integer with thousands separators (1234 -> "1,234")
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// CompactJSON renders raw JSON on a single line, preserving key order.
// Invalid input is returned as-is.
func CompactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// DownloadName is the local file name for a downloaded artifact:
// "document.md" for the converted file, "split_document.md" for the split one.
func DownloadName(fileType protocol.FileType, outputFormat protocol.OutputFormat) string {
	name := "document." + string(outputFormat)
	if fileType == protocol.FileSplit {
		name = "split_" + name
	}
	return name
}
