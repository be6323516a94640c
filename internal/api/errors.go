package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"docconv/internal/format"
	"docconv/pkg/protocol"
)

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 1 << 20

// ErrUnexpectedResponse marks a failed response whose body is not the API's
// JSON error object, e.g. an HTML page from a proxy.
var ErrUnexpectedResponse = errors.New("unexpected response")

// ServerError is a failure reported by the API itself through {"error": "..."}
type ServerError struct {
	StatusCode int
	Message    string
}

// Error returns the server's message verbatim
func (e *ServerError) Error() string {
	return e.Message
}

// IsServerError reports whether err carries a server-reported failure
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// decodeError classifies a non-2xx response. A JSON body becomes a
// *ServerError; anything else wraps ErrUnexpectedResponse with whatever
// readable text the body holds.
func decodeError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", resp.Status, err)
	}

	var apiErr protocol.ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		msg := apiErr.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}

	text := strings.TrimSpace(string(body))
	if isHTML(resp.Header.Get("Content-Type"), body) {
		text = htmlSummary(body)
	}
	if text == "" {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Status)
	}
	text = format.Truncate(text, 200)
	return fmt.Errorf("%w: %s: %s", ErrUnexpectedResponse, resp.Status, text)
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return bytes.HasPrefix(trimmed, []byte("<!")) || bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html"))
}

// htmlSummary pulls a one-line description out of an HTML error page:
// the <title> when present, otherwise the first heading or the body text.
func htmlSummary(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()

	for _, sel := range []string{"title", "h1", "body"} {
		if text := collapseSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
