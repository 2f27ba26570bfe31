// Package httputil provides the response writing primitives shared by the
// web response capability and the dispatcher's fallback handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Content types written by this package.
const (
	ContentTypeJSON   = "application/json; charset=utf-8"
	ContentTypeText   = "text/plain; charset=utf-8"
	ContentTypeBinary = "application/octet-stream"
)

// EncodeJSON marshals data the way WriteJSON sends it.
// A nil value encodes to an empty body.
func EncodeJSON(data any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode json body: %w", err)
	}
	return b, nil
}

// WriteJSON writes a JSON response with the given status code.
// The body is encoded before anything is written, so an encoding error
// leaves the response untouched.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	body, err := EncodeJSON(data)
	if err != nil {
		return err
	}
	return WriteBytes(w, status, ContentTypeJSON, body)
}

// WriteText writes a plain text response with the given status code.
func WriteText(w http.ResponseWriter, status int, text string) error {
	return WriteBytes(w, status, ContentTypeText, []byte(text))
}

// WriteBytes writes body with the given status. contentType is only applied
// when the handler has not set a Content-Type itself and body is not empty.
func WriteBytes(w http.ResponseWriter, status int, contentType string, body []byte) error {
	h := w.Header()
	if len(body) > 0 {
		if h.Get("Content-Type") == "" && contentType != "" {
			h.Set("Content-Type", contentType)
		}
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}
	w.WriteHeader(status)
	if len(body) == 0 {
		return nil
	}
	_, err := w.Write(body)
	return err
}

// Render converts payload using Express-style send semantics: strings are
// text, byte slices are binary, nil is an empty body, and anything else is
// JSON.
func Render(payload any) (contentType string, body []byte, err error) {
	switch v := payload.(type) {
	case nil:
		return "", nil, nil
	case string:
		return ContentTypeText, []byte(v), nil
	case []byte:
		return ContentTypeBinary, v, nil
	case fmt.Stringer:
		return ContentTypeText, []byte(v.String()), nil
	default:
		b, err := EncodeJSON(v)
		if err != nil {
			return "", nil, err
		}
		return ContentTypeJSON, b, nil
	}
}

// WriteBody renders payload with Render and writes it with the given status.
func WriteBody(w http.ResponseWriter, status int, payload any) error {
	contentType, body, err := Render(payload)
	if err != nil {
		return err
	}
	return WriteBytes(w, status, contentType, body)
}

// WriteError writes a JSON error response with the given status code.
// The error response includes an error code and a human-readable message.
func WriteError(w http.ResponseWriter, status int, errCode, message string) error {
	return WriteJSON(w, status, map[string]string{
		"error":   errCode,
		"message": message,
	})
}

// ErrorCode derives a snake_case error code from an HTTP status,
// e.g. 404 -> "not_found". Unknown statuses yield "status_<code>".
func ErrorCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "status_" + strconv.Itoa(status)
	}
	text = strings.ToLower(text)
	text = strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text)
	return text
}
