package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON with correct content type", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]string{"foo": "bar"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ContentTypeJSON, rec.Header().Get("Content-Type"))

		var result map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "bar", result["foo"])
	})

	t.Run("handles nil data", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		require.NoError(t, WriteJSON(rec, http.StatusNoContent, nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("encoding failure writes nothing", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		err := WriteJSON(rec, http.StatusOK, map[string]any{"ch": make(chan int)})

		require.Error(t, err)
		assert.False(t, rec.Flushed)
		assert.Empty(t, rec.Header().Get("Content-Type"))
		assert.Empty(t, rec.Body.String())
	})
}

func TestWriteBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		payload     any
		contentType string
		body        string
	}{
		{name: "string", payload: "Welcome", contentType: ContentTypeText, body: "Welcome"},
		{name: "bytes", payload: []byte{0x1, 0x2}, contentType: ContentTypeBinary, body: "\x01\x02"},
		{name: "nil", payload: nil, contentType: "", body: ""},
		{name: "struct", payload: struct {
			X int `json:"x"`
		}{X: 4}, contentType: ContentTypeJSON, body: `{"x":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()

			require.NoError(t, WriteBody(rec, http.StatusTeapot, tt.payload))

			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestWriteBytes_KeepsExplicitContentType(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "text/html")

	require.NoError(t, WriteText(rec, http.StatusOK, "<p>hi</p>"))

	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
}

func TestWriteError(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	require.NoError(t, WriteError(rec, http.StatusBadRequest, "invalid_input", "Name is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var result map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "invalid_input", result["error"])
	assert.Equal(t, "Name is required", result["message"])
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not_found", ErrorCode(http.StatusNotFound))
	assert.Equal(t, "request_timeout", ErrorCode(http.StatusRequestTimeout))
	assert.Equal(t, "im_a_teapot", ErrorCode(http.StatusTeapot))
	assert.Equal(t, "status_599", ErrorCode(599))
}
