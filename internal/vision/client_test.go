package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bptracker/internal/config"
)

func testConfig(baseURL string) config.VisionConfig {
	return config.VisionConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxTokens:  4000,
		TimeoutSec: 5,
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(config.VisionConfig{Model: "m"}, zap.NewNop())
	assert.ErrorContains(t, err, "api key")

	_, err = NewClient(config.VisionConfig{APIKey: "k"}, zap.NewNop())
	assert.ErrorContains(t, err, "model")
}

func TestClient_Describe(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "```json\n{\"systolic\":120,\"diastolic\":80,\"pulse\":72}\n```"},
				{"type": "text", "text": "Read off the display."},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	text, err := c.Describe(context.Background(), []byte("fake-image"), "monitor.jpg")
	require.NoError(t, err)
	assert.Contains(t, text, `"systolic":120`)
	assert.Contains(t, text, "Read off the display.")

	// Request carried the model, the base64 image block, and the prompt.
	assert.Equal(t, "test-model", gotBody["model"])
	msgs := gotBody["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	img := content[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	assert.Equal(t, "image/jpeg", img["source"].(map[string]any)["media_type"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])
}

func TestClient_Describe_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "rate_limit_error", "message": "rate limited"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = c.Describe(context.Background(), []byte("fake"), "monitor.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClient_Describe_UnsupportedExtension(t *testing.T) {
	c, err := NewClient(testConfig("http://localhost:1"), zap.NewNop())
	require.NoError(t, err)

	_, err = c.Describe(context.Background(), []byte("fake"), "scan.tiff")
	assert.ErrorContains(t, err, "unsupported image extension")
}

func TestMediaTypeForFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{filename: "a.png", want: "image/png"},
		{filename: "a.jpg", want: "image/jpeg"},
		{filename: "a.JPEG", want: "image/jpeg"},
		{filename: "a.gif", want: "image/gif"},
		{filename: "a.bmp", wantErr: true},
		{filename: "noext", wantErr: true},
	}
	for _, tt := range tests {
		got, err := MediaTypeForFilename(tt.filename)
		if tt.wantErr {
			assert.Error(t, err, tt.filename)
		} else {
			assert.Equal(t, tt.want, got, tt.filename)
		}
	}
}
