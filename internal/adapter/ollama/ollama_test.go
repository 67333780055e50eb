package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[0].Content)
		assert.EqualValues(t, 256, req.Options["num_predict"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"content":"hi there"},"done":true}`))
	}))
	defer server.Close()

	gen := NewGenerator(server.URL, "test-model", nil, 0)

	resp, err := gen.Generate(context.Background(), "hello", 256)
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Text)
	assert.True(t, resp.Done)
}

func TestGenerate_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	gen := NewGenerator(server.URL, "test-model", nil, 0)

	_, err := gen.Generate(context.Background(), "hello", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestGenerate_CancelledContext(t *testing.T) {
	gen := NewGenerator("http://localhost:1", "test-model", nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gen.Generate(ctx, "hello", 0)
	require.Error(t, err)
}

func TestEncode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	enc := NewEmbedder(server.URL, "embed-model", nil)

	vecs, err := enc.Encode(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vecs[0])
}

func TestEncode_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	enc := NewEmbedder(server.URL, "embed-model", nil)

	_, err := enc.Encode(context.Background(), []string{"first", "second"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count mismatch")
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "m1", NewGenerator("http://x", "m1", nil, 0).Version())
	assert.Equal(t, "m2", NewEmbedder("http://x", "m2", nil).Version())
}
