package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *EmbeddingService) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewEmbeddingService(Config{
		APIKey:            "test-key",
		BaseURL:           server.URL,
		Model:             "text-embedding-3-small",
		Dimensions:        3,
		BatchSize:         2,
		RequestsPerMinute: 60000,
	})
	require.NoError(t, err)
	return server, svc
}

func embedHandler(t *testing.T, requests *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*requests++
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Dimensions)

		resp := map[string]any{"data": []map[string]any{}}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"index":     i,
				"embedding": []float64{float64(len(req.Input[i])), 0, 1},
			}
		}
		resp["data"] = data
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestEmbedBatchSplitsIntoSubBatches(t *testing.T) {
	requests := 0
	_, svc := newTestServer(t, embedHandler(t, &requests))

	embeddings, err := svc.EmbedBatch(context.Background(),
		[]string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, embeddings, 5)
	// Batch size 2 means 3 requests for 5 inputs.
	assert.Equal(t, 3, requests)

	assert.Equal(t, []float32{1, 0, 1}, embeddings[0])
	assert.Equal(t, []float32{5, 0, 1}, embeddings[4])
}

func TestEmbedSingleText(t *testing.T) {
	requests := 0
	_, svc := newTestServer(t, embedHandler(t, &requests))

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0, 1}, vec)
}

func TestEmbedBatchFailsWholeCallOnAPIError(t *testing.T) {
	requests := 0
	_, svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests > 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": {"message": "rate limited", "type": "rate_limit"}}`)
			return
		}
		embedHandler(t, new(int))(w, r)
	})

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestEmbedBatchRejectsCountMismatch(t *testing.T) {
	_, svc := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data": [{"index": 0, "embedding": [1, 2, 3]}]}`)
	})

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 embeddings for 2 inputs")
}

func TestNewEmbeddingServiceDefaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())

	_, err = NewEmbeddingService(Config{})
	assert.Error(t, err)
}
