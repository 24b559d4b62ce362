package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	requests := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Data []datum `json:"data"`
		}{}
		// Answer out of order to exercise index-based reordering.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, datum{
				Index:     i,
				Embedding: []float32{float32(i), float32(len(req.Input[i]))},
			})
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "A summary."}},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestClient(t *testing.T, baseURL string, batchSize int) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL, BatchSize: batchSize})
	require.NoError(t, err)
	return client
}

func TestEmbedDocumentsOrderPreserved(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv.URL, 64)

	vectors, err := client.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
	}
}

func TestEmbedDocumentsBatches(t *testing.T) {
	srv, requests := newTestServer(t)
	client := newTestClient(t, srv.URL, 2)

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := client.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, 3, *requests, "5 texts at batch size 2 take 3 requests")
}

func TestEmbedQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv.URL, 64)

	vector, err := client.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vector, 2)
}

func TestComplete(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newTestClient(t, srv.URL, 64)

	out, err := client.Complete(context.Background(), "Summarize this")
	require.NoError(t, err)
	assert.Equal(t, "A summary.", out)
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := newTestClient(t, srv.URL, 64)
	_, err := client.Complete(context.Background(), "x")
	assert.Error(t, err)
}
