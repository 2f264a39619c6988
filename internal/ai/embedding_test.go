package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbeddingClient_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path=%q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	c := NewEmbeddingClient(&EmbeddingConfig{APIKey: "k", BaseURL: srv.URL})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("vectors out of order: %v", vecs)
	}
}

func TestEmbeddingClient_NotConfigured(t *testing.T) {
	c := NewEmbeddingClient(&EmbeddingConfig{})
	if _, err := c.Embed(context.Background(), []string{"a"}); KindOf(err) != KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}
