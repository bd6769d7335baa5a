package semrecall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedderEmbed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("got model %q, want test-model", req.Model)
		}
		if req.Prompt != "scope 3 emissions" {
			t.Errorf("got prompt %q", req.Prompt)
		}
		json.NewEncoder(w).Encode(embedResponse{
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewEmbedder(EmbedderConfig{
		Endpoint: srv.URL,
		Model:    "test-model",
	})

	vector, err := e.Embed(context.Background(), "scope 3 emissions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("got dimension %d, want 3", len(vector))
	}
}

func TestEmbedderEmbed_EmptyVector(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewEmbedder(EmbedderConfig{Endpoint: srv.URL, Model: "test-model"})
	if _, err := e.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

func TestEmbedderDimensionDefault(t *testing.T) {
	e := NewEmbedder(EmbedderConfig{Endpoint: "http://unused", Model: "m"})
	if got := e.Dimension(); got != 1024 {
		t.Errorf("got dimension %d, want 1024", got)
	}
	e = NewEmbedder(EmbedderConfig{Endpoint: "http://unused", Model: "m", Dimension: 384})
	if got := e.Dimension(); got != 384 {
		t.Errorf("got dimension %d, want 384", got)
	}
}
