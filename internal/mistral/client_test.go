package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdfinsight/internal/model"
)

func TestEmbedSendsRequestAndOrdersByIndex(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody embedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// indices deliberately out of order
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 1, "embedding": []float32{0.4, 0.5}},
				{"index": 0, "embedding": []float32{0.1, 0.2}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	vectors, err := c.Embed(context.Background(), "mistral-embed", []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotPath != "/v1/embeddings" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody.Model != "mistral-embed" || len(gotBody.Input) != 2 {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.4 {
		t.Fatalf("vectors not reordered by index: %v", vectors)
	}
}

func TestEmbedMissingAPIKey(t *testing.T) {
	c := NewClient("http://unused", "")
	_, err := c.Embed(context.Background(), "mistral-embed", []string{"x"})
	var pe *model.ProviderError
	if !errors.As(err, &pe) || pe.Code != "MISTRAL_AUTH" {
		t.Fatalf("expected MISTRAL_AUTH, got %v", err)
	}
	if model.IsRetryable(err) {
		t.Fatal("auth errors must not be retryable")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	c := NewClient("http://unused", "sk-test")
	vectors, err := c.Embed(context.Background(), "mistral-embed", nil)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected no vectors, got %d", len(vectors))
	}
}

func TestEmbedErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		code      string
		retryable bool
	}{
		{http.StatusUnauthorized, "MISTRAL_AUTH", false},
		{http.StatusTooManyRequests, "MISTRAL_RATE_LIMIT", true},
		{http.StatusInternalServerError, "MISTRAL_FAILED", true},
		{http.StatusBadRequest, "MISTRAL_FAILED", false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient(srv.URL, "sk-test")
		_, err := c.Embed(context.Background(), "mistral-embed", []string{"x"})
		srv.Close()

		var pe *model.ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("status %d: expected ProviderError, got %v", tc.status, err)
		}
		if pe.Code != tc.code || pe.Retryable != tc.retryable {
			t.Fatalf("status %d: got code=%s retryable=%v", tc.status, pe.Code, pe.Retryable)
		}
	}
}

func TestEmbedRejectsVectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	_, err := c.Embed(context.Background(), "mistral-embed", []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for vector count mismatch")
	}
}
