package yandex_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"teamwiki/src/infrastructure/integrations/yandex"
)

func TestConfigured(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		folderID string
		want     bool
	}{
		{name: "both set", apiKey: "k", folderID: "f", want: true},
		{name: "missing key", apiKey: "", folderID: "f", want: false},
		{name: "missing folder", apiKey: "k", folderID: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := yandex.NewClient("http://example", tt.apiKey, tt.folderID, http.DefaultClient)
			if got := c.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmbedSendsApiKeyAndModelURI(t *testing.T) {
	var gotAuth string
	var gotReq yandex.EmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(yandex.EmbeddingResponse{Embedding: []float64{0.1, 0.2}})
	}))
	defer srv.Close()

	c := yandex.NewClient(srv.URL, "secret", "folder-1", srv.Client())

	vector, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if gotAuth != "Api-Key secret" {
		t.Errorf("Authorization = %q, want Api-Key scheme", gotAuth)
	}
	if gotReq.ModelURI != "emb://folder-1/text-search-query/latest" {
		t.Errorf("modelUri = %q", gotReq.ModelURI)
	}
	if len(vector) != 2 || vector[0] != 0.1 {
		t.Errorf("Embed() = %v, want the server's vector", vector)
	}
}

func TestEmbedUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := yandex.NewClient(srv.URL, "bad-key", "folder-1", srv.Client())

	_, err := c.Embed(context.Background(), "hello")
	if !errors.Is(err, yandex.ErrUnauthorized) {
		t.Errorf("Embed() error = %v, want ErrUnauthorized", err)
	}
}

func TestEmbedUnreachable(t *testing.T) {
	c := yandex.NewClient("http://127.0.0.1:1", "k", "f", http.DefaultClient)

	_, err := c.Embed(context.Background(), "hello")
	if !errors.Is(err, yandex.ErrUnreachable) {
		t.Errorf("Embed() error = %v, want ErrUnreachable", err)
	}
}

func TestEmbedServerErrorIsNotUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := yandex.NewClient(srv.URL, "k", "f", srv.Client())

	_, err := c.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("Embed() expected an error on 500")
	}
	if errors.Is(err, yandex.ErrUnreachable) || errors.Is(err, yandex.ErrUnauthorized) {
		t.Errorf("Embed() error = %v, 5xx must stay a generic failure", err)
	}
}

func TestCompleteReadsAlternatives(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "wrapped in result",
			body: `{"result":{"alternatives":[{"message":{"role":"assistant","text":"answer"}}]}}`,
		},
		{
			name: "top level alternatives",
			body: `{"alternatives":[{"message":{"role":"assistant","text":"answer"}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq yandex.CompletionRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&gotReq)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := yandex.NewClient(srv.URL, "k", "folder-1", srv.Client())

			text, err := c.Complete(context.Background(), "yandexgpt-lite", "prompt", 0, 200)
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if text != "answer" {
				t.Errorf("Complete() = %q, want answer", text)
			}
			if gotReq.ModelURI != "gpt://folder-1/yandexgpt-lite/latest" {
				t.Errorf("modelUri = %q", gotReq.ModelURI)
			}
			if gotReq.CompletionOptions.Stream {
				t.Error("completion request must not stream")
			}
		})
	}
}

func TestCompleteEmptyAlternatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"alternatives":[]}}`))
	}))
	defer srv.Close()

	c := yandex.NewClient(srv.URL, "k", "f", srv.Client())

	if _, err := c.Complete(context.Background(), "m", "p", 0, 10); err == nil {
		t.Error("Complete() expected an error on empty alternatives")
	}
}
