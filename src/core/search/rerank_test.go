package search_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"teamwiki/src/core/search"
)

type fakeCompletionProvider struct {
	configured bool
	response   string
	err        error
	lastPrompt string
	lastModel  string
}

func (f *fakeCompletionProvider) Configured() bool {
	return f.configured
}

func (f *fakeCompletionProvider) Complete(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (string, error) {
	f.lastModel = model
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func rerankFixture() []search.Hit {
	return []search.Hit{
		{ID: "a1", Title: "First", Content: "alpha", Score: 0.9},
		{ID: "b2", Title: "Second", Content: "beta", Score: 0.8},
		{ID: "c3", Title: "Third", Content: "gamma", Score: 0.7},
	}
}

func hitIDs(hits []search.Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestRerankReordersByModelResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "json array",
			response: `["c3", "a1", "b2"]`,
			want:     []string{"c3", "a1", "b2"},
		},
		{
			name:     "plain list",
			response: "b2 c3 a1",
			want:     []string{"b2", "c3", "a1"},
		},
		{
			name:     "partial order keeps mentioned only",
			response: "c3",
			want:     []string{"c3"},
		},
		{
			name:     "duplicates collapse to first occurrence",
			response: "b2, b2, a1",
			want:     []string{"b2", "a1"},
		},
		{
			name:     "unknown ids ignored",
			response: `["zz9", "a1"]`,
			want:     []string{"a1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompletionProvider{configured: true, response: tt.response}
			r := search.NewReranker(llm)

			got := r.Rerank(context.Background(), "query", rerankFixture(), "", "model")

			gotIDs := hitIDs(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("Rerank() returned %v, want %v", gotIDs, tt.want)
			}
			for i := range tt.want {
				if gotIDs[i] != tt.want[i] {
					t.Errorf("Rerank() order[%d] = %s, want %s", i, gotIDs[i], tt.want[i])
				}
			}
		})
	}
}

func TestRerankFailsOpen(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompletionProvider
	}{
		{
			name: "completion error",
			llm:  &fakeCompletionProvider{configured: true, err: errors.New("timeout")},
		},
		{
			name: "unparseable response",
			llm:  &fakeCompletionProvider{configured: true, response: "no ids here"},
		},
		{
			name: "unconfigured provider",
			llm:  &fakeCompletionProvider{configured: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := search.NewReranker(tt.llm)
			hits := rerankFixture()

			got := r.Rerank(context.Background(), "query", hits, "", "model")

			if len(got) != len(hits) {
				t.Fatalf("Rerank() dropped hits: got %d, want %d", len(got), len(hits))
			}
			for i := range hits {
				if got[i].ID != hits[i].ID {
					t.Errorf("Rerank() changed order at %d: %s, want %s", i, got[i].ID, hits[i].ID)
				}
			}
		})
	}
}

func TestRerankNilProviderIsIdentity(t *testing.T) {
	r := search.NewReranker(nil)
	hits := rerankFixture()

	got := r.Rerank(context.Background(), "query", hits, "", "model")
	if len(got) != len(hits) || got[0].ID != "a1" {
		t.Errorf("Rerank() with nil provider = %v, want input order", hitIDs(got))
	}
}

func TestRerankPromptSubstitution(t *testing.T) {
	llm := &fakeCompletionProvider{configured: true, response: "a1"}
	r := search.NewReranker(llm)

	r.Rerank(context.Background(), "find docs", rerankFixture(), "Rank for: {query}\n{articles}", "model")

	if !strings.Contains(llm.lastPrompt, "Rank for: find docs") {
		t.Errorf("prompt missing substituted query: %q", llm.lastPrompt)
	}
	if !strings.Contains(llm.lastPrompt, "id=a1") {
		t.Errorf("prompt missing article listing: %q", llm.lastPrompt)
	}
}

func TestRerankPromptAppendsMissingPlaceholders(t *testing.T) {
	llm := &fakeCompletionProvider{configured: true, response: "a1"}
	r := search.NewReranker(llm)

	r.Rerank(context.Background(), "find docs", rerankFixture(), "Custom instruction without placeholders", "model")

	if !strings.Contains(llm.lastPrompt, "find docs") {
		t.Errorf("prompt does not carry the query: %q", llm.lastPrompt)
	}
	if !strings.Contains(llm.lastPrompt, "id=b2") {
		t.Errorf("prompt does not carry the articles: %q", llm.lastPrompt)
	}
}
