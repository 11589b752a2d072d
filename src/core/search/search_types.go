package search

import (
	"context"
	"errors"

	"teamwiki/src/core/wiki"
	"teamwiki/src/storage/weaviate"
)

var (
	// ErrEmbeddingProvider marks a non-recoverable failure of the remote
	// embedding provider. A degraded vector would return wrong neighbors, so
	// the whole query fails instead.
	ErrEmbeddingProvider = errors.New("embedding provider failure")

	// ErrIndexUnavailable marks a failed vector index round trip
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

const (
	// DefaultModel is the completion model used when the team has none set
	DefaultModel = "yandexgpt-lite"

	// DefaultTopK caps the result list when the request does not
	DefaultTopK = 5

	// SnippetLength bounds how much of an article's content is quoted in
	// LLM prompts and extractive fallbacks
	SnippetLength = 200
)

// Hit is a single candidate result of one query. Score is the similarity
// reported by the vector index and is only comparable within one result set.
type Hit struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags"`
	GroupID string   `json:"group_id,omitempty"`
}

// Request is the ephemeral query context of one search call
type Request struct {
	Query   string
	Tags    []string
	GroupID string
	TopK    int
	TeamID  string
}

// Answer is the synthesized response of the answer endpoint
type Answer struct {
	Answer      string `json:"answer"`
	PromptUsed  string `json:"prompt_used"`
	UsedGroupID string `json:"used_group_id,omitempty"`
}

// EmbeddingProvider is a remote text-to-vector service
type EmbeddingProvider interface {
	Configured() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionProvider is a remote text-completion service keyed by model name
type CompletionProvider interface {
	Configured() bool
	Complete(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (string, error)
}

// VectorIndex is the read side of the similarity index
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, limit int, groupID string) ([]weaviate.Match, error)
}

// ArticleFinder joins vector hits against the relational store. Both calls
// exclude soft-deleted articles and articles of other teams.
type ArticleFinder interface {
	Get(ctx context.Context, id, teamID string) (*wiki.Article, error)
	FindByIDs(ctx context.Context, ids []string, teamID string) ([]wiki.Article, error)
}

// GroupFinder resolves a group for its prompt template
type GroupFinder interface {
	Get(ctx context.Context, id string) (*wiki.Group, error)
}

// TeamFinder resolves a team for its model and base prompt
type TeamFinder interface {
	Get(ctx context.Context, id string) (*wiki.Team, error)
}
