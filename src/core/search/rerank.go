package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamwiki/src/infrastructure/log"
)

const (
	rerankInstruction = "Ты – поисковый ранжировщик. По запросу пользователя упорядочи статьи по релевантности." +
		" Верни JSON-массив ID в порядке убывания релевантности.\n"

	rerankMaxTokens = 200

	// DefaultRerankTimeout leaves room for the LLM to echo the id list; the
	// prompt itself carries full article bodies.
	DefaultRerankTimeout = 60 * time.Second
)

// Reranker reorders candidates with one LLM completion. It is a quality
// enhancement only: any failure, an unparseable response or an empty order
// leaves the input list untouched.
type Reranker struct {
	llm     CompletionProvider
	timeout time.Duration
}

// NewReranker creates a Reranker. llm may be nil for deployments without a
// completion provider; Rerank is then the identity.
func NewReranker(llm CompletionProvider) *Reranker {
	return &Reranker{
		llm:     llm,
		timeout: DefaultRerankTimeout,
	}
}

// Rerank asks the model to order the hits by relevance to the query.
// promptTemplate, when set, replaces the built-in instruction; {query} and
// {articles} placeholders are substituted.
func (r *Reranker) Rerank(ctx context.Context, query string, hits []Hit, promptTemplate, model string) []Hit {
	if r.llm == nil || !r.llm.Configured() || len(hits) == 0 {
		return hits
	}

	prompt := r.buildPrompt(query, hits, promptTemplate)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Ranking should be deterministic, not creative.
	text, err := r.llm.Complete(ctx, model, prompt, 0, rerankMaxTokens)
	if err != nil {
		log.Error(err, "rerank completion failed, keeping similarity order")
		return hits
	}

	order := parseOrder(text, hits)
	if len(order) == 0 {
		return hits
	}

	byID := make(map[string]Hit, len(hits))
	for _, h := range hits {
		byID[h.ID] = h
	}

	reranked := make([]Hit, 0, len(order))
	for _, id := range order {
		reranked = append(reranked, byID[id])
	}

	return reranked
}

func (r *Reranker) buildPrompt(query string, hits []Hit, template string) string {
	listing := articleListing(hits)

	if template == "" {
		return rerankInstruction + "Запрос: " + query + "\n\n" + listing
	}

	prompt := strings.ReplaceAll(template, "{query}", query)
	prompt = strings.ReplaceAll(prompt, "{articles}", listing)
	if !strings.Contains(template, "{query}") {
		prompt += "\nЗапрос: " + query
	}
	if !strings.Contains(template, "{articles}") {
		prompt += "\n\n" + listing
	}

	return prompt
}

func articleListing(hits []Hit) string {
	parts := make([]string, 0, len(hits))
	for i, h := range hits {
		parts = append(parts, fmt.Sprintf("%d. id=%s title=%s\n%s", i+1, h.ID, h.Title, h.Content))
	}
	return strings.Join(parts, "\n\n")
}

// parseOrder tokenizes the response on whitespace and keeps tokens matching
// a known hit id, first occurrence wins. Brackets, quotes and commas are
// trimmed so a JSON-style id list parses too.
func parseOrder(text string, hits []Hit) []string {
	known := make(map[string]bool, len(hits))
	for _, h := range hits {
		known[h.ID] = true
	}

	var order []string
	seen := make(map[string]bool, len(hits))
	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, "[]{}\"',.;")
		if known[token] && !seen[token] {
			seen[token] = true
			order = append(order, token)
		}
	}

	return order
}
