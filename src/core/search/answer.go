package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamwiki/src/infrastructure/log"
)

const (
	// DefaultBasePrompt is the built-in answer instruction, used when
	// neither the group nor the team configured one.
	DefaultBasePrompt = "Сделай краткое резюме ответа на запрос, опираясь только на выдержки из статей." +
		" Если в выдержках нет ответа, сообщи об этом."

	// NoResultsMessage is the user-visible answer when nothing survived the
	// pipeline. Never an empty string.
	NoResultsMessage = "Не удалось найти релевантные статьи."

	answerTemperature = 0.1
	answerMaxTokens   = 500

	// DefaultAnswerTimeout is longer than the rerank budget: the model
	// writes a summary, not an id list.
	DefaultAnswerTimeout = 90 * time.Second
)

// Synthesizer composes a grounded natural-language answer over the ranked
// hits, or a deterministic extractive digest when the LLM is unavailable.
type Synthesizer struct {
	llm        CompletionProvider
	snippetLen int
	timeout    time.Duration
}

// NewSynthesizer creates a Synthesizer. llm may be nil; the extractive
// fallback then always applies.
func NewSynthesizer(llm CompletionProvider) *Synthesizer {
	return &Synthesizer{
		llm:        llm,
		snippetLen: SnippetLength,
		timeout:    DefaultAnswerTimeout,
	}
}

// Synthesize builds the answer for the query from the ranked hits.
// instruction is the resolved group/team prompt. The returned Answer always
// carries the exact prompt text that was (or would have been) sent.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, hits []Hit, instruction, model string) Answer {
	if len(hits) == 0 {
		return Answer{
			Answer:     NoResultsMessage,
			PromptUsed: instruction,
		}
	}

	prompt := s.buildPrompt(query, hits, instruction)

	body := s.complete(ctx, model, prompt)
	if body == "" {
		body = s.extractiveAnswer(hits)
	}

	return Answer{
		Answer:     body + s.references(hits),
		PromptUsed: prompt,
	}
}

func (s *Synthesizer) complete(ctx context.Context, model, prompt string) string {
	if s.llm == nil || !s.llm.Configured() {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Complete(ctx, model, prompt, answerTemperature, answerMaxTokens)
	if err != nil {
		log.Error(err, "answer completion failed, using extractive fallback")
		return ""
	}

	return strings.TrimSpace(text)
}

func (s *Synthesizer) buildPrompt(query string, hits []Hit, instruction string) string {
	blocks := make([]string, 0, len(hits))
	for _, h := range hits {
		blocks = append(blocks, fmt.Sprintf("[%s](wiki://%s)\n%s", h.Title, h.ID, s.snippet(h.Content)))
	}

	return instruction + "\n\nЗапрос: " + query + "\n\nВыдержки:\n" + strings.Join(blocks, "\n\n")
}

// extractiveAnswer concatenates each hit's title and snippet. Deterministic,
// needs no provider.
func (s *Synthesizer) extractiveAnswer(hits []Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("**%s**\n%s", h.Title, s.snippet(h.Content)))
	}
	return strings.Join(parts, "\n\n")
}

// references lists every surviving hit as a markdown link. Appended to both
// the LLM and the fallback body, so citations are always present.
func (s *Synthesizer) references(hits []Hit) string {
	var b strings.Builder
	b.WriteString("\n\nИсточники:\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "- [%s](wiki://%s)\n", h.Title, h.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Synthesizer) snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= s.snippetLen {
		return content
	}
	return string(runes[:s.snippetLen])
}
