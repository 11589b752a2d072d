package search

import (
	"context"
	"fmt"
	"sort"

	"teamwiki/src/infrastructure/log"
)

// Service drives the retrieval pipeline: embed the query, fetch nearest
// neighbors, enforce tenant access, optionally rerank and synthesize. Only
// the embedding and index stages can fail the request; everything after is
// fail-open.
type Service struct {
	embedder    *Embedder
	index       VectorIndex
	filter      *AccessFilter
	reranker    *Reranker
	synthesizer *Synthesizer
	groups      GroupFinder
	teams       TeamFinder
	articles    ArticleFinder
}

func NewService(
	embedder *Embedder,
	index VectorIndex,
	articles ArticleFinder,
	groups GroupFinder,
	teams TeamFinder,
	reranker *Reranker,
	synthesizer *Synthesizer,
) *Service {
	return &Service{
		embedder:    embedder,
		index:       index,
		filter:      NewAccessFilter(articles),
		reranker:    reranker,
		synthesizer: synthesizer,
		groups:      groups,
		teams:       teams,
		articles:    articles,
	}
}

// querySettings is the per-request configuration resolved from the team and
// the optional group.
type querySettings struct {
	model string
	// rerankTemplate comes from the group only; the team base prompt is a
	// synthesis instruction and would mislead a ranking call.
	rerankTemplate string
	instruction    string
	usedGroupID    string
}

// Search returns the access-filtered, reranked result list, sorted by score
// descending. An empty list is a successful outcome.
func (s *Service) Search(ctx context.Context, req Request) ([]Hit, error) {
	settings := s.resolveSettings(ctx, req)
	return s.pipeline(ctx, req, settings)
}

// Answer runs the search pipeline and synthesizes a grounded answer over
// the surviving hits.
func (s *Service) Answer(ctx context.Context, req Request) (*Answer, error) {
	settings := s.resolveSettings(ctx, req)

	hits, err := s.pipeline(ctx, req, settings)
	if err != nil {
		return nil, err
	}

	answer := s.synthesizer.Synthesize(ctx, req.Query, hits, settings.instruction, settings.model)
	answer.UsedGroupID = settings.usedGroupID

	return &answer, nil
}

// Related finds the nearest neighbors of an existing article, restricted to
// the article's own group when it has one, excluding the article itself.
func (s *Service) Related(ctx context.Context, articleID, teamID string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultTopK
	}

	article, err := s.articles.Get(ctx, articleID, teamID)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, article.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("failed to embed article: %w", err)
	}

	// One extra neighbor because the article is its own nearest match.
	matches, err := s.index.Query(ctx, vector, limit+1, article.GroupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	hits, err := s.filter.Filter(ctx, matches, teamID)
	if err != nil {
		return nil, err
	}

	related := make([]Hit, 0, limit)
	for _, h := range hits {
		if h.ID == articleID {
			continue
		}
		related = append(related, h)
		if len(related) == limit {
			break
		}
	}

	return related, nil
}

func (s *Service) pipeline(ctx context.Context, req Request, settings querySettings) ([]Hit, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// The group restriction is applied server-side by the index.
	matches, err := s.index.Query(ctx, vector, topK, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	hits, err := s.filter.Filter(ctx, matches, req.TeamID)
	if err != nil {
		return nil, err
	}

	if len(req.Tags) > 0 {
		hits = filterByTags(hits, req.Tags)
	}

	ranked := s.reranker.Rerank(ctx, req.Query, hits, settings.rerankTemplate, settings.model)

	// Hits the model forgot to mention come back here; the final score sort
	// is always the last word on ordering.
	ranked = recoverDropped(ranked, hits)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	return ranked, nil
}

func (s *Service) resolveSettings(ctx context.Context, req Request) querySettings {
	settings := querySettings{
		model:       DefaultModel,
		instruction: DefaultBasePrompt,
	}

	team, err := s.teams.Get(ctx, req.TeamID)
	if err != nil {
		log.Error(err, "failed to resolve team settings, using defaults", "team_id", req.TeamID)
	} else {
		if team.LLMModel != "" {
			settings.model = team.LLMModel
		}
		if team.BasePrompt != "" {
			settings.instruction = team.BasePrompt
		}
	}

	if req.GroupID != "" {
		group, err := s.groups.Get(ctx, req.GroupID)
		if err != nil {
			log.Error(err, "failed to resolve group prompt", "group_id", req.GroupID)
		} else if group.PromptTemplate != "" {
			settings.rerankTemplate = group.PromptTemplate
			settings.instruction = group.PromptTemplate
			settings.usedGroupID = group.ID
		}
	}

	return settings
}

// filterByTags keeps hits whose tag set contains every requested tag
func filterByTags(hits []Hit, required []string) []Hit {
	filtered := make([]Hit, 0, len(hits))
	for _, h := range hits {
		tags := make(map[string]bool, len(h.Tags))
		for _, t := range h.Tags {
			tags[t] = true
		}

		keep := true
		for _, t := range required {
			if !tags[t] {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, h)
		}
	}
	return filtered
}

// recoverDropped appends hits present in the original list but missing from
// the reranked one, preserving their similarity order.
func recoverDropped(ranked, original []Hit) []Hit {
	if len(ranked) == len(original) {
		return ranked
	}

	present := make(map[string]bool, len(ranked))
	for _, h := range ranked {
		present[h.ID] = true
	}
	for _, h := range original {
		if !present[h.ID] {
			ranked = append(ranked, h)
		}
	}

	return ranked
}
