package search

import (
	"context"
	"fmt"

	"teamwiki/src/storage/weaviate"
)

// AccessFilter joins raw vector matches against the relational store and is
// the tenant-isolation boundary: the vector index is not partitioned by
// team, so everything soft-deleted or owned by another team is dropped
// here, on every query path.
type AccessFilter struct {
	articles ArticleFinder
}

func NewAccessFilter(articles ArticleFinder) *AccessFilter {
	return &AccessFilter{articles: articles}
}

// Filter loads the matched articles in one batch and returns hits for the
// surviving subset, preserving the input (similarity) order.
func (f *AccessFilter) Filter(ctx context.Context, matches []weaviate.Match, teamID string) ([]Hit, error) {
	if len(matches) == 0 {
		return []Hit{}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}

	articles, err := f.articles.FindByIDs(ctx, ids, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for hits: %w", err)
	}

	byID := make(map[string]int, len(articles))
	for i, a := range articles {
		byID[a.ID] = i
	}

	hits := make([]Hit, 0, len(articles))
	for _, m := range matches {
		i, ok := byID[m.ID]
		if !ok {
			continue
		}
		a := articles[i]
		hits = append(hits, Hit{
			ID:      a.ID,
			Title:   a.Title,
			Content: a.Content,
			Score:   m.Score,
			Tags:    a.Tags,
			GroupID: a.GroupID,
		})
	}

	return hits, nil
}
