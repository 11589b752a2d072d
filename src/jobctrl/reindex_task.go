package jobctrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"teamwiki/src/core/wiki"
	"teamwiki/src/infrastructure/job"
	"teamwiki/src/infrastructure/log"
)

const TaskTypeReindex = "article.reindex"

type ReindexPayload struct {
	ArticleID string `json:"article_id"`
}

// ReindexTask re-embeds one article and upserts its vector. Used when the
// synchronous index write on the article write path failed.
type ReindexTask struct {
	articles wiki.ArticleRepository
	indexer  wiki.ArticleIndexer
}

func NewReindexTask(articles wiki.ArticleRepository, indexer wiki.ArticleIndexer) *ReindexTask {
	return &ReindexTask{
		articles: articles,
		indexer:  indexer,
	}
}

func (t *ReindexTask) TaskType() string {
	return TaskTypeReindex
}

func (t *ReindexTask) Handle(ctx context.Context, payload json.RawMessage) error {
	var p ReindexPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal reindex payload: %w", err)
	}

	// Reindexing crosses team boundaries, so the team-scoped getters do not
	// apply here.
	article, err := t.articles.GetAny(ctx, p.ArticleID)
	if err != nil {
		if errors.Is(err, wiki.ErrArticleNotFound) {
			// Deleted between enqueue and processing; drop its vector instead.
			log.Info("article gone before reindex, removing vector", "article_id", p.ArticleID)
			return t.indexer.Remove(ctx, p.ArticleID)
		}
		return err
	}

	return t.indexer.Index(ctx, article)
}

// Enqueuer adapts the job service to the wiki write path
type Enqueuer struct {
	jobs *job.Service
}

func NewEnqueuer(jobs *job.Service) *Enqueuer {
	return &Enqueuer{jobs: jobs}
}

func (e *Enqueuer) EnqueueReindex(ctx context.Context, articleID string) error {
	payload, err := json.Marshal(ReindexPayload{ArticleID: articleID})
	if err != nil {
		return fmt.Errorf("failed to marshal reindex payload: %w", err)
	}

	_, err = e.jobs.Enqueue(ctx, TaskTypeReindex, payload)
	return err
}
