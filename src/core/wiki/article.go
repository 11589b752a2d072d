package wiki

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"teamwiki/src/infrastructure/log"
)

// GroupInput describes a group created inline together with an article
type GroupInput struct {
	Name           string
	ParentID       string
	PromptTemplate string
	SortOrder      int
}

// ArticleInput carries the writable fields of an article. Exactly one of
// GroupID or NewGroup may be set; NewGroup creates the group first.
type ArticleInput struct {
	Title    string
	Content  string
	Tags     []string
	GroupID  string
	NewGroup *GroupInput
}

// ArticleService implements article CRUD with version snapshots and keeps
// the vector index in sync on every write.
type ArticleService struct {
	articles ArticleRepository
	groups   GroupRepository
	indexer  ArticleIndexer
	enqueuer ReindexEnqueuer
}

func NewArticleService(articles ArticleRepository, groups GroupRepository, indexer ArticleIndexer, enqueuer ReindexEnqueuer) *ArticleService {
	return &ArticleService{
		articles: articles,
		groups:   groups,
		indexer:  indexer,
		enqueuer: enqueuer,
	}
}

func (s *ArticleService) Create(ctx context.Context, teamID string, input ArticleInput) (*Article, error) {
	groupID, err := s.resolveGroup(ctx, input)
	if err != nil {
		return nil, err
	}

	article := &Article{
		ID:      uuid.New().String(),
		Title:   input.Title,
		Content: input.Content,
		Tags:    input.Tags,
		GroupID: groupID,
		TeamID:  teamID,
	}

	if err := s.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	s.saveVersion(ctx, article)
	s.reindex(ctx, article)

	return article, nil
}

func (s *ArticleService) Update(ctx context.Context, id, teamID string, input ArticleInput) (*Article, error) {
	article, err := s.articles.Get(ctx, id, teamID)
	if err != nil {
		return nil, err
	}

	groupID, err := s.resolveGroup(ctx, input)
	if err != nil {
		return nil, err
	}

	article.Title = input.Title
	article.Content = input.Content
	article.Tags = input.Tags
	article.GroupID = groupID

	if err := s.articles.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	s.saveVersion(ctx, article)
	s.reindex(ctx, article)

	return article, nil
}

func (s *ArticleService) Get(ctx context.Context, id, teamID string) (*Article, error) {
	return s.articles.Get(ctx, id, teamID)
}

func (s *ArticleService) List(ctx context.Context, teamID string) ([]Article, error) {
	return s.articles.List(ctx, teamID)
}

func (s *ArticleService) Delete(ctx context.Context, id, teamID string) error {
	if err := s.articles.SoftDelete(ctx, id, teamID); err != nil {
		return err
	}

	// The access filter drops deleted articles on every query, so a vector
	// left behind here is invisible until the next reindex.
	if err := s.indexer.Remove(ctx, id); err != nil {
		log.Error(err, "failed to remove article vector", "article_id", id)
	}

	return nil
}

func (s *ArticleService) History(ctx context.Context, id, teamID string) ([]ArticleVersion, error) {
	if _, err := s.articles.Get(ctx, id, teamID); err != nil {
		return nil, err
	}
	return s.articles.ListVersions(ctx, id)
}

func (s *ArticleService) resolveGroup(ctx context.Context, input ArticleInput) (string, error) {
	if input.NewGroup != nil {
		group := &Group{
			ID:             uuid.New().String(),
			Name:           input.NewGroup.Name,
			ParentID:       input.NewGroup.ParentID,
			PromptTemplate: input.NewGroup.PromptTemplate,
			SortOrder:      input.NewGroup.SortOrder,
		}
		if err := s.groups.Create(ctx, group); err != nil {
			return "", fmt.Errorf("failed to create group: %w", err)
		}
		return group.ID, nil
	}

	if input.GroupID != "" {
		if _, err := s.groups.Get(ctx, input.GroupID); err != nil {
			return "", err
		}
	}

	return input.GroupID, nil
}

func (s *ArticleService) saveVersion(ctx context.Context, article *Article) {
	version := &ArticleVersion{
		ArticleID: article.ID,
		Title:     article.Title,
		Content:   article.Content,
		Tags:      article.Tags,
	}
	if err := s.articles.SaveVersion(ctx, version); err != nil {
		log.Error(err, "failed to save article version", "article_id", article.ID)
	}
}

// reindex keeps the write path available when the vector index is down: the
// article is persisted either way and the embedding is retried by a
// background job.
func (s *ArticleService) reindex(ctx context.Context, article *Article) {
	if err := s.indexer.Index(ctx, article); err != nil {
		log.Error(err, "failed to index article", "article_id", article.ID)
		if s.enqueuer != nil {
			if qerr := s.enqueuer.EnqueueReindex(ctx, article.ID); qerr != nil {
				log.Error(qerr, "failed to enqueue reindex job", "article_id", article.ID)
			}
		}
	}
}
