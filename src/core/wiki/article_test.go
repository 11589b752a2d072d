package wiki_test

import (
	"context"
	"errors"
	"testing"

	"teamwiki/src/core/wiki"
)

type fakeArticleRepo struct {
	articles map[string]*wiki.Article
	versions []wiki.ArticleVersion
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: make(map[string]*wiki.Article)}
}

func (f *fakeArticleRepo) Create(ctx context.Context, article *wiki.Article) error {
	f.articles[article.ID] = article
	return nil
}

func (f *fakeArticleRepo) Update(ctx context.Context, article *wiki.Article) error {
	f.articles[article.ID] = article
	return nil
}

func (f *fakeArticleRepo) Get(ctx context.Context, id, teamID string) (*wiki.Article, error) {
	a, ok := f.articles[id]
	if !ok || a.TeamID != teamID || a.IsDeleted {
		return nil, wiki.ErrArticleNotFound
	}
	return a, nil
}

func (f *fakeArticleRepo) List(ctx context.Context, teamID string) ([]wiki.Article, error) {
	var out []wiki.Article
	for _, a := range f.articles {
		if a.TeamID == teamID && !a.IsDeleted {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeArticleRepo) FindByIDs(ctx context.Context, ids []string, teamID string) ([]wiki.Article, error) {
	var out []wiki.Article
	for _, id := range ids {
		if a, ok := f.articles[id]; ok && a.TeamID == teamID && !a.IsDeleted {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeArticleRepo) SoftDelete(ctx context.Context, id, teamID string) error {
	a, ok := f.articles[id]
	if !ok || a.TeamID != teamID {
		return wiki.ErrArticleNotFound
	}
	a.IsDeleted = true
	return nil
}

func (f *fakeArticleRepo) GetAny(ctx context.Context, id string) (*wiki.Article, error) {
	a, ok := f.articles[id]
	if !ok || a.IsDeleted {
		return nil, wiki.ErrArticleNotFound
	}
	return a, nil
}

func (f *fakeArticleRepo) ListAll(ctx context.Context) ([]wiki.Article, error) {
	var out []wiki.Article
	for _, a := range f.articles {
		if !a.IsDeleted {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeArticleRepo) SaveVersion(ctx context.Context, version *wiki.ArticleVersion) error {
	version.ID = int64(len(f.versions) + 1)
	f.versions = append(f.versions, *version)
	return nil
}

func (f *fakeArticleRepo) ListVersions(ctx context.Context, articleID string) ([]wiki.ArticleVersion, error) {
	var out []wiki.ArticleVersion
	for _, v := range f.versions {
		if v.ArticleID == articleID {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeIndexer struct {
	indexErr error
	indexed  []string
	removed  []string
}

func (f *fakeIndexer) Index(ctx context.Context, article *wiki.Article) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexed = append(f.indexed, article.ID)
	return nil
}

func (f *fakeIndexer) Remove(ctx context.Context, articleID string) error {
	f.removed = append(f.removed, articleID)
	return nil
}

type fakeEnqueuer struct {
	enqueued []string
}

func (f *fakeEnqueuer) EnqueueReindex(ctx context.Context, articleID string) error {
	f.enqueued = append(f.enqueued, articleID)
	return nil
}

func TestCreateArticleIndexesAndVersions(t *testing.T) {
	repo := newFakeArticleRepo()
	indexer := &fakeIndexer{}
	svc := wiki.NewArticleService(repo, &fakeGroupRepo{}, indexer, &fakeEnqueuer{})

	article, err := svc.Create(context.Background(), "team-a", wiki.ArticleInput{
		Title:   "Runbook",
		Content: "Restart the service.",
		Tags:    []string{"ops"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if article.TeamID != "team-a" {
		t.Errorf("Create() team = %s, want team-a", article.TeamID)
	}
	if len(indexer.indexed) != 1 || indexer.indexed[0] != article.ID {
		t.Errorf("indexed = %v, want the new article", indexer.indexed)
	}
	if len(repo.versions) != 1 {
		t.Errorf("versions = %d, want 1 snapshot on create", len(repo.versions))
	}
}

func TestCreateArticleSurvivesIndexOutage(t *testing.T) {
	repo := newFakeArticleRepo()
	indexer := &fakeIndexer{indexErr: errors.New("index down")}
	enqueuer := &fakeEnqueuer{}
	svc := wiki.NewArticleService(repo, &fakeGroupRepo{}, indexer, enqueuer)

	article, err := svc.Create(context.Background(), "team-a", wiki.ArticleInput{
		Title:   "Runbook",
		Content: "Restart the service.",
	})
	if err != nil {
		t.Fatalf("Create() should not fail on an index outage, got %v", err)
	}

	// The write persisted and the embedding was deferred.
	if _, ok := repo.articles[article.ID]; !ok {
		t.Error("article not persisted")
	}
	if len(enqueuer.enqueued) != 1 || enqueuer.enqueued[0] != article.ID {
		t.Errorf("enqueued = %v, want a reindex job for the article", enqueuer.enqueued)
	}
}

func TestCreateArticleWithInlineGroup(t *testing.T) {
	groups := &fakeGroupRepo{}
	svc := wiki.NewArticleService(newFakeArticleRepo(), groups, &fakeIndexer{}, &fakeEnqueuer{})

	article, err := svc.Create(context.Background(), "team-a", wiki.ArticleInput{
		Title:    "Guide",
		Content:  "body",
		NewGroup: &wiki.GroupInput{Name: "Guides"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if article.GroupID == "" {
		t.Fatal("Create() did not attach the inline group")
	}
	if _, err := groups.Get(context.Background(), article.GroupID); err != nil {
		t.Errorf("inline group not persisted: %v", err)
	}
}

func TestUpdateArticleSnapshotsEveryRevision(t *testing.T) {
	repo := newFakeArticleRepo()
	svc := wiki.NewArticleService(repo, &fakeGroupRepo{}, &fakeIndexer{}, &fakeEnqueuer{})

	article, err := svc.Create(context.Background(), "team-a", wiki.ArticleInput{Title: "v1", Content: "first"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Update(context.Background(), article.ID, "team-a", wiki.ArticleInput{Title: "v2", Content: "second"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	versions, err := svc.History(context.Background(), article.ID, "team-a")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("History() returned %d versions, want 2", len(versions))
	}
	titles := map[string]bool{versions[0].Title: true, versions[1].Title: true}
	if !titles["v1"] || !titles["v2"] {
		t.Errorf("History() misses a revision snapshot: %v", titles)
	}
}

func TestUpdateArticleForeignTeam(t *testing.T) {
	repo := newFakeArticleRepo()
	svc := wiki.NewArticleService(repo, &fakeGroupRepo{}, &fakeIndexer{}, &fakeEnqueuer{})

	article, err := svc.Create(context.Background(), "team-a", wiki.ArticleInput{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Update(context.Background(), article.ID, "team-b", wiki.ArticleInput{Title: "x", Content: "y"})
	if !errors.Is(err, wiki.ErrArticleNotFound) {
		t.Errorf("Update() from another team error = %v, want ErrArticleNotFound", err)
	}
}

func TestDeleteArticleRemovesVector(t *testing.T) {
	repo := newFakeArticleRepo()
	indexer := &fakeIndexer{}
	svc := wiki.NewArticleService(repo, &fakeGroupRepo{}, indexer, &fakeEnqueuer{})

	article, err := svc.Create(context.Background(), "team-a", wiki.ArticleInput{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), article.ID, "team-a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if !repo.articles[article.ID].IsDeleted {
		t.Error("Delete() did not soft-delete the article")
	}
	if len(indexer.removed) != 1 || indexer.removed[0] != article.ID {
		t.Errorf("removed vectors = %v, want the article", indexer.removed)
	}

	if _, err := svc.Get(context.Background(), article.ID, "team-a"); !errors.Is(err, wiki.ErrArticleNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrArticleNotFound", err)
	}
}
