package search_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"teamwiki/src/core/search"
	"teamwiki/src/core/wiki"
	"teamwiki/src/storage/weaviate"
)

type fakeIndex struct {
	matches     []weaviate.Match
	err         error
	lastLimit   int
	lastGroupID string
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, limit int, groupID string) ([]weaviate.Match, error) {
	f.lastLimit = limit
	f.lastGroupID = groupID
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

// fakeArticleStore scopes articles by team the way the relational store does.
type fakeArticleStore struct {
	articles []wiki.Article
}

func (f *fakeArticleStore) Get(ctx context.Context, id, teamID string) (*wiki.Article, error) {
	for i := range f.articles {
		a := f.articles[i]
		if a.ID == id && a.TeamID == teamID && !a.IsDeleted {
			return &a, nil
		}
	}
	return nil, wiki.ErrArticleNotFound
}

func (f *fakeArticleStore) FindByIDs(ctx context.Context, ids []string, teamID string) ([]wiki.Article, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []wiki.Article
	for _, a := range f.articles {
		if wanted[a.ID] && a.TeamID == teamID && !a.IsDeleted {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeGroupStore struct {
	groups map[string]*wiki.Group
}

func (f *fakeGroupStore) Get(ctx context.Context, id string) (*wiki.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, wiki.ErrGroupNotFound
	}
	return g, nil
}

type fakeTeamStore struct {
	teams map[string]*wiki.Team
}

func (f *fakeTeamStore) Get(ctx context.Context, id string) (*wiki.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, wiki.ErrTeamNotFound
	}
	return t, nil
}

func newTestService(index search.VectorIndex, articles search.ArticleFinder, groups search.GroupFinder, teams search.TeamFinder, llm search.CompletionProvider) *search.Service {
	return search.NewService(
		search.NewEmbedder(nil, 16),
		index,
		articles,
		groups,
		teams,
		search.NewReranker(llm),
		search.NewSynthesizer(llm),
	)
}

func TestSearchFiltersForeignAndDeletedArticles(t *testing.T) {
	index := &fakeIndex{matches: []weaviate.Match{
		{ID: "mine", Score: 0.9},
		{ID: "foreign", Score: 0.8},
		{ID: "deleted", Score: 0.7},
	}}
	articles := &fakeArticleStore{articles: []wiki.Article{
		{ID: "mine", Title: "Mine", TeamID: "team-a"},
		{ID: "foreign", Title: "Foreign", TeamID: "team-b"},
		{ID: "deleted", Title: "Deleted", TeamID: "team-a", IsDeleted: true},
	}}

	svc := newTestService(index, articles, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	hits, err := svc.Search(context.Background(), search.Request{Query: "q", TeamID: "team-a"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(hits) != 1 || hits[0].ID != "mine" {
		t.Errorf("Search() = %v, want only the caller's live article", hitIDs(hits))
	}
}

func TestSearchSortsByScoreDescending(t *testing.T) {
	index := &fakeIndex{matches: []weaviate.Match{
		{ID: "low", Score: 0.3},
		{ID: "high", Score: 0.9},
		{ID: "mid", Score: 0.6},
	}}
	articles := &fakeArticleStore{articles: []wiki.Article{
		{ID: "low", TeamID: "t"},
		{ID: "high", TeamID: "t"},
		{ID: "mid", TeamID: "t"},
	}}

	svc := newTestService(index, articles, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	hits, err := svc.Search(context.Background(), search.Request{Query: "q", TeamID: "t"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := []string{"high", "mid", "low"}
	got := hitIDs(hits)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Search() order = %v, want %v", got, want)
		}
	}
}

func TestSearchTagFilterRequiresAllTags(t *testing.T) {
	index := &fakeIndex{matches: []weaviate.Match{
		{ID: "both", Score: 0.9},
		{ID: "one", Score: 0.8},
		{ID: "none", Score: 0.7},
	}}
	articles := &fakeArticleStore{articles: []wiki.Article{
		{ID: "both", TeamID: "t", Tags: []string{"go", "infra"}},
		{ID: "one", TeamID: "t", Tags: []string{"go"}},
		{ID: "none", TeamID: "t"},
	}}

	svc := newTestService(index, articles, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	hits, err := svc.Search(context.Background(), search.Request{
		Query:  "q",
		TeamID: "t",
		Tags:   []string{"go", "infra"},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(hits) != 1 || hits[0].ID != "both" {
		t.Errorf("Search() = %v, want only the hit carrying every tag", hitIDs(hits))
	}
}

func TestSearchRecoversHitsDroppedByReranker(t *testing.T) {
	index := &fakeIndex{matches: []weaviate.Match{
		{ID: "a1", Score: 0.9},
		{ID: "b2", Score: 0.8},
		{ID: "c3", Score: 0.7},
	}}
	articles := &fakeArticleStore{articles: []wiki.Article{
		{ID: "a1", TeamID: "t"},
		{ID: "b2", TeamID: "t"},
		{ID: "c3", TeamID: "t"},
	}}
	// The model mentions only one id; the other two must survive anyway.
	llm := &fakeCompletionProvider{configured: true, response: `["b2"]`}

	svc := newTestService(index, articles, &fakeGroupStore{}, &fakeTeamStore{}, llm)

	hits, err := svc.Search(context.Background(), search.Request{Query: "q", TeamID: "t"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(hits) != 3 {
		t.Fatalf("Search() returned %d hits, want 3", len(hits))
	}
	got := hitIDs(hits)
	want := []string{"a1", "b2", "c3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Search() order = %v, want score order %v", got, want)
		}
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	index := &fakeIndex{matches: []weaviate.Match{
		{ID: "a1", Score: 0.9},
		{ID: "b2", Score: 0.8},
		{ID: "c3", Score: 0.7},
	}}
	articles := &fakeArticleStore{articles: []wiki.Article{
		{ID: "a1", TeamID: "t"},
		{ID: "b2", TeamID: "t"},
		{ID: "c3", TeamID: "t"},
	}}

	svc := newTestService(index, articles, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	hits, err := svc.Search(context.Background(), search.Request{Query: "q", TeamID: "t", TopK: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(hits) != 2 {
		t.Errorf("Search() returned %d hits, want 2", len(hits))
	}
	if index.lastLimit != 2 {
		t.Errorf("index queried with limit %d, want 2", index.lastLimit)
	}
}

func TestSearchPassesGroupFilterToIndex(t *testing.T) {
	index := &fakeIndex{}
	svc := newTestService(index, &fakeArticleStore{}, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	_, err := svc.Search(context.Background(), search.Request{Query: "q", TeamID: "t", GroupID: "g-7"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if index.lastGroupID != "g-7" {
		t.Errorf("index group filter = %q, want g-7", index.lastGroupID)
	}
}

func TestSearchIndexFailureIsServiceUnavailable(t *testing.T) {
	index := &fakeIndex{err: errors.New("connect: connection refused")}
	svc := newTestService(index, &fakeArticleStore{}, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	_, err := svc.Search(context.Background(), search.Request{Query: "q", TeamID: "t"})
	if !errors.Is(err, search.ErrIndexUnavailable) {
		t.Errorf("Search() error = %v, want ErrIndexUnavailable", err)
	}
}

func TestAnswerUsesGroupPromptOverTeamPrompt(t *testing.T) {
	index := &fakeIndex{matches: []weaviate.Match{{ID: "a1", Score: 0.9}}}
	articles := &fakeArticleStore{articles: []wiki.Article{
		{ID: "a1", Title: "Doc", Content: "body", TeamID: "t", GroupID: "g-1"},
	}}
	groups := &fakeGroupStore{groups: map[string]*wiki.Group{
		"g-1": {ID: "g-1", Name: "Ops", PromptTemplate: "Group instruction"},
	}}
	teams := &fakeTeamStore{teams: map[string]*wiki.Team{
		"t": {ID: "t", BasePrompt: "Team instruction"},
	}}
	llm := &fakeCompletionProvider{configured: true, response: "answer body"}

	svc := newTestService(index, articles, groups, teams, llm)

	answer, err := svc.Answer(context.Background(), search.Request{Query: "q", TeamID: "t", GroupID: "g-1"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if answer.UsedGroupID != "g-1" {
		t.Errorf("UsedGroupID = %q, want g-1", answer.UsedGroupID)
	}
	if got := answer.PromptUsed; !strings.Contains(got, "Group instruction") {
		t.Errorf("PromptUsed = %q, want the group template", got)
	}
}

func TestAnswerEmptyResultsNeverEmptyString(t *testing.T) {
	index := &fakeIndex{}
	svc := newTestService(index, &fakeArticleStore{}, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	answer, err := svc.Answer(context.Background(), search.Request{Query: "q", TeamID: "t"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if answer.Answer != search.NoResultsMessage {
		t.Errorf("Answer() = %q, want the no-results message", answer.Answer)
	}
}

func TestRelatedExcludesTheArticleItself(t *testing.T) {
	index := &fakeIndex{matches: []weaviate.Match{
		{ID: "self", Score: 1.0},
		{ID: "near", Score: 0.8},
	}}
	articles := &fakeArticleStore{articles: []wiki.Article{
		{ID: "self", Title: "Self", Content: "body", TeamID: "t", GroupID: "g-1"},
		{ID: "near", Title: "Near", Content: "body", TeamID: "t", GroupID: "g-1"},
	}}

	svc := newTestService(index, articles, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	hits, err := svc.Related(context.Background(), "self", "t", 3)
	if err != nil {
		t.Fatalf("Related() error = %v", err)
	}

	if len(hits) != 1 || hits[0].ID != "near" {
		t.Errorf("Related() = %v, want only the neighbor", hitIDs(hits))
	}
	if index.lastGroupID != "g-1" {
		t.Errorf("Related() index group filter = %q, want the article's group", index.lastGroupID)
	}
	if index.lastLimit != 4 {
		t.Errorf("Related() index limit = %d, want limit+1", index.lastLimit)
	}
}

func TestRelatedUnknownArticle(t *testing.T) {
	svc := newTestService(&fakeIndex{}, &fakeArticleStore{}, &fakeGroupStore{}, &fakeTeamStore{}, nil)

	_, err := svc.Related(context.Background(), "missing", "t", 3)
	if !errors.Is(err, wiki.ErrArticleNotFound) {
		t.Errorf("Related() error = %v, want ErrArticleNotFound", err)
	}
}
