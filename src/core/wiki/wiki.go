package wiki

import (
	"errors"
	"time"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrGroupNotFound   = errors.New("article group not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrNotTeamMember   = errors.New("user is not a member of the team")
)

// Article is a Markdown wiki page owned by exactly one team. Deleted
// articles are retained with IsDeleted set and never served.
type Article struct {
	ID        string
	Title     string
	Content   string
	Tags      []string
	GroupID   string
	TeamID    string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmbeddingText is the text that represents the article in the vector index.
func (a *Article) EmbeddingText() string {
	return a.Title + "\n" + a.Content
}

// ArticleVersion is an immutable snapshot taken on every create and update.
type ArticleVersion struct {
	ID        int64
	ArticleID string
	Title     string
	Content   string
	Tags      []string
	CreatedAt time.Time
}

// Group is a node of the hierarchical article tree. A group may carry its
// own answer-synthesis prompt template with {query} and {articles}
// placeholders; articles without a group fall back to the team prompt.
type Group struct {
	ID             string
	Name           string
	ParentID       string
	PromptTemplate string
	SortOrder      int
	CreatedAt      time.Time
}

// Team is the tenancy unit. LLMModel and BasePrompt parameterize the
// retrieval pipeline's completion calls for every query in the team.
type Team struct {
	ID         string
	Name       string
	LLMModel   string
	BasePrompt string
	CreatedAt  time.Time
}
