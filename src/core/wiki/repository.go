package wiki

import "context"

// ArticleRepository persists articles and their version history. All reads
// scoped by teamID exclude soft-deleted rows.
type ArticleRepository interface {
	Create(ctx context.Context, article *Article) error
	Update(ctx context.Context, article *Article) error
	Get(ctx context.Context, id, teamID string) (*Article, error)
	List(ctx context.Context, teamID string) ([]Article, error)
	FindByIDs(ctx context.Context, ids []string, teamID string) ([]Article, error)
	SoftDelete(ctx context.Context, id, teamID string) error

	// GetAny and ListAll cross team boundaries; reindexing only.
	GetAny(ctx context.Context, id string) (*Article, error)
	ListAll(ctx context.Context) ([]Article, error)

	SaveVersion(ctx context.Context, version *ArticleVersion) error
	ListVersions(ctx context.Context, articleID string) ([]ArticleVersion, error)
}

// GroupRepository persists the article group tree
type GroupRepository interface {
	Create(ctx context.Context, group *Group) error
	Get(ctx context.Context, id string) (*Group, error)
	List(ctx context.Context) ([]Group, error)
}

// TeamRepository persists teams and team membership
type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	Get(ctx context.Context, id string) (*Team, error)
	List(ctx context.Context) ([]Team, error)
	UpdateSettings(ctx context.Context, id, llmModel, basePrompt string) error
	AddMember(ctx context.Context, teamID, userID string) error
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

// UserDirectory is the slice of the user store the team service needs for
// invitations and active-team switching
type UserDirectory interface {
	FindIDByEmail(ctx context.Context, email string) (string, error)
	SetActiveTeam(ctx context.Context, userID, teamID string) error
}

// Embedder turns text into a fixed-dimension vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the write side of the similarity index
type VectorIndex interface {
	Upsert(ctx context.Context, articleID string, vector []float32, groupID string) error
	Delete(ctx context.Context, articleID string) error
}

// ArticleIndexer maintains the article's representation in the vector index
type ArticleIndexer interface {
	Index(ctx context.Context, article *Article) error
	Remove(ctx context.Context, articleID string) error
}

// ReindexEnqueuer schedules an asynchronous re-embedding of an article when
// the synchronous index write fails
type ReindexEnqueuer interface {
	EnqueueReindex(ctx context.Context, articleID string) error
}
