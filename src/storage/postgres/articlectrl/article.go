package articlectrl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"teamwiki/src/core/wiki"
)

type Article struct {
	ID        string `gorm:"primaryKey"`
	Title     string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	Tags      string `gorm:"default:''"`
	GroupID   string `gorm:"index"`
	TeamID    string `gorm:"index;not null"`
	IsDeleted bool   `gorm:"index;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ArticleVersion struct {
	ID        int64  `gorm:"primaryKey"`
	ArticleID string `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	Content   string `gorm:"type:text;not null"`
	Tags      string `gorm:"default:''"`
	CreatedAt time.Time
}

type Repository struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	// Node number 1 for article versions
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	if err := db.AutoMigrate(&Article{}, &ArticleVersion{}); err != nil {
		return nil, fmt.Errorf("failed to migrate article tables: %w", err)
	}

	return &Repository{
		db:        db,
		snowflake: node,
	}, nil
}

func (r *Repository) Create(ctx context.Context, article *wiki.Article) error {
	result := r.db.WithContext(ctx).Create(toRecord(article))
	if result.Error != nil {
		return fmt.Errorf("failed to create article: %v", result.Error)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, article *wiki.Article) error {
	result := r.db.WithContext(ctx).
		Model(&Article{}).
		Where("id = ? AND team_id = ? AND is_deleted = ?", article.ID, article.TeamID, false).
		Updates(map[string]interface{}{
			"title":    article.Title,
			"content":  article.Content,
			"tags":     joinTags(article.Tags),
			"group_id": article.GroupID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update article: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return wiki.ErrArticleNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id, teamID string) (*wiki.Article, error) {
	var record Article
	result := r.db.WithContext(ctx).
		Where("id = ? AND team_id = ? AND is_deleted = ?", id, teamID, false).
		First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, wiki.ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article: %v", result.Error)
	}

	article := toDomain(&record)
	return &article, nil
}

func (r *Repository) List(ctx context.Context, teamID string) ([]wiki.Article, error) {
	var records []Article
	result := r.db.WithContext(ctx).
		Where("team_id = ? AND is_deleted = ?", teamID, false).
		Order("created_at DESC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list articles: %v", result.Error)
	}

	return toDomainSlice(records), nil
}

// FindByIDs loads the given articles in one batch, excluding soft-deleted
// rows and rows of other teams. Order of the result is not significant.
func (r *Repository) FindByIDs(ctx context.Context, ids []string, teamID string) ([]wiki.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []Article
	result := r.db.WithContext(ctx).
		Where("id IN ? AND team_id = ? AND is_deleted = ?", ids, teamID, false).
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find articles by ids: %v", result.Error)
	}

	return toDomainSlice(records), nil
}

func (r *Repository) SoftDelete(ctx context.Context, id, teamID string) error {
	result := r.db.WithContext(ctx).
		Model(&Article{}).
		Where("id = ? AND team_id = ? AND is_deleted = ?", id, teamID, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return fmt.Errorf("failed to delete article: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return wiki.ErrArticleNotFound
	}
	return nil
}

// GetAny loads a live article regardless of team, for reindex jobs
func (r *Repository) GetAny(ctx context.Context, id string) (*wiki.Article, error) {
	var record Article
	result := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, wiki.ErrArticleNotFound
		}
		return nil, fmt.Errorf("failed to get article: %v", result.Error)
	}

	article := toDomain(&record)
	return &article, nil
}

// ListAll returns every live article across all teams, for bulk reindexing
func (r *Repository) ListAll(ctx context.Context) ([]wiki.Article, error) {
	var records []Article
	result := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list all articles: %v", result.Error)
	}

	return toDomainSlice(records), nil
}

func (r *Repository) SaveVersion(ctx context.Context, version *wiki.ArticleVersion) error {
	record := ArticleVersion{
		ID:        r.snowflake.Generate().Int64(),
		ArticleID: version.ArticleID,
		Title:     version.Title,
		Content:   version.Content,
		Tags:      joinTags(version.Tags),
	}

	result := r.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to save article version: %v", result.Error)
	}

	version.ID = record.ID
	version.CreatedAt = record.CreatedAt
	return nil
}

func (r *Repository) ListVersions(ctx context.Context, articleID string) ([]wiki.ArticleVersion, error) {
	var records []ArticleVersion
	result := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at DESC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list article versions: %v", result.Error)
	}

	versions := make([]wiki.ArticleVersion, 0, len(records))
	for _, record := range records {
		versions = append(versions, wiki.ArticleVersion{
			ID:        record.ID,
			ArticleID: record.ArticleID,
			Title:     record.Title,
			Content:   record.Content,
			Tags:      splitTags(record.Tags),
			CreatedAt: record.CreatedAt,
		})
	}

	return versions, nil
}

func toRecord(article *wiki.Article) *Article {
	return &Article{
		ID:        article.ID,
		Title:     article.Title,
		Content:   article.Content,
		Tags:      joinTags(article.Tags),
		GroupID:   article.GroupID,
		TeamID:    article.TeamID,
		IsDeleted: article.IsDeleted,
	}
}

func toDomain(record *Article) wiki.Article {
	return wiki.Article{
		ID:        record.ID,
		Title:     record.Title,
		Content:   record.Content,
		Tags:      splitTags(record.Tags),
		GroupID:   record.GroupID,
		TeamID:    record.TeamID,
		IsDeleted: record.IsDeleted,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func toDomainSlice(records []Article) []wiki.Article {
	articles := make([]wiki.Article, 0, len(records))
	for i := range records {
		articles = append(articles, toDomain(&records[i]))
	}
	return articles
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(tags string) []string {
	if tags == "" {
		return []string{}
	}
	return strings.Split(tags, ",")
}
