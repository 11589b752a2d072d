package groupctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"teamwiki/src/core/wiki"
)

type ArticleGroup struct {
	ID             string `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	ParentID       string `gorm:"index"`
	PromptTemplate string `gorm:"type:text"`
	SortOrder      int    `gorm:"default:0"`
	CreatedAt      time.Time
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&ArticleGroup{}); err != nil {
		return nil, fmt.Errorf("failed to migrate group table: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, group *wiki.Group) error {
	record := ArticleGroup{
		ID:             group.ID,
		Name:           group.Name,
		ParentID:       group.ParentID,
		PromptTemplate: group.PromptTemplate,
		SortOrder:      group.SortOrder,
	}

	result := r.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to create group: %v", result.Error)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*wiki.Group, error) {
	var record ArticleGroup
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, wiki.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %v", result.Error)
	}

	group := toDomain(&record)
	return &group, nil
}

func (r *Repository) List(ctx context.Context) ([]wiki.Group, error) {
	var records []ArticleGroup
	result := r.db.WithContext(ctx).Order("sort_order, name").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list groups: %v", result.Error)
	}

	groups := make([]wiki.Group, 0, len(records))
	for i := range records {
		groups = append(groups, toDomain(&records[i]))
	}
	return groups, nil
}

func toDomain(record *ArticleGroup) wiki.Group {
	return wiki.Group{
		ID:             record.ID,
		Name:           record.Name,
		ParentID:       record.ParentID,
		PromptTemplate: record.PromptTemplate,
		SortOrder:      record.SortOrder,
		CreatedAt:      record.CreatedAt,
	}
}
