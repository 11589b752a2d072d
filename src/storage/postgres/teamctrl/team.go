package teamctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teamwiki/src/core/wiki"
)

type Team struct {
	ID         string `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	LLMModel   string
	BasePrompt string `gorm:"type:text"`
	CreatedAt  time.Time
}

type TeamMember struct {
	TeamID    string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&Team{}, &TeamMember{}); err != nil {
		return nil, fmt.Errorf("failed to migrate team tables: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, team *wiki.Team) error {
	record := Team{
		ID:         team.ID,
		Name:       team.Name,
		LLMModel:   team.LLMModel,
		BasePrompt: team.BasePrompt,
	}

	result := r.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to create team: %v", result.Error)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*wiki.Team, error) {
	var record Team
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, wiki.ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %v", result.Error)
	}

	team := toDomain(&record)
	return &team, nil
}

func (r *Repository) List(ctx context.Context) ([]wiki.Team, error) {
	var records []Team
	result := r.db.WithContext(ctx).Order("created_at").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list teams: %v", result.Error)
	}

	teams := make([]wiki.Team, 0, len(records))
	for i := range records {
		teams = append(teams, toDomain(&records[i]))
	}
	return teams, nil
}

func (r *Repository) UpdateSettings(ctx context.Context, id, llmModel, basePrompt string) error {
	result := r.db.WithContext(ctx).
		Model(&Team{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"llm_model":   llmModel,
			"base_prompt": basePrompt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update team settings: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return wiki.ErrTeamNotFound
	}
	return nil
}

// AddMember is idempotent: inviting an existing member is not an error
func (r *Repository) AddMember(ctx context.Context, teamID, userID string) error {
	record := TeamMember{TeamID: teamID, UserID: userID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to add team member: %v", result.Error)
	}
	return nil
}

func (r *Repository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check team membership: %v", result.Error)
	}
	return count > 0, nil
}

func toDomain(record *Team) wiki.Team {
	return wiki.Team{
		ID:         record.ID,
		Name:       record.Name,
		LLMModel:   record.LLMModel,
		BasePrompt: record.BasePrompt,
		CreatedAt:  record.CreatedAt,
	}
}
