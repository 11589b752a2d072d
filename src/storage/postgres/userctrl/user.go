package userctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teamwiki/src/core/auth"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	TeamID       string `gorm:"index"`
	IsActive     bool   `gorm:"default:true"`
	CreatedAt    time.Time
}

type Role struct {
	Code string `gorm:"primaryKey"`
}

type UserRole struct {
	UserID   string `gorm:"primaryKey"`
	RoleCode string `gorm:"primaryKey"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&User{}, &Role{}, &UserRole{}); err != nil {
		return nil, fmt.Errorf("failed to migrate user tables: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, user *auth.User) error {
	record := User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		TeamID:       user.TeamID,
		IsActive:     user.IsActive,
	}

	result := r.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to create user: %v", result.Error)
	}
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	var record User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %v", result.Error)
	}

	user := toDomain(&record)
	return &user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	var record User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %v", result.Error)
	}

	user := toDomain(&record)
	return &user, nil
}

func (r *Repository) List(ctx context.Context) ([]auth.User, error) {
	var records []User
	result := r.db.WithContext(ctx).Order("created_at").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list users: %v", result.Error)
	}

	users := make([]auth.User, 0, len(records))
	for i := range records {
		users = append(users, toDomain(&records[i]))
	}
	return users, nil
}

func (r *Repository) SetActiveTeam(ctx context.Context, userID, teamID string) error {
	result := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Update("team_id", teamID)
	if result.Error != nil {
		return fmt.Errorf("failed to set active team: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// FindIDByEmail implements wiki.UserDirectory for team invitations
func (r *Repository) FindIDByEmail(ctx context.Context, email string) (string, error) {
	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (r *Repository) EnsureRoles(ctx context.Context, codes []string) error {
	for _, code := range codes {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Role{Code: code})
		if result.Error != nil {
			return fmt.Errorf("failed to ensure role %s: %v", code, result.Error)
		}
	}
	return nil
}

func (r *Repository) RolesOf(ctx context.Context, userID string) ([]string, error) {
	var records []UserRole
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load user roles: %v", result.Error)
	}

	roles := make([]string, 0, len(records))
	for _, record := range records {
		roles = append(roles, record.RoleCode)
	}
	return roles, nil
}

func (r *Repository) GrantRole(ctx context.Context, userID, code string) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRole{UserID: userID, RoleCode: code})
	if result.Error != nil {
		return fmt.Errorf("failed to grant role: %v", result.Error)
	}
	return nil
}

func (r *Repository) RevokeRole(ctx context.Context, userID, code string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND role_code = ?", userID, code).
		Delete(&UserRole{})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke role: %v", result.Error)
	}
	return nil
}

func toDomain(record *User) auth.User {
	return auth.User{
		ID:           record.ID,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		TeamID:       record.TeamID,
		IsActive:     record.IsActive,
		CreatedAt:    record.CreatedAt,
	}
}
