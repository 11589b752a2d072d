package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"teamwiki/src/core/wiki"
	"teamwiki/src/infrastructure/log"
)

const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
	RoleReader = "reader"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// User is an authenticated principal. TeamID is the active team; membership
// in other teams lives in the team store.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	TeamID       string
	IsActive     bool
	CreatedAt    time.Time
}

// UserRepository persists users and their role grants
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	SetActiveTeam(ctx context.Context, userID, teamID string) error

	EnsureRoles(ctx context.Context, codes []string) error
	RolesOf(ctx context.Context, userID string) ([]string, error)
	GrantRole(ctx context.Context, userID, code string) error
	RevokeRole(ctx context.Context, userID, code string) error
}

// TeamBootstrapper creates the personal team every new user starts in
type TeamBootstrapper interface {
	Create(ctx context.Context, name, creatorID string) (*wiki.Team, error)
}

// TokenPair is one access/refresh token issuance
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service implements registration, login and token verification
type Service struct {
	users      UserRepository
	teams      TeamBootstrapper
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	limiter    *LoginLimiter
}

func NewService(users UserRepository, teams TeamBootstrapper, secret string, accessTTL, refreshTTL time.Duration, limiter *LoginLimiter) *Service {
	return &Service{
		users:      users,
		teams:      teams,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		limiter:    limiter,
	}
}

// EnsureRoles seeds the role table. Called once at startup.
func (s *Service) EnsureRoles(ctx context.Context) error {
	return s.users.EnsureRoles(ctx, []string{RoleAdmin, RoleAuthor, RoleReader})
}

// Register creates a user with reader and author roles plus a personal team
// the user immediately switches into.
func (s *Service) Register(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range []string{RoleReader, RoleAuthor} {
		if err := s.users.GrantRole(ctx, user.ID, role); err != nil {
			log.Error(err, "failed to grant role on registration", "user_id", user.ID, "role", role)
		}
	}

	team, err := s.teams.Create(ctx, "Personal: "+email, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create personal team: %w", err)
	}
	user.TeamID = team.ID

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Login verifies credentials under the per-email rate limiter
func (s *Service) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	if s.limiter != nil && !s.limiter.Allow(email) {
		return nil, nil, ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidToken
	}

	return s.issueTokens(user.ID)
}

// Authenticate resolves an access token into the user and their role set
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, []string, error) {
	userID, err := s.parseToken(accessToken, "access")
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, nil, ErrInvalidToken
	}

	roles, err := s.users.RolesOf(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load roles: %w", err)
	}

	return user, roles, nil
}

func (s *Service) Users() UserRepository {
	return s.users
}

type claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

func (s *Service) issueTokens(userID string) (*TokenPair, error) {
	access, err := s.signToken(userID, "access", s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(userID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) signToken(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) parseToken(tokenString, wantType string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if c.TokenType != wantType || c.Subject == "" {
		return "", ErrInvalidToken
	}

	return c.Subject, nil
}

// HasRole reports whether the role set satisfies the requirement. Admin
// passes every check.
func HasRole(roles []string, required string) bool {
	for _, r := range roles {
		if r == RoleAdmin || r == required {
			return true
		}
	}
	return false
}
