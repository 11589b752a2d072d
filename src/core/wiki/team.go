package wiki

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// TeamService manages teams, membership and the per-team LLM settings
type TeamService struct {
	teams TeamRepository
	users UserDirectory
}

func NewTeamService(teams TeamRepository, users UserDirectory) *TeamService {
	return &TeamService{
		teams: teams,
		users: users,
	}
}

// Create creates a team, adds the creator as a member and makes it the
// creator's active team.
func (s *TeamService) Create(ctx context.Context, name, creatorID string) (*Team, error) {
	team := &Team{
		ID:   uuid.New().String(),
		Name: name,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	if err := s.teams.AddMember(ctx, team.ID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to add creator to team: %w", err)
	}
	if err := s.users.SetActiveTeam(ctx, creatorID, team.ID); err != nil {
		return nil, fmt.Errorf("failed to switch creator to new team: %w", err)
	}

	return team, nil
}

// Switch changes the caller's active team. Membership is required.
func (s *TeamService) Switch(ctx context.Context, userID, teamID string) error {
	if _, err := s.teams.Get(ctx, teamID); err != nil {
		return err
	}

	member, err := s.teams.IsMember(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to check team membership: %w", err)
	}
	if !member {
		return ErrNotTeamMember
	}

	return s.users.SetActiveTeam(ctx, userID, teamID)
}

// Invite adds the user with the given email to the team. The inviter must
// already be a member.
func (s *TeamService) Invite(ctx context.Context, inviterID, teamID, email string) error {
	member, err := s.teams.IsMember(ctx, teamID, inviterID)
	if err != nil {
		return fmt.Errorf("failed to check team membership: %w", err)
	}
	if !member {
		return ErrNotTeamMember
	}

	userID, err := s.users.FindIDByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.teams.AddMember(ctx, teamID, userID)
}

func (s *TeamService) Get(ctx context.Context, id string) (*Team, error) {
	return s.teams.Get(ctx, id)
}

func (s *TeamService) List(ctx context.Context) ([]Team, error) {
	return s.teams.List(ctx)
}

// UpdateSettings sets the team's LLM model and base answer prompt
func (s *TeamService) UpdateSettings(ctx context.Context, teamID, llmModel, basePrompt string) error {
	if _, err := s.teams.Get(ctx, teamID); err != nil {
		return err
	}
	return s.teams.UpdateSettings(ctx, teamID, llmModel, basePrompt)
}
