package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamwiki/src/core/wiki"
)

type createTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

type inviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type teamSettingsRequest struct {
	LLMModel   string `json:"llm_model"`
	BasePrompt string `json:"base_prompt"`
}

type teamResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LLMModel   string    `json:"llm_model,omitempty"`
	BasePrompt string    `json:"base_prompt,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTeamResponse(t *wiki.Team) teamResponse {
	return teamResponse{
		ID:         t.ID,
		Name:       t.Name,
		LLMModel:   t.LLMModel,
		BasePrompt: t.BasePrompt,
		CreatedAt:  t.CreatedAt,
	}
}

func (h *Handler) CreateTeam(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), req.Name, currentUser(c).ID)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusCreated, toTeamResponse(team))
}

func (h *Handler) SwitchTeam(c *gin.Context) {
	teamID := c.Param("id")
	if err := h.teamService.Switch(c.Request.Context(), currentUser(c).ID, teamID); err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{"team_id": teamID})
}

func (h *Handler) InviteToTeam(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.teamService.Invite(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.Email); err != nil {
		sendError(c, 0, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateTeamSettings changes the active team's completion model and base
// answer prompt used by the retrieval pipeline.
func (h *Handler) UpdateTeamSettings(c *gin.Context) {
	var req teamSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	teamID := currentUser(c).TeamID
	if err := h.teamService.UpdateSettings(c.Request.Context(), teamID, req.LLMModel, req.BasePrompt); err != nil {
		sendError(c, 0, err)
		return
	}

	team, err := h.teamService.Get(c.Request.Context(), teamID)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, toTeamResponse(team))
}
