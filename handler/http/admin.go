package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type grantRoleRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.authService.Users().List(c.Request.Context())
	if err != nil {
		sendError(c, 0, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		roles, err := h.authService.Users().RolesOf(c.Request.Context(), u.ID)
		if err != nil {
			sendError(c, 0, err)
			return
		}
		out = append(out, userResponse{
			ID:     u.ID,
			Email:  u.Email,
			TeamID: u.TeamID,
			Roles:  roles,
		})
	}

	sendJSON(c, http.StatusOK, gin.H{"users": out})
}

func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := h.teamService.List(c.Request.Context())
	if err != nil {
		sendError(c, 0, err)
		return
	}

	out := make([]teamResponse, 0, len(teams))
	for i := range teams {
		out = append(out, toTeamResponse(&teams[i]))
	}

	sendJSON(c, http.StatusOK, gin.H{"teams": out})
}

func (h *Handler) GrantRole(c *gin.Context) {
	var req grantRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.authService.Users().GrantRole(c.Request.Context(), c.Param("id"), req.Code); err != nil {
		sendError(c, 0, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RevokeRole(c *gin.Context) {
	if err := h.authService.Users().RevokeRole(c.Request.Context(), c.Param("id"), c.Param("code")); err != nil {
		sendError(c, 0, err)
		return
	}

	c.Status(http.StatusNoContent)
}
