package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type userResponse struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	TeamID string   `json:"team_id"`
	Roles  []string `json:"roles,omitempty"`
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	user, tokens, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusCreated, authResponse{
		User:         userResponse{ID: user.ID, Email: user.Email, TeamID: user.TeamID},
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	user, tokens, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, authResponse{
		User:         userResponse{ID: user.ID, Email: user.Email, TeamID: user.TeamID},
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, tokens)
}

func (h *Handler) Me(c *gin.Context) {
	user := currentUser(c)
	rolesValue, _ := c.Get(contextRolesKey)
	roles, _ := rolesValue.([]string)

	sendJSON(c, http.StatusOK, userResponse{
		ID:     user.ID,
		Email:  user.Email,
		TeamID: user.TeamID,
		Roles:  roles,
	})
}
