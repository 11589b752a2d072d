package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamwiki/src/core/search"
)

type searchRequest struct {
	Query   string   `json:"query" binding:"required"`
	Tags    []string `json:"tags"`
	GroupID string   `json:"group_id"`
	TopK    int      `json:"top_k"`
}

func (r searchRequest) toRequest(teamID string) search.Request {
	return search.Request{
		Query:   r.Query,
		Tags:    r.Tags,
		GroupID: r.GroupID,
		TopK:    r.TopK,
		TeamID:  teamID,
	}
}

func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	hits, err := h.searchService.Search(c.Request.Context(), req.toRequest(currentUser(c).TeamID))
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{"results": hits})
}

func (h *Handler) SearchAnswer(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	answer, err := h.searchService.Answer(c.Request.Context(), req.toRequest(currentUser(c).TeamID))
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, answer)
}
