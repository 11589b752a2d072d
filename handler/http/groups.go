package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamwiki/src/core/wiki"
)

type groupResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ParentID       string    `json:"parent_id,omitempty"`
	PromptTemplate string    `json:"prompt_template,omitempty"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

type flatGroupResponse struct {
	groupResponse
	Depth int `json:"depth"`
}

func toGroupResponse(g *wiki.Group) groupResponse {
	return groupResponse{
		ID:             g.ID,
		Name:           g.Name,
		ParentID:       g.ParentID,
		PromptTemplate: g.PromptTemplate,
		SortOrder:      g.SortOrder,
		CreatedAt:      g.CreatedAt,
	}
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req groupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	group, err := h.groupService.Create(c.Request.Context(), wiki.GroupInput{
		Name:           req.Name,
		ParentID:       req.ParentID,
		PromptTemplate: req.PromptTemplate,
		SortOrder:      req.SortOrder,
	})
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusCreated, toGroupResponse(group))
}

// ListGroupsFlat returns the group tree flattened depth-first, each entry
// annotated with its depth for indentation in clients.
func (h *Handler) ListGroupsFlat(c *gin.Context) {
	groups, err := h.groupService.ListFlat(c.Request.Context())
	if err != nil {
		sendError(c, 0, err)
		return
	}

	out := make([]flatGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, flatGroupResponse{
			groupResponse: toGroupResponse(&g.Group),
			Depth:         g.Depth,
		})
	}

	sendJSON(c, http.StatusOK, gin.H{"groups": out})
}
