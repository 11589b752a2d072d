package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"teamwiki/src/core/wiki"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

type groupInput struct {
	Name           string `json:"name" binding:"required"`
	ParentID       string `json:"parent_id"`
	PromptTemplate string `json:"prompt_template"`
	SortOrder      int    `json:"sort_order"`
}

type articleRequest struct {
	Title    string      `json:"title" binding:"required"`
	Content  string      `json:"content" binding:"required"`
	Tags     []string    `json:"tags"`
	GroupID  string      `json:"group_id"`
	NewGroup *groupInput `json:"new_group"`
}

type articleResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	GroupID   string    `json:"group_id,omitempty"`
	TeamID    string    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type articleVersionResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

func toArticleResponse(a *wiki.Article) articleResponse {
	return articleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Tags:      a.Tags,
		GroupID:   a.GroupID,
		TeamID:    a.TeamID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (r articleRequest) toInput() wiki.ArticleInput {
	input := wiki.ArticleInput{
		Title:   r.Title,
		Content: r.Content,
		Tags:    r.Tags,
		GroupID: r.GroupID,
	}
	if r.NewGroup != nil {
		input.NewGroup = &wiki.GroupInput{
			Name:           r.NewGroup.Name,
			ParentID:       r.NewGroup.ParentID,
			PromptTemplate: r.NewGroup.PromptTemplate,
			SortOrder:      r.NewGroup.SortOrder,
		}
	}
	return input
}

func (h *Handler) CreateArticle(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	article, err := h.articleService.Create(c.Request.Context(), currentUser(c).TeamID, req.toInput())
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusCreated, toArticleResponse(article))
}

func (h *Handler) UpdateArticle(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	article, err := h.articleService.Update(c.Request.Context(), c.Param("id"), currentUser(c).TeamID, req.toInput())
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, toArticleResponse(article))
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, err := h.articleService.Get(c.Request.Context(), c.Param("id"), currentUser(c).TeamID)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, toArticleResponse(article))
}

func (h *Handler) ListArticles(c *gin.Context) {
	articles, err := h.articleService.List(c.Request.Context(), currentUser(c).TeamID)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	out := make([]articleResponse, 0, len(articles))
	for i := range articles {
		out = append(out, toArticleResponse(&articles[i]))
	}

	sendJSON(c, http.StatusOK, gin.H{"articles": out})
}

func (h *Handler) DeleteArticle(c *gin.Context) {
	if err := h.articleService.Delete(c.Request.Context(), c.Param("id"), currentUser(c).TeamID); err != nil {
		sendError(c, 0, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ArticleHistory(c *gin.Context) {
	versions, err := h.articleService.History(c.Request.Context(), c.Param("id"), currentUser(c).TeamID)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	out := make([]articleVersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, articleVersionResponse{
			ID:        v.ID,
			Title:     v.Title,
			Content:   v.Content,
			Tags:      v.Tags,
			CreatedAt: v.CreatedAt,
		})
	}

	sendJSON(c, http.StatusOK, gin.H{"versions": out})
}

func (h *Handler) RelatedArticles(c *gin.Context) {
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			sendError(c, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = parsed
	}

	hits, err := h.searchService.Related(c.Request.Context(), c.Param("id"), currentUser(c).TeamID, limit)
	if err != nil {
		sendError(c, 0, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{"related": hits})
}
