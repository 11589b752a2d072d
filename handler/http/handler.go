package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamwiki/src/core/auth"
	"teamwiki/src/core/search"
	"teamwiki/src/core/wiki"
	"teamwiki/src/storage/minioctrl"
)

type Handler struct {
	authService    *auth.Service
	articleService *wiki.ArticleService
	groupService   *wiki.GroupService
	teamService    *wiki.TeamService
	searchService  *search.Service
	attachments    *minioctrl.MinioService
}

func NewHandler(
	authService *auth.Service,
	articleService *wiki.ArticleService,
	groupService *wiki.GroupService,
	teamService *wiki.TeamService,
	searchService *search.Service,
	attachments *minioctrl.MinioService,
) *Handler {
	return &Handler{
		authService:    authService,
		articleService: articleService,
		groupService:   groupService,
		teamService:    teamService,
		searchService:  searchService,
		attachments:    attachments,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)

	authed := r.Group("/", h.authenticate)

	authed.GET("/auth/me", h.Me)

	reader := authed.Group("/", h.requireRole(auth.RoleReader))
	author := authed.Group("/", h.requireRole(auth.RoleAuthor))
	admin := authed.Group("/", h.requireRole(auth.RoleAdmin))

	// Article routes
	reader.GET("/articles/", h.ListArticles)
	reader.GET("/articles/:id", h.GetArticle)
	reader.GET("/articles/:id/history", h.ArticleHistory)
	reader.GET("/articles/:id/related", h.RelatedArticles)
	reader.GET("/articles/:id/attachments", h.ListAttachments)
	author.POST("/articles/", h.CreateArticle)
	author.PUT("/articles/:id", h.UpdateArticle)
	author.DELETE("/articles/:id", h.DeleteArticle)
	author.POST("/articles/:id/attachments", h.UploadAttachment)
	reader.GET("/articles/:id/attachments/:name", h.DownloadAttachment)
	author.DELETE("/articles/:id/attachments/:name", h.DeleteAttachment)

	// Search routes
	reader.POST("/search", h.Search)
	reader.POST("/search/answer", h.SearchAnswer)

	// Group routes
	reader.GET("/article-groups/flat", h.ListGroupsFlat)
	admin.POST("/article-groups", h.CreateGroup)

	// Team routes
	authed.POST("/teams", h.CreateTeam)
	authed.POST("/teams/:id/switch", h.SwitchTeam)
	authed.POST("/teams/:id/invite", h.InviteToTeam)
	admin.PUT("/team/settings", h.UpdateTeamSettings)

	// Admin routes
	admin.GET("/admin/users", h.ListUsers)
	admin.GET("/admin/teams", h.ListTeams)
	admin.POST("/admin/users/:id/roles", h.GrantRole)
	admin.DELETE("/admin/users/:id/roles/:code", h.RevokeRole)
}

// Common error response structure
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, wiki.ErrArticleNotFound),
		errors.Is(err, wiki.ErrGroupNotFound),
		errors.Is(err, wiki.ErrTeamNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken):
		code = "EMAIL_TAKEN"
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		code = "UNAUTHORIZED"
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrTooManyAttempts):
		code = "TOO_MANY_ATTEMPTS"
		status = http.StatusTooManyRequests
	case errors.Is(err, wiki.ErrNotTeamMember):
		code = "FORBIDDEN"
		status = http.StatusForbidden
	case errors.Is(err, search.ErrEmbeddingProvider), errors.Is(err, search.ErrIndexUnavailable):
		code = "SERVICE_UNAVAILABLE"
		status = http.StatusServiceUnavailable
	default:
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code = "INTERNAL_ERROR"
		if status == http.StatusBadRequest {
			code = "BAD_REQUEST"
		}
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

const (
	contextUserKey  = "user"
	contextRolesKey = "roles"
)

// authenticate resolves the bearer token into a user and role set
func (h *Handler) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "missing bearer token",
		})
		return
	}

	user, roles, err := h.authService.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "could not validate credentials",
		})
		return
	}

	c.Set(contextUserKey, user)
	c.Set(contextRolesKey, roles)
	c.Next()
}

func (h *Handler) requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, _ := c.Get(contextRolesKey)
		roleSet, _ := roles.([]string)
		if !auth.HasRole(roleSet, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Code:    "FORBIDDEN",
				Message: "not enough permissions",
			})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *auth.User {
	v, _ := c.Get(contextUserKey)
	user, _ := v.(*auth.User)
	return user
}
