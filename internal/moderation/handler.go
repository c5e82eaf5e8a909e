package moderation

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docshare-backend/internal/shared/server/middleware"
	"docshare-backend/internal/shared/server/respond"
	"docshare-backend/internal/submissions"
)

const (
	defaultAdminLimit = 50
	maxAdminLimit     = 500
	maxPublicLimit    = 100
)

// Handler wires moderation and public listing routes to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterAdminRoutes attaches reviewer routes. rg must already be behind the reviewer gate.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/admin/submissions", h.list)
	rg.GET("/admin/stats", h.stats)
	rg.PATCH("/admin/submissions/visibility", h.setVisibilityBulk)
	rg.PATCH("/admin/submissions/:id/visibility", h.setVisibility)
	rg.DELETE("/admin/submissions/:id", h.remove)
	rg.GET("/admin/submissions/:id/preview", h.reviewerPreview)
}

// RegisterPublicRoutes attaches the unauthenticated read routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/articles", h.listPublic)
	rg.GET("/articles/:id/preview", h.publicPreview)
}

func (h *Handler) list(c *gin.Context) {
	var f submissions.Filter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		v, ok := submissions.ParseVisibility(raw)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "status must be one of pending, public, private", nil)
			return
		}
		f.Visibility = v
	}
	f.Search = strings.TrimSpace(c.Query("search"))
	f.Tag = strings.TrimSpace(c.Query("tag"))

	page := submissions.Page{
		Limit:  queryInt(c, "limit", defaultAdminLimit, maxAdminLimit),
		Offset: queryInt(c, "offset", 0, -1),
	}
	res, err := h.Svc.List(c.Request.Context(), f, page)
	if err != nil {
		h.fail(c, err, "failed to list submissions")
		return
	}
	respond.OK(c, toPage(res, toSubmissionResponse))
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to load stats")
		return
	}
	respond.OK(c, st)
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

func (h *Handler) setVisibility(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	v, valid := submissions.ParseVisibility(req.Visibility)
	if !valid {
		respond.Error(c, http.StatusBadRequest, "validation_error", "visibility must be one of pending, public, private", nil)
		return
	}

	c.Set(middleware.SubmissionIDKey, id)
	updated, err := h.Svc.SetVisibility(c.Request.Context(), id, v, reviewer(c))
	if err != nil {
		h.fail(c, err, "failed to update visibility")
		return
	}
	c.Set(middleware.VisibilityChangeKey, "->"+string(v))
	respond.OK(c, toSubmissionResponse(updated))
}

type bulkVisibilityRequest struct {
	IDs        []int64 `json:"ids"`
	Visibility string  `json:"visibility"`
}

func (h *Handler) setVisibilityBulk(c *gin.Context) {
	var req bulkVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	v, _ := submissions.ParseVisibility(req.Visibility)

	n, err := h.Svc.SetVisibilityBulk(c.Request.Context(), req.IDs, v, reviewer(c))
	if err != nil {
		h.fail(c, err, "failed to update visibility")
		return
	}
	c.Set(middleware.VisibilityChangeKey, "->"+string(v))
	respond.OK(c, gin.H{"updated": n})
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	c.Set(middleware.SubmissionIDKey, id)
	removed, err := h.Svc.Remove(c.Request.Context(), id, reviewer(c))
	if err != nil {
		h.fail(c, err, "failed to delete submission")
		return
	}
	respond.OK(c, gin.H{
		"success":      true,
		"id":           removed.ID,
		"title":        removed.Title,
		"file_deleted": removed.FileDeleted,
	})
}

func (h *Handler) reviewerPreview(c *gin.Context) {
	h.preview(c, RequesterReviewer)
}

func (h *Handler) publicPreview(c *gin.Context) {
	h.preview(c, RequesterPublic)
}

func (h *Handler) preview(c *gin.Context, who Requester) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	c.Set(middleware.SubmissionIDKey, id)
	link, err := h.Svc.IssuePreviewLink(c.Request.Context(), id, who)
	if err != nil {
		h.fail(c, err, "failed to issue preview link")
		return
	}
	respond.OK(c, toLinkResponse(link))
}

func (h *Handler) listPublic(c *gin.Context) {
	q := PublicQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Tag:    strings.TrimSpace(c.Query("tag")),
		Limit:  queryInt(c, "limit", 0, maxPublicLimit),
		Offset: queryInt(c, "offset", 0, -1),
	}
	res, err := h.Svc.ListPublic(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err, "failed to list articles")
		return
	}
	respond.OK(c, toPage(res, toArticleResponse))
}

func (h *Handler) fail(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "submission not found", nil)
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, submissions.ErrInvalidVisibility):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", internalMsg, nil)
	}
}

func reviewer(c *gin.Context) submissions.Reviewer {
	id := middleware.ReviewerFromContext(c)
	return submissions.Reviewer{Email: id.Email, Name: id.Name}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// queryInt reads a non-negative integer parameter. upper < 0 disables the cap.
func queryInt(c *gin.Context, name string, def, upper int) int {
	v := def
	if raw := c.Query(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			v = parsed
		}
	}
	if v < 0 {
		v = 0
	}
	if upper >= 0 && v > upper {
		v = upper
	}
	return v
}
