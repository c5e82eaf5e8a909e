package reviewers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docshare-backend/internal/shared/server/middleware"
	"docshare-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches /me. rg must already be behind the reviewer gate.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	id := middleware.ReviewerFromContext(c)
	resp := gin.H{
		"email":   id.Email,
		"name":    id.Name,
		"picture": id.Picture,
		"role":    "reviewer",
	}
	if h.Svc == nil {
		respond.OK(c, resp)
		return
	}

	rev, err := h.Svc.Get(c.Request.Context(), id.Email)
	switch {
	case err == nil:
		resp["first_login_at"] = rev.FirstLoginAt
		resp["last_login_at"] = rev.LastLoginAt
	case errors.Is(err, ErrNotFound):
		// Credential predates the login audit; the token alone is authoritative.
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load reviewer", nil)
		return
	}
	respond.OK(c, resp)
}
