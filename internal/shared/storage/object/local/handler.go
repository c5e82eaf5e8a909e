package local

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docshare-backend/internal/shared/server/respond"
	"docshare-backend/internal/shared/storage/object"
)

// RegisterRoutes serves signed file URLs. rg must be mounted at /api/v1.
func (s *Store) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files/*key", s.serve)
}

func (s *Store) serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !s.Verify(key, c.Query("expires"), c.Query("sig")) {
		respond.Error(c, http.StatusForbidden, "forbidden", "link expired or invalid", nil)
		return
	}

	body, contentType, err := s.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open file", nil)
		return
	}
	defer body.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}
