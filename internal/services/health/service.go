package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docshare-backend/internal/shared/server/respond"
	"docshare-backend/internal/shared/telemetry"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB      Pinger
	Timeout time.Duration
}

// NewService constructs a new health service. A nil db reports the in-memory backend.
func NewService(db Pinger) *Service {
	return &Service{DB: db, Timeout: defaultPingTimeout}
}

// Status pings the database when one is configured.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	if s.DB == nil {
		return map[string]any{"ok": true, "database": "memory"}, true
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		telemetry.Error("health.db_ping_failed", map[string]any{"error": err.Error()})
		return map[string]any{"ok": false, "database": "down"}, false
	}
	return map[string]any{"ok": true, "database": "up"}, true
}

// RegisterRoutes attaches /health.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		status, ok := s.Status(c.Request.Context())
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
}
