package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "docshare-backend/internal/auth"
	"docshare-backend/internal/ingest"
	"docshare-backend/internal/moderation"
	"docshare-backend/internal/reviewers"
	"docshare-backend/internal/services/health"
	"docshare-backend/internal/shared/config"
	"docshare-backend/internal/shared/metrics"
	"docshare-backend/internal/shared/server/middleware"
	localstore "docshare-backend/internal/shared/storage/object/local"
)

// RouterDeps carries handlers and shared services used by the router.
type RouterDeps struct {
	Config            config.Config
	Verifier          middleware.TokenVerifier
	Health            *health.Service
	IngestHandler     *ingest.Handler
	ModerationHandler *moderation.Handler
	ReviewerHandler   *reviewers.Handler
	GoogleAuth        *googleauth.GoogleService
	LocalFiles        *localstore.Store
	RateLimiter       *middleware.RateLimiter
}

var defaultRateRules = map[string]middleware.RateLimitRule{
	middleware.RateGroupWebhook: {Rate: 1, Burst: 10},
	middleware.RateGroupPublic:  {Rate: 10, Burst: 40},
}

var reviewerRateRules = map[string]middleware.RateLimitRule{
	middleware.RateGroupReviewer: {Rate: 5, Burst: 30},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter(nil)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    defaultRateRules,
			GroupFor: rateGroup,
			Limiter:  deps.RateLimiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(api)
	}
	if deps.IngestHandler != nil {
		deps.IngestHandler.RegisterRoutes(api)
	}
	if deps.ModerationHandler != nil {
		deps.ModerationHandler.RegisterPublicRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.LocalFiles != nil {
		deps.LocalFiles.RegisterRoutes(api)
	}

	if deps.Verifier != nil {
		gated := api.Group("")
		gated.Use(
			middleware.RequireReviewer(deps.Verifier, deps.Config.CookieSecure),
			middleware.RateLimit(middleware.RateLimitConfig{
				Rules:        reviewerRateRules,
				DefaultGroup: middleware.RateGroupReviewer,
				Limiter:      deps.RateLimiter,
			}),
		)
		if deps.ReviewerHandler != nil {
			deps.ReviewerHandler.RegisterRoutes(gated)
		}
		if deps.ModerationHandler != nil {
			deps.ModerationHandler.RegisterAdminRoutes(gated)
		}
	}

	return r
}

func rateGroup(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	switch {
	case strings.HasPrefix(path, "/api/v1/webhook/"):
		return middleware.RateGroupWebhook
	case strings.HasPrefix(path, "/api/v1/articles"):
		return middleware.RateGroupPublic
	default:
		return middleware.RateGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
