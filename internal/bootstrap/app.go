package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "docshare-backend/internal/auth"
	"docshare-backend/internal/ingest"
	"docshare-backend/internal/moderation"
	"docshare-backend/internal/queue"
	"docshare-backend/internal/reviewers"
	"docshare-backend/internal/services/health"
	sharedauth "docshare-backend/internal/shared/auth"
	"docshare-backend/internal/shared/config"
	"docshare-backend/internal/shared/server"
	"docshare-backend/internal/shared/server/middleware"
	"docshare-backend/internal/shared/storage/db"
	"docshare-backend/internal/shared/storage/object"
	localstore "docshare-backend/internal/shared/storage/object/local"
	s3store "docshare-backend/internal/shared/storage/object/s3"
	"docshare-backend/internal/shared/telemetry"
	"docshare-backend/internal/submissions"
	"docshare-backend/internal/workerproc"
)

const (
	devJWTSecret  = "dev-only-reviewer-secret"
	devSigningKey = "dev-only-signing-key"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Store             object.ObjectStore
	Queue             queue.Client
	Issuer            *sharedauth.Issuer
	SubmissionsRepo   submissions.Repo
	ReviewersRepo     reviewers.Repo
	Reconciler        ingest.Reconciler
	IngestService     *ingest.Service
	ModerationService *moderation.Service
	ReviewersService  *reviewers.Service
	Sweeper           *workerproc.Sweeper
	GoogleAuth        *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	issuer, err := buildIssuer(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Issuer: issuer,
	}
	buildServices(app)
	app.Router = server.NewRouter(app.routerDeps())
	return app, nil
}

// Close releases the database pool when one was opened outside the Lambda singleton.
func (a *App) Close() {
	if a == nil || a.DB == nil || db.IsLambdaRuntime() {
		return
	}
	_ = a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		key := cfg.LocalSigningKey
		if key == "" {
			if !config.IsDevLike(cfg.Env) {
				return nil, fmt.Errorf("LOCAL_SIGNING_KEY is required for the local object store outside dev")
			}
			telemetry.Warn("bootstrap.dev_signing_key", nil)
			key = devSigningKey
		}
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL, key), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.OrphanQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.OrphanQueueURL)
}

func buildIssuer(cfg config.Config) (*sharedauth.Issuer, error) {
	secret := cfg.JWTSecret
	if secret == "" && config.IsDevLike(cfg.Env) {
		telemetry.Warn("bootstrap.dev_jwt_secret", nil)
		secret = devJWTSecret
	}
	issuer, err := sharedauth.NewIssuer(secret, sharedauth.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}
	return issuer, nil
}

func buildServices(app *App) {
	if app.DB != nil {
		app.SubmissionsRepo = &submissions.PGRepo{DB: app.DB}
		app.ReviewersRepo = &reviewers.PGRepo{DB: app.DB}
	} else {
		app.SubmissionsRepo = submissions.NewMemoryRepo()
		app.ReviewersRepo = reviewers.NewMemoryRepo()
	}

	app.Reconciler = buildReconciler(app.Store, app.Queue)
	app.IngestService = ingest.NewService(app.Store, app.SubmissionsRepo, app.Reconciler)
	app.ModerationService = moderation.NewService(app.SubmissionsRepo, app.Store)
	app.ReviewersService = reviewers.NewService(app.ReviewersRepo)
	app.Sweeper = &workerproc.Sweeper{Store: app.Store, Repo: app.SubmissionsRepo}
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     app.Config.GoogleClientID,
		ClientSecret: app.Config.GoogleClientSecret,
		RedirectURL:  app.Config.GoogleRedirectURL,
		UIRedirect:   app.Config.UIRedirectURL,
		AllowEmails:  app.Config.ReviewerEmails,
		SecureCookie: app.Config.CookieSecure,
	}, app.Issuer, app.ReviewersService)
}

// buildReconciler deletes orphans immediately and falls back to the sweep queue, or to a log
// line when no queue is configured.
func buildReconciler(store object.ObjectStore, q queue.Client) ingest.Reconciler {
	var fallback ingest.Reconciler = ingest.LogReconciler{}
	if q != nil {
		fallback = ingest.QueueReconciler{Queue: q}
	}
	return ingest.CompensatingReconciler{Store: store, Fallback: fallback}
}

func (a *App) routerDeps() server.RouterDeps {
	var pinger health.Pinger
	if a.DB != nil {
		pinger = a.DB
	}
	var localFiles *localstore.Store
	if ls, ok := a.Store.(*localstore.Store); ok {
		localFiles = ls
	}
	return server.RouterDeps{
		Config:            a.Config,
		Verifier:          a.Issuer,
		Health:            health.NewService(pinger),
		IngestHandler:     ingest.NewHandler(a.IngestService, a.Config.WebhookSecret),
		ModerationHandler: moderation.NewHandler(a.ModerationService),
		ReviewerHandler:   reviewers.NewHandler(a.ReviewersService),
		GoogleAuth:        a.GoogleAuth,
		LocalFiles:        localFiles,
		RateLimiter:       middleware.NewRateLimiter(nil),
	}
}
