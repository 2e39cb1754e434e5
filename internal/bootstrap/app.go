package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"signflow-backend/internal/documents"
	"signflow-backend/internal/queue"
	"signflow-backend/internal/render"
	"signflow-backend/internal/shared/config"
	"signflow-backend/internal/shared/lock"
	"signflow-backend/internal/shared/server"
	"signflow-backend/internal/shared/storage/db"
	"signflow-backend/internal/shared/storage/object"
	localstore "signflow-backend/internal/shared/storage/object/local"
	miniostore "signflow-backend/internal/shared/storage/object/minio"
	s3store "signflow-backend/internal/shared/storage/object/s3"
	"signflow-backend/internal/shared/telemetry"
	"signflow-backend/internal/signing"
	"signflow-backend/internal/signing/provider"
	"signflow-backend/internal/templates"
)

const (
	rendererAuthor = "signflow"
	lockPrefix     = "signflow:lock:"
)

// App holds shared dependencies.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Redis            *redis.Client
	Store            object.ObjectStore
	Locker           lock.Locker
	Queue            queue.Client
	SQS              *queue.SQSClient
	Provider         provider.Client
	Catalog          *templates.Catalog
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	SigningService   *signing.Service
	Processor        *signing.Processor
	DocumentsHandler *documents.Handler
	SigningHandler   *signing.Handler
	ArtifactHandler  *signing.ArtifactHandler
}

// Build prepares shared dependencies and the router.
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

	redisClient, locker, err := buildLocker(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sqsClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signingProvider, err := buildProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Redis:    redisClient,
		Store:    store,
		Locker:   locker,
		SQS:      sqsClient,
		Provider: signingProvider,
		Catalog:  catalog,
	}
	if sqsClient != nil {
		app.Queue = sqsClient
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	deps := server.RouterDeps{
		Config:           app.Config,
		DocumentsHandler: app.DocumentsHandler,
		SigningHandler:   app.SigningHandler,
		Ready:            app.Ready,
	}
	if app.ArtifactHandler != nil {
		deps.ArtifactHandler = app.ArtifactHandler
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

// Ready reports whether the backing services answer.
func (a *App) Ready(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases connections.
func (a *App) Close() error {
	var errs []error
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	}
}

func buildLocker(ctx context.Context, cfg config.Config) (*redis.Client, lock.Locker, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, lock.NewMemoryLocker(), nil
	}
	client, err := lock.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_locker", map[string]any{"reason": "redis ping failed", "error": err.Error()})
			return nil, lock.NewMemoryLocker(), nil
		}
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, lock.NewRedisLocker(client, lockPrefix), nil
}

func buildQueue(ctx context.Context, cfg config.Config) (*queue.SQSClient, error) {
	if cfg.SQSQueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
}

func buildProvider(ctx context.Context, cfg config.Config) (provider.Client, error) {
	if cfg.Signing.APIBaseURL == "" {
		if !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("SIGNING_API_BASE_URL is required")
		}
		telemetry.Warn("bootstrap.sandbox_provider", map[string]any{"reason": "SIGNING_API_BASE_URL empty"})
		return provider.NewSandbox(), nil
	}
	return provider.NewHTTPClient(ctx, provider.HTTPConfig{
		BaseURL:      cfg.Signing.APIBaseURL,
		APIKey:       cfg.Signing.APIKey,
		APIKeyHeader: cfg.Signing.APIKeyHeader,
		TokenURL:     cfg.Signing.OAuthTokenURL,
		ClientID:     cfg.Signing.OAuthClientID,
		ClientSecret: cfg.Signing.OAuthClientSecret,
		Timeout:      cfg.Signing.Timeout,
		TestMode:     cfg.Signing.TestMode,
	})
}

func buildServices(app *App) error {
	var docRepo documents.Repo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
	}

	renderer := render.NewPDFRenderer(rendererAuthor)
	docSvc := &documents.Service{
		Repo:      docRepo,
		Templates: app.Catalog,
		Renderer:  renderer,
	}
	signingSvc := &signing.Service{
		Repo:     docRepo,
		Renderer: renderer,
		Store:    app.Store,
		Coordinator: &signing.Coordinator{
			Provider: app.Provider,
			TestMode: app.Config.Signing.TestMode,
		},
		ArtifactURLTTL: app.Config.ArtifactURLTTL,
	}
	processor := &signing.Processor{
		Repo:     docRepo,
		Provider: app.Provider,
		Store:    app.Store,
		Locker:   app.Locker,
		Queue:    app.Queue,
	}

	app.DocumentsRepo = docRepo
	app.DocumentsService = docSvc
	app.SigningService = signingSvc
	app.Processor = processor
	app.DocumentsHandler = documents.NewHandler(docSvc, app.Catalog)
	app.SigningHandler = signing.NewHandler(signingSvc, processor, app.Config.Signing.WebhookSecret)
	if _, ok := app.Store.(*localstore.Store); ok {
		app.ArtifactHandler = &signing.ArtifactHandler{Store: app.Store}
	}

	if app.DocumentsHandler == nil || app.SigningHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
