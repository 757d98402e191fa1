package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "docmanager-backend/internal/auth"
	"docmanager-backend/internal/documents"
	"docmanager-backend/internal/llm"
	openai "docmanager-backend/internal/llm/openai"
	"docmanager-backend/internal/queue"
	"docmanager-backend/internal/shared/config"
	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/server"
	"docmanager-backend/internal/shared/storage/db"
	"docmanager-backend/internal/shared/storage/object"
	localstore "docmanager-backend/internal/shared/storage/object/local"
	s3store "docmanager-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies built from configuration.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Jobs   *queue.Dispatcher

	Metrics          *metrics.Pipeline
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	Pipeline         *documents.Pipeline
	DocumentsHandler *documents.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build prepares the application with the configured LLM provider.
func Build(cfg config.Config) (*App, error) {
	return BuildWithClient(cfg, nil)
}

// BuildWithClient prepares the application, using llmClient in place of the
// configured provider when non-nil. Tests inject stub clients this way.
func BuildWithClient(cfg config.Config, llmClient llm.Client) (*App, error) {
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

	if llmClient == nil {
		llmClient, err = buildLLM(cfg)
		if err != nil {
			return nil, err
		}
	}

	var repo documents.Repo
	if sqlDB != nil {
		repo = &documents.PGRepo{DB: sqlDB}
	} else {
		repo = documents.NewMemoryRepo()
	}

	pipelineMetrics := metrics.NewPipeline()
	pipeline := &documents.Pipeline{
		Repo:    repo,
		LLM:     llmClient,
		Metrics: pipelineMetrics,
	}

	workers := cfg.WorkerConcurrency
	if workers <= 0 {
		workers = 4
	}
	jobs := queue.NewDispatcher(workers, pipeline.ProcessJob)

	docSvc := &documents.Service{
		Repo:           repo,
		Store:          store,
		Jobs:           jobs,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
	}

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Store:            store,
		Jobs:             jobs,
		Metrics:          pipelineMetrics,
		DocumentsRepo:    repo,
		DocumentsService: docSvc,
		Pipeline:         pipeline,
		DocumentsHandler: documents.NewHandler(docSvc),
		GoogleAuth: googleauth.NewGoogleService(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
		),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		DocumentHandler: app.DocumentsHandler,
		Metrics:         app.Metrics,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
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
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider == "openai" {
		client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
		if err != nil {
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: openai client unavailable; using placeholder: %v", err)
				return llm.PlaceholderClient{}, nil
			}
			return nil, err
		}
		return client, nil
	}
	return llm.PlaceholderClient{}, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
