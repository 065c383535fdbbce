package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sourcingworks/rfqsmith/internal/api/handlers"
	"github.com/sourcingworks/rfqsmith/internal/config"
	"github.com/sourcingworks/rfqsmith/internal/database"
	"github.com/sourcingworks/rfqsmith/internal/embedding"
	"github.com/sourcingworks/rfqsmith/internal/jobs"
	"github.com/sourcingworks/rfqsmith/internal/llm"
	"github.com/sourcingworks/rfqsmith/internal/repository"
	"github.com/sourcingworks/rfqsmith/internal/server"
	"github.com/sourcingworks/rfqsmith/internal/service"
	"github.com/sourcingworks/rfqsmith/internal/storage"
	"github.com/sourcingworks/rfqsmith/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the rfqsmith API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "file://migrations", "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% trace sampling outside development.
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		sourceURL, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, sourceURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	deps, err := buildDependencies(ctx, cfg, pool)
	if err != nil {
		return err
	}

	var reclassifyWorker *jobs.Worker
	if cfg.HasMultimodal() {
		processor := jobs.NewReclassifyWorker(deps.jobRepo, deps.imageRepo, deps.imageSvc, deps.storage)
		reclassifyWorker = jobs.NewWorker(processor, time.Duration(cfg.WorkerPollSeconds)*time.Second)
		go reclassifyWorker.Start(ctx)
		log.Println("reclassify worker started")
	}

	routerCfg := server.RouterConfig{
		APIKey:          cfg.APIKey,
		DocumentHandler: handlers.NewDocumentHandler(deps.ingestionSvc, deps.documentSvc),
		SearchHandler:   handlers.NewSearchHandler(deps.retrievalSvc, deps.imageSvc),
		DraftHandler:    handlers.NewDraftHandler(deps.orchestrator, deps.draftSvc, deps.exportSvc),
		ChatHandler:     handlers.NewChatHandler(deps.orchestrator, deps.draftingSvc),
		AdminHandler:    handlers.NewAdminHandler(deps.imageSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if reclassifyWorker != nil {
		reclassifyWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// dependencies holds the wired repository and service graph shared by
// the serve, ingest and reclassify commands.
type dependencies struct {
	documentRepo *repository.DocumentRepository
	chunkRepo    *repository.ChunkRepository
	imageRepo    *repository.ImageRepository
	draftRepo    *repository.DraftRepository
	jobRepo      *repository.ReclassifyJobRepository

	storage service.ObjectStorage

	imageSvc     *service.ImageService
	ingestionSvc *service.IngestionService
	retrievalSvc *service.RetrievalService
	draftingSvc  *service.DraftingService
	draftSvc     *service.DraftService
	documentSvc  *service.DocumentService
	exportSvc    *service.ExportService
	orchestrator *service.OrchestratorService
}

func buildDependencies(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*dependencies, error) {
	deps := &dependencies{
		documentRepo: repository.NewDocumentRepository(pool),
		chunkRepo:    repository.NewChunkRepository(pool),
		imageRepo:    repository.NewImageRepository(pool),
		draftRepo:    repository.NewDraftRepository(pool),
		jobRepo:      repository.NewReclassifyJobRepository(pool),
	}
	txRunner := repository.NewTxRunner(pool)

	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		deps.storage = s3Client
	} else {
		log.Println("S3 not configured: uploads and exports are disabled")
		deps.storage = unavailableStorage{}
	}

	var textEmbedder service.TextEmbedder
	if cfg.HasOpenAI() {
		client := embedding.NewTextClient(cfg.OpenAIAPIKey)
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			textEmbedder = embedding.NewCachedTextEmbedder(client, rdb, "rfqsmith:emb", embedding.DefaultCacheTTL)
			log.Println("embedding cache enabled")
		} else {
			textEmbedder = client
		}
	} else {
		log.Println("OPENAI_API_KEY not configured: ingestion and search are disabled")
		textEmbedder = unavailableTextEmbedder{}
	}

	var completer service.Completer
	if cfg.HasLLM() {
		completer = llm.NewClientWithConfig(llm.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		})
	} else {
		log.Println("LLM_API_KEY not configured: drafting is disabled")
		completer = unavailableCompleter{}
	}

	var multimodal service.MultimodalEmbedder
	if cfg.HasMultimodal() {
		multimodal = embedding.NewMultimodalClient(embedding.MultimodalConfig{
			BaseURL: cfg.MultimodalURL,
			Model:   cfg.MultimodalModel,
		})
	} else {
		log.Println("MULTIMODAL_URL not configured: image classification and search are disabled")
		multimodal = unavailableMultimodal{}
	}

	deps.imageSvc = service.NewImageService(deps.imageRepo, deps.jobRepo, multimodal)
	deps.ingestionSvc = service.NewIngestionService(deps.documentRepo, deps.imageSvc, txRunner, deps.storage, service.FileTextExtractor{}, textEmbedder)
	deps.retrievalSvc = service.NewRetrievalService(deps.chunkRepo, textEmbedder)
	deps.draftingSvc = service.NewDraftingService(completer)
	deps.draftSvc = service.NewDraftService(deps.draftRepo, deps.draftingSvc)
	deps.documentSvc = service.NewDocumentService(deps.documentRepo, deps.imageRepo, deps.storage)
	deps.exportSvc = service.NewExportService(deps.draftRepo, deps.imageRepo, deps.storage)
	deps.orchestrator = service.NewOrchestratorService(deps.retrievalSvc, deps.imageSvc, deps.draftingSvc, deps.draftSvc, deps.documentRepo, completer)

	return deps, nil
}
