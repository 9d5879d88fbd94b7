package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	httpadapter "github.com/ovoronin/document-chat/internal/adapters/http"
	"github.com/ovoronin/document-chat/internal/config"
	"github.com/ovoronin/document-chat/internal/core/domain"
	"github.com/ovoronin/document-chat/internal/core/ports"
	"github.com/ovoronin/document-chat/internal/core/usecase"
	"github.com/ovoronin/document-chat/internal/infrastructure/chunking"
	"github.com/ovoronin/document-chat/internal/infrastructure/extractor"
	"github.com/ovoronin/document-chat/internal/infrastructure/llm/openaicompat"
	"github.com/ovoronin/document-chat/internal/infrastructure/queue/nats"
	"github.com/ovoronin/document-chat/internal/infrastructure/repository/postgres"
	"github.com/ovoronin/document-chat/internal/infrastructure/rerank/cohere"
	"github.com/ovoronin/document-chat/internal/infrastructure/resilience"
	"github.com/ovoronin/document-chat/internal/infrastructure/secrets"
	"github.com/ovoronin/document-chat/internal/infrastructure/storage/s3"
	"github.com/ovoronin/document-chat/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue     *nats.Queue
	Documents ports.DocumentRepository
	ProcessUC ports.DocumentProcessor

	Handler http.Handler
	Metrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db, cfg.EmbeddingDimensions); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var cipher domain.SecretCipher
	if cfg.SettingsSecretKey != "" {
		boxCipher, err := secrets.NewBoxCipher(cfg.SettingsSecretKey)
		if err != nil {
			return nil, fmt.Errorf("init settings cipher: %w", err)
		}
		cipher = boxCipher
	}

	documents := postgres.NewDocumentRepository(db)
	chunks := postgres.NewChunkRepository(db)
	threads := postgres.NewThreadRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db, cipher)
	settingsUC := usecase.NewSettingsUseCase(settingsRepo, chunks, cipher)

	storage, err := s3.NewBlobStore(ctx, s3.Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := openaicompat.NewClient(settingsUC)
	embedder := openaicompat.NewEmbedder(settingsUC, llmClient, cfg.EmbedRequestsPerSec)
	metadataExtractor := openaicompat.NewMetadataExtractor(llmClient)
	reranker := cohere.New(settingsUC)

	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	elementChunker := chunking.NewElementChunker(splitter)
	textExtractor := extractor.NewExtractor(storage)

	uploadUC := usecase.NewUploadDocumentUseCase(documents, chunks, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(documents, chunks, textExtractor, metadataExtractor, splitter, elementChunker, embedder)
	retrieveUC := usecase.NewHybridRetrieveUseCase(embedder, chunks, reranker, cfg.MatchThreshold, cfg.FusionRRFK)

	toolExecutor := usecase.NewToolExecutor(retrieveUC, cfg.RetrievalTopK)
	chatUC := usecase.NewChatStreamUseCase(llmClient, toolExecutor, documents)

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	chatUC.SetObserver(metrics.ChatStreamObserver{Service: "api", Metrics: httpMetrics})

	auth := httpadapter.NewAuthMiddleware(cfg.JWTSecret)
	router := httpadapter.NewRouter(uploadUC, documents, retrieveUC, threads, chatUC, settingsUC, auth, httpMetrics, cfg.RetrievalTopK)

	return &App{
		Config: cfg,

		Queue:     queue,
		Documents: documents,
		ProcessUC: processUC,

		Handler: httpMetrics.Middleware("api", router.Handler()),
		Metrics: httpMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
