package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paperflow-io/paperflow/internal/config"
	"github.com/paperflow-io/paperflow/internal/core/ports"
	"github.com/paperflow-io/paperflow/internal/core/usecase"
	"github.com/paperflow-io/paperflow/internal/infrastructure/convert/gotenberg"
	"github.com/paperflow-io/paperflow/internal/infrastructure/credentials"
	"github.com/paperflow-io/paperflow/internal/infrastructure/destinations"
	"github.com/paperflow-io/paperflow/internal/infrastructure/destinations/localdir"
	"github.com/paperflow-io/paperflow/internal/infrastructure/extractor/localtext"
	"github.com/paperflow-io/paperflow/internal/infrastructure/llm/ollama"
	"github.com/paperflow-io/paperflow/internal/infrastructure/mail/imap"
	"github.com/paperflow-io/paperflow/internal/infrastructure/notify/webhook"
	"github.com/paperflow-io/paperflow/internal/infrastructure/ocr/azuredi"
	"github.com/paperflow-io/paperflow/internal/infrastructure/pdfmeta"
	"github.com/paperflow-io/paperflow/internal/infrastructure/queue/nats"
	"github.com/paperflow-io/paperflow/internal/infrastructure/repository/postgres"
	"github.com/paperflow-io/paperflow/internal/infrastructure/resilience"
	"github.com/paperflow-io/paperflow/internal/infrastructure/storage/localfs"
	"github.com/paperflow-io/paperflow/internal/observability/metrics"
)

// App wires the full object graph once for both binaries. The API serves
// the inbound endpoints; the worker subscribes to the task subjects and
// runs the schedules.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue   *nats.Queue
	Repo    ports.FileRepository
	Log     ports.ProcessingLog
	Metrics *metrics.WorkerMetrics

	IngestUC     ports.FileIngestor
	ProcessUC    *usecase.ProcessUseCase
	MetadataUC   *usecase.MetadataUseCase
	DistributeUC *usecase.DistributeUseCase
	ConvertUC    *usecase.ConvertUseCase
	Monitor      ports.CredentialAuditor
	Sweeper      ports.MailboxSweeper
	StatusUC     ports.StatusReader
	Dispatcher   *usecase.Dispatcher

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, service string) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewFileRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	plog := postgres.NewProcessingLogRepository(db)
	credentialStore := postgres.NewCredentialStore(db)
	emailCache := postgres.NewEmailCacheStore(db, time.Duration(cfg.MailCacheRetention)*24*time.Hour)
	lockStore := postgres.NewLockStore(db)

	store, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init document storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.LLMRatePerMin, executor)
	rater := ollama.NewRater(ollamaClient, cfg.QualitySampleSize)
	metadataExtractor := ollama.NewExtractor(ollamaClient, cfg.QualitySampleSize)
	ocrClient := azuredi.New(cfg.AzureDIEndpoint, cfg.AzureDIKey, executor)
	converter := gotenberg.New(cfg.GotenbergURL)
	notifier := webhook.New(cfg.NotifyWebhookURL, logger)

	inspector := pdfmeta.NewInspector()
	embedder := pdfmeta.NewEmbedder(store.ProcessedPath)
	textExtractor := localtext.New()

	registry := destinations.NewRegistry([]ports.Destination{
		localdir.New(cfg.DestinationLocalDir),
	})

	schedule := resilience.NewSchedule(cfg.RetryDelays, cfg.RetryMaxAttempts, cfg.RetryJitter)
	schedule.Override("ai", cfg.RetryDelaysAI)

	workerMetrics := metrics.NewWorkerMetrics(service)

	assessor := usecase.NewAssessor(rater, cfg.QualityThreshold, cfg.SignificantIssues, logger)
	ingestUC := usecase.NewIngestUseCase(repo, plog, store, queue, logger)
	processUC := usecase.NewProcessUseCase(repo, plog, textExtractor, inspector, assessor, ocrClient, queue, logger)
	metadataUC := usecase.NewMetadataUseCase(repo, plog, metadataExtractor, embedder, store, queue, logger)
	distributeUC := usecase.NewDistributeUseCase(plog, queue, registry.All(), registry, logger)
	convertUC := usecase.NewConvertUseCase(converter, store, ingestUC, logger)
	statusUC := usecase.NewStatusUseCase(repo, plog)
	dispatcher := usecase.NewDispatcher(queue, plog, schedule, workerMetrics, logger)

	var mailboxes []ports.Mailbox
	var checkers []ports.CredentialChecker
	checkers = append(checkers,
		credentials.NewOllamaChecker(cfg.OllamaURL),
		credentials.NewAzureDIChecker(cfg.AzureDIEndpoint, cfg.AzureDIKey),
		credentials.NewGotenbergChecker(cfg.GotenbergURL),
	)
	if cfg.IMAPHost != "" {
		mailbox := imap.NewMailbox(imap.Config{
			Host:         cfg.IMAPHost,
			Username:     cfg.IMAPUsername,
			Password:     cfg.IMAPPassword,
			Provider:     cfg.IMAPProvider,
			SentinelFlag: cfg.IMAPSentinelFlag,
			DeleteAfter:  cfg.IMAPDeleteAfter,
		}, logger)
		mailboxes = append(mailboxes, mailbox)
		checkers = append(checkers, mailbox)
	}

	monitor := usecase.NewCredentialMonitor(checkers, credentialStore, notifier, logger)
	sweeper := usecase.NewMailSweeper(
		lockStore,
		emailCache,
		mailboxes,
		ingestUC,
		store,
		queue,
		time.Duration(cfg.PollLockTTLSeconds)*time.Second,
		time.Duration(cfg.MailLookbackDays)*24*time.Hour,
		cfg.IMAPSentinelFlag,
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:   queue,
		Repo:    repo,
		Log:     plog,
		Metrics: workerMetrics,

		IngestUC:     ingestUC,
		ProcessUC:    processUC,
		MetadataUC:   metadataUC,
		DistributeUC: distributeUC,
		ConvertUC:    convertUC,
		Monitor:      monitor,
		Sweeper:      sweeper,
		StatusUC:     statusUC,
		Dispatcher:   dispatcher,

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
