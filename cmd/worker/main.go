package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paperflow-io/paperflow/internal/bootstrap"
	"github.com/paperflow-io/paperflow/internal/config"
	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("paperflow-worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	scheduler := cron.New()
	mustSchedule(scheduler, cfg.CredentialCheckSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		summary, err := app.Monitor.Run(runCtx)
		if err != nil {
			logger.Error("credential_sweep_failed", "error", err)
			return
		}
		for service, result := range summary.Results {
			app.Metrics.CountCredentialCheck(service, result.Status)
		}
	})
	mustSchedule(scheduler, cfg.CredentialAuditSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		summary, err := app.Monitor.Run(runCtx)
		if err != nil {
			logger.Error("credential_audit_failed", "error", err)
			return
		}
		logger.Info("credential_audit",
			"checked", summary.Checked,
			"unconfigured", summary.Unconfigured,
			"failures", summary.Failures,
		)
	})
	mustSchedule(scheduler, cfg.MailPollSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := app.Sweeper.Sweep(runCtx); err != nil {
			logger.Error("mail_sweep_failed", "error", err)
			app.Metrics.CountMailSweep("error")
			return
		}
		app.Metrics.CountMailSweep("ok")
	})
	scheduler.Start()
	defer scheduler.Stop()

	// One startup sweep shortly after boot so a restarted worker does not
	// wait a full schedule period to notice dead credentials.
	time.AfterFunc(10*time.Second, func() {
		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if _, err := app.Monitor.Run(runCtx); err != nil {
			logger.Error("startup_credential_sweep_failed", "error", err)
		}
	})

	handlers := map[domain.TaskType]func(context.Context, domain.Task) error{
		domain.TaskProcess:    app.ProcessUC.ProcessTask,
		domain.TaskOCR:        app.ProcessUC.RunOCR,
		domain.TaskMetadata:   app.MetadataUC.RunMetadata,
		domain.TaskDistribute: app.DistributeUC.RunDistribute,
		domain.TaskUpload:     app.DistributeUC.RunUpload,
		domain.TaskConvert:    app.ConvertUC.RunConvert,
	}

	errs := make(chan error, len(handlers))
	for taskType, handler := range handlers {
		go func() {
			wrapped := app.Dispatcher.Wrap(func(handlerCtx context.Context, task domain.Task) error {
				taskCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
				defer cancel()
				return handler(taskCtx, task)
			})
			errs <- app.Queue.Subscribe(ctx, taskType, wrapped)
		}()
	}
	logger.Info("worker_started", "subject_prefix", cfg.NATSSubjectPrefix)

	for range handlers {
		if err := <-errs; err != nil {
			logger.Error("subscription_terminated", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func mustSchedule(scheduler *cron.Cron, spec string, job func()) {
	if _, err := scheduler.AddFunc(spec, job); err != nil {
		log.Fatalf("invalid schedule %q: %v", spec, err)
	}
}
