package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"content-moderation-go/internal/classifier"
	"content-moderation-go/internal/config"
	"content-moderation-go/internal/database"
	"content-moderation-go/internal/handler"
	"content-moderation-go/internal/metrics"
	"content-moderation-go/internal/moderation"
	"content-moderation-go/internal/notifier"
	"content-moderation-go/internal/router"
	"content-moderation-go/internal/scheduler"
	"content-moderation-go/internal/store"
	"content-moderation-go/internal/taskqueue"
	"content-moderation-go/internal/telemetry"
)

const version = "dev"

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Content Moderation Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := telemetry.Init(cfg.Telemetry, version); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer telemetry.Flush()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()

	gateway, err := classifier.NewOpenAIGateway(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("failed to create classifier gateway: %w", err)
	}

	contentStore := store.NewContentStore(db)
	resultStore := store.NewResultStore(db)
	notificationStore := store.NewNotificationStore(db)

	var notifiers []notifier.Notifier
	if cfg.Notifications.Email.Enabled {
		email, err := notifier.NewEmailNotifier(cfg.Notifications.Email)
		if err != nil {
			return fmt.Errorf("failed to create email notifier: %w", err)
		}
		notifiers = append(notifiers, email)
		logrus.Info("Email notifications enabled")
	}
	if cfg.Notifications.Chat.Enabled {
		chat, err := notifier.NewChatNotifier(cfg.Notifications.Chat)
		if err != nil {
			return fmt.Errorf("failed to create chat notifier: %w", err)
		}
		notifiers = append(notifiers, chat)
		logrus.Info("Chat notifications enabled")
	}
	dispatcher := notifier.NewDispatcher(notificationStore, notifiers...)

	runner := taskqueue.NewRunner(cfg.Queue.Workers, taskqueue.RetryPolicy{
		MaxAttempts:    cfg.Queue.MaxAttempts,
		InitialBackoff: cfg.Queue.InitialBackoff,
		MaxBackoff:     cfg.Queue.MaxBackoff,
		Multiplier:     cfg.Queue.BackoffMultiplier,
	})
	runner.Start(context.Background())

	orchestrator := moderation.NewOrchestrator(contentStore, resultStore, dispatcher, gateway, runner, m)

	// Requests left mid-flight by a previous run have no live task; put
	// them back on the queue before accepting new traffic.
	if recovered, err := orchestrator.RequeueStale(0); err != nil {
		logrus.Errorf("Failed to recover in-flight requests: %v", err)
	} else if recovered > 0 {
		logrus.Infof("Recovered %d in-flight requests", recovered)
	}

	sched := scheduler.NewScheduler(&cfg.Retention, &cfg.Queue, orchestrator, contentStore, m)

	h := handler.NewHandlers(db, orchestrator, contentStore, notificationStore, sched)
	r := router.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := runner.Stop(); err != nil {
		logrus.Errorf("Failed to stop task runner: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
