// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"devhive-workers/internal/apply"
	"devhive-workers/internal/common/aws"
	"devhive-workers/internal/common/camunda"
	"devhive-workers/internal/common/config"
	"devhive-workers/internal/common/database"
	"devhive-workers/internal/common/lock"
	"devhive-workers/internal/common/logger"
	"devhive-workers/internal/common/observability"
	"devhive-workers/internal/common/validation"
	"devhive-workers/pkg/registry"

	pa "devhive-workers/internal/workers/project/project-apply"
	pacc "devhive-workers/internal/workers/project/project-apply-accept"
	pcan "devhive-workers/internal/workers/project/project-apply-cancel"
	pl "devhive-workers/internal/workers/project/project-apply-list"
	prej "devhive-workers/internal/workers/project/project-apply-reject"
	pst "devhive-workers/internal/workers/project/project-apply-status"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logging config is not known yet
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Activity registry & input schemas ---
	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("failed to load activity registry", zap.String("path", cfg.RegistryPath), zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry is invalid", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("failed to compile input schemas", zap.Error(err))
	}

	// --- Apply workflow ---
	opts := []apply.Option{apply.WithObservability(obs)}
	if cfg.Events.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Events.Region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := snsClient.CheckTopic(checkCtx, cfg.Events.TopicARN); err != nil {
			// events are best effort, keep starting
			zapLog.Warn("workflow event topic not reachable", zap.Error(err))
		}
		cancel()
		opts = append(opts, apply.WithPublisher(apply.NewSNSPublisher(snsClient, cfg.Events.TopicARN)))
		zapLog.Info("workflow events enabled", zap.String("topicArn", cfg.Events.TopicARN))
	}

	workflow := apply.NewWorkflow(
		database.NewApplicationRepository(pg.DB),
		database.NewProjectRepository(pg.DB),
		lock.NewRedisLocker(redis.Client),
		apply.LockPolicy{
			TTL:           config.GetDuration(cfg.Lock.TTL),
			RetryInterval: config.GetDuration(cfg.Lock.RetryInterval),
			MaxWait:       config.GetDuration(cfg.Lock.MaxWait),
			KeyPrefix:     cfg.Lock.KeyPrefix,
		},
		log,
		opts...,
	)

	// --- Register Workers ---
	handlers := map[string]camunda.JobHandler{
		pa.TaskType: pa.NewHandler(
			&pa.Config{Timeout: workerTimeout(cfg, pa.TaskType)}, workflow, validator, log),
		pcan.TaskType: pcan.NewHandler(
			&pcan.Config{Timeout: workerTimeout(cfg, pcan.TaskType)}, workflow, validator, log),
		pl.TaskType: pl.NewHandler(
			&pl.Config{Timeout: workerTimeout(cfg, pl.TaskType)}, workflow, validator, log),
		pacc.TaskType: pacc.NewHandler(
			&pacc.Config{Timeout: workerTimeout(cfg, pacc.TaskType)}, workflow, validator, log),
		prej.TaskType: prej.NewHandler(
			&prej.Config{Timeout: workerTimeout(cfg, prej.TaskType)}, workflow, validator, log),
		pst.TaskType: pst.NewHandler(
			&pst.Config{Timeout: workerTimeout(cfg, pst.TaskType)}, workflow, validator, log),
	}

	var workers []*camunda.CamundaWorker
	for taskType, handler := range handlers {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			continue
		}
		if !validator.Has(taskType) {
			zapLog.Warn("no input schema registered", zap.String("taskType", taskType))
		}
		workers = append(workers, camunda.NewWorker(
			zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, zapLog))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    redis.Ping,
		} {
			if err := check(checkCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		checks["status"] = "ready"
		if status != http.StatusOK {
			checks["status"] = "not ready"
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func workerTimeout(cfg *config.Config, taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
