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

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/audit"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/intent"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/memory"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/narrator"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/schema"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/sqlexec"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/chatbot/title"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/camunda"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/config"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/database"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/genai"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/observability"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/pkg/registry"

	// AI Conversation Workers
	cr "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/workers/ai-conversation/chatbot-respond"
	gct "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/workers/ai-conversation/generate-conversation-title"

	// Data Access Workers
	dd "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/workers/data-access/describe-database"
	qsa "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/workers/data-access/query-sql-audit"
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
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewFromConfig(cfg.Logging)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Warn("observability partially initialised", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(ctx, cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- Init Postgres with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Postgres connection")
	if err != nil {
		zapLog.Fatal("postgres failed", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("Postgres connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional, audit trail only) ---
	var recorder audit.Recorder = audit.NopRecorder{}
	var auditTrail *audit.ElasticsearchRecorder
	if cfg.Database.Elasticsearch.Enabled() && cfg.Chatbot.AuditIndex != "" {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("Elasticsearch unavailable, SQL audit disabled", zap.Error(err))
		} else {
			auditTrail = audit.NewElasticsearchRecorder(esClient.Client, cfg.Chatbot.AuditIndex)
			recorder = auditTrail
			zapLog.Info("Elasticsearch connected successfully", zap.String("auditIndex", cfg.Chatbot.AuditIndex))
		}
	}

	// --- Language model ---
	completer, err := genai.New(cfg.APIs.GenAI)
	if err != nil {
		zapLog.Fatal("genai client failed", zap.Error(err))
	}
	zapLog.Info("GenAI provider configured",
		zap.String("provider", cfg.APIs.GenAI.Provider),
		zap.String("model", cfg.APIs.GenAI.Model),
	)

	// --- Chatbot pipeline ---
	bot := cfg.Chatbot

	var schemaCache *schema.Cache
	if bot.SchemaCacheTTL > 0 {
		schemaCache = schema.NewCache(rdb.Client, time.Duration(bot.SchemaCacheTTL)*time.Second)
	}
	schemaProvider := schema.NewProvider(schema.NewBuilder(pg.DB), schemaCache, log)

	classifier := intent.NewClassifier(
		genai.Instrumented(completer, "classify"),
		intent.Options{
			MaxInputLength: bot.MaxInputLength,
			IncludeSchema:  bot.IncludeSchema,
		},
		log,
	)
	executor := sqlexec.NewExecutor(pg.DB, sqlexec.Options{
		ReadOnlyGuard:    bot.ReadOnlyGuard,
		StatementTimeout: config.GetDuration(bot.StatementTimeout),
	}, log)
	narr := narrator.New(genai.Instrumented(completer, "narrate"), log)
	memoryStore := memory.NewRedisStore(rdb.Client, bot.MemoryTurns, time.Duration(bot.MemoryTTL)*time.Second)

	titleService := title.NewService(
		title.NewPostgresConversationStore(pg.DB, bot.ConversationTable, bot.MessageTable),
		title.NewSynthesizer(genai.Instrumented(completer, "title"), bot.TitleMaxWords, bot.TitleMaxLength),
		log,
	)

	configured := make([]string, 0, len(cfg.Workers))
	for taskType := range cfg.Workers {
		configured = append(configured, taskType)
	}
	if unknown := registry.Builtin().Unknown(configured); len(unknown) > 0 {
		zapLog.Warn("config lists workers with no registered activity", zap.Strings("taskTypes", unknown))
	}

	zbClient := zeebe.GetClient()
	var workers []*camunda.CamundaWorker
	startWorker := func(taskType string, handler camunda.HandlerFunc) {
		if w := camunda.NewWorker(zbClient, taskType, cfg.Workers[taskType], handler, obs, zapLog); w != nil {
			workers = append(workers, w)
		}
	}

	// --- 1. AI Conversation Workers (2) ---
	if cfg.Workers[cr.TaskType].Enabled {
		handler := cr.NewHandler(
			&cr.Config{
				Timeout:       config.GetDuration(cfg.Workers[cr.TaskType].Timeout),
				IncludeSchema: bot.IncludeSchema,
			},
			cr.Dependencies{
				Classifier:  classifier,
				Schema:      schemaProvider,
				Executor:    executor,
				Narrator:    narr,
				Memory:      memoryStore,
				Audit:       recorder,
				Tracer:      obs,
				MemoryTurns: bot.MemoryTurns,
			},
			&chatbotRespondLoggerAdapter{log},
		)
		startWorker(cr.TaskType, handler.Handle)
	}

	if cfg.Workers[gct.TaskType].Enabled {
		handler := gct.NewHandler(
			&gct.Config{
				Timeout: config.GetDuration(cfg.Workers[gct.TaskType].Timeout),
			},
			titleService,
			&conversationTitleLoggerAdapter{log},
		)
		startWorker(gct.TaskType, handler.Handle)
	}

	// --- 2. Data Access Workers (2) ---
	if cfg.Workers[dd.TaskType].Enabled {
		handler := dd.NewHandler(
			&dd.Config{
				Timeout: config.GetDuration(cfg.Workers[dd.TaskType].Timeout),
			},
			schemaProvider, log,
		)
		startWorker(dd.TaskType, handler.Handle)
	}

	if cfg.Workers[qsa.TaskType].Enabled {
		if auditTrail == nil {
			zapLog.Warn("query-sql-audit enabled but no audit index is reachable, worker not started")
		} else {
			handler := qsa.NewHandler(
				&qsa.Config{
					Timeout:     config.GetDuration(cfg.Workers[qsa.TaskType].Timeout),
					DefaultSize: audit.DefaultSearchSize,
				},
				auditTrail, log,
			)
			startWorker(qsa.TaskType, handler.Handle)
		}
	}

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]interface{}{"zeebe": "ok", "postgres": "ok", "redis": "ok", "postgresPool": pg.Stats()}
		status := http.StatusOK
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := pg.Ping(r.Context()); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		label := "ready"
		if status != http.StatusOK {
			label = "not_ready"
		}
		writeStatus(w, status, label, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Observability.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
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
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]interface{}) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Logger adapters for workers that declare their own Logger interfaces
type chatbotRespondLoggerAdapter struct {
	logger.Logger
}

func (a *chatbotRespondLoggerAdapter) With(fields map[string]interface{}) cr.Logger {
	return &chatbotRespondLoggerAdapter{a.Logger.With(fields)}
}

type conversationTitleLoggerAdapter struct {
	logger.Logger
}

func (a *conversationTitleLoggerAdapter) With(fields map[string]interface{}) gct.Logger {
	return &conversationTitleLoggerAdapter{a.Logger.With(fields)}
}
