package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/agentflow/agentflow/internal/api/http"
	"github.com/agentflow/agentflow/internal/application/engine"
	"github.com/agentflow/agentflow/internal/application/orchestrator"
	"github.com/agentflow/agentflow/internal/application/planner"
	"github.com/agentflow/agentflow/internal/config"
	"github.com/agentflow/agentflow/internal/domain/agent"
	"github.com/agentflow/agentflow/internal/domain/decision"
	"github.com/agentflow/agentflow/internal/domain/rule"
	"github.com/agentflow/agentflow/internal/domain/session"
	"github.com/agentflow/agentflow/internal/domain/workflow"
	"github.com/agentflow/agentflow/internal/infrastructure/httpworker"
	"github.com/agentflow/agentflow/internal/infrastructure/memory"
	"github.com/agentflow/agentflow/internal/infrastructure/postgres"
	"github.com/agentflow/agentflow/internal/infrastructure/sse"
	"github.com/agentflow/agentflow/internal/infrastructure/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	shutdownTracer, err := tracer.Setup(ctx, cfg.TraceExporter)
	if err != nil {
		log.Fatalf("tracer error: %v", err)
	}

	// repositories
	var (
		sessionRepo session.Repository
		historyRepo decision.HistoryRepository
		planRepo    workflow.PlanRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		sessionRepo = postgres.NewSessionRepository(pool)
		historyRepo = postgres.NewHistoryRepository(pool)
		planRepo = postgres.NewPlanRepository(pool)
		logger.Info().Msg("storage: postgres")
	} else {
		sessionRepo = memory.NewSessionRepository()
		historyRepo = memory.NewHistoryRepository()
		planRepo = memory.NewPlanRepository()
		logger.Info().Msg("storage: in-memory")
	}

	// infrastructure
	sseHub := sse.NewHub(logger)

	// services
	engineSvc := engine.NewService(rule.Defaults(), historyRepo, engine.Weights{
		Rule:                cfg.RuleWeight,
		History:             cfg.HistoryWeight,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}, logger)
	plannerSvc := planner.NewService(planner.Templates(), planRepo, int(cfg.DefaultStepTimeout.Seconds()), logger)
	orchestratorSvc := orchestrator.NewService(agent.NewRegistry(), engineSvc, plannerSvc, sessionRepo, sseHub, logger)

	for name, endpoint := range cfg.AgentEndpoints {
		orchestratorSvc.RegisterAgent(name, httpworker.New(name, endpoint, logger), capabilityTag(name))
	}

	// API server
	apiServer := httpapi.NewServer(orchestratorSvc, plannerSvc, sseHub)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	if cfg.MetricsLogInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.MetricsLogInterval)
			defer ticker.Stop()
			for range ticker.C {
				report, err := orchestratorSvc.GetMetrics(context.Background())
				if err != nil {
					logger.Warn().Err(err).Msg("metrics snapshot failed")
					continue
				}
				logger.Info().
					Int64("total_requests", report.TotalRequests).
					Int64("successful_requests", report.SuccessfulRequests).
					Int64("failed_requests", report.FailedRequests).
					Float64("average_latency_ms", report.AverageLatencyMs).
					Float64("success_rate", report.SuccessRate).
					Int("active_sessions", report.ActiveSessions).
					Msg("metrics snapshot")
			}
		}()
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
	_ = shutdownTracer(ctxShutdown)
	logger.Info().Msg("server stopped")
}

// capabilityTag derives a coarse capability from an agent name, e.g.
// GenerationAgent -> generation.
func capabilityTag(name string) string {
	tag := strings.TrimSuffix(name, "Agent")
	if tag == "" {
		tag = name
	}
	return strings.ToLower(tag)
}
