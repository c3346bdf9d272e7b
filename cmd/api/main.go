package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/compliance"
	"voiceagent-platform/internal/config"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/knowledge"
	"voiceagent-platform/internal/llm"
	"voiceagent-platform/internal/orchestrator"
	"voiceagent-platform/internal/pricing"
	"voiceagent-platform/internal/reporting"
	"voiceagent-platform/internal/speech"
	"voiceagent-platform/pkg/logger"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// defaultCurrency is the ledger currency until per-workspace currency
// configuration lands.
const defaultCurrency = "INR"

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional .env for local development; real deployments inject env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Persistence
	agentRepo := agents.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	rateRepo := pricing.NewPostgresRateRepo(db)
	auditRepo := audit.NewPostgresRepo(db)
	auditSvc := audit.NewService(auditRepo)

	// Providers
	p := cfg.Providers
	verifier := compliance.NewHTTPVerifier(p.DND.BaseURL, p.DND.APIKey, p.DND.Timeout)
	transcriber := speech.NewWhisperClient(p.STT.BaseURL, p.STT.APIKey, p.STT.Timeout)
	synthesizer := speech.NewCoquiClient(p.TTS.BaseURL, p.TTS.APIKey, p.TTS.Timeout)
	generator := llm.NewOllamaClient(p.LLM.BaseURL, p.LLM.APIKey, p.LLM.Model, p.LLM.Timeout)

	var retriever knowledge.Retriever
	if p.Knowledge.BaseURL != "" {
		retriever = knowledge.NewHTTPRetriever(p.Knowledge.BaseURL, p.Knowledge.APIKey, p.Knowledge.Timeout)
	}

	// Services
	callSvc := calls.NewService(agentRepo, compliance.NewGate(verifier), callRepo, callRepo, callRepo, auditSvc, defaultCurrency)
	processor := orchestrator.NewProcessor(orchestrator.ProcessorDeps{
		Calls:       callSvc,
		Agents:      agentRepo,
		Transcripts: callRepo,
		Accountant:  calls.NewAccountant(callRepo, defaultCurrency),
		Rates:       pricing.NewService(rateRepo),
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Generator:   generator,
		Retriever:   retriever,
		Locker:      orchestrator.NewRedisLocker(rdb, 60*time.Second),
		Audit:       auditSvc,
		Model:       p.LLM.Model,
		Budgets: orchestrator.Budgets{
			Transcription: p.STT.Timeout,
			Retrieval:     p.Knowledge.Timeout,
			Generation:    p.LLM.Timeout,
			Synthesis:     p.TTS.Timeout,
		},
	})

	h := httpapi.Handlers{
		Auth:      authManager,
		Calls:     callSvc,
		Processor: processor,
		Reports:   reporting.NewService(callRepo, auditRepo),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), db, rdb)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
