package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ericksa/contractlens/internal/api"
	"github.com/ericksa/contractlens/internal/audit"
	"github.com/ericksa/contractlens/internal/compare"
	"github.com/ericksa/contractlens/internal/config"
	"github.com/ericksa/contractlens/internal/contract"
	"github.com/ericksa/contractlens/internal/linediff"
	"github.com/ericksa/contractlens/internal/llm"
	"github.com/ericksa/contractlens/internal/logging"
	"github.com/ericksa/contractlens/internal/middleware"
	"github.com/ericksa/contractlens/internal/precedent"
	"github.com/ericksa/contractlens/internal/service"
	"github.com/ericksa/contractlens/internal/standards"
	"github.com/ericksa/contractlens/pkg/mcp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	handler, cleanup, err := build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting contractlens", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

// build wires every collaborator once and returns the root handler.
// cleanup releases the precedent store and the audit database.
func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (http.Handler, func(), error) {
	searcher, err := precedent.Open(ctx, cfg.PrecedentStore(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open precedent store: %w", err)
	}

	auditor := audit.Disabled()
	if cfg.Audit.Enabled {
		auditor, err = audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			searcher.Close()
			return nil, nil, err
		}
	}
	cleanup := func() {
		searcher.Close()
		auditor.Close()
	}

	repo, err := openStandards(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// interfaces stay nil without an api key so the engines use their fallbacks
	var (
		analyst   contract.ClauseAnalyst
		describer contract.DiffDescriber
		chatter   service.Chatter
	)
	client, err := llm.New(cfg.LLMClient(), logger)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("no llm api key configured, analyses will be returned without model output")
	case err != nil:
		cleanup()
		return nil, nil, err
	default:
		analyst, describer, chatter = client, client, client
	}

	dispatcher := compare.NewDispatcher(searcher, analyst, logger)
	dispatcher.TopN = cfg.Precedents.TopN
	dispatcher.PrecedentTimeout = cfg.Precedents.Timeout
	dispatcher.AnalysisTimeout = cfg.LLM.Timeout

	differ := linediff.NewEngine(describer, searcher, logger)
	differ.TopN = cfg.Precedents.TopN
	differ.Timeout = cfg.LLM.Timeout

	analyzer := service.New(compare.NewEngine(dispatcher, logger), differ, repo, chatter, auditor, logger)

	router := mux.NewRouter()
	api.NewServer(analyzer, logger, cfg.Server.MaxUploadMB<<20).Register(router)
	router.PathPrefix("/configure").Handler(config.NewConfigAPI(cfg).Router())
	if cfg.MCP.Enabled {
		router.PathPrefix(cfg.MCP.Path).Handler(mcp.NewHandler(analyzer, logger))
	}

	return middleware.Wrap(router, logger, cfg.Server.CORSOrigins), cleanup, nil
}

func openStandards(cfg *config.Config) (standards.Repository, error) {
	switch cfg.Standards.Backend {
	case "minio":
		return standards.NewMinIORepository(cfg.StandardsMinIO())
	default:
		return standards.NewFSRepository(cfg.Standards.Dir), nil
	}
}
