// Command searchengine boots the resume shortlist service: it wires
// storage, retrieval, and agentic components together and serves the
// classic and agentic query paths over HTTP, following the teacher's
// cmd/main.go bootstrap shape (config load -> storage -> components ->
// router -> graceful shutdown on SIGINT/SIGTERM).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/pflag"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/agentic"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/api/handler"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/api/router"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/chunkstore"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/config"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/embedding"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/ledger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/orchestrator"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/outbox"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/rerank"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/retrieval"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/storage"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		panic(err)
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	logger.Info().Msg("config loaded")

	db, err := storage.NewMySQL(cfg.MySQL)
	if err != nil {
		logger.Fatal().Err(err).Msg("mysql init failed")
	}
	logger.Info().Msg("mysql connected")

	redisClient, err := storage.NewRedis(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis init failed")
	}
	logger.Info().Msg("redis connected")

	mq, err := storage.NewRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		logger.Fatal().Err(err).Msg("rabbitmq init failed")
	}
	logger.Info().Msg("rabbitmq connected")

	relay := outbox.NewMessageRelay(db, mq)
	relay.Start()
	logger.Info().Msg("outbox relay started")

	store := chunkstore.NewGormStore(db)
	led := ledger.NewGormLedger(db)

	embedder := embedding.NewHTTPProvider(embedding.Config{
		Endpoint:   cfg.Embedding.Endpoint,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		APIKey:     cfg.Embedding.APIKey,
		TimeoutMS:  cfg.Embedding.TimeoutMS,
		QPM:        cfg.Embedding.QPM,
	})
	reranker := rerank.NewHTTPReranker(rerank.Config{
		Endpoint:  cfg.Rerank.Endpoint,
		APIKey:    cfg.Rerank.APIKey,
		TimeoutMS: cfg.Rerank.TimeoutMS,
		QPM:       cfg.Rerank.QPM,
	})

	lexical := retrieval.NewLexicalRetriever(store, cfg.Retrieval.KPool)
	dense := retrieval.NewDenseRetriever(store, embedder, cfg.Retrieval.KPool)

	core := orchestrator.NewGormCoreStore(db)

	orc := orchestrator.New(store, led, lexical, dense, reranker, core, orchestrator.Config{
		KPool:         cfg.Retrieval.KPool,
		KSparse:       cfg.Retrieval.KSparse,
		KDense:        cfg.Retrieval.KDense,
		LegTimeout:    time.Duration(cfg.Agentic.LegTimeoutSeconds) * time.Second,
		Limit:         cfg.Retrieval.DefaultLimit,
		RerankMaxPool: cfg.Retrieval.KRerank,
	})

	var chatModel agentic.ChatModel
	if cfg.Agentic.APIKey != "" {
		chatModel, err = agentic.NewQwenChatModel(cfg.Agentic.APIKey, cfg.Agentic.ModelName, cfg.Agentic.APIURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("qwen chat model init failed")
		}
		logger.Info().Msg("qwen chat model ready")
	} else {
		logger.Warn().Msg("AGENTIC_API_KEY not set, jd_understanding falls back to heuristic extraction")
	}

	pipeline := agentic.New(store, led, lexical, dense, reranker, chatModel, agentic.Config{
		KPool:             cfg.Retrieval.KPool,
		KSparse:           cfg.Retrieval.KSparse,
		KDense:            cfg.Retrieval.KDense,
		KRerank:           cfg.Retrieval.KRerank,
		MinRelevanceScore: cfg.Retrieval.MinRelevanceScore,
		MinStrongResults:  cfg.Retrieval.MinStrongResults,
		LegTimeout:        time.Duration(cfg.Agentic.LegTimeoutSeconds) * time.Second,
		HardTimeout:       time.Duration(cfg.Agentic.HardTimeoutSeconds) * time.Second,
		Limit:             cfg.Retrieval.DefaultLimit,
	})

	searchHandler := handler.NewSearchHandler(orc, core, redisClient)
	shortlistHandler := handler.NewShortlistHandler(pipeline)
	resumeHandler := handler.NewResumeHandler(db, store, led)

	h := server.New(
		server.WithHostPorts(cfg.Server.Addr),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		logger.Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})

	router.RegisterRoutes(h, searchHandler, shortlistHandler, resumeHandler)
	logger.Info().Msg("routes registered")

	go func() {
		h.Spin()
	}()
	logger.Info().Str("addr", cfg.Server.Addr).Msg("http server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	relay.Stop()
	logger.Info().Msg("outbox relay stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	logger.Info().Msg("shutdown complete")
}
