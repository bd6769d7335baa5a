package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/verdano/clausemap/internal/analytics"
	"github.com/verdano/clausemap/internal/api"
	"github.com/verdano/clausemap/internal/cache"
	"github.com/verdano/clausemap/internal/catalog"
	"github.com/verdano/clausemap/internal/command"
	"github.com/verdano/clausemap/internal/config"
	"github.com/verdano/clausemap/internal/crosswalk"
	"github.com/verdano/clausemap/internal/gateway"
	"github.com/verdano/clausemap/internal/lookup"
	"github.com/verdano/clausemap/internal/match"
	msgrouter "github.com/verdano/clausemap/internal/router"
	"github.com/verdano/clausemap/internal/semrecall"
	"github.com/verdano/clausemap/internal/translate"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting clausemap...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/clausemap.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Load the clause catalog.
	var pgSource *catalog.PostgresSource
	loadSnapshot := func() (*catalog.Snapshot, error) {
		switch cfg.Catalog.Source {
		case "postgres":
			return pgSource.Load(context.Background())
		default:
			return catalog.LoadDir(cfg.Catalog.DataDir, cfg.Catalog.ConceptsPath)
		}
	}
	if cfg.Catalog.Source == "postgres" {
		pgSource, err = catalog.NewPostgresSource(cfg.Database.Postgres.DSN, logger)
		if err != nil {
			logger.Fatal("catalog postgres unavailable", zap.Error(err))
		}
		defer pgSource.Close()
	}
	snap, err := loadSnapshot()
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Info("Catalog loaded",
		zap.Int("clauses", snap.Len()),
		zap.Strings("frameworks", snap.Frameworks()))

	engine := match.NewEngine(snap, match.Params{
		LexicalWeight:   *cfg.Matching.LexicalWeight,
		SemanticWeight:  *cfg.Matching.SemanticWeight,
		FrameworkBoosts: cfg.Matching.FrameworkBoosts,
		DedupThreshold:  *cfg.Matching.DedupThreshold,
		MaxResults:      *cfg.Matching.MaxResults,
		FuzzyThreshold:  *cfg.Matching.FuzzyThreshold,
	})

	// Optional backends: each one degrades to off when unreachable.
	var responseCache *cache.Cache
	if cfg.Database.Redis.URL != "" {
		ttl := time.Duration(cfg.Database.Redis.TTLSeconds) * time.Second
		responseCache, err = cache.New(cfg.Database.Redis.URL, ttl, logger)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache", zap.Error(err))
			responseCache = nil
		} else {
			defer responseCache.Close()
		}
	}

	var queryLog *analytics.QueryLogger
	var tracker *analytics.Tracker
	if cfg.Analytics.Enabled {
		queryLog, err = analytics.NewQueryLogger(cfg.Database.Postgres.DSN, cfg.Analytics.CSVPath, logger)
		if err != nil {
			logger.Warn("analytics postgres unavailable, csv only", zap.Error(err))
			queryLog, err = analytics.NewQueryLogger("", cfg.Analytics.CSVPath, logger)
			if err != nil {
				logger.Warn("analytics disabled", zap.Error(err))
			}
		}
		if queryLog != nil {
			defer queryLog.Close()
		}
		if cfg.Analytics.TrackerEndpoint != "" {
			tracker = analytics.NewTracker(analytics.TrackerConfig{
				Endpoint:    cfg.Analytics.TrackerEndpoint,
				Measurement: cfg.Analytics.TrackerMeasurement,
				Secret:      cfg.Analytics.TrackerSecret,
			}, logger)
		}
	}

	var recall *semrecall.Recall
	if cfg.Embedding.Endpoint != "" && cfg.Database.Qdrant.Host != "" {
		embedder := semrecall.NewEmbedder(semrecall.EmbedderConfig{
			Endpoint:  cfg.Embedding.Endpoint,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
		})
		store, vsErr := semrecall.NewVectorStore(semrecall.QdrantConfig{
			Host: cfg.Database.Qdrant.Host,
			Port: cfg.Database.Qdrant.Port,
		})
		if vsErr != nil {
			logger.Warn("Qdrant unavailable, running without vector fallback", zap.Error(vsErr))
		} else {
			recall = semrecall.NewRecall(embedder, store, logger)
			if idxErr := recall.IndexSnapshot(context.Background(), snap); idxErr != nil {
				logger.Warn("vector indexing failed, running without vector fallback", zap.Error(idxErr))
				store.Close()
				recall = nil
			} else {
				defer recall.Close()
			}
		}
	}

	var graph *crosswalk.Graph
	if cfg.Database.Neo4j.URI != "" {
		graph, err = crosswalk.NewGraph(context.Background(),
			cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if err != nil {
			logger.Warn("Neo4j unavailable, running without crosswalk", zap.Error(err))
			graph = nil
		} else {
			defer graph.Close(context.Background())
			if cwErr := graph.Rebuild(context.Background(), snap, *cfg.Matching.DedupThreshold); cwErr != nil {
				logger.Warn("crosswalk rebuild failed", zap.Error(cwErr))
			}
		}
	}

	var translator translate.Translator = translate.Noop{}
	if cfg.Translate.Endpoint != "" {
		translator = translate.NewHTTPTranslator(translate.Config{
			Endpoint: cfg.Translate.Endpoint,
			APIKey:   cfg.Translate.APIKey,
			Target:   cfg.Translate.Target,
		})
	}

	// Assemble the lookup pipeline.
	opts := []lookup.Option{lookup.WithTranslator(translator)}
	if responseCache != nil {
		opts = append(opts, lookup.WithCache(responseCache))
	}
	if recall != nil {
		opts = append(opts, lookup.WithRecall(recall))
	}
	if queryLog != nil || tracker != nil {
		opts = append(opts, lookup.WithAnalytics(queryLog, tracker))
	}
	svc := lookup.NewService(engine, logger, opts...)

	// Slash commands.
	registry := command.NewRegistry()
	deps := command.Deps{
		Lookup:    svc,
		Engine:    engine,
		StartedAt: time.Now(),
	}
	if graph != nil {
		deps.Crosswalk = graph
	}
	if responseCache != nil {
		deps.Cache = responseCache
	}
	if queryLog != nil {
		deps.QueryLog = queryLog
	}
	command.RegisterBuiltins(registry, deps)

	// Gateway and message router.
	gw := gateway.NewGateway(logger)

	// Wire message router BEFORE registering adapters (Register captures handler)
	router := msgrouter.New(svc, gw, registry, logger)
	gw.SetHandler(router.Handle)

	restAdapter := gateway.NewRESTAdapter(logger)
	gw.Register(restAdapter)

	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}

	if err := gw.ConnectAll(context.Background()); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	reload := func() error {
		fresh, rErr := loadSnapshot()
		if rErr != nil {
			return rErr
		}
		engine.Reload(fresh)
		if graph != nil {
			if cwErr := graph.Rebuild(context.Background(), fresh, *cfg.Matching.DedupThreshold); cwErr != nil {
				logger.Warn("crosswalk rebuild failed after reload", zap.Error(cwErr))
			}
		}
		logger.Info("Catalog reloaded", zap.Int("clauses", fresh.Len()))
		return nil
	}

	var cacheStats command.CacheStats
	if responseCache != nil {
		cacheStats = responseCache
	}
	var logStats command.LogStats
	if queryLog != nil {
		logStats = queryLog
	}
	var equivalents command.EquivalentsFinder
	if graph != nil {
		equivalents = graph
	}
	handler := api.NewHandler(engine, svc, equivalents, cacheStats, logStats, restAdapter, gw, reload, logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("clausemap listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down clausemap...")
	srv.Shutdown(context.Background())
	gw.Close()
}
