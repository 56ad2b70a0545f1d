package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/documind-io/documind/internal/ai"
	"github.com/documind-io/documind/internal/config"
	"github.com/documind-io/documind/internal/embedcache"
	"github.com/documind-io/documind/internal/filestore"
	"github.com/documind-io/documind/internal/handler"
	"github.com/documind-io/documind/internal/job"
	"github.com/documind-io/documind/internal/middleware"
	"github.com/documind-io/documind/internal/repo"
	"github.com/documind-io/documind/internal/schedule"
	"github.com/documind-io/documind/internal/service"
	"github.com/documind-io/documind/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "documind",
		Short: "documind retrieval QA server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run documind server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			_ = godotenv.Load()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("generators", len(cfg.Generation)),
	)

	embedder, cacheRepo, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	store, err := vectorstore.New(cfg.VectorStore.Type, cfg.VectorStore.Metric, cfg.VectorStore.Data)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	if err := store.EnsureIndex(ctx, cfg.Embedding.Dimension); err != nil {
		return fmt.Errorf("ensure vector index: %w", err)
	}

	var archive filestore.Store
	if cfg.Archive.Type != "" {
		archive, err = filestore.New(cfg.Archive.Type, cfg.Archive.Data)
		if err != nil {
			return fmt.Errorf("init archive store: %w", err)
		}
	}

	ingestService := service.NewIngestService(embedder, store, cfg.Chunk.Size, cfg.Chunk.Overlap, cfg.Embedding.Dimension)
	searchService := service.NewSearchService(embedder, store, cfg.Embedding.Dimension)
	qaService := service.NewQAService(searchService, generator, service.QAConfig{
		MaxContextChars: cfg.Ask.MaxContextChars,
		GenTimeout:      time.Duration(cfg.Ask.TimeoutSecs) * time.Second,
	})

	deps := handler.RouterDeps{
		Ingest: handler.NewIngestHandler(ingestService, archive),
		Search: handler.NewSearchHandler(searchService),
		QA:     handler.NewQAHandler(qaService),
	}

	extra := []gin.HandlerFunc{
		middleware.CORS(cfg.CORSAllowlist),
		gzip.Gzip(gzip.DefaultCompression),
	}
	if cfg.RateLimitSecs > 0 {
		extra = append(extra, middleware.RateLimit(time.Duration(cfg.RateLimitSecs)*time.Second))
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(extra...),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if cacheRepo != nil {
		cleanup := job.NewEmbeddingCacheCleanupJob(cacheRepo, cfg.CacheDB.MaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.CacheDB.CleanupSpec); err != nil {
			return fmt.Errorf("schedule cache cleanup: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

// buildEmbedder stacks the caches over the provider: lru in front, then the
// optional db cache, then the provider itself.
func buildEmbedder(ctx context.Context, cfg *config.Config) (ai.IEmbedder, *repo.EmbeddingCacheRepo, error) {
	provider, err := ai.NewEmbedProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("init embed provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.Embedding.Model)

	var cacheRepo *repo.EmbeddingCacheRepo
	if cfg.CacheDB.DSN != "" {
		db, err := repo.Open(cfg.CacheDB.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache db: %w", err)
		}
		cacheRepo = repo.NewEmbeddingCacheRepo(db)
		if err := cacheRepo.Init(ctx, cfg.Embedding.Dimension); err != nil {
			return nil, nil, fmt.Errorf("init embedding cache: %w", err)
		}
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	}
	if cfg.Embedding.Cache.Size > 0 && cfg.Embedding.Cache.TTLSecs > 0 {
		embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.Embedding.Cache.Size, time.Duration(cfg.Embedding.Cache.TTLSecs)*time.Second)
	}
	return embedder, cacheRepo, nil
}

func buildGenerator(cfg *config.Config) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, len(cfg.Generation))
	for _, gen := range cfg.Generation {
		provider, err := ai.NewProvider(gen.Provider, gen.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", gen.Provider, err)
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      gen.Provider + "/" + gen.Model,
			Generator: ai.NewGenerator(provider, gen.Model),
		})
	}
	return ai.NewGroupGenerator(entries), nil
}
