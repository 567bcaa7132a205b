package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-progress/internal/activity"
	"github.com/p-n-ai/pai-progress/internal/ai"
	"github.com/p-n-ai/pai-progress/internal/classroom"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/dashboard"
	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/platform/config"
	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/quiz"
	"github.com/p-n-ai/pai-progress/internal/recommend"
	"github.com/p-n-ai/pai-progress/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// A cyclic or malformed catalog must never serve traffic.
	catalog, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		return fmt.Errorf("loading curriculum: %w", err)
	}

	loc, err := cfg.Progression.Location()
	if err != nil {
		return err
	}

	deps, cleanup, err := newBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tracker := progress.NewTracker(progress.TrackerConfig{
		Catalog:         catalog,
		Store:           deps.store,
		Activity:        deps.activity,
		ActivityTimeout: cfg.Progression.CollaboratorTimeout,
	})

	var generator quiz.Generator
	advisory := map[string]server.CheckFunc{}
	if router := newAIRouter(cfg); router.HasProvider() {
		generator = quiz.NewAIGenerator(router, catalog)
		advisory["ai"] = router.HealthCheck
		slog.Info("quiz generation enabled", "providers", router.Providers())
	} else {
		slog.Warn("no AI provider configured, quizzes will use placeholders")
	}

	srv := server.New(server.Config{
		Catalog: catalog,
		Tracker: tracker,
		Recommender: recommend.NewEngine(catalog, tracker, recommend.Thresholds{
			Unlock:   cfg.Progression.UnlockThreshold,
			Mastered: cfg.Progression.MasteredThreshold,
		}),
		Quiz: quiz.NewService(quiz.ServiceConfig{
			Catalog:   catalog,
			Generator: generator,
			Timeout:   cfg.AI.Timeout,
		}),
		Dashboard: dashboard.NewAggregator(dashboard.Config{
			Catalog:           catalog,
			Progress:          tracker,
			Classrooms:        deps.classrooms,
			Activity:          deps.activity,
			Timeout:           cfg.Progression.CollaboratorTimeout,
			Location:          loc,
			MasteredThreshold: cfg.Progression.MasteredThreshold,
		}),
		Enroller: deps.classrooms,
		Checks:   deps.checks,
		Advisory: advisory,
	})

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "store", cfg.Store.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

type backends struct {
	store      progress.Store
	activity   activity.Log
	classrooms classroom.Directory
	checks     map[string]server.CheckFunc
}

// newBackends builds the stores for the configured driver. The returned
// cleanup closes every connection that was opened.
func newBackends(ctx context.Context, cfg *config.Config) (*backends, func(), error) {
	b := &backends{checks: map[string]server.CheckFunc{}}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.Connect(ctx, cfg.Database.URL, database.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to database: %w", err)
		}
		closers = append(closers, db.Close)
		b.checks["database"] = db.HealthCheck

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, db.Pool); err != nil {
				cleanup()
				return nil, func() {}, err
			}
		}

		store, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		rooms, err := classroom.NewPostgresRegistry(db.Pool)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		b.store = store
		b.activity = activity.NewPostgresLog(db.Pool)
		b.classrooms = rooms
	default:
		b.store = progress.NewMemoryStore()
		b.activity = activity.NewMemoryLog()
		b.classrooms = classroom.NewMemoryRegistry()
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			// The classroom cache is optional; serve without it.
			slog.Warn("cache unavailable, classroom lookups uncached", "error", err)
		} else {
			closers = append(closers, func() { c.Close() })
			b.checks["cache"] = c.HealthCheck
			b.classrooms = classroom.NewCachedRegistry(b.classrooms, c.Client, cfg.Cache.ClassroomTTL)
		}
	}

	return b, cleanup, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json", "":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// newAIRouter registers every configured provider in fallback order.
func newAIRouter(cfg *config.Config) *ai.Router {
	router := ai.NewRouter()
	client := &http.Client{Timeout: cfg.AI.Timeout}

	if key := cfg.AI.OpenAI.APIKey; key != "" {
		router.Register("openai", ai.NewOpenAIProvider(key,
			ai.WithHTTPClient(client),
			ai.WithDefaultModel(cfg.AI.OpenAI.Model),
		))
	}
	if key := cfg.AI.DeepSeek.APIKey; key != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(key, ai.WithHTTPClient(client)))
	}
	if key := cfg.AI.OpenRouter.APIKey; key != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(key, ai.WithHTTPClient(client)))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL,
			ai.WithHTTPClient(client),
			ai.WithDefaultModel(cfg.AI.Ollama.Model),
		))
	}
	return router
}
