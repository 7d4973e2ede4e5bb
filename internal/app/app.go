// Package app wires the session core together and runs the HTTP server.
package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/api"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/assist"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/cache"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/config"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/metrics"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/service"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/store"
)

// App holds the wired application: everything main needs to run it and tests
// need to poke at it.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *store.ThreadStore
	Server *http.Server
}

// New builds the full dependency graph from cfg.
func New(cfg *config.Config) (*App, error) {
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	// Package-level helpers in the API layer log through the global.
	zap.ReplaceGlobals(logger)

	threads := store.New(logger, cfg.TitleMaxRunes)

	// Cache writes wake the same change feed as thread mutations, so the
	// panel notices a warm cache as quickly as a new message.
	analysisCache := cache.New("analysis", cache.WithOnChange(threads.Notify))
	lookupCache := cache.New("lookup", cache.WithOnChange(threads.Notify))

	provider := assist.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AssistantModel, logger)
	m := metrics.New()

	assistant := service.NewAssistantService(threads, analysisCache, lookupCache, provider, m, logger)

	handler := api.NewAssistantHandler(assistant)
	router := api.NewRouter(handler, m)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // the SSE change feed holds connections open
		IdleTimeout:       120 * time.Second,
	}

	return &App{
		Config: cfg,
		Logger: logger,
		Store:  threads,
		Server: server,
	}, nil
}

// Run loads configuration, builds the app, and serves until the listener
// stops. Returns a process exit code.
func Run() int {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet; fall back to the default global.
		zap.L().Error("failed to load configuration", zap.Error(err))
		return 1
	}

	a, err := New(cfg)
	if err != nil {
		zap.L().Error("failed to build application", zap.Error(err))
		return 1
	}
	defer func() { _ = a.Logger.Sync() }()

	a.Logger.Info("starting server",
		zap.Int("port", cfg.AppPort),
		zap.String("model", cfg.AssistantModel))

	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Logger.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = zapcore.DebugLevel
	case "WARN":
		lvl = zapcore.WarnLevel
	case "ERROR":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}
