package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/SamyKr/VisuAI-sub000/internal/app/engine"
	asradapters "github.com/SamyKr/VisuAI-sub000/internal/domain/asr/infrastructure/adapters"
	asrinter "github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/cue"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/eventbus"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history"
	historystore "github.com/SamyKr/VisuAI-sub000/internal/domain/history/store"
	ttsadapters "github.com/SamyKr/VisuAI-sub000/internal/domain/tts/infrastructure/adapters"
	ttsinter "github.com/SamyKr/VisuAI-sub000/internal/domain/tts/inter"
	platformconfig "github.com/SamyKr/VisuAI-sub000/internal/platform/config"
	platformerrors "github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	platformlogging "github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
	platformobservability "github.com/SamyKr/VisuAI-sub000/internal/platform/observability"
	platformstorage "github.com/SamyKr/VisuAI-sub000/internal/platform/storage"
	httptransport "github.com/SamyKr/VisuAI-sub000/internal/transport/http"
	httpwebapi "github.com/SamyKr/VisuAI-sub000/internal/transport/http/webapi"
	wstransport "github.com/SamyKr/VisuAI-sub000/internal/transport/ws"
)

const scalarHTML = `<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8" />
		<title>VisuAI API Reference</title>
		<meta name="viewport" content="width=device-width, initial-scale=1" />
	</head>
	<body>
		<script
			id="api-reference"
			data-url="/openapi.json"
			data-layout="modern"
			src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"
		></script>
	</body>
</html>`

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	slogger               *slog.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	historyStore          historystore.Store
	recorder              *history.Recorder
	bus                   evbus.Bus
	provider              asrinter.Provider
	speaker               ttsinter.Speaker
	cuePlayer             *cue.Player
	engine                *engine.Engine
}

// Run drives the whole server lifecycle: configuration, dependency-ordered
// initialization, transport serving and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.engine == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"engine not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	if shutdown := state.observabilityShutdown; shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WarnTag("BOOT", "observability shutdown incomplete: %v", err)
			}
		}()
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		closeResources(state, logger)
		return err
	}

	err := waitForShutdown(signalCtx, cancel, logger, group)

	// Transports have drained at this point; the engine goes last so no
	// event arrives after teardown.
	closeResources(state, logger)
	if err != nil {
		return err
	}

	logger.InfoTag("BOOT", "all services stopped")
	logger.Close()
	return nil
}

func closeResources(state *appState, logger *platformlogging.Logger) {
	if state.engine != nil {
		state.engine.Close()
	}
	if state.recorder != nil {
		if err := state.recorder.Close(); err != nil {
			logger.WarnTag("BOOT", "history recorder close failed: %v", err)
		}
	}
	if state.db != nil {
		if err := platformstorage.Close(state.db); err != nil {
			logger.WarnTag("BOOT", "database close failed: %v", err)
		}
	}
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	logger.InfoTag("BOOT", "initialization plan")
	for _, step := range steps {
		logger.InfoTag("BOOT", "  %s (%s)", step.Title, step.ID)
	}
	logger.InfoTag("BOOT", "starting services")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the initialization steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:open-database",
			Title:     "Open history database",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   openDatabaseStep,
		},
		{
			ID:        "history:init-recorder",
			Title:     "Initialise question history",
			DependsOn: []string{"storage:open-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initHistoryStep,
		},
		{
			ID:        "voice:init-providers",
			Title:     "Initialise voice providers",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindVoice,
			Execute:   initVoiceStep,
		},
		{
			ID:        "engine:init",
			Title:     "Initialise query engine",
			DependsOn: []string{"history:init-recorder", "voice:init-providers"},
			Kind:      platformerrors.KindDomain,
			Execute:   initEngineStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	cfg, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}

	state.config = cfg
	state.configPath = platformconfig.DefaultPath
	if env := os.Getenv("VISUAI_CONFIG"); env != "" {
		state.configPath = env
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logger = logger
	state.slogger = logger.Slog()

	logger.InfoTag("BOOT", "logging ready [%s] config %s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state == nil || state.logger == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"observability:setup-hooks",
			"config/logger not initialised",
		)
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}

	shutdown, err := platformobservability.Setup(ctx, cfg, state.slogger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown

	return nil
}

func openDatabaseStep(_ context.Context, state *appState) error {
	if state.config.History.Driver != historystore.DriverSQLite {
		return nil
	}

	dsn := state.config.History.SQLite.DSN
	if dsn == "" {
		dsn = "data/visuai.db"
	}

	db, err := platformstorage.Open(dsn)
	if err != nil {
		return err
	}
	state.db = db

	state.logger.InfoTag("BOOT", "history database ready at %s", dsn)
	return nil
}

func initHistoryStep(_ context.Context, state *appState) error {
	cfg := state.config.History

	storeCfg := historystore.Config{
		Driver: cfg.Driver,
		Limit:  cfg.Limit,
		TTL:    cfg.TTL(),
	}
	switch cfg.Driver {
	case historystore.DriverRedis:
		storeCfg.Redis = &historystore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
	case historystore.DriverSQLite:
		storeCfg.SQLite = &historystore.SQLiteConfig{DSN: cfg.SQLite.DSN}
	}

	st, err := historystore.New(storeCfg, historystore.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "history:init-recorder", "failed to create history store", err)
	}
	state.historyStore = st

	recorder, err := history.NewRecorder(history.Options{
		Store:     st,
		Logger:    state.logger,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "history:init-recorder", "failed to create history recorder", err)
	}
	state.recorder = recorder

	state.logger.InfoTag("BOOT", "question history ready (%s driver)", storeCfg.Driver)
	return nil
}

// initVoiceStep builds the recognizer, speaker and listen cue. Failures here
// degrade instead of aborting: the engine refuses voice interaction without a
// recognizer but keeps answering text questions.
func initVoiceStep(_ context.Context, state *appState) error {
	cfg := state.config
	logger := state.logger

	if asrCfg, ok := cfg.ASR[cfg.Selected.ASR]; ok {
		provider, err := asradapters.NewRegistry().Create(asrCfg.Type, asrinter.Config{
			URL:        asrCfg.URL,
			SampleRate: asrCfg.SampleRate,
			Language:   asrCfg.Language,
			LocalOnly:  asrCfg.LocalOnly,
		}, logger)
		if err != nil {
			logger.WarnTag("BOOT", "recognizer %s unavailable: %v", cfg.Selected.ASR, err)
		} else {
			state.provider = provider
			logger.InfoTag("BOOT", "recognizer %s ready (%s)", cfg.Selected.ASR, asrCfg.Type)
		}
	} else {
		logger.WarnTag("BOOT", "no configuration for selected recognizer %s", cfg.Selected.ASR)
	}

	if ttsCfg, ok := cfg.TTS[cfg.Selected.TTS]; ok {
		speaker, err := ttsadapters.NewRegistry().Create(ttsCfg.Type, ttsinter.Config{
			Voice:  ttsCfg.Voice,
			Format: ttsCfg.Format,
		}, logger)
		if err != nil {
			logger.WarnTag("BOOT", "speaker %s unavailable, device relay will be used: %v", cfg.Selected.TTS, err)
		} else {
			state.speaker = speaker
			logger.InfoTag("BOOT", "speaker %s ready (%s)", cfg.Selected.TTS, ttsCfg.Type)
		}
	}

	player, err := cue.New(cue.Config{Enabled: cfg.Cue.Enabled, Path: cfg.Cue.Path}, logger)
	if err != nil {
		logger.WarnTag("BOOT", "listen cue disabled: %v", err)
		player, _ = cue.New(cue.Config{Enabled: false}, logger)
	}
	state.cuePlayer = player

	return nil
}

func initEngineStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()

	eng, err := engine.New(engine.Options{
		Config:   state.config,
		Logger:   state.logger,
		Bus:      state.bus,
		Provider: state.provider,
		Speaker:  state.speaker,
		Cue:      state.cuePlayer,
		Recorder: state.recorder,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindDomain, "engine:init", "failed to create query engine", err)
	}
	state.engine = eng

	return nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	if err := startDeviceServer(state, g, groupCtx); err != nil {
		return fmt.Errorf("failed to start device transport: %w", err)
	}

	if state.config.Web.Enabled {
		if _, err := startHTTPServer(state, g, groupCtx); err != nil {
			return fmt.Errorf("failed to start control API: %w", err)
		}
	}

	return nil
}

func startDeviceServer(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	cfg := state.config
	logger := state.logger

	hub := wstransport.NewHub(logger)
	router := wstransport.NewRouter(hub, state.engine, state.bus, logger, wstransport.RouterOptions{
		Token: cfg.Server.Token,
	})
	server := wstransport.NewServer(wstransport.ServerConfig{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port),
	}, router, hub, logger)

	g.Go(func() error {
		go func() {
			<-groupCtx.Done()
			logger.InfoTag("WS", "shutting down device transport")
			if err := server.Stop(); err != nil {
				logger.ErrorTag("WS", "device transport stop failed: %v", err)
			} else {
				logger.InfoTag("WS", "device transport stopped")
			}
		}()

		if err := server.Start(groupCtx); err != nil {
			if groupCtx.Err() != nil {
				return nil
			}
			logger.ErrorTag("WS", "device transport failed: %v", err)
			return err
		}
		return nil
	})

	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{},
				Message: "api not found",
				Code:    http.StatusNotFound,
			})
			return
		}

		c.Status(http.StatusNotFound)
	})

	webapiService, err := httpwebapi.NewService(config, state.engine, state.recorder, logger)
	if err != nil {
		logger.ErrorTag("HTTP", "control API init failed: %v", err)
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create control API service", err)
	}

	if err := webapiService.Register(groupCtx, apiGroup); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:register", "failed to register control API routes", err)
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(config.Web.Port),
		Handler: router,
	}

	router.GET("/openapi.json", func(c *gin.Context) {
		doc, err := swag.ReadDoc()
		if err != nil {
			logger.ErrorTag("HTTP", "openapi generation failed: %v", err)
			c.JSON(http.StatusInternalServerError, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{"error": err.Error()},
				Message: "failed to generate openapi spec",
				Code:    http.StatusInternalServerError,
			})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	})

	router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(scalarHTML))
	})

	g.Go(func() error {
		logger.InfoTag("HTTP", "control API listening on http://localhost:%d", config.Web.Port)
		logger.InfoTag("HTTP", "api docs at http://localhost:%d/docs", config.Web.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "control API shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "control API stopped")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "control API failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "received signal %v, shutting down", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all transports closed")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("shutdown timed out")
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}
