package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helpdesk-dispatch/backend/internal/config"
	"github.com/helpdesk-dispatch/backend/internal/db"
	httpapi "github.com/helpdesk-dispatch/backend/internal/http"
	"github.com/helpdesk-dispatch/backend/internal/metrics"
	"github.com/helpdesk-dispatch/backend/internal/notify"
	"github.com/helpdesk-dispatch/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "dispatch-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, "up"); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		logger.Info().Msg("migrations applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	decisionMetrics := metrics.NewDecisionMetrics(reg)

	coordCfg := service.DefaultCoordinatorConfig()
	coordCfg.SpecialistName = cfg.TelephonySpecialistName
	coordCfg.SpecialistMaxLoad = cfg.TelephonySpecialistMaxLoad
	coordCfg.CatalogMaxLoad = cfg.CatalogMaxLoad
	coordCfg.Weights = service.PriorityWeights{
		Organizational: cfg.PriorityWeightOrg,
		Technical:      cfg.PriorityWeightTech,
	}
	if coordCfg.SpecialistName == "" {
		logger.Warn().Msg("TELEPHONY_SPECIALIST_NAME not set; telephony tickets go straight to rules")
	}

	coordinator := service.NewCoordinator(service.Dependencies{
		Technicians: store,
		Rules:       store,
		Candidates:  store,
		Requesters:  store,
		Logger:      logger,
		Recorder:    decisionMetrics,
	}, coordCfg)

	var notifier notify.Notifier
	if cfg.NotifyURL == "" {
		notifier = notify.LogNotifier{Logger: logger}
		logger.Info().Msg("using log notifier")
	} else {
		notifier = notify.NewHTTPNotifier(cfg.NotifyURL)
	}

	processor := &service.ProcessingService{
		Store:       store,
		Coordinator: coordinator,
		Notifier:    notifier,
		Metrics:     decisionMetrics,
		Logger:      logger,
	}

	router := httpapi.Router(cfg, httpapi.Deps{
		Store:      store,
		Dispatcher: processor,
		Blender:    coordinator.Blender(),
		Gatherer:   reg,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
