package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/config"
	"github.com/koios/paperweather/internal/display"
	"github.com/koios/paperweather/internal/eink"
	"github.com/koios/paperweather/internal/handlers"
	"github.com/koios/paperweather/internal/i18n"
	"github.com/koios/paperweather/internal/icons"
	"github.com/koios/paperweather/internal/metrics"
	"github.com/koios/paperweather/internal/mqtt"
	"github.com/koios/paperweather/internal/pixlet"
	"github.com/koios/paperweather/internal/redis"
	"github.com/koios/paperweather/internal/render"
	"github.com/koios/paperweather/internal/weather"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer logger.Sync()

	for _, key := range cfg.InvalidEnv {
		logger.Warn("Ignoring invalid environment value", zap.String("variable", key))
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return cli.Exit(err, 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closers := buildSink(cfg, logger)
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()
	if sink == nil {
		return cli.Exit("no display sink available", 1)
	}

	handler := handlers.NewUpdateHandler(
		weather.NewClient(cfg.Weather.APIKey, cfg.Weather.Endpoints, time.Duration(cfg.Weather.Timeout)*time.Second, logger),
		buildCompositor(cfg, logger),
		sink,
		weather.Request{
			Lat:      *cfg.Weather.Latitude,
			Lon:      *cfg.Weather.Longitude,
			Units:    cfg.Weather.Units,
			Language: cfg.Language(),
		},
		logger,
	)
	m := metrics.New()
	handler.WithMetrics(m)

	if !c.Bool("loop") {
		_, err := handler.Handle(ctx)
		if sleepErr := sink.Sleep(); sleepErr != nil {
			logger.Warn("Failed to put display to sleep", zap.Error(sleepErr))
		}
		if err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	}

	if cfg.Server.Port > 0 {
		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      handlers.NewStatusHandler(handler, m, logger).WithChecks(healthChecks(closers)...).Router(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		}
		go func() {
			logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown failed", zap.Error(err))
			}
		}()
	}

	interval := time.Duration(cfg.RefreshIntervalMinutes) * time.Minute
	logger.Info("Starting update loop", zap.Duration("interval", interval))
	if err := handler.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return cli.Exit(err, 1)
	}
	logger.Info("Shutdown complete")
	return nil
}

func buildCompositor(cfg *config.Config, logger *zap.Logger) *render.Compositor {
	tr := i18n.New(cfg.Locale, cfg.LocaleDir, logger)
	fonts := render.LoadFonts(cfg.Fonts.Sizes, func(role render.Role) []render.FaceSource {
		return render.FontChain(cfg.Fonts.Main, cfg.Fonts.Bold, role)
	}, logger)

	cache := icons.NewCache(
		cfg.Icons.CacheDir,
		icons.NewHTTPSource(cfg.Icons.BaseURL, cfg.Icons.RatePerSecond),
		eink.NewConverter(eink.DefaultOptions()),
		icons.Pipeline(cfg.Icons.Pipeline),
		logger,
	)

	opts := render.Options{Width: cfg.Display.Width, Height: cfg.Display.Height, Units: cfg.Weather.Units}
	var backends []render.Backend
	for _, name := range cfg.Render.Backends {
		switch name {
		case "direct":
			backends = append(backends, render.NewRenderer(opts, fonts, tr, cache, logger))
		case "document":
			backends = append(backends, pixlet.NewProcessor(opts, cfg.Render.WorkDir, tr, cache, logger))
		default:
			logger.Warn("Unknown render backend ignored", zap.String("backend", name))
		}
	}
	return render.NewCompositor(cfg.Display.Width, cfg.Display.Height, backends, fonts, tr, logger)
}

// buildSink resolves the display once: the panel when hardware is enabled
// and reachable, simulation otherwise, mirrored to Redis and MQTT when
// configured.
func buildSink(cfg *config.Config, logger *zap.Logger) (display.Sink, []io.Closer) {
	var closers []io.Closer
	var candidates []display.Sink
	if cfg.Display.Hardware {
		epd := display.NewEPD(cfg.Display.Width, cfg.Display.Height, display.DefaultPins, logger)
		closers = append(closers, epd)
		candidates = append(candidates, epd)
	}
	candidates = append(candidates, display.NewSimulation(cfg.Display.OutputDir, logger))

	active, err := display.Select(candidates, logger)
	if err != nil {
		logger.Error("No display sink available", zap.Error(err))
		return nil, closers
	}

	var mirrors []display.Sink
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, frames will not be published", zap.Error(err))
		} else {
			closers = append(closers, client)
			mirrors = append(mirrors, client)
		}
	}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT unavailable, frames will not be published", zap.Error(err))
		} else {
			closers = append(closers, pub)
			mirrors = append(mirrors, pub)
		}
	}
	return display.NewFanout(active, mirrors, logger), closers
}

// healthChecks picks the mirrors that can report their connection state.
func healthChecks(closers []io.Closer) []handlers.HealthCheck {
	var checks []handlers.HealthCheck
	for _, cl := range closers {
		if check, ok := cl.(handlers.HealthCheck); ok {
			checks = append(checks, check)
		}
	}
	return checks
}
