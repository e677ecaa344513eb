package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/hookgate/internal/admin"
	"github.com/dmitrymomot/hookgate/internal/forwarder"
	"github.com/dmitrymomot/hookgate/internal/gateway"
	"github.com/dmitrymomot/hookgate/internal/storage"
	"github.com/dmitrymomot/hookgate/pkg/config"
	"github.com/dmitrymomot/hookgate/pkg/httpserver"
	"github.com/dmitrymomot/hookgate/pkg/logger"
	"github.com/dmitrymomot/hookgate/pkg/pg"
	"github.com/dmitrymomot/hookgate/pkg/ratelimit"
	redisconn "github.com/dmitrymomot/hookgate/pkg/redis"
	"github.com/dmitrymomot/hookgate/pkg/replay"
)

type httpConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8000"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// ForwarderDrainTimeout bounds how long in-flight deliveries may finish
	// after the HTTP server has stopped.
	ForwarderDrainTimeout time.Duration `env:"FORWARDER_DRAIN_TIMEOUT" envDefault:"30s"`
}

func main() {
	var (
		logCfg     logger.Config
		pgCfg      pg.Config
		redisCfg   redisconn.Config
		gatewayCfg gateway.Config
		fwdCfg     forwarder.Config
		adminCfg   admin.Config
		httpCfg    httpConfig
	)
	config.MustLoad(&logCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&gatewayCfg)
	config.MustLoad(&fwdCfg)
	config.MustLoad(&adminCfg)
	config.MustLoad(&httpCfg)

	log := logger.New(logCfg, logger.WithAttr(slog.String("app", "hookgate")))

	if err := run(context.Background(), log, pgCfg, redisCfg, gatewayCfg, fwdCfg, adminCfg, httpCfg); err != nil {
		log.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	log *slog.Logger,
	pgCfg pg.Config,
	redisCfg redisconn.Config,
	gatewayCfg gateway.Config,
	fwdCfg forwarder.Config,
	adminCfg admin.Config,
	httpCfg httpConfig,
) error {
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	rdb, err := redisconn.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}()

	providerRepo := storage.NewProviderRepo(pool)
	eventRepo := storage.NewEventRepo(pool)
	securityLogRepo := storage.NewSecurityLogRepo(pool)

	limiter, err := ratelimit.New(ratelimit.NewRedisStore(rdb), ratelimit.Config{
		Limit:  gatewayCfg.RateLimitMax,
		Window: gatewayCfg.RateLimitWindow(),
	})
	if err != nil {
		return err
	}

	fwd := forwarder.New(eventRepo, fwdCfg, log.With("component", "forwarder"))

	pipeline := gateway.NewPipeline(
		providerRepo,
		eventRepo,
		limiter,
		replay.NewStore(rdb),
		fwd,
		gateway.NewSecurityLogger(securityLogRepo, log),
		gatewayCfg,
		log,
	)
	ingest := gateway.NewHandler(pipeline, gatewayCfg.MaxPayloadSize, log)

	tokens, err := admin.NewTokenService(adminCfg)
	if err != nil {
		return err
	}
	adminHandler := admin.NewHandler(providerRepo, eventRepo, securityLogRepo, fwd, tokens, adminCfg, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", serviceInfo)
	r.Get("/health", httpserver.HealthCheckHandler(log, pg.Healthcheck(pool), redisconn.Healthcheck(rdb)))
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/webhooks", ingest.Router())
	r.Mount("/admin", adminHandler.Router())

	srv := httpserver.New(
		httpserver.WithAddr(httpCfg.Addr),
		httpserver.WithReadTimeout(httpCfg.ReadTimeout),
		httpserver.WithWriteTimeout(httpCfg.WriteTimeout),
		httpserver.WithIdleTimeout(httpCfg.IdleTimeout),
		httpserver.WithShutdownTimeout(httpCfg.ShutdownTimeout),
		httpserver.WithLogger(log),
	)
	runErr := srv.Run(ctx, r)

	// The HTTP server is down; give in-flight deliveries a bounded drain
	// before the store handles go away.
	drainCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ForwarderDrainTimeout)
	defer cancel()
	if err := fwd.Shutdown(drainCtx); err != nil {
		log.Warn("forwarder drain incomplete, pending events can be retried via the admin plane", "error", err)
	}

	return runErr
}

func serviceInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"service":"hookgate","description":"webhook ingestion gateway"}`))
}
