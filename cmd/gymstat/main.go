package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Flynotfly/gymstat/internal/api"
	"github.com/Flynotfly/gymstat/internal/bodymetrics"
	"github.com/Flynotfly/gymstat/internal/config"
	"github.com/Flynotfly/gymstat/internal/logging"
	"github.com/Flynotfly/gymstat/internal/session"
	"github.com/Flynotfly/gymstat/internal/telemetry/metrics"
	"github.com/Flynotfly/gymstat/internal/telemetry/tracing"
	"github.com/Flynotfly/gymstat/internal/training"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %s\n", err)
		os.Exit(1)
	}

	cleanupLogging := logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "gymstat-cli",
	})

	log.Debugf("---->> running in [%s] environment, api: %s", cfg.Environment, cfg.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, flag.Args())
	stop()

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Errorf("gymstat: %s", err)
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		cleanupLogging()
		os.Exit(1)
	}
	cleanupLogging()
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	honeycombEnabled := cfg.TracingEnabled || os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
		if otelServiceName := os.Getenv("OTEL_SERVICE_NAME"); otelServiceName == "" {
			log.Warnln("OTEL_SERVICE_NAME env var not set")
		}
	}
	otelShutdown, err := tracing.HoneycombSetup(honeycombEnabled, "gymstat-cli")
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer otelShutdown()

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("gymstat", "cli", promRegistry)
	defer func() {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile, promRegistry); err != nil {
			log.Errorf("metrics: %s", err)
		}
	}()

	var redisClient *redis.Client
	if cfg.RedisHost != "" {
		redisPassword := os.Getenv("GYMSTAT_REDIS_PASS")
		if redisPassword == "" {
			log.Warnln("redis password not set. use GYMSTAT_REDIS_PASS")
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: redisPassword,
			DB:       0,
		})
		redisClient.AddHook(redisotel.NewTracingHook())
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Errorf("close redis client: %s", err)
			}
		}()
	}

	// a nil *redis_rate.Limiter must not end up in the interface
	var rateLimiter api.RateLimiter
	if redisClient != nil && cfg.RateLimitPerMin > 0 {
		rateLimiter = redis_rate.NewLimiter(redisClient)
	}

	client, err := api.NewClient(api.ClientParams{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.RequestTimeout,
		Metrics:         metricsManager,
		RateLimiter:     rateLimiter,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	if err != nil {
		return fmt.Errorf("new api client: %w", err)
	}

	var store session.CookieStore
	switch cfg.SessionStore {
	case session.StoreRedis:
		store = session.NewRedisStore(redisClient, "", 0)
	default:
		store = session.NewFileStore(cfg.SessionFile)
	}

	state := session.NewState(client, session.Params{
		Store:   store,
		Metrics: metricsManager,
	})
	defer state.Close()

	a := &app{
		out:         os.Stdout,
		in:          os.Stdin,
		cfg:         cfg,
		session:     state,
		training:    training.NewRepo(client),
		bodyMetrics: bodymetrics.NewRepo(client),
		metrics:     metricsManager,
	}
	return a.run(ctx, args)
}
