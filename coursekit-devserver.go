package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/sethvargo/go-envconfig"

	coursehttp "github.com/open-rails/coursekit/adapters/http"
	"github.com/open-rails/coursekit/core"
	"github.com/open-rails/coursekit/logging"
	"github.com/open-rails/coursekit/migrations"
	"github.com/open-rails/coursekit/riverjobs"
)

type config struct {
	ListenAddr string `env:"COURSEKIT_LISTEN_ADDR, default=:8080"`
	BaseURL    string `env:"COURSEKIT_BASE_URL, default=http://localhost:3000"`
	DBURL      string `env:"DATABASE_URL, required"`
	RedisURL   string `env:"REDIS_URL"`

	LogLevel  string `env:"COURSEKIT_LOG_LEVEL, default=info"`
	LogPretty bool   `env:"COURSEKIT_LOG_PRETTY, default=false"`

	MigrateOnStart bool   `env:"COURSEKIT_MIGRATE_ON_START, default=true"`
	PurgeCron      string `env:"COURSEKIT_PURGE_CRON, default=0 * * * *"`
}

func main() {
	// Missing .env is fine outside dev.
	_ = godotenv.Load()

	ctx := context.Background()
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logging.Init(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	cmd := "serve"
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		cmd = strings.TrimSpace(os.Args[1])
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, &cfg)
	case "migrate":
		err = migrations.Apply(ctx, cfg.DBURL)
	default:
		err = fmt.Errorf("unknown command %q (supported: serve, migrate)", cmd)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("coursekit-devserver")
	}
}

func runServe(ctx context.Context, cfg *config) error {
	log := logging.Get()

	if cfg.MigrateOnStart {
		if err := migrations.Apply(ctx, cfg.DBURL); err != nil {
			return err
		}
	}

	pg, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	svc := coursehttp.NewService(core.Config{BaseURL: cfg.BaseURL}).
		WithPostgres(pg).
		WithCheckoutProvider(devCheckout{baseURL: cfg.BaseURL})
	// With no EmailSender configured the core logs magic-link and reset
	// URLs instead of sending mail, which is what we want in dev.
	svc.Core().WithLogger(log)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rd := redis.NewClient(opt)
		defer rd.Close()
		svc.WithRedis(rd)
		log.Info().Msg("redis rate limiter enabled")
	}

	riverClient, err := startJobs(ctx, pg, svc.Core(), cfg.PurgeCron)
	if err != nil {
		return err
	}
	defer func() { _ = riverClient.Stop(ctx) }()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/api/", svc.APIHandler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	return server.ListenAndServe()
}

func startJobs(ctx context.Context, pg *pgxpool.Pool, svc *core.Service, purgeCron string) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	riverjobs.RegisterPurgeCredentialsWorker(workers, svc)

	client, err := river.NewClient(riverpgxv5.New(pg), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("river client: %w", err)
	}
	if err := riverjobs.AddPurgeCredentialsPeriodicJob(client, purgeCron, riverjobs.PurgeCredentialsArgs{}, true); err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("start river: %w", err)
	}
	return client, nil
}

// devCheckout stands in for a real payment gateway. It returns a fake
// hosted-checkout URL so the frontend flow can be exercised end to end;
// completing the purchase is then a manual POST to /api/payments/confirm.
type devCheckout struct {
	baseURL string
}

func (d devCheckout) CreateCheckout(_ context.Context, req core.CheckoutRequest) (string, error) {
	return strings.TrimRight(d.baseURL, "/") + "/dev-checkout?order_ref=" + req.OrderRef, nil
}
