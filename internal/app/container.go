// Package app assembles the runtime dependency graph from configuration.
// Every optional backend (Postgres, Redis, NATS, S3, the completion service)
// degrades to a local substitute when unconfigured, so `forge serve` always
// starts.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strogmv/forge/internal/adapter/deploy"
	"github.com/strogmv/forge/internal/adapter/events/nats"
	"github.com/strogmv/forge/internal/adapter/generator/ai"
	"github.com/strogmv/forge/internal/adapter/generator/static"
	redishist "github.com/strogmv/forge/internal/adapter/history/redis"
	"github.com/strogmv/forge/internal/adapter/repository/memory"
	"github.com/strogmv/forge/internal/adapter/repository/postgres"
	"github.com/strogmv/forge/internal/adapter/storage/s3"
	"github.com/strogmv/forge/internal/config"
	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/port"
	"github.com/strogmv/forge/internal/progress"
	"github.com/strogmv/forge/internal/service"
)

type Container struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Hub    *progress.Hub

	Generators port.GeneratorSet
	Deployer   port.Deployer
	Runs       port.RunRepository

	SvcOrchestration *service.Orchestration

	nats *nats.Publisher
}

func NewContainer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Hub:    progress.NewHub(log),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "forge_progress_subscribers",
		Help: "Live push-channel subscribers across all jobs.",
	}, func() float64 { return float64(c.Hub.TotalSubscribers()) })

	if cfg.CompletionURL != "" {
		c.Generators = ai.Generators(ai.NewClient(cfg.CompletionURL, cfg.CompletionKey, cfg.CompletionModel, log))
	} else {
		log.Info("no completion service configured, using offline generators")
		c.Generators = static.Generators()
	}

	if cfg.S3Bucket != "" {
		store, err := s3.New(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("init s3: %w", err)
		}
		c.Deployer = deploy.New(store, log)
	} else {
		c.Deployer = deploy.New(nil, log)
	}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := postgres.NewRunRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		c.DB = pool
		c.Runs = repo
	} else {
		log.Info("no database configured, run results are kept in memory")
		c.Runs = memory.NewRunRepository()
	}

	publishers := []port.ProgressPublisher{c.Hub}
	if cfg.NATSURL != "" {
		pub, err := nats.NewPublisher(cfg.NATSURL, log)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		c.nats = pub
		publishers = append(publishers, pub)
	}

	svcOpts := []service.Option{
		service.WithRetryDelay(cfg.RetryDelay),
		service.WithCallTimeout(cfg.GeneratorTimeout),
	}
	if cfg.RedisAddr != "" {
		svcOpts = append(svcOpts, service.WithHistory(redishist.NewStore(redishist.NewClient(cfg.RedisAddr))))
	}

	c.SvcOrchestration = service.NewOrchestration(
		c.Generators,
		c.Deployer,
		fanOut(publishers),
		c.Runs,
		log,
		svcOpts...,
	)

	return c, nil
}

// CORSOrigins splits the configured origin list.
func (c *Container) CORSOrigins() []string {
	parts := strings.Split(c.Config.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Container) Close() {
	if c.nats != nil {
		c.nats.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}

// fanOut delivers each event to every sink in order.
func fanOut(sinks []port.ProgressPublisher) port.ProgressPublisher {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return port.ProgressPublisherFunc(func(jobID string, ev domain.Progress) {
		for _, s := range sinks {
			s.Publish(jobID, ev)
		}
	})
}
