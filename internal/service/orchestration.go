// Package service owns the orchestration job lifecycle: validating a start
// request, building the plan, running the executor in the background and
// persisting the terminal result.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/orchestrator"
	"github.com/strogmv/forge/internal/planner"
	"github.com/strogmv/forge/internal/port"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forge_runs_started_total",
		Help: "Total orchestration runs started.",
	})
	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forge_runs_finished_total",
		Help: "Total orchestration runs finished, by outcome.",
	}, []string{"outcome"})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forge_stage_duration_seconds",
		Help:    "Duration of completed pipeline stages.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"stage"})
)

// Orchestration coordinates runs. Safe for concurrent use; each job id runs
// fully independently.
type Orchestration struct {
	generators  port.GeneratorSet
	deployer    port.Deployer
	publisher   port.ProgressPublisher
	history     port.HistoryStore
	runs        port.RunRepository
	log         *slog.Logger
	validate    *validator.Validate
	retryDelay  time.Duration
	callTimeout time.Duration

	mu      sync.RWMutex
	running map[string]struct{}
}

type Option func(*Orchestration)

func WithHistory(store port.HistoryStore) Option {
	return func(s *Orchestration) { s.history = store }
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *Orchestration) { s.retryDelay = d }
}

func WithCallTimeout(d time.Duration) Option {
	return func(s *Orchestration) { s.callTimeout = d }
}

func NewOrchestration(
	generators port.GeneratorSet,
	deployer port.Deployer,
	publisher port.ProgressPublisher,
	runs port.RunRepository,
	log *slog.Logger,
	opts ...Option,
) *Orchestration {
	s := &Orchestration{
		generators:  generators,
		deployer:    deployer,
		publisher:   publisher,
		runs:        runs,
		log:         log,
		validate:    validator.New(),
		retryDelay:  500 * time.Millisecond,
		callTimeout: 2 * time.Minute,
		running:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateOptions rejects option combinations the executor cannot honor.
func (s *Orchestration) ValidateOptions(opts domain.Options) error {
	if err := s.validate.Struct(opts); err != nil {
		return err
	}
	if opts.Parallel && opts.MaxConcurrency < 1 {
		return fmt.Errorf("maxConcurrency must be at least 1 when parallel is set")
	}
	return nil
}

// Start validates the request, assigns a job id and launches the run in the
// background. The returned job id can immediately be used to subscribe to
// the progress push channel.
func (s *Orchestration) Start(ctx context.Context, req domain.BusinessRequirement, opts domain.Options) (string, error) {
	if err := s.ValidateOptions(opts); err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	plan := planner.Build(req)

	s.mu.Lock()
	s.running[jobID] = struct{}{}
	s.mu.Unlock()
	runsStarted.Inc()

	s.log.Info("orchestration started",
		slog.String("job_id", jobID),
		slog.String("app", req.Name),
		slog.Int("plan_items", plan.ItemCount()))

	// The run outlives the originating request; it is bound to the server
	// lifetime, not the HTTP request context.
	go s.run(context.WithoutCancel(ctx), jobID, req, plan, opts)

	return jobID, nil
}

// Execute runs a job synchronously, for CLI use.
func (s *Orchestration) Execute(ctx context.Context, req domain.BusinessRequirement, opts domain.Options) (*domain.OrchestrationResult, error) {
	if err := s.ValidateOptions(opts); err != nil {
		return nil, err
	}
	jobID := uuid.NewString()
	plan := planner.Build(req)

	s.mu.Lock()
	s.running[jobID] = struct{}{}
	s.mu.Unlock()
	runsStarted.Inc()

	return s.run(ctx, jobID, req, plan, opts), nil
}

func (s *Orchestration) run(
	ctx context.Context,
	jobID string,
	req domain.BusinessRequirement,
	plan *domain.GenerationPlan,
	opts domain.Options,
) *domain.OrchestrationResult {
	defer func() {
		s.mu.Lock()
		delete(s.running, jobID)
		s.mu.Unlock()
	}()

	exec := orchestrator.NewExecutor(
		s.generators,
		s.deployer,
		s.runPublisher(ctx, opts),
		s.log,
		orchestrator.WithRetryDelay(s.retryDelay),
		orchestrator.WithCallTimeout(s.callTimeout),
	)
	res := exec.Execute(ctx, jobID, req, plan, opts)

	outcome := "completed"
	if !res.Success {
		outcome = "failed"
	}
	runsFinished.WithLabelValues(outcome).Inc()
	for stage, d := range res.Metrics.StageDurations {
		stageDuration.WithLabelValues(stage.String()).Observe(d.Seconds())
	}

	if err := s.runs.Save(ctx, res); err != nil {
		s.log.Error("saving run result failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}

	s.log.Info("orchestration finished",
		slog.String("job_id", jobID),
		slog.Bool("success", res.Success),
		slog.Duration("duration", res.Metrics.TotalDuration))
	return res
}

// runPublisher composes the per-run event sink: the injected publisher plus,
// when the run opted in, the history store.
func (s *Orchestration) runPublisher(ctx context.Context, opts domain.Options) port.ProgressPublisher {
	if !opts.PersistProgress || s.history == nil {
		return s.publisher
	}
	return port.ProgressPublisherFunc(func(jobID string, ev domain.Progress) {
		s.publisher.Publish(jobID, ev)
		if err := s.history.Append(ctx, jobID, ev); err != nil {
			s.log.Debug("history append failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		}
	})
}

// RunState describes a job as seen by the API.
type RunState struct {
	JobID   string
	Running bool
	Result  *domain.OrchestrationResult
}

// Status reports whether the job is still running and, once finished, its
// stored result.
func (s *Orchestration) Status(ctx context.Context, jobID string) (RunState, error) {
	s.mu.RLock()
	_, running := s.running[jobID]
	s.mu.RUnlock()
	if running {
		return RunState{JobID: jobID, Running: true}, nil
	}

	res, err := s.runs.FindByJobID(ctx, jobID)
	if err != nil {
		return RunState{}, err
	}
	return RunState{JobID: jobID, Result: res}, nil
}

// History returns the persisted progress events of a job, when available.
func (s *Orchestration) History(ctx context.Context, jobID string) ([]domain.Progress, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx, jobID)
}
