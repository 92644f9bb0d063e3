// Package orchestrator drives a generation plan through the fixed stage
// pipeline, fanning out to generator collaborators, applying the retry
// policy and assembling the terminal result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/port"
)

const (
	defaultRetryDelay  = 500 * time.Millisecond
	defaultCallTimeout = 2 * time.Minute
)

// Executor walks a generation plan through the stage sequence. One Executor
// serves any number of concurrent runs; all run state lives on the stack of
// Execute.
type Executor struct {
	generators  port.GeneratorSet
	deployer    port.Deployer
	publisher   port.ProgressPublisher
	log         *slog.Logger
	retryDelay  time.Duration
	callTimeout time.Duration
}

type ExecutorOption func(*Executor)

// WithRetryDelay overrides the fixed delay between collaborator retry
// attempts. This delay is deliberately not exponential; transport-level
// reconnects own the exponential policy.
func WithRetryDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.retryDelay = d }
}

// WithCallTimeout bounds every single collaborator invocation. A timed-out
// call counts as a collaborator failure for retry purposes.
func WithCallTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.callTimeout = d }
}

func NewExecutor(
	generators port.GeneratorSet,
	deployer port.Deployer,
	publisher port.ProgressPublisher,
	log *slog.Logger,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		generators:  generators,
		deployer:    deployer,
		publisher:   publisher,
		log:         log,
		retryDelay:  defaultRetryDelay,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the mutable state of one Execute call.
type run struct {
	jobID string
	req   domain.BusinessRequirement
	plan  *domain.GenerationPlan
	opts  domain.Options

	timing *TimingRecorder

	mu        sync.Mutex
	artifacts map[domain.ArtifactCategory]domain.ArtifactBundle
	errs      []string

	deploymentURL string
	validation    *domain.ValidationReport
	startedAt     time.Time
}

func (r *run) merge(cat domain.ArtifactCategory, bundle domain.ArtifactBundle) {
	if len(bundle) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	dst, ok := r.artifacts[cat]
	if !ok {
		dst = make(domain.ArtifactBundle, len(bundle))
		r.artifacts[cat] = dst
	}
	for name, content := range bundle {
		dst[name] = content
	}
}

func (r *run) recordError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err.Error())
}

func (r *run) errorList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.errs...)
}

// Execute runs the whole pipeline for one job. It always returns a terminal
// result; failures are reported through Success=false and the error list,
// never through a Go error.
func (e *Executor) Execute(
	ctx context.Context,
	jobID string,
	req domain.BusinessRequirement,
	plan *domain.GenerationPlan,
	opts domain.Options,
) *domain.OrchestrationResult {
	opts.Normalize()
	r := &run{
		jobID:     jobID,
		req:       req,
		plan:      plan,
		opts:      opts,
		timing:    NewTimingRecorder(),
		artifacts: make(map[domain.ArtifactCategory]domain.ArtifactBundle),
		startedAt: time.Now(),
	}

	for _, stage := range domain.StageSequence {
		r.timing.RecordStart(stage)
		e.emit(r, stage, stageMessage(stage), "", nil, domain.StepDetail{})

		if err := e.runStage(ctx, r, stage); err != nil {
			// The stage never completed, so its timing stays open and it
			// contributes no duration entry to the metrics.
			r.recordError(err)
			return e.fail(r, stage)
		}

		r.timing.RecordEnd(stage)
	}

	return e.assemble(r, true)
}

// fail transitions the run to the terminal failed stage. Exactly one failed
// event is emitted and nothing after it.
func (e *Executor) fail(r *run, at domain.Stage) *domain.OrchestrationResult {
	e.log.Error("run failed",
		slog.String("job_id", r.jobID),
		slog.String("stage", at.String()),
		slog.Int("errors", len(r.errorList())))

	ev := domain.Progress{
		JobID:   r.jobID,
		Stage:   domain.StageFailed,
		Percent: at.Percent(),
		Message: fmt.Sprintf("Generation failed during %s", at),
		Errors:  r.errorList(),
	}
	e.publisher.Publish(r.jobID, ev)
	return e.assemble(r, false)
}

func (e *Executor) assemble(r *run, success bool) *domain.OrchestrationResult {
	finishedAt := time.Now()
	return &domain.OrchestrationResult{
		JobID:         r.jobID,
		Success:       success,
		DeploymentURL: r.deploymentURL,
		Artifacts:     r.artifacts,
		Metrics:       AssembleMetrics(r.plan, r.artifacts, r.timing.Snapshot(), r.startedAt, finishedAt),
		Validation:    r.validation,
		Errors:        r.errorList(),
		StartedAt:     r.startedAt,
		FinishedAt:    finishedAt,
	}
}

func (e *Executor) runStage(ctx context.Context, r *run, stage domain.Stage) error {
	switch stage {
	case domain.StageInitializing:
		return e.stageInitializing(r)
	case domain.StageAnalyzing:
		return e.stageAnalyzing(r)
	case domain.StageGeneratingDatabase:
		return e.runUnits(ctx, r, stage, schemaUnits(r.plan))
	case domain.StageGeneratingAPI:
		return e.runUnits(ctx, r, stage, endpointUnits(r.plan))
	case domain.StageGeneratingComponents:
		return e.runUnits(ctx, r, stage, componentUnits(r.plan))
	case domain.StageIntegrating:
		return e.runUnits(ctx, r, stage, integrationUnits(r.plan))
	case domain.StageTesting:
		return e.stageTesting(ctx, r)
	case domain.StageDocumenting:
		return e.stageDocumenting(ctx, r)
	case domain.StageDeploying:
		return e.stageDeploying(ctx, r)
	case domain.StageCompleted:
		return nil
	}
	return nil
}

func (e *Executor) stageInitializing(r *run) error {
	// Planning errors were already tolerated upstream (empty plan); an
	// invariant violation here means a planner bug, which is fatal.
	if err := domain.ValidatePlan(r.plan); err != nil {
		return domain.WrapPipelineError(domain.StageInitializing, domain.CodePlanInput, "validate plan", err)
	}
	return nil
}

func (e *Executor) stageAnalyzing(r *run) error {
	e.emit(r, domain.StageAnalyzing,
		fmt.Sprintf("Planned %d work items", r.plan.ItemCount()), "", nil,
		domain.StepDetail{TotalSteps: 1, CurrentStep: 1, StepDescription: "requirement analysis"})
	return nil
}

func (e *Executor) stageTesting(ctx context.Context, r *run) error {
	if !r.opts.GenerateTests {
		return nil
	}
	return e.runUnits(ctx, r, domain.StageTesting, []workUnit{{
		name:     "test_suite",
		category: domain.CategoryTests,
	}})
}

func (e *Executor) stageDocumenting(ctx context.Context, r *run) error {
	if r.opts.GenerateDocumentation {
		if err := e.runUnits(ctx, r, domain.StageDocumenting, []workUnit{{
			name:     "documentation",
			category: domain.CategoryDocumentation,
		}}); err != nil {
			return err
		}
	}
	if r.opts.ValidateOutput {
		r.validation = validateArtifacts(r.artifacts)
	}
	return nil
}

func (e *Executor) stageDeploying(ctx context.Context, r *run) error {
	if r.opts.DeploymentTarget == domain.TargetNone || e.deployer == nil {
		return nil
	}
	e.emit(r, domain.StageDeploying, "Deploying application", "", nil,
		domain.StepDetail{TotalSteps: 1, CurrentStep: 1, StepDescription: "deployment"})

	var url string
	err := e.withRetry(ctx, r, domain.StageDeploying, "deploy", func(cctx context.Context) error {
		var derr error
		url, derr = e.deployer.Deploy(cctx, r.req, r.opts.DeploymentTarget, r.artifacts)
		return derr
	})
	if err != nil {
		return domain.WrapPipelineError(domain.StageDeploying, domain.CodeDeploy, "deploy", err)
	}
	r.deploymentURL = url
	return nil
}

// workUnit is one collaborator invocation within a stage. Units sharing a
// dependency signature are serialized relative to each other; see runUnits.
type workUnit struct {
	name       string
	category   domain.ArtifactCategory
	complexity domain.Complexity
	depSig     string
}

func schemaUnits(plan *domain.GenerationPlan) []workUnit {
	units := make([]workUnit, 0, len(plan.Schemas))
	for _, s := range plan.Schemas {
		units = append(units, workUnit{
			name:       s.Name,
			category:   domain.CategoryDatabase,
			complexity: s.Complexity,
		})
	}
	return units
}

func endpointUnits(plan *domain.GenerationPlan) []workUnit {
	units := make([]workUnit, 0, len(plan.Endpoints))
	for _, ep := range plan.Endpoints {
		units = append(units, workUnit{
			name:       ep.Name,
			category:   domain.CategoryAPI,
			complexity: ep.Complexity,
			depSig:     depSignature(ep.Dependencies),
		})
	}
	return units
}

func componentUnits(plan *domain.GenerationPlan) []workUnit {
	units := make([]workUnit, 0, len(plan.Components))
	for _, c := range plan.Components {
		units = append(units, workUnit{
			name:       c.Name,
			category:   domain.CategoryComponents,
			complexity: c.Complexity,
			depSig:     depSignature(c.Dependencies),
		})
	}
	return units
}

func integrationUnits(plan *domain.GenerationPlan) []workUnit {
	units := make([]workUnit, 0, len(plan.Workflows)+len(plan.Chatbots))
	for _, w := range plan.Workflows {
		units = append(units, workUnit{
			name:       w.Name,
			category:   domain.CategoryWorkflows,
			complexity: w.Complexity,
			depSig:     depSignature(w.Dependencies),
		})
	}
	for _, b := range plan.Chatbots {
		units = append(units, workUnit{
			name:       b.Name,
			category:   domain.CategoryChatbots,
			complexity: b.Complexity,
		})
	}
	return units
}

// depSignature canonicalizes a dependency list so that two items touching the
// same targets land in the same serialization group.
func depSignature(deps []string) string {
	if len(deps) == 0 {
		return ""
	}
	sorted := append([]string{}, deps...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// runUnits executes the stage's work units. With Parallel set, units are
// grouped by dependency signature: groups run concurrently bounded by
// MaxConcurrency, units inside one group run sequentially so that items
// sharing a dependency target never race. A failing unit fails the whole
// stage after the join barrier; successful outputs are still merged.
func (e *Executor) runUnits(ctx context.Context, r *run, stage domain.Stage, units []workUnit) error {
	if len(units) == 0 {
		return nil
	}

	total := len(units)
	var step int
	var stepMu sync.Mutex
	nextStep := func() int {
		stepMu.Lock()
		defer stepMu.Unlock()
		step++
		return step
	}

	runOne := func(gctx context.Context, u workUnit) error {
		n := nextStep()
		e.emit(r, stage, fmt.Sprintf("Generating %s", u.name), u.name, nil, domain.StepDetail{
			TotalSteps:      total,
			CurrentStep:     n,
			StepDescription: u.name,
		})
		return e.invoke(gctx, r, stage, u)
	}

	if !r.opts.Parallel || total == 1 {
		for _, u := range units {
			if err := runOne(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}

	groups := make(map[string][]workUnit)
	var order []string
	for i, u := range units {
		key := u.depSig
		if key == "" {
			// Independent unit: its own group.
			key = fmt.Sprintf("\x00%d", i)
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], u)
	}

	sem := semaphore.NewWeighted(int64(r.opts.MaxConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range order {
		group := groups[key]
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			for _, u := range group {
				if err := runOne(gctx, u); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// invoke calls the unit's collaborator under the retry policy and merges the
// bundle on success. Categories without a registered collaborator are skipped,
// mirroring capability-gated generation steps.
func (e *Executor) invoke(ctx context.Context, r *run, stage domain.Stage, u workUnit) error {
	gen, ok := e.generators[u.category]
	if !ok {
		e.log.Info("skipping unit: no generator for category",
			slog.String("job_id", r.jobID),
			slog.String("unit", u.name),
			slog.String("category", string(u.category)))
		return nil
	}

	gopts := port.GenerateOptions{
		Component:     u.name,
		Category:      u.category,
		Complexity:    u.complexity,
		GenerateTests: r.opts.GenerateTests,
	}

	var bundle domain.ArtifactBundle
	err := e.withRetry(ctx, r, stage, u.name, func(cctx context.Context) error {
		var gerr error
		bundle, gerr = gen.Generate(cctx, r.req, gopts)
		return gerr
	})
	if err != nil {
		code := domain.CodeGenerator
		if errors.Is(err, context.DeadlineExceeded) {
			code = domain.CodeGeneratorTimeout
		}
		return domain.WrapPipelineError(stage, code, u.name, err)
	}

	r.merge(u.category, bundle)
	return nil
}

// withRetry runs fn under the per-call timeout, retrying with a fixed delay
// up to MaxRetries extra attempts when RetryOnFailure is set. The fixed delay
// is intentional: this policy recovers a computation, not a transport.
func (e *Executor) withRetry(ctx context.Context, r *run, stage domain.Stage, op string, fn func(context.Context) error) error {
	attempts := 1
	if r.opts.RetryOnFailure {
		attempts += r.opts.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.retryDelay):
			}
			e.log.Warn("retrying collaborator",
				slog.String("job_id", r.jobID),
				slog.String("stage", stage.String()),
				slog.String("op", op),
				slog.Int("attempt", attempt))
		}

		cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
		err := fn(cctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (e *Executor) emit(r *run, stage domain.Stage, msg, component string, errs []string, detail domain.StepDetail) {
	ev := domain.Progress{
		JobID:     r.jobID,
		Stage:     stage,
		Percent:   stage.Percent(),
		Message:   msg,
		Component: component,
		Errors:    errs,
		Detail:    detail,
	}
	e.publisher.Publish(r.jobID, ev)
}

// validateArtifacts is the optional output validation pass: it flags empty
// files and categories that produced nothing.
func validateArtifacts(artifacts map[domain.ArtifactCategory]domain.ArtifactBundle) *domain.ValidationReport {
	report := &domain.ValidationReport{Passed: true}
	for cat, bundle := range artifacts {
		if len(bundle) == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("category %s produced no files", cat))
			report.Passed = false
			continue
		}
		for name, content := range bundle {
			if strings.TrimSpace(content) == "" {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s/%s is empty", cat, name))
				report.Passed = false
			}
		}
	}
	sort.Strings(report.Warnings)
	return report
}

func stageMessage(stage domain.Stage) string {
	switch stage {
	case domain.StageInitializing:
		return "Initializing generation pipeline"
	case domain.StageAnalyzing:
		return "Analyzing business requirement"
	case domain.StageGeneratingDatabase:
		return "Generating database schema"
	case domain.StageGeneratingAPI:
		return "Generating API endpoints"
	case domain.StageGeneratingComponents:
		return "Generating UI components"
	case domain.StageIntegrating:
		return "Integrating workflows and assistants"
	case domain.StageTesting:
		return "Generating tests"
	case domain.StageDocumenting:
		return "Generating documentation"
	case domain.StageDeploying:
		return "Deploying application"
	case domain.StageCompleted:
		return "Generation completed"
	default:
		return string(stage)
	}
}
