package port

import (
	"context"

	"github.com/strogmv/forge/internal/domain"
)

// GenerateOptions are the per-invocation knobs passed to a collaborator.
type GenerateOptions struct {
	Component     string
	Category      domain.ArtifactCategory
	Complexity    domain.Complexity
	GenerateTests bool
}

// Generator is the single contract every artifact collaborator implements.
// Failure must surface as a returned error, never a malformed bundle, so the
// executor has one signal to retry on.
type Generator interface {
	Generate(ctx context.Context, req domain.BusinessRequirement, opts GenerateOptions) (domain.ArtifactBundle, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req domain.BusinessRequirement, opts GenerateOptions) (domain.ArtifactBundle, error)

func (f GeneratorFunc) Generate(ctx context.Context, req domain.BusinessRequirement, opts GenerateOptions) (domain.ArtifactBundle, error) {
	return f(ctx, req, opts)
}

// GeneratorSet maps artifact categories to their collaborators. Missing
// categories are skipped by the executor.
type GeneratorSet map[domain.ArtifactCategory]Generator

// Deployer publishes the final artifact bundle. Invoked exactly once, in the
// deploying stage, subject only to the generic retry policy.
type Deployer interface {
	Deploy(ctx context.Context, req domain.BusinessRequirement, target domain.DeploymentTarget, artifacts map[domain.ArtifactCategory]domain.ArtifactBundle) (string, error)
}
