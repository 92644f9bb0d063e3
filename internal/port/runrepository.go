package port

import (
	"context"
	"errors"

	"github.com/strogmv/forge/internal/domain"
)

// ErrRunNotFound is returned when no run exists for the given job id.
var ErrRunNotFound = errors.New("run not found")

// RunRepository stores terminal orchestration results keyed by job id.
type RunRepository interface {
	Save(ctx context.Context, res *domain.OrchestrationResult) error
	FindByJobID(ctx context.Context, jobID string) (*domain.OrchestrationResult, error)
}
