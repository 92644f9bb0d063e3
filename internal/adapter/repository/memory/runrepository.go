// Package memory provides an in-memory implementation of the repository.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/port"
)

type RunRepository struct {
	mu   sync.RWMutex
	data map[string]*domain.OrchestrationResult
}

func NewRunRepository() *RunRepository {
	return &RunRepository{
		data: make(map[string]*domain.OrchestrationResult),
	}
}

func (r *RunRepository) Save(ctx context.Context, res *domain.OrchestrationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res == nil {
		return fmt.Errorf("result is required")
	}
	r.data[res.JobID] = res
	return nil
}

func (r *RunRepository) FindByJobID(ctx context.Context, jobID string) (*domain.OrchestrationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.data[jobID]
	if !ok {
		return nil, port.ErrRunNotFound
	}
	return res, nil
}

var _ port.RunRepository = (*RunRepository)(nil)
