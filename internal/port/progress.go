package port

import (
	"context"

	"github.com/strogmv/forge/internal/domain"
)

// ProgressPublisher delivers progress events to whoever is listening.
// Publish is fire-and-forget: it must never block the executor or fail the
// run on slow or absent subscribers.
type ProgressPublisher interface {
	Publish(jobID string, ev domain.Progress)
}

// ProgressPublisherFunc adapts a function to ProgressPublisher.
type ProgressPublisherFunc func(jobID string, ev domain.Progress)

func (f ProgressPublisherFunc) Publish(jobID string, ev domain.Progress) {
	f(jobID, ev)
}

// HistoryStore keeps an ordered progress event history for runs that opted
// into persistence. Best-effort: write failures are logged, never fatal.
type HistoryStore interface {
	Append(ctx context.Context, jobID string, ev domain.Progress) error
	List(ctx context.Context, jobID string) ([]domain.Progress, error)
}
