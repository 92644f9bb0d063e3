package orchestrator

import (
	"sync"
	"time"

	"github.com/strogmv/forge/internal/domain"
)

// TimingRecorder tracks wall-clock bounds per stage. It is internal to one
// run and never exposed mid-flight; only the final metrics read it.
type TimingRecorder struct {
	mu      sync.Mutex
	timings map[domain.Stage]*domain.StageTiming
	now     func() time.Time
}

func NewTimingRecorder() *TimingRecorder {
	return &TimingRecorder{
		timings: make(map[domain.Stage]*domain.StageTiming),
		now:     time.Now,
	}
}

// RecordStart marks the stage as started. Calling it twice keeps the first
// start time.
func (r *TimingRecorder) RecordStart(stage domain.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.timings[stage]; ok {
		return
	}
	r.timings[stage] = &domain.StageTiming{Start: r.now()}
}

// RecordEnd marks the stage as finished. A stage that never started is
// ignored.
func (r *TimingRecorder) RecordEnd(stage domain.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timings[stage]
	if !ok || t.End != nil {
		return
	}
	end := r.now()
	t.End = &end
}

// Snapshot returns a copy of all recorded timings.
func (r *TimingRecorder) Snapshot() map[domain.Stage]domain.StageTiming {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.Stage]domain.StageTiming, len(r.timings))
	for stage, t := range r.timings {
		out[stage] = *t
	}
	return out
}
