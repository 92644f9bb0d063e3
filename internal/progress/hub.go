// Package progress implements the per-job subscriber registry used to fan
// out generation progress events.
package progress

import (
	"log/slog"
	"sync"

	"github.com/strogmv/forge/internal/domain"
)

// Conn is one push-channel subscriber. Send must not block indefinitely; a
// returned error marks the connection dead for this event only.
type Conn interface {
	Send(ev domain.Progress) error
}

// Hub maps job ids to their live subscriber sets. One Hub exists per server
// process and is injected into everything that publishes or subscribes; there
// is no package-level instance.
//
// Delivery is best-effort with no backlog: events published while a job has
// zero subscribers are dropped, and a late subscriber only sees transitions
// that happen after it attached. The authoritative state of a run is its
// OrchestrationResult, not the progress stream.
type Hub struct {
	mu   sync.RWMutex
	jobs map[string]map[Conn]struct{}
	log  *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		jobs: make(map[string]map[Conn]struct{}),
		log:  log,
	}
}

// Subscribe registers conn for jobID. Idempotent per connection.
func (h *Hub) Subscribe(jobID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.jobs[jobID]
	if !ok {
		set = make(map[Conn]struct{})
		h.jobs[jobID] = set
	}
	set[conn] = struct{}{}
}

// Unsubscribe removes conn from jobID. The registry entry is dropped when the
// set becomes empty.
func (h *Hub) Unsubscribe(jobID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.jobs[jobID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.jobs, jobID)
	}
}

// Publish delivers ev to every subscriber of jobID. A write failure to one
// connection is logged and does not affect delivery to others, nor the run.
func (h *Hub) Publish(jobID string, ev domain.Progress) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.jobs[jobID]))
	for c := range h.jobs[jobID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(ev); err != nil && h.log != nil {
			h.log.Debug("progress send failed",
				slog.String("job_id", jobID),
				slog.String("stage", ev.Stage.String()),
				slog.String("error", err.Error()))
		}
	}
}

// SubscriberCount returns the number of live subscribers for jobID.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.jobs[jobID])
}

// TotalSubscribers returns the number of live subscribers across all jobs.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.jobs {
		n += len(set)
	}
	return n
}
