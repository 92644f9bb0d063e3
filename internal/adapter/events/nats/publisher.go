// Package nats fans progress events out to a NATS subject per job, for
// consumers beyond the process-local websocket hub. Publishing is
// best-effort and never affects the run.
package nats

import (
	"encoding/json"
	"log/slog"

	natspkg "github.com/nats-io/nats.go"

	"github.com/strogmv/forge/internal/domain"
)

const subjectPrefix = "forge.progress."

type Publisher struct {
	nc  *natspkg.Conn
	log *slog.Logger
}

func NewPublisher(url string, log *slog.Logger) (*Publisher, error) {
	nc, err := natspkg.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, log: log}, nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}

func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.Status() == natspkg.CONNECTED
}

// Publish implements port.ProgressPublisher.
func (p *Publisher) Publish(jobID string, ev domain.Progress) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := p.nc.Publish(subjectPrefix+jobID, payload); err != nil {
		p.log.Debug("nats publish failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}
