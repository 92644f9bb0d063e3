package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/strogmv/forge/internal/adapter/generator/static"
	"github.com/strogmv/forge/internal/adapter/repository/memory"
	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/port"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sampleRequirement() domain.BusinessRequirement {
	return domain.BusinessRequirement{
		Name: "crm",
		Forms: []domain.FormEntity{
			{Name: "lead", Fields: []domain.FormField{{Name: "email", Type: "string"}}},
		},
	}
}

func newService(pub port.ProgressPublisher, opts ...Option) (*Orchestration, *memory.RunRepository) {
	repo := memory.NewRunRepository()
	if pub == nil {
		pub = port.ProgressPublisherFunc(func(string, domain.Progress) {})
	}
	return NewOrchestration(static.Generators(), nil, pub, repo, discard(), opts...), repo
}

func TestExecuteStoresResult(t *testing.T) {
	svc, repo := newService(nil)

	res, err := svc.Execute(context.Background(), sampleRequirement(), domain.DefaultOptions())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("run failed: %v", res.Errors)
	}

	stored, err := repo.FindByJobID(context.Background(), res.JobID)
	if err != nil {
		t.Fatalf("stored result missing: %v", err)
	}
	if stored.JobID != res.JobID {
		t.Fatalf("stored job id %q, want %q", stored.JobID, res.JobID)
	}
}

func TestStartRejectsInvalidConcurrency(t *testing.T) {
	svc, _ := newService(nil)

	opts := domain.DefaultOptions()
	opts.MaxConcurrency = -1
	if _, err := svc.Start(context.Background(), sampleRequirement(), opts); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestStatusReportsRunningThenResult(t *testing.T) {
	release := make(chan struct{})
	pub := port.ProgressPublisherFunc(func(_ string, ev domain.Progress) {
		if ev.Stage == domain.StageGeneratingDatabase {
			<-release
		}
	})
	svc, _ := newService(pub)

	jobID, err := svc.Start(context.Background(), sampleRequirement(), domain.DefaultOptions())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	state, err := svc.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !state.Running {
		t.Fatal("expected job to be reported as running")
	}
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for {
		state, err = svc.Status(context.Background(), jobID)
		if err == nil && !state.Running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if state.Result == nil || !state.Result.Success {
		t.Fatalf("unexpected terminal state: %+v", state.Result)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _ := newService(nil)
	if _, err := svc.Status(context.Background(), "nope"); err != port.ErrRunNotFound {
		t.Fatalf("got %v, want ErrRunNotFound", err)
	}
}

func TestHistoryWithoutStoreIsEmpty(t *testing.T) {
	svc, _ := newService(nil)
	events, err := svc.History(context.Background(), "any")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}
