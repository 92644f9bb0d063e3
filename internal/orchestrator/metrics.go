package orchestrator

import (
	"strings"
	"time"

	"github.com/strogmv/forge/internal/domain"
)

// AssembleMetrics derives the aggregate metrics of a finished run. It only
// counts and sums; collaborator output is never mutated. Stages without both
// a start and an end timestamp contribute no duration entry.
func AssembleMetrics(
	plan *domain.GenerationPlan,
	artifacts map[domain.ArtifactCategory]domain.ArtifactBundle,
	timings map[domain.Stage]domain.StageTiming,
	startedAt, finishedAt time.Time,
) domain.Metrics {
	m := domain.Metrics{
		TotalDuration:  finishedAt.Sub(startedAt),
		StageDurations: make(map[domain.Stage]time.Duration),
		ArtifactCounts: make(map[domain.ArtifactCategory]int),
	}

	for stage, t := range timings {
		if t.End == nil {
			continue
		}
		m.StageDurations[stage] = t.End.Sub(t.Start)
	}

	for cat, bundle := range artifacts {
		m.ArtifactCounts[cat] = len(bundle)
		for _, content := range bundle {
			// Generated lines are newline counts; an unterminated trailing
			// line does not add one.
			m.GeneratedLines += strings.Count(content, "\n")
		}
	}

	if plan != nil {
		m.ComponentCount = len(plan.Components)
		m.EndpointCount = len(plan.Endpoints)
		m.SchemaCount = len(plan.Schemas)
		m.WorkflowCount = len(plan.Workflows)
	}

	return m
}
