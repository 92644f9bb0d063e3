package orchestrator

import (
	"testing"
	"time"

	"github.com/strogmv/forge/internal/domain"
)

func TestAssembleMetricsCountsLinesAndArtifacts(t *testing.T) {
	artifacts := map[domain.ArtifactCategory]domain.ArtifactBundle{
		domain.CategoryComponents: {
			"a.tsx": "one\ntwo\n",
			"b.tsx": "one\ntwo\nthree", // unterminated trailing line does not count
		},
		domain.CategoryAPI: {
			"routes.ts": "",
		},
	}
	start := time.Now()
	finish := start.Add(3 * time.Second)

	m := AssembleMetrics(nil, artifacts, nil, start, finish)

	if m.TotalDuration != 3*time.Second {
		t.Fatalf("total duration = %s", m.TotalDuration)
	}
	if m.ArtifactCounts[domain.CategoryComponents] != 2 {
		t.Fatalf("component artifacts = %d, want 2", m.ArtifactCounts[domain.CategoryComponents])
	}
	if m.GeneratedLines != 4 {
		t.Fatalf("generated lines = %d, want 4", m.GeneratedLines)
	}
}

func TestAssembleMetricsSkipsUnfinishedStages(t *testing.T) {
	start := time.Now()
	end := start.Add(time.Second)
	timings := map[domain.Stage]domain.StageTiming{
		domain.StageAnalyzing:     {Start: start, End: &end},
		domain.StageGeneratingAPI: {Start: start}, // aborted mid-flight
	}

	m := AssembleMetrics(nil, nil, timings, start, end)

	if _, ok := m.StageDurations[domain.StageAnalyzing]; !ok {
		t.Fatal("finished stage must have a duration entry")
	}
	if _, ok := m.StageDurations[domain.StageGeneratingAPI]; ok {
		t.Fatal("aborted stage must not have a duration entry")
	}
}

func TestTimingRecorderKeepsFirstStart(t *testing.T) {
	rec := NewTimingRecorder()
	rec.RecordStart(domain.StageTesting)
	first := rec.Snapshot()[domain.StageTesting].Start

	rec.RecordStart(domain.StageTesting)
	if got := rec.Snapshot()[domain.StageTesting].Start; !got.Equal(first) {
		t.Fatal("second RecordStart must not move the start time")
	}

	rec.RecordEnd(domain.StageTesting)
	snap := rec.Snapshot()[domain.StageTesting]
	if snap.End == nil {
		t.Fatal("expected end timestamp")
	}

	// Ending an unknown stage is a no-op.
	rec.RecordEnd(domain.StageDeploying)
	if _, ok := rec.Snapshot()[domain.StageDeploying]; ok {
		t.Fatal("RecordEnd must not create entries")
	}
}
