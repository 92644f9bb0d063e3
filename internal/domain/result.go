package domain

import "time"

// StageTiming records the wall-clock bounds of one stage. End stays nil for a
// stage aborted mid-flight; such stages contribute no duration to metrics.
type StageTiming struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// ArtifactCategory keys the merged generated-file maps of a result.
type ArtifactCategory string

const (
	CategoryComponents    ArtifactCategory = "components"
	CategoryAPI           ArtifactCategory = "api"
	CategoryDatabase      ArtifactCategory = "database"
	CategoryWorkflows     ArtifactCategory = "workflows"
	CategoryChatbots      ArtifactCategory = "chatbots"
	CategoryTests         ArtifactCategory = "tests"
	CategoryDocumentation ArtifactCategory = "documentation"
)

// ArtifactBundle maps filename to content within one category.
type ArtifactBundle map[string]string

// Metrics are derived aggregates of a finished run.
type Metrics struct {
	TotalDuration  time.Duration            `json:"totalDuration"`
	StageDurations map[Stage]time.Duration  `json:"stageDurations"`
	ArtifactCounts map[ArtifactCategory]int `json:"artifactCounts"`
	GeneratedLines int                      `json:"generatedLines"`
	ComponentCount int                      `json:"componentCount"`
	EndpointCount  int                      `json:"endpointCount"`
	SchemaCount    int                      `json:"schemaCount"`
	WorkflowCount  int                      `json:"workflowCount"`
}

// ValidationReport is the optional output of the validation pass.
type ValidationReport struct {
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings,omitempty"`
}

// OrchestrationResult is the terminal artifact of a run, created exactly once
// at completion (success or failure) and immutable afterward.
type OrchestrationResult struct {
	JobID         string                              `json:"jobId"`
	Success       bool                                `json:"success"`
	DeploymentURL string                              `json:"deploymentUrl,omitempty"`
	Artifacts     map[ArtifactCategory]ArtifactBundle `json:"artifacts"`
	Metrics       Metrics                             `json:"metrics"`
	Validation    *ValidationReport                   `json:"validation,omitempty"`
	Errors        []string                            `json:"errors,omitempty"`
	StartedAt     time.Time                           `json:"startedAt"`
	FinishedAt    time.Time                           `json:"finishedAt"`
}
