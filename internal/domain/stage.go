package domain

// Stage is one phase of the fixed generation pipeline. Transitions are
// monotonic forward except into StageFailed, which is reachable from any
// stage. StageCompleted and StageFailed are terminal.
type Stage string

const (
	StageInitializing         Stage = "initializing"
	StageAnalyzing            Stage = "analyzing"
	StageGeneratingDatabase   Stage = "generating_database"
	StageGeneratingAPI        Stage = "generating_api"
	StageGeneratingComponents Stage = "generating_components"
	StageIntegrating          Stage = "integrating"
	StageTesting              Stage = "testing"
	StageDocumenting          Stage = "documenting"
	StageDeploying            Stage = "deploying"
	StageCompleted            Stage = "completed"
	StageFailed               Stage = "failed"
)

// StageSequence is the forward walk order of a run. StageFailed is not part
// of the sequence; it is entered out of band.
var StageSequence = []Stage{
	StageInitializing,
	StageAnalyzing,
	StageGeneratingDatabase,
	StageGeneratingAPI,
	StageGeneratingComponents,
	StageIntegrating,
	StageTesting,
	StageDocumenting,
	StageDeploying,
	StageCompleted,
}

// stageWeights maps each stage to its cumulative percent. Progress computed
// from this table is monotonically non-decreasing over the sequence, which
// observers rely on.
var stageWeights = map[Stage]int{
	StageInitializing:         0,
	StageAnalyzing:            8,
	StageGeneratingDatabase:   20,
	StageGeneratingAPI:        35,
	StageGeneratingComponents: 50,
	StageIntegrating:          75,
	StageTesting:              80,
	StageDocumenting:          85,
	StageDeploying:            90,
	StageCompleted:            100,
	StageFailed:               100,
}

// Percent returns the cumulative progress percent for the stage.
func (s Stage) Percent() int {
	return stageWeights[s]
}

// Ordinal returns the position of the stage in the forward sequence, or -1
// for StageFailed and unknown values.
func (s Stage) Ordinal() int {
	for i, st := range StageSequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

func (s Stage) String() string {
	return string(s)
}
