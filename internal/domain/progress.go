package domain

// StepDetail locates the current sub-step inside a stage.
type StepDetail struct {
	TotalSteps      int    `json:"totalSteps"`
	CurrentStep     int    `json:"currentStep"`
	StepDescription string `json:"stepDescription,omitempty"`
}

// Progress is one observable state change of a run. Events are broadcast and
// then discarded; no history is kept unless the run opted into persistence.
type Progress struct {
	JobID     string     `json:"jobId"`
	Stage     Stage      `json:"stage"`
	Percent   int        `json:"percent"`
	Message   string     `json:"message"`
	Component string     `json:"component,omitempty"`
	Errors    []string   `json:"errors,omitempty"`
	Detail    StepDetail `json:"detail"`
}
