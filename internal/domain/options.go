package domain

// DeploymentTarget selects where the deploying stage publishes the bundle.
type DeploymentTarget string

const (
	TargetVercel  DeploymentTarget = "vercel"
	TargetNetlify DeploymentTarget = "netlify"
	TargetS3      DeploymentTarget = "s3"
	TargetNone    DeploymentTarget = "none"
)

// Options control one orchestration run.
type Options struct {
	Parallel              bool             `json:"parallel"`
	MaxConcurrency        int              `json:"maxConcurrency" validate:"min=0,max=64"`
	RetryOnFailure        bool             `json:"retryOnFailure"`
	MaxRetries            int              `json:"maxRetries" validate:"min=0,max=10"`
	GenerateTests         bool             `json:"generateTests"`
	GenerateDocumentation bool             `json:"generateDocumentation"`
	ValidateOutput        bool             `json:"validateOutput"`
	PersistProgress       bool             `json:"persistProgress"`
	DeploymentTarget      DeploymentTarget `json:"deploymentTarget" validate:"omitempty,oneof=vercel netlify s3 none"`
}

// DefaultOptions returns the options used when the caller supplies none.
func DefaultOptions() Options {
	return Options{
		Parallel:         true,
		MaxConcurrency:   4,
		RetryOnFailure:   true,
		MaxRetries:       2,
		DeploymentTarget: TargetNone,
	}
}

// Normalize fills zero values that would otherwise disable execution.
func (o *Options) Normalize() {
	if o.Parallel && o.MaxConcurrency < 1 {
		o.MaxConcurrency = 1
	}
	if o.DeploymentTarget == "" {
		o.DeploymentTarget = TargetNone
	}
}
