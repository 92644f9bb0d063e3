package domain

import "fmt"

// Stable pipeline error codes.
const (
	CodePlanInput        = "E_PLAN_INPUT"
	CodeGenerator        = "E_GENERATOR"
	CodeGeneratorTimeout = "E_GENERATOR_TIMEOUT"
	CodeDeploy           = "E_DEPLOY"
	CodeTransport        = "E_TRANSPORT"
)

// PipelineError is a typed run error with stage and stable code.
type PipelineError struct {
	Stage Stage
	Code  string
	Op    string
	Err   error
}

func (e *PipelineError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "" {
		return fmt.Sprintf("[%s:%s] %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WrapPipelineError wraps err into a PipelineError and keeps the cause chain.
func WrapPipelineError(stage Stage, code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Stage: stage,
		Code:  code,
		Op:    op,
		Err:   err,
	}
}
