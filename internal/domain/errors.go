package domain

import (
	"errors"
	"fmt"
)

// Taxonomy kinds surfaced by the generation pipeline. Match with errors.Is.
var (
	ErrValidationFailed      = errors.New("validation failed")
	ErrRefinementUnavailable = errors.New("refinement unavailable")
	ErrSubmissionRejected    = errors.New("submission rejected")
	ErrGenerationFailed      = errors.New("generation failed")
	ErrGenerationTimedOut    = errors.New("generation timed out")
	ErrNoResultFound         = errors.New("no result found")
	ErrPersistenceFailed     = errors.New("persistence failed")
)

// Stage names used when wrapping failures.
const (
	StageValidate = "validate"
	StageRefine   = "refine"
	StageSubmit   = "submit"
	StagePoll     = "poll"
	StageExtract  = "extract"
	StagePersist  = "persist"
)

// PipelineError carries the taxonomy kind, the failing stage and the cause.
// Detail is safe to show to callers; Err is for logs only.
type PipelineError struct {
	Kind   error
	Stage  string
	Detail string
	Err    error
}

// NewPipelineError wraps cause as a failure of the given kind at stage.
func NewPipelineError(kind error, stage, detail string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Detail: detail, Err: cause}
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *PipelineError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Wire codes returned to inbound callers.
const (
	CodeValidationFailed   = "validation_failed"
	CodeSubmissionRejected = "submission_rejected"
	CodeGenerationFailed   = "generation_failed"
	CodeGenerationTimedOut = "generation_timed_out"
	CodeNoResultFound      = "no_result_found"
	CodePersistenceFailed  = "persistence_failed"
	CodeRefinement         = "refinement_unavailable"
	CodeInternal           = "internal"
)

// CodeOf maps err to its stable wire code.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidationFailed):
		return CodeValidationFailed
	case errors.Is(err, ErrSubmissionRejected):
		return CodeSubmissionRejected
	case errors.Is(err, ErrGenerationFailed):
		return CodeGenerationFailed
	case errors.Is(err, ErrGenerationTimedOut):
		return CodeGenerationTimedOut
	case errors.Is(err, ErrNoResultFound):
		return CodeNoResultFound
	case errors.Is(err, ErrPersistenceFailed):
		return CodePersistenceFailed
	case errors.Is(err, ErrRefinementUnavailable):
		return CodeRefinement
	default:
		return CodeInternal
	}
}

// DetailOf returns the caller-safe detail of err, falling back to its kind.
func DetailOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		if pe.Detail != "" {
			return pe.Detail
		}
		if pe.Kind != nil {
			return pe.Kind.Error()
		}
	}
	return "internal error"
}
