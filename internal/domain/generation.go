package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MaxReferenceImages caps the reference images accepted per request.
const MaxReferenceImages = 4

// GenerationRequest is the immutable input of one pipeline invocation.
type GenerationRequest struct {
	Prompt          string
	Style           string
	ReferenceImages []string
}

// Validate checks the request before any outbound call is made.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return NewPipelineError(ErrValidationFailed, StageValidate, "prompt is required", nil)
	}
	if len(r.ReferenceImages) > MaxReferenceImages {
		return NewPipelineError(ErrValidationFailed, StageValidate,
			fmt.Sprintf("at most %d reference images are allowed", MaxReferenceImages), nil)
	}
	for i, ref := range r.ReferenceImages {
		u, err := url.Parse(strings.TrimSpace(ref))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return NewPipelineError(ErrValidationFailed, StageValidate,
				fmt.Sprintf("reference image %d must be an absolute http(s) url", i+1), err)
		}
	}
	return nil
}

// RefinedPrompt is the generation prompt derived from a request.
type RefinedPrompt struct {
	Text string
	// Refined is false when the raw prompt was used unchanged.
	Refined bool
}

// PipelineResult is handed back to the caller of a successful (possibly
// partial) generation.
type PipelineResult struct {
	GenerationID  string
	Task          GenerationTask
	RefinedPrompt RefinedPrompt
	SourceURLs    []string
	Assets        []GeneratedAsset
	Failures      []VariantFailure
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Partial reports whether some variants failed to persist.
func (r *PipelineResult) Partial() bool {
	return r != nil && len(r.Failures) > 0 && len(r.Assets) > 0
}

// Message returns the human-readable status for the result.
func (r *PipelineResult) Message() string {
	if r.Partial() {
		return fmt.Sprintf("Generated %d of %d thumbnails; some variants could not be saved.",
			len(r.Assets), len(r.Assets)+len(r.Failures))
	}
	return "Thumbnail generated successfully!"
}
