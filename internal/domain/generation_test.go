package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerationRequestValidate(t *testing.T) {
	cases := []struct {
		name  string
		req   GenerationRequest
		valid bool
	}{
		{name: "ok", req: GenerationRequest{Prompt: "gaming thumbnail"}, valid: true},
		{name: "empty", req: GenerationRequest{Prompt: ""}},
		{name: "whitespace", req: GenerationRequest{Prompt: " \t\n "}},
		{name: "relative_reference", req: GenerationRequest{Prompt: "x", ReferenceImages: []string{"/img.png"}}},
		{name: "ftp_reference", req: GenerationRequest{Prompt: "x", ReferenceImages: []string{"ftp://host/img.png"}}},
		{name: "https_reference", req: GenerationRequest{Prompt: "x", ReferenceImages: []string{"https://res.cloudinary.com/a.png"}}, valid: true},
		{name: "too_many", req: GenerationRequest{Prompt: "x", ReferenceImages: []string{"https://a/1", "https://a/2", "https://a/3", "https://a/4", "https://a/5"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrValidationFailed), "got %v", err)
		})
	}
}

func TestPipelineResultPartial(t *testing.T) {
	full := &PipelineResult{Assets: []GeneratedAsset{{}}}
	assert.False(t, full.Partial())
	assert.Equal(t, "Thumbnail generated successfully!", full.Message())

	partial := &PipelineResult{Assets: []GeneratedAsset{{}}, Failures: []VariantFailure{{VariantIndex: 1}}}
	assert.True(t, partial.Partial())
	assert.Contains(t, partial.Message(), "1 of 2")
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusUnknown.Terminal())
	assert.True(t, TaskStatusSucceeded.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
	assert.True(t, TaskStatusTimedOut.Terminal())
	assert.Equal(t, "Style 2", VariantLabel(1))
}
