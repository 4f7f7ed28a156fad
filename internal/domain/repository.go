package domain

import (
	"context"
	"time"
)

// GenerationRecord is the history row written after each pipeline invocation.
type GenerationRecord struct {
	ID            string
	TaskID        string
	Prompt        string
	Style         string
	RefinedPrompt string
	Status        string
	ErrorCode     string
	ErrorDetail   string
	Assets        []GeneratedAsset
	CreatedAt     time.Time
	FinishedAt    time.Time
}

// GenerationRecorder persists generation history.
type GenerationRecorder interface {
	Record(ctx context.Context, rec GenerationRecord) error
}

// CredentialSource resolves provider API keys stored outside the environment.
type CredentialSource interface {
	Token(ctx context.Context, provider string) (string, error)
}
