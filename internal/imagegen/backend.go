package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ytthumbs/internal/domain"
	"ytthumbs/internal/providers/freepik"
)

// ErrTaskNotFound is returned by a Backend when the task id is unknown.
var ErrTaskNotFound = errors.New("task not found")

// Snapshot is one raw status observation of a backend task.
type Snapshot struct {
	Status    string
	Generated json.RawMessage
}

// Backend is the outbound contract for the generation service.
type Backend interface {
	CreateTask(ctx context.Context, prompt string, refs []string, size domain.Size) (string, error)
	TaskStatus(ctx context.Context, taskID string) (*Snapshot, error)
}

// FreepikBackend adapts the Freepik client to Backend.
type FreepikBackend struct {
	client *freepik.Client
}

func NewFreepikBackend(client *freepik.Client) *FreepikBackend {
	return &FreepikBackend{client: client}
}

func (b *FreepikBackend) CreateTask(ctx context.Context, prompt string, refs []string, size domain.Size) (string, error) {
	return b.client.CreateTask(ctx, freepik.CreateTaskRequest{
		Prompt:          prompt,
		ReferenceImages: refs,
		Size:            freepik.Size{Width: size.Width, Height: size.Height},
	})
}

func (b *FreepikBackend) TaskStatus(ctx context.Context, taskID string) (*Snapshot, error) {
	state, err := b.client.TaskStatus(ctx, taskID)
	if err != nil {
		if errors.Is(err, freepik.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &Snapshot{Status: state.Status, Generated: state.Generated}, nil
}

// Submitter starts generation tasks.
type Submitter struct {
	backend Backend
	logger  zerolog.Logger
	now     func() time.Time
}

func NewSubmitter(backend Backend, logger zerolog.Logger) *Submitter {
	return &Submitter{backend: backend, logger: logger, now: time.Now}
}

// Submit creates exactly one backend task. It never retries; retrying would
// risk billing twice for the same request.
func (s *Submitter) Submit(ctx context.Context, prompt string, refs []string) (*domain.GenerationTask, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.NewPipelineError(domain.ErrSubmissionRejected, domain.StageSubmit, "empty prompt", nil)
	}
	taskID, err := s.backend.CreateTask(ctx, prompt, refs, domain.ThumbnailSize)
	if err != nil {
		s.logger.Error().Err(err).Int("references", len(refs)).Msg("task submission failed")
		return nil, domain.NewPipelineError(domain.ErrSubmissionRejected, domain.StageSubmit,
			"the generation backend rejected the request", err)
	}
	if strings.TrimSpace(taskID) == "" {
		return nil, domain.NewPipelineError(domain.ErrSubmissionRejected, domain.StageSubmit,
			"the generation backend returned no task id", nil)
	}
	s.logger.Info().Str("task_id", taskID).Msg("task submitted")
	return &domain.GenerationTask{ID: taskID, CreatedAt: s.now(), Status: domain.TaskStatusPending}, nil
}
