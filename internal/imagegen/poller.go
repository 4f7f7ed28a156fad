package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ytthumbs/internal/domain"
)

// Outcome is the terminal result of polling one task.
type Outcome struct {
	Status   domain.TaskStatus
	Reason   string
	Attempts int
	// Payload holds the raw generated field of a Succeeded task.
	Payload json.RawMessage
	// LastErr is the most recent status query error, if any.
	LastErr error
}

// Poller drives a task from Pending to a terminal status.
type Poller struct {
	backend Backend
	logger  zerolog.Logger
	// after is swapped in tests.
	after func(time.Duration) <-chan time.Time
}

func NewPoller(backend Backend, logger zerolog.Logger) *Poller {
	return &Poller{backend: backend, logger: logger}
}

// Poll queries the task at most maxAttempts times, waiting interval between
// queries. Query errors are logged and consume an attempt. A not-found answer
// fails the task at once. Cancellation of ctx ends the wait promptly with
// TimedOut.
func (p *Poller) Poll(ctx context.Context, taskID string, maxAttempts int, interval time.Duration) Outcome {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	log := p.logger.With().Str("task_id", taskID).Logger()
	out := Outcome{Status: domain.TaskStatusPending}

	for out.Attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return timedOut(out, err)
		}
		out.Attempts++

		snap, err := p.backend.TaskStatus(ctx, taskID)
		switch {
		case errors.Is(err, ErrTaskNotFound):
			log.Warn().Int("attempt", out.Attempts).Msg("task not found on status query")
			out.Status, out.Reason, out.LastErr = domain.TaskStatusFailed, domain.ReasonTaskNotFound, err
			return out
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return timedOut(out, ctxErr)
			}
			out.LastErr = err
			log.Warn().Err(err).Int("attempt", out.Attempts).Msg("status query failed")
		default:
			status := NormalizeStatus(snap.Status)
			log.Debug().Int("attempt", out.Attempts).Str("raw_status", snap.Status).Str("status", string(status)).Msg("poll")
			switch status {
			case domain.TaskStatusSucceeded:
				out.Status, out.Payload = status, snap.Generated
				return out
			case domain.TaskStatusFailed:
				log.Error().RawJSON("payload", rawOrNull(snap.Generated)).Str("raw_status", snap.Status).Msg("backend reported failure")
				out.Status, out.Reason = status, domain.ReasonBackendFailed
				return out
			}
		}

		if out.Attempts == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return timedOut(out, ctx.Err())
		case <-p.wait(interval):
		}
	}

	out.Status, out.Reason = domain.TaskStatusTimedOut, domain.ReasonAttemptsExhausted
	return out
}

// Track polls task and records the terminal status and attempt count on it.
// It is the only place a submitted task changes after creation.
func (p *Poller) Track(ctx context.Context, task *domain.GenerationTask, maxAttempts int, interval time.Duration) Outcome {
	out := p.Poll(ctx, task.ID, maxAttempts, interval)
	task.Status, task.Attempts = out.Status, out.Attempts
	return out
}

func (p *Poller) wait(d time.Duration) <-chan time.Time {
	if p.after != nil {
		return p.after(d)
	}
	return time.After(d)
}

func timedOut(out Outcome, err error) Outcome {
	out.Status = domain.TaskStatusTimedOut
	out.Reason = domain.ReasonCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		out.Reason = domain.ReasonDeadlineExceeded
	}
	if out.LastErr == nil {
		out.LastErr = err
	}
	return out
}

func rawOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("null")
	}
	return raw
}
