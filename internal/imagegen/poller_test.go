package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytthumbs/internal/domain"
)

type statusReply struct {
	snap *Snapshot
	err  error
}

// scriptedBackend replays status replies in order and repeats the last one.
type scriptedBackend struct {
	mu          sync.Mutex
	replies     []statusReply
	statusCalls int
	createCalls int
	createID    string
	createErr   error
	lastRefs    []string
	lastSize    domain.Size
}

func (b *scriptedBackend) CreateTask(_ context.Context, _ string, refs []string, size domain.Size) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCalls++
	b.lastRefs, b.lastSize = refs, size
	return b.createID, b.createErr
}

func (b *scriptedBackend) TaskStatus(context.Context, string) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCalls++
	if len(b.replies) == 0 {
		return &Snapshot{Status: "pending"}, nil
	}
	i := b.statusCalls - 1
	if i >= len(b.replies) {
		i = len(b.replies) - 1
	}
	return b.replies[i].snap, b.replies[i].err
}

func status(s string) statusReply { return statusReply{snap: &Snapshot{Status: s}} }

func newTestPoller(b Backend) *Poller {
	p := NewPoller(b, zerolog.New(io.Discard))
	p.after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return p
}

func TestPollNormalizesStatuses(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.TaskStatus
	}{
		{"completed", domain.TaskStatusSucceeded},
		{"SUCCESS", domain.TaskStatusSucceeded},
		{"Successful", domain.TaskStatusSucceeded},
		{"failed", domain.TaskStatusFailed},
		{"ERROR", domain.TaskStatusFailed},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			backend := &scriptedBackend{replies: []statusReply{status(tc.raw)}}
			out := newTestPoller(backend).Poll(context.Background(), "t1", 5, time.Millisecond)
			assert.Equal(t, tc.want, out.Status)
			assert.Equal(t, 1, out.Attempts)
		})
	}
}

func TestTrackRecordsOutcomeOnTask(t *testing.T) {
	backend := &scriptedBackend{replies: []statusReply{status("processing"), status("completed")}}
	created := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	task := &domain.GenerationTask{ID: "t1", CreatedAt: created, Status: domain.TaskStatusPending}

	out := newTestPoller(backend).Track(context.Background(), task, 5, time.Millisecond)

	assert.Equal(t, domain.TaskStatusSucceeded, task.Status)
	assert.Equal(t, 2, task.Attempts)
	assert.Equal(t, out.Attempts, task.Attempts)
	assert.Equal(t, created, task.CreatedAt)
}

func TestPollUnrecognizedStatusConsumesAttempt(t *testing.T) {
	backend := &scriptedBackend{replies: []statusReply{status("processing"), status("IN_PROGRESS"), status("completed")}}
	out := newTestPoller(backend).Poll(context.Background(), "t1", 5, time.Millisecond)

	assert.Equal(t, domain.TaskStatusSucceeded, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, backend.statusCalls)
}

func TestPollTimesOutAfterExactlyMaxAttempts(t *testing.T) {
	backend := &scriptedBackend{replies: []statusReply{status("pending")}}
	waits := 0
	p := newTestPoller(backend)
	inner := p.after
	p.after = func(d time.Duration) <-chan time.Time {
		waits++
		return inner(d)
	}

	out := p.Poll(context.Background(), "t1", 3, time.Millisecond)

	assert.Equal(t, domain.TaskStatusTimedOut, out.Status)
	assert.Equal(t, domain.ReasonAttemptsExhausted, out.Reason)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, backend.statusCalls)
	assert.Equal(t, 2, waits, "no wait after the final attempt")
}

func TestPollNetworkErrorsCountTowardBudget(t *testing.T) {
	boom := errors.New("connection reset")
	backend := &scriptedBackend{replies: []statusReply{{err: boom}}}

	out := newTestPoller(backend).Poll(context.Background(), "t1", 4, time.Millisecond)

	assert.Equal(t, domain.TaskStatusTimedOut, out.Status)
	assert.Equal(t, 4, backend.statusCalls)
	assert.ErrorIs(t, out.LastErr, boom)
}

func TestPollRecoversFromTransientError(t *testing.T) {
	backend := &scriptedBackend{replies: []statusReply{
		{err: errors.New("timeout")},
		{snap: &Snapshot{Status: "COMPLETED", Generated: json.RawMessage(`["https://x/a.png"]`)}},
	}}
	out := newTestPoller(backend).Poll(context.Background(), "t1", 5, time.Millisecond)

	require.Equal(t, domain.TaskStatusSucceeded, out.Status)
	assert.JSONEq(t, `["https://x/a.png"]`, string(out.Payload))
	assert.Equal(t, 2, out.Attempts)
}

func TestPollNotFoundFailsImmediately(t *testing.T) {
	backend := &scriptedBackend{replies: []statusReply{{err: ErrTaskNotFound}}}
	out := newTestPoller(backend).Poll(context.Background(), "t1", 10, time.Millisecond)

	assert.Equal(t, domain.TaskStatusFailed, out.Status)
	assert.Equal(t, domain.ReasonTaskNotFound, out.Reason)
	assert.Equal(t, 1, backend.statusCalls)
}

func TestPollBackendFailureReason(t *testing.T) {
	backend := &scriptedBackend{replies: []statusReply{status("FAILED")}}
	out := newTestPoller(backend).Poll(context.Background(), "t1", 10, time.Millisecond)

	assert.Equal(t, domain.ReasonBackendFailed, out.Reason)
}

func TestPollDeadlineInterruptsWait(t *testing.T) {
	backend := &scriptedBackend{replies: []statusReply{status("pending")}}
	p := NewPoller(backend, zerolog.New(io.Discard))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := p.Poll(ctx, "t1", 50, time.Hour)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, domain.TaskStatusTimedOut, out.Status)
	assert.Equal(t, domain.ReasonDeadlineExceeded, out.Reason)
	assert.Equal(t, 1, out.Attempts)
}

func TestPollCanceledBeforeStart(t *testing.T) {
	backend := &scriptedBackend{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := newTestPoller(backend).Poll(ctx, "t1", 5, time.Millisecond)

	assert.Equal(t, domain.TaskStatusTimedOut, out.Status)
	assert.Equal(t, domain.ReasonCanceled, out.Reason)
	assert.Zero(t, backend.statusCalls)
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]domain.TaskStatus{
		" completed ": domain.TaskStatusSucceeded,
		"success":     domain.TaskStatusSucceeded,
		"Error":       domain.TaskStatusFailed,
		"":            domain.TaskStatusPending,
		"CREATED":     domain.TaskStatusPending,
		"processing":  domain.TaskStatusPending,
	}
	for raw, want := range cases {
		if got := NormalizeStatus(raw); got != want {
			t.Fatalf("NormalizeStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}
