package domain

import "time"

// TaskStatus is the normalized status of a backend generation task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusTimedOut  TaskStatus = "timed_out"
	TaskStatusUnknown   TaskStatus = "unknown"
)

// Terminal reports whether no further transition can occur from s.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusSucceeded, TaskStatusFailed, TaskStatusTimedOut:
		return true
	default:
		return false
	}
}

// Failure sub-reasons recorded on terminal non-success outcomes.
const (
	ReasonBackendFailed     = "backend_failed"
	ReasonTaskNotFound      = "task_not_found"
	ReasonAttemptsExhausted = "attempts_exhausted"
	ReasonDeadlineExceeded  = "deadline_exceeded"
	ReasonCanceled          = "canceled"
)

// GenerationTask tracks one in-flight job on the generation backend. Only the
// status poller mutates Status and Attempts.
type GenerationTask struct {
	ID        string
	CreatedAt time.Time
	Status    TaskStatus
	Attempts  int
}

// Size is a pixel size in width x height.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ThumbnailSize is the fixed target size for generated thumbnails.
var ThumbnailSize = Size{Width: 1280, Height: 720}
