package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ytthumbs/internal/assets"
	"ytthumbs/internal/domain"
	"ytthumbs/internal/imagegen"
	"ytthumbs/internal/providers/prompt"
)

const recordTimeout = 5 * time.Second

// Config bounds one pipeline invocation.
type Config struct {
	PollMaxAttempts int
	PollInterval    time.Duration
	// Timeout caps the whole invocation on top of the caller's deadline.
	Timeout  time.Duration
	Variants int
}

// Deps are the collaborators of an Orchestrator. Refiner, Recorder and
// Metrics are optional.
type Deps struct {
	Refiner   prompt.Refiner
	Submitter *imagegen.Submitter
	Poller    *imagegen.Poller
	Persister *assets.Persister
	Recorder  domain.GenerationRecorder
	Metrics   *Metrics
	Logger    zerolog.Logger
}

// Orchestrator runs validate, refine, submit, poll, extract and persist in
// order for each request. It holds no per-request state.
type Orchestrator struct {
	deps  Deps
	cfg   Config
	newID func() string
	now   func() time.Time
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 1500 * time.Millisecond
	}
	if cfg.Variants <= 0 {
		cfg.Variants = 1
	}
	return &Orchestrator{deps: deps, cfg: cfg, newID: uuid.NewString, now: time.Now}
}

// Generate runs the pipeline for req. On success the result holds at least one
// asset; when some variants failed to persist the result is partial and
// Failures lists them.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.PipelineResult, error) {
	if err := req.Validate(); err != nil {
		o.deps.Metrics.observeRun(domain.CodeOf(err))
		return nil, err
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	res := &domain.PipelineResult{GenerationID: o.newID(), StartedAt: o.now()}
	log := o.deps.Logger.With().Str("generation_id", res.GenerationID).Logger()

	err := o.run(ctx, log, req, res)
	res.FinishedAt = o.now()
	o.record(ctx, log, req, res, err)

	outcome := "success"
	switch {
	case err != nil:
		outcome = domain.CodeOf(err)
		log.Error().Err(err).Str("code", outcome).Msg("generation failed")
	case res.Partial():
		outcome = "partial"
		log.Warn().Int("assets", len(res.Assets)).Int("failures", len(res.Failures)).Msg("generation partially persisted")
	default:
		log.Info().Int("assets", len(res.Assets)).Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).Msg("generation completed")
	}
	o.deps.Metrics.observeRun(outcome)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, log zerolog.Logger, req domain.GenerationRequest, res *domain.PipelineResult) error {
	started := time.Now()
	res.RefinedPrompt = o.refine(ctx, log, req)
	o.deps.Metrics.observeStage(domain.StageRefine, started)

	// Refinement may have used up the budget; a late task would be orphaned.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return interrupted(domain.StageSubmit, ctxErr)
	}
	started = time.Now()
	task, err := o.deps.Submitter.Submit(ctx, res.RefinedPrompt.Text, req.ReferenceImages)
	o.deps.Metrics.observeStage(domain.StageSubmit, started)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return interrupted(domain.StageSubmit, ctxErr)
		}
		return err
	}
	res.Task = *task
	log = log.With().Str("task_id", task.ID).Logger()

	started = time.Now()
	outcome := o.deps.Poller.Track(ctx, task, o.cfg.PollMaxAttempts, o.cfg.PollInterval)
	o.deps.Metrics.observeStage(domain.StagePoll, started)
	o.deps.Metrics.observePoll(outcome.Attempts)
	res.Task = *task

	switch outcome.Status {
	case domain.TaskStatusSucceeded:
	case domain.TaskStatusFailed:
		return domain.NewPipelineError(domain.ErrGenerationFailed, domain.StagePoll, failureDetail(outcome.Reason), outcome.LastErr)
	default:
		// The backend cannot cancel tasks; it may still finish this one.
		log.Warn().Str("reason", outcome.Reason).Int("attempts", outcome.Attempts).Msg("abandoning orphaned generation task")
		return domain.NewPipelineError(domain.ErrGenerationTimedOut, domain.StagePoll, timeoutDetail(outcome.Reason), outcome.LastErr)
	}

	sources, err := imagegen.ExtractAll(imagegen.DecodeResult(outcome.Payload), o.cfg.Variants)
	if err != nil {
		log.Error().RawJSON("payload", rawJSON(outcome.Payload)).Msg("terminal payload had no usable image")
		return err
	}
	res.SourceURLs = sources

	started = time.Now()
	res.Assets, res.Failures = o.deps.Persister.PersistAll(ctx, res.GenerationID, task.ID, sources)
	o.deps.Metrics.observeStage(domain.StagePersist, started)
	o.deps.Metrics.observeVariants(len(res.Assets), len(res.Failures))
	if len(res.Assets) == 0 {
		var cause error
		if len(res.Failures) > 0 {
			cause = res.Failures[0].Err
		}
		return domain.NewPipelineError(domain.ErrPersistenceFailed, domain.StagePersist, "the generated image could not be saved", errors.Unwrap(cause))
	}
	return nil
}

func (o *Orchestrator) refine(ctx context.Context, log zerolog.Logger, req domain.GenerationRequest) domain.RefinedPrompt {
	raw := domain.RefinedPrompt{Text: req.Prompt}
	if o.deps.Refiner == nil {
		return raw
	}
	text, err := o.deps.Refiner.Refine(ctx, req.Prompt, req.Style)
	if err != nil {
		log.Warn().Err(err).Msg("prompt refinement unavailable, using raw prompt")
		return raw
	}
	return domain.RefinedPrompt{Text: text, Refined: true}
}

// record writes history best-effort. It outlives a canceled request context
// so failures are recorded too.
func (o *Orchestrator) record(ctx context.Context, log zerolog.Logger, req domain.GenerationRequest, res *domain.PipelineResult, runErr error) {
	if o.deps.Recorder == nil {
		return
	}
	rec := domain.GenerationRecord{
		ID:            res.GenerationID,
		TaskID:        res.Task.ID,
		Prompt:        req.Prompt,
		Style:         req.Style,
		RefinedPrompt: res.RefinedPrompt.Text,
		Status:        "succeeded",
		Assets:        res.Assets,
		CreatedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
	}
	if res.Partial() {
		rec.Status = "partial"
	}
	if runErr != nil {
		rec.Status = "failed"
		rec.ErrorCode = domain.CodeOf(runErr)
		rec.ErrorDetail = domain.DetailOf(runErr)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := o.deps.Recorder.Record(ctx, rec); err != nil {
		log.Error().Err(err).Msg("record generation history failed")
	}
}

func failureDetail(reason string) string {
	if reason == domain.ReasonTaskNotFound {
		return "the generation task no longer exists on the backend"
	}
	return "the generation backend reported a failure"
}

// interrupted reports a context error hit outside polling as a timeout.
func interrupted(stage string, ctxErr error) error {
	reason := domain.ReasonCanceled
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		reason = domain.ReasonDeadlineExceeded
	}
	return domain.NewPipelineError(domain.ErrGenerationTimedOut, stage, timeoutDetail(reason), ctxErr)
}

func timeoutDetail(reason string) string {
	switch reason {
	case domain.ReasonCanceled:
		return "the request was canceled before generation finished"
	case domain.ReasonDeadlineExceeded:
		return "generation did not finish before the deadline"
	default:
		return "generation did not finish within the allowed status checks"
	}
}

func rawJSON(raw []byte) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("null")
	}
	return raw
}
