package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ytthumbs/internal/domain"
	"ytthumbs/internal/storage"
)

const maxConcurrentUploads = 4

// Options configures a Persister.
type Options struct {
	Folder     string
	MaxRetries int
	// RetryDelay is the initial backoff between attempts of one variant.
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

// Persister copies generated images into durable storage.
type Persister struct {
	store      storage.Uploader
	folder     string
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func NewPersister(store storage.Uploader, opts Options) *Persister {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Persister{
		store:      store,
		folder:     strings.Trim(opts.Folder, "/"),
		maxRetries: retries,
		retryDelay: delay,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Variant identifies one image to persist.
type Variant struct {
	GenerationID string
	TaskID       string
	SourceURL    string
	Index        int
}

// PublicID returns the destination name of a variant. It is unique per
// generation and variant index.
func PublicID(at time.Time, generationID string, index int) string {
	short := strings.ReplaceAll(generationID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("generated_%d_%s_%d", at.UnixMilli(), short, index)
}

// Persist uploads one variant, retrying transient failures with exponential
// backoff. Failures are reported as ErrPersistenceFailed.
func (p *Persister) Persist(ctx context.Context, v Variant) (*domain.GeneratedAsset, error) {
	publicID := PublicID(p.now(), v.GenerationID, v.Index)
	log := p.logger.With().Str("task_id", v.TaskID).Int("variant", v.Index).Str("public_id", publicID).Logger()

	req := storage.UploadRequest{
		SourceURL: v.SourceURL,
		Folder:    p.folder,
		PublicID:  publicID,
		Transform: storage.ThumbnailTransform,
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.retryDelay
	policy.MaxElapsedTime = 0

	attempt := 0
	var res *storage.UploadResult
	err := backoff.Retry(func() error {
		attempt++
		var err error
		res, err = p.store.Upload(ctx, req)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("variant upload failed")
			if errors.Is(err, storage.ErrRejected) {
				return backoff.Permanent(err)
			}
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.maxRetries)), ctx))
	if err != nil {
		return nil, domain.NewPipelineError(domain.ErrPersistenceFailed, domain.StagePersist,
			fmt.Sprintf("variant %d could not be saved", v.Index+1), err)
	}

	log.Info().Str("storage_id", res.StorageID).Msg("variant persisted")
	return &domain.GeneratedAsset{
		PublicURL:    res.PublicURL,
		StorageID:    res.StorageID,
		Variant:      domain.VariantLabel(v.Index),
		VariantIndex: v.Index,
		SourceTaskID: v.TaskID,
		SourceURL:    v.SourceURL,
	}, nil
}

// PersistAll uploads every source URL concurrently. A failed variant never
// cancels its siblings. Assets and failures are returned in variant order.
func (p *Persister) PersistAll(ctx context.Context, generationID, taskID string, sourceURLs []string) ([]domain.GeneratedAsset, []domain.VariantFailure) {
	results := make([]*domain.GeneratedAsset, len(sourceURLs))
	errs := make([]error, len(sourceURLs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentUploads)
	for i, src := range sourceURLs {
		i, src := i, src
		g.Go(func() error {
			results[i], errs[i] = p.Persist(ctx, Variant{
				GenerationID: generationID,
				TaskID:       taskID,
				SourceURL:    src,
				Index:        i,
			})
			return nil
		})
	}
	_ = g.Wait()

	var (
		assets   []domain.GeneratedAsset
		failures []domain.VariantFailure
	)
	for i := range sourceURLs {
		if errs[i] != nil {
			failures = append(failures, domain.VariantFailure{VariantIndex: i, SourceURL: sourceURLs[i], Err: errs[i]})
			continue
		}
		assets = append(assets, *results[i])
	}
	return assets, failures
}
