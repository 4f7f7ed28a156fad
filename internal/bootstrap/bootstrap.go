// Package bootstrap assembles the generation pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ytthumbs/internal/adapter/repo"
	"ytthumbs/internal/assets"
	"ytthumbs/internal/domain"
	"ytthumbs/internal/infra"
	"ytthumbs/internal/infra/credentials"
	"ytthumbs/internal/imagegen"
	"ytthumbs/internal/pipeline"
	"ytthumbs/internal/providers/freepik"
	"ytthumbs/internal/providers/prompt"
	"ytthumbs/internal/storage"
)

// Service holds the assembled pipeline and the resources it owns.
type Service struct {
	Orchestrator *pipeline.Orchestrator
	// History is nil without a database.
	History   *repo.GenerationRepository
	Registry  *prometheus.Registry
	StaticDir string

	pool  *pgxpool.Pool
	redis *redis.Client
}

// Build connects optional backing services and wires every pipeline stage.
func Build(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Service, error) {
	svc := &Service{Registry: prometheus.NewRegistry()}
	svc.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pipeline.NewMetrics(svc.Registry)

	var creds domain.CredentialSource
	if cfg.HasDatabase() {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		svc.pool = pool
		runner := infra.NewSQLRunner(pool, infra.Component(logger, "sql"))
		svc.History = repo.NewGenerationRepository(runner)
		creds = credentials.NewStore(runner)
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.redis = rdb

	refiner, err := buildRefiner(ctx, cfg, creds, rdb, metrics, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}

	freepikKey, err := credentials.Resolve(ctx, creds, credentials.ProviderFreepik, cfg.FreepikAPIKey)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("bootstrap: resolve freepik key: %w", err)
	}
	if freepikKey == "" {
		svc.Close()
		return nil, fmt.Errorf("bootstrap: %w", freepik.ErrMissingAPIKey)
	}
	freepikLogger := infra.Component(logger, "freepik")
	backend := imagegen.NewFreepikBackend(freepik.NewClient(freepik.Options{
		APIKey:  freepikKey,
		BaseURL: cfg.FreepikBaseURL,
		Logger:  &freepikLogger,
	}))

	uploader, err := buildUploader(ctx, cfg, creds)
	if err != nil {
		svc.Close()
		return nil, err
	}
	if cfg.StorageDriver == infra.StorageDriverFilesystem {
		svc.StaticDir = cfg.StoragePath
	}

	deps := pipeline.Deps{
		Refiner:   refiner,
		Submitter: imagegen.NewSubmitter(backend, infra.Component(logger, "submitter")),
		Poller:    imagegen.NewPoller(backend, infra.Component(logger, "poller")),
		Persister: assets.NewPersister(uploader, assets.Options{
			Folder:     cfg.CloudinaryFolder,
			MaxRetries: cfg.PersistMaxRetries,
			Logger:     infra.Component(logger, "persister"),
		}),
		Metrics: metrics,
		Logger:  infra.Component(logger, "pipeline"),
	}
	if svc.History != nil {
		deps.Recorder = svc.History
	}
	svc.Orchestrator = pipeline.New(deps, pipeline.Config{
		PollMaxAttempts: cfg.PollMaxAttempts,
		PollInterval:    cfg.PollInterval,
		Timeout:         cfg.GenerationTimeout,
		Variants:        cfg.Variants,
	})
	return svc, nil
}

// Close releases the database pool and redis client.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildRefiner(ctx context.Context, cfg *infra.Config, creds domain.CredentialSource, rdb *redis.Client, metrics *pipeline.Metrics, logger zerolog.Logger) (prompt.Refiner, error) {
	log := infra.Component(logger, "refiner")
	key, err := credentials.Resolve(ctx, creds, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: resolve gemini key: %w", err)
	}
	if key == "" {
		log.Warn().Msg("no gemini api key; prompts are sent unrefined")
		return nil, nil
	}

	gemini, err := prompt.NewGeminiRefiner(prompt.Options{
		APIKey:    key,
		Model:     cfg.GeminiModel,
		BaseURL:   cfg.GeminiBaseURL,
		OnFailure: metrics.ObserveRefineFailure,
		OnWarning: func(reason, detail string) {
			log.Warn().Str("reason", reason).Msg(detail)
		},
	})
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return gemini, nil
	}
	return prompt.NewCachedRefiner(gemini, rdb, cfg.RefineCacheTTL, log), nil
}

func buildUploader(ctx context.Context, cfg *infra.Config, creds domain.CredentialSource) (storage.Uploader, error) {
	switch cfg.StorageDriver {
	case infra.StorageDriverFilesystem:
		return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL, nil)
	default:
		url, err := credentials.Resolve(ctx, creds, credentials.ProviderCloudinary, cfg.CloudinaryURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: resolve cloudinary url: %w", err)
		}
		return storage.NewCloudinaryStore(url)
	}
}
