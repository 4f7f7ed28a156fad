package repo

import (
	"context"
	"fmt"

	"ytthumbs/internal/domain"
	"ytthumbs/internal/infra"
	"ytthumbs/internal/sqlinline"
)

// GenerationRepository implements domain.GenerationRecorder on PostgreSQL.
type GenerationRepository struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository wraps an audited SQL executor.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepository {
	return &GenerationRepository{sql: sql}
}

var _ domain.GenerationRecorder = (*GenerationRepository)(nil)

// Record upserts the generation row and inserts its assets. Re-recording the
// same generation does not duplicate asset rows.
func (r *GenerationRepository) Record(ctx context.Context, rec domain.GenerationRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("repo: generation id is required")
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertGeneration,
		rec.ID,
		rec.TaskID,
		rec.Prompt,
		rec.Style,
		rec.RefinedPrompt,
		rec.Status,
		rec.ErrorCode,
		rec.ErrorDetail,
		rec.CreatedAt,
		rec.FinishedAt,
	); err != nil {
		return fmt.Errorf("repo: insert generation: %w", err)
	}

	for _, asset := range rec.Assets {
		if _, err := r.sql.Exec(ctx, sqlinline.QInsertGeneratedAsset,
			rec.ID,
			asset.VariantIndex,
			asset.Variant,
			asset.StorageID,
			asset.PublicURL,
			asset.SourceURL,
		); err != nil {
			return fmt.Errorf("repo: insert asset %d: %w", asset.VariantIndex, err)
		}
	}
	return nil
}

// Get loads a generation and its assets. It returns nil, nil when the id is unknown.
func (r *GenerationRepository) Get(ctx context.Context, id string) (*domain.GenerationRecord, error) {
	var rec domain.GenerationRecord
	err := r.sql.QueryRow(ctx, sqlinline.QSelectGeneration, id).Scan(
		&rec.ID,
		&rec.TaskID,
		&rec.Prompt,
		&rec.Style,
		&rec.RefinedPrompt,
		&rec.Status,
		&rec.ErrorCode,
		&rec.ErrorDetail,
		&rec.CreatedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("repo: select generation: %w", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QListGeneratedAssets, id)
	if err != nil {
		return nil, fmt.Errorf("repo: list assets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		asset := domain.GeneratedAsset{SourceTaskID: rec.TaskID}
		if err := rows.Scan(&asset.VariantIndex, &asset.Variant, &asset.StorageID, &asset.PublicURL, &asset.SourceURL); err != nil {
			return nil, fmt.Errorf("repo: scan asset: %w", err)
		}
		rec.Assets = append(rec.Assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate assets: %w", err)
	}
	return &rec, nil
}
