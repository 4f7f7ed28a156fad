package handlers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ytthumbs/internal/domain"
	"ytthumbs/pkg/zip"
)

const maxArchiveAssetBytes = 25 << 20

// GetGenerationArchive downloads every stored thumbnail of a generation and
// returns them as one zip file.
func (a *App) GetGenerationArchive(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		a.error(w, http.StatusServiceUnavailable, "history_disabled", "generation history is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid generation id")
		return
	}
	rec, err := a.History.Get(r.Context(), id)
	if err != nil {
		a.Logger.Error().Err(err).Str("generation_id", id).Msg("load generation")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation")
		return
	}
	if rec == nil || len(rec.Assets) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "generation has no thumbnails")
		return
	}

	files := make([]zip.Asset, 0, len(rec.Assets))
	for _, asset := range rec.Assets {
		file, err := a.fetchAsset(r.Context(), asset)
		if err != nil {
			a.Logger.Error().Err(err).Str("generation_id", id).Str("url", asset.PublicURL).Msg("fetch asset for archive")
			a.error(w, http.StatusBadGateway, "asset_unavailable", "a stored thumbnail could not be downloaded")
			return
		}
		file.Modified = rec.FinishedAt
		files = append(files, file)
	}
	data, err := zip.ArchiveAssets(files)
	if err != nil {
		a.Logger.Error().Err(err).Str("generation_id", id).Msg("build archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="thumbnails_%s.zip"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) fetchAsset(ctx context.Context, asset domain.GeneratedAsset) (zip.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.PublicURL, nil)
	if err != nil {
		return zip.Asset{}, err
	}
	resp, err := a.Fetch.Do(req)
	if err != nil {
		return zip.Asset{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return zip.Asset{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveAssetBytes+1))
	if err != nil {
		return zip.Asset{}, err
	}
	if len(data) > maxArchiveAssetBytes {
		return zip.Asset{}, fmt.Errorf("asset exceeds %d bytes", maxArchiveAssetBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	name := path.Base(asset.StorageID)
	if name == "." || name == "/" {
		name = fmt.Sprintf("thumbnail_%d", asset.VariantIndex+1)
	}
	if path.Ext(name) == "" {
		ext := ".jpg"
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mediaType {
			case "image/png":
				ext = ".png"
			case "image/webp":
				ext = ".webp"
			}
		}
		name += ext
	}
	return zip.Asset{Filename: name, MIME: contentType, Data: data}, nil
}
