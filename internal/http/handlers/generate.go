package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"ytthumbs/internal/domain"
	"ytthumbs/internal/domain/style"
	"ytthumbs/internal/middleware"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 8 << 20
)

type generateRequest struct {
	Prompt          string          `json:"prompt"`
	Style           json.RawMessage `json:"style"`
	ReferenceImages []string        `json:"reference_images"`
}

type thumbnailResponse struct {
	URL       string `json:"url"`
	StorageID string `json:"storage_id"`
	Variant   string `json:"variant"`
	TaskID    string `json:"task_id"`
}

type failureResponse struct {
	Variant string `json:"variant"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type generateResponse struct {
	Success       bool                `json:"success"`
	GenerationID  string              `json:"generation_id"`
	Message       string              `json:"message"`
	Thumbnails    []thumbnailResponse `json:"thumbnails"`
	Thumbnail     *thumbnailResponse  `json:"thumbnail"`
	SourceURLs    []string            `json:"source_urls"`
	RefinedPrompt string              `json:"refined_prompt"`
	Failures      []failureResponse   `json:"failures"`
	Partial       bool                `json:"partial"`
}

// GenerateThumbnail accepts a JSON body or a form post and runs the pipeline
// synchronously.
func (a *App) GenerateThumbnail(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(w, r)
	if err != nil {
		a.error(w, http.StatusBadRequest, domain.CodeValidationFailed, err.Error())
		return
	}

	log := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()
	res, err := a.Generator.Generate(r.Context(), req)
	if err != nil {
		code := domain.CodeOf(err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrValidationFailed) {
			status = http.StatusBadRequest
		}
		log.Error().Err(err).Str("code", code).Msg("thumbnail generation failed")
		a.error(w, status, code, domain.DetailOf(err))
		return
	}

	a.json(w, http.StatusOK, toGenerateResponse(res))
}

func toGenerateResponse(res *domain.PipelineResult) generateResponse {
	out := generateResponse{
		Success:       true,
		GenerationID:  res.GenerationID,
		Message:       res.Message(),
		Thumbnails:    make([]thumbnailResponse, 0, len(res.Assets)),
		SourceURLs:    res.SourceURLs,
		RefinedPrompt: res.RefinedPrompt.Text,
		Failures:      make([]failureResponse, 0, len(res.Failures)),
		Partial:       res.Partial(),
	}
	for _, asset := range res.Assets {
		out.Thumbnails = append(out.Thumbnails, thumbnailResponse{
			URL:       asset.PublicURL,
			StorageID: asset.StorageID,
			Variant:   asset.Variant,
			TaskID:    asset.SourceTaskID,
		})
	}
	if len(out.Thumbnails) > 0 {
		first := out.Thumbnails[0]
		out.Thumbnail = &first
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, failureResponse{
			Variant: domain.VariantLabel(f.VariantIndex),
			Code:    domain.CodeOf(f.Err),
			Message: domain.DetailOf(f.Err),
		})
	}
	return out
}

func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (domain.GenerationRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		return decodeForm(w, r, mediaType)
	default:
		return decodeJSON(w, r)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request) (domain.GenerationRequest, error) {
	var body generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&body); err != nil {
		return domain.GenerationRequest{}, fmt.Errorf("invalid payload")
	}
	desc, err := style.Parse(body.Style)
	if err != nil {
		return domain.GenerationRequest{}, err
	}
	return domain.GenerationRequest{
		Prompt:          strings.TrimSpace(body.Prompt),
		Style:           desc.Describe(),
		ReferenceImages: trimAll(body.ReferenceImages),
	}, nil
}

func decodeForm(w http.ResponseWriter, r *http.Request, mediaType string) (domain.GenerationRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxMultipartBody)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return domain.GenerationRequest{}, fmt.Errorf("invalid form")
	}

	var desc style.Descriptor
	raw := strings.TrimSpace(r.PostFormValue("promptStyle"))
	if strings.HasPrefix(raw, "{") {
		desc, err = style.Parse(json.RawMessage(raw))
		if err != nil {
			return domain.GenerationRequest{}, err
		}
	} else {
		desc = style.FromText(raw)
		desc.Normalize()
		if err := desc.Validate(); err != nil {
			return domain.GenerationRequest{}, err
		}
	}

	return domain.GenerationRequest{
		Prompt:          strings.TrimSpace(r.PostFormValue("prompt")),
		Style:           desc.Describe(),
		ReferenceImages: trimAll(r.PostForm["imageUrls"]),
	}, nil
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
