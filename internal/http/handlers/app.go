package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"ytthumbs/internal/domain"
)

// Generator runs one thumbnail generation.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.PipelineResult, error)
}

// HistoryReader loads recorded generations.
type HistoryReader interface {
	Get(ctx context.Context, id string) (*domain.GenerationRecord, error)
}

type App struct {
	Generator Generator
	// History is nil when no database is configured.
	History HistoryReader
	Logger  zerolog.Logger
	// Fetch downloads stored assets for archives.
	Fetch *http.Client
}

func NewApp(gen Generator, history HistoryReader, logger zerolog.Logger) *App {
	return &App{
		Generator: gen,
		History:   history,
		Logger:    logger,
		Fetch:     &http.Client{Timeout: 30 * time.Second},
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
