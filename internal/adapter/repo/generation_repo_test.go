package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ytthumbs/internal/domain"
	"ytthumbs/internal/sqlinline"
)

type execCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	calls   []execCall
	failOn  int
	rowErr  error
	execErr error
}

func (s *stubExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, execCall{query: query, args: args})
	if s.failOn > 0 && len(s.calls) == s.failOn {
		return pgconn.CommandTag{}, s.execErr
	}
	return pgconn.CommandTag{}, nil
}

func (s *stubExecutor) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: s.rowErr}
}

func (s *stubExecutor) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func sampleRecord() domain.GenerationRecord {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return domain.GenerationRecord{
		ID:         "2f0c5a8e-2b0b-4d0e-8a77-5f2c1f0e9d11",
		TaskID:     "t1",
		Prompt:     "cat on skateboard",
		Status:     string(domain.TaskStatusSucceeded),
		CreatedAt:  now,
		FinishedAt: now.Add(3 * time.Second),
		Assets: []domain.GeneratedAsset{
			{PublicURL: "https://cdn/a.jpg", StorageID: "a", Variant: "Style 1", VariantIndex: 0, SourceURL: "https://x/a.png"},
			{PublicURL: "https://cdn/b.jpg", StorageID: "b", Variant: "Style 2", VariantIndex: 1, SourceURL: "https://x/b.png"},
		},
	}
}

func TestRecordWritesGenerationThenAssets(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewGenerationRepository(exec)

	if err := repo.Record(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(exec.calls) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(exec.calls))
	}
	if exec.calls[0].query != sqlinline.QInsertGeneration {
		t.Fatal("first statement should insert the generation")
	}
	for i, call := range exec.calls[1:] {
		if call.query != sqlinline.QInsertGeneratedAsset {
			t.Fatalf("statement %d is not an asset insert", i+1)
		}
		if call.args[1] != i {
			t.Fatalf("variant index arg = %v, want %d", call.args[1], i)
		}
	}
}

func TestRecordStopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	exec := &stubExecutor{failOn: 1, execErr: boom}

	err := NewGenerationRepository(exec).Record(context.Background(), sampleRecord())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(exec.calls))
	}
}

func TestRecordRequiresID(t *testing.T) {
	rec := sampleRecord()
	rec.ID = ""
	if err := NewGenerationRepository(&stubExecutor{}).Record(context.Background(), rec); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetUnknownGeneration(t *testing.T) {
	rec, err := NewGenerationRepository(&stubExecutor{rowErr: pgx.ErrNoRows}).Get(context.Background(), "x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}
