package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func pngServer(t *testing.T, w, h int) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "image/png")
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFileStoreUploadFitsCanvas(t *testing.T) {
	srv := pngServer(t, 2000, 2000)
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/", nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	res, err := store.Upload(context.Background(), UploadRequest{
		SourceURL: srv.URL + "/out.png",
		Folder:    "ytthumbs/generated_thumbnails",
		PublicID:  "generated_1_ab_0",
		Transform: ThumbnailTransform,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.StorageID != "ytthumbs/generated_thumbnails/generated_1_ab_0" {
		t.Fatalf("storage id = %q", res.StorageID)
	}
	if res.PublicURL != "http://localhost:8080/static/ytthumbs/generated_thumbnails/generated_1_ab_0.jpg" {
		t.Fatalf("public url = %q", res.PublicURL)
	}

	f, err := os.Open(filepath.Join(dir, "ytthumbs", "generated_thumbnails", "generated_1_ab_0.jpg"))
	if err != nil {
		t.Fatalf("open stored file: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode stored jpeg: %v", err)
	}
	if cfg.Width != 720 || cfg.Height != 720 {
		t.Fatalf("stored size = %dx%d, want 720x720", cfg.Width, cfg.Height)
	}
}

func TestFileStoreDistinctIDsDoNotOverwrite(t *testing.T) {
	srv := pngServer(t, 64, 36)
	store, err := NewFileStore(t.TempDir(), "http://x", nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	req := UploadRequest{SourceURL: srv.URL, Folder: "f", PublicID: "same", Transform: ThumbnailTransform}

	if _, err := store.Upload(context.Background(), req); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := store.Upload(context.Background(), req); err == nil {
		t.Fatal("second upload to the same id should fail")
	}
	req.PublicID = "other"
	if _, err := store.Upload(context.Background(), req); err != nil {
		t.Fatalf("upload with distinct id: %v", err)
	}
}

func TestFileStoreRejectsBadSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "gone", http.StatusGone)
	}))
	defer srv.Close()
	store, err := NewFileStore(t.TempDir(), "http://x", nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, err = store.Upload(context.Background(), UploadRequest{SourceURL: srv.URL, Folder: "f", PublicID: "p", Transform: ThumbnailTransform})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestFileStoreUnavailableSourceIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	store, err := NewFileStore(t.TempDir(), "http://x", nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, err = store.Upload(context.Background(), UploadRequest{SourceURL: srv.URL, Folder: "f", PublicID: "p", Transform: ThumbnailTransform})
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want a retryable error", err)
	}
}

func TestFileStoreUndecodableSourceIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("not an image"))
	}))
	defer srv.Close()
	store, err := NewFileStore(t.TempDir(), "http://x", nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, err = store.Upload(context.Background(), UploadRequest{SourceURL: srv.URL, Folder: "f", PublicID: "p", Transform: ThumbnailTransform})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

// shortWriter writes half of the first buffer and then fails.
type shortWriter struct {
	f *os.File
}

func (w shortWriter) Write(p []byte) (int, error) {
	n, _ := w.f.Write(p[:len(p)/2])
	return n, errors.New("disk full")
}

func (w shortWriter) Close() error { return w.f.Close() }

func TestFileStoreRemovesPartialFileOnWriteFailure(t *testing.T) {
	srv := pngServer(t, 64, 36)
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://x", nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	failing := true
	store.create = func(name string) (io.WriteCloser, error) {
		f, err := createExclusive(name)
		if err != nil || !failing {
			return f, err
		}
		return shortWriter{f: f.(*os.File)}, nil
	}
	req := UploadRequest{SourceURL: srv.URL, Folder: "f", PublicID: "p", Transform: ThumbnailTransform}

	if _, err := store.Upload(context.Background(), req); err == nil {
		t.Fatal("expected write failure")
	}
	if _, err := os.Stat(filepath.Join(dir, "f", "p.jpg")); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}

	failing = false
	if _, err := store.Upload(context.Background(), req); err != nil {
		t.Fatalf("retry with the same id: %v", err)
	}
}

func TestFileStoreExistingKeyIsRejected(t *testing.T) {
	srv := pngServer(t, 64, 36)
	store, err := NewFileStore(t.TempDir(), "http://x", nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	req := UploadRequest{SourceURL: srv.URL, Folder: "f", PublicID: "dup", Transform: ThumbnailTransform}
	if _, err := store.Upload(context.Background(), req); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if _, err := store.Upload(context.Background(), req); !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{2560, 1440, 1280, 720},
		{640, 360, 1280, 720},
		{1000, 2000, 360, 720},
		{3000, 1000, 1280, 426},
	}
	for _, tc := range tests {
		got := fit(image.NewRGBA(image.Rect(0, 0, tc.w, tc.h)), 1280, 720).Bounds()
		if got.Dx() != tc.wantW || got.Dy() != tc.wantH {
			t.Fatalf("fit(%dx%d) = %dx%d, want %dx%d", tc.w, tc.h, got.Dx(), got.Dy(), tc.wantW, tc.wantH)
		}
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b/c.jpg", want: "a/b/c.jpg"},
		{in: "/a//b/./c", want: "a/b/c"},
		{in: `a\b`, want: "a/b"},
		{in: "../etc/passwd", wantErr: true},
		{in: "a/../../x", wantErr: true},
		{in: " ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
