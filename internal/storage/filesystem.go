package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const maxSourceBytes = 25 << 20

// FileStore persists assets onto the local filesystem and serves them under
// a base URL. It is intended for development and tests where a Cloudinary
// account is not available. Unlike Cloudinary it downloads and transforms the
// source itself.
type FileStore struct {
	basePath string
	baseURL  string
	client   *http.Client
	// create opens a new file, failing if it exists.
	create func(name string) (io.WriteCloser, error)
}

func createExclusive(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath, baseURL string, client *http.Client) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FileStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		create:   createExclusive,
	}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Upload fetches the source, fits it into the transform's canvas and writes a
// JPEG at Folder/PublicID.jpg. Existing files are never replaced.
func (s *FileStore) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	storageID, err := sanitizeKey(path.Join(req.Folder, req.PublicID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRejected, err)
	}
	src, err := s.fetch(ctx, req.SourceURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: decode source: %w", ErrRejected, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(img, req.Transform.Width, req.Transform.Height), &jpeg.Options{Quality: jpegQuality(req.Transform.Quality)}); err != nil {
		return nil, fmt.Errorf("storage: encode jpeg: %w", err)
	}
	key, err := s.write(ctx, storageID+".jpg", buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &UploadResult{PublicURL: s.baseURL + "/" + key, StorageID: storageID}, nil
}

func (s *FileStore) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(sourceURL), nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: download source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: download status %d", ErrRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("storage: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read source: %w", err)
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("%w: source exceeds size limit", ErrRejected)
	}
	return data, nil
}

func (s *FileStore) write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	f, err := s.create(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s already exists", ErrRejected, key)
		}
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	// A partial file would make every retry of this key fail as existing.
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("storage: close file: %w", err)
	}
	return key, nil
}

// fit scales img to the largest size that fits within w x h, keeping its
// aspect ratio.
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if w <= 0 || h <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return img
	}
	dw, dh := w, b.Dy()*w/b.Dx()
	if dh > h {
		dw, dh = b.Dx()*h/b.Dy(), h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func jpegQuality(q string) int {
	switch q {
	case "auto:best":
		return 95
	case "auto:eco":
		return 75
	case "auto:low":
		return 60
	default:
		return 85
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
