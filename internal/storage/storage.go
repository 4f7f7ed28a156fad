package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrRejected marks upload failures that repeating the same request cannot
// fix, such as an undecodable source or a refused destination.
var ErrRejected = errors.New("storage: upload rejected")

// Transform describes the canonical rendition applied on upload.
type Transform struct {
	Width   int
	Height  int
	Crop    string
	Quality string
}

// ThumbnailTransform fits the image inside 1280x720 with automatic quality.
var ThumbnailTransform = Transform{Width: 1280, Height: 720, Crop: "fit", Quality: "auto:good"}

// String renders the transform in Cloudinary's transformation syntax.
func (t Transform) String() string {
	s := fmt.Sprintf("c_%s,h_%d,w_%d", t.Crop, t.Height, t.Width)
	if t.Quality != "" {
		s += "/q_" + t.Quality
	}
	return s
}

// UploadRequest asks durable storage to copy SourceURL to Folder/PublicID.
type UploadRequest struct {
	SourceURL string
	Folder    string
	PublicID  string
	Transform Transform
}

// UploadResult identifies a stored asset.
type UploadResult struct {
	PublicURL string
	StorageID string
}

// Uploader is the durable storage contract.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}
