package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type fakeCloudinary struct {
	file   interface{}
	params uploader.UploadParams
	resp   *uploader.UploadResult
	err    error
}

func (f *fakeCloudinary) Upload(_ context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.file, f.params = file, params
	return f.resp, f.err
}

func TestTransformString(t *testing.T) {
	if got := ThumbnailTransform.String(); got != "c_fit,h_720,w_1280/q_auto:good" {
		t.Fatalf("transform = %q", got)
	}
}

func TestCloudinaryUpload(t *testing.T) {
	fake := &fakeCloudinary{resp: &uploader.UploadResult{
		PublicID:  "ytthumbs/generated_thumbnails/generated_1_ab_0",
		SecureURL: "https://res.cloudinary.com/demo/image/upload/generated_1_ab_0.png",
	}}
	store := &CloudinaryStore{api: fake}

	res, err := store.Upload(context.Background(), UploadRequest{
		SourceURL: "https://cdn.example/out.png",
		Folder:    "ytthumbs/generated_thumbnails",
		PublicID:  "generated_1_ab_0",
		Transform: ThumbnailTransform,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if fake.file != "https://cdn.example/out.png" {
		t.Fatalf("file = %v", fake.file)
	}
	if fake.params.Folder != "ytthumbs/generated_thumbnails" || fake.params.PublicID != "generated_1_ab_0" {
		t.Fatalf("params = %+v", fake.params)
	}
	if fake.params.Transformation != "c_fit,h_720,w_1280/q_auto:good" {
		t.Fatalf("transformation = %q", fake.params.Transformation)
	}
	if fake.params.Overwrite == nil || *fake.params.Overwrite {
		t.Fatal("uploads must not overwrite existing assets")
	}
	if res.StorageID != fake.resp.PublicID || res.PublicURL != fake.resp.SecureURL {
		t.Fatalf("result = %+v", res)
	}
}

func TestCloudinaryUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeCloudinary
		rejected bool
	}{
		{"transport", &fakeCloudinary{err: errors.New("dial")}, false},
		{"api error", &fakeCloudinary{resp: &uploader.UploadResult{Error: api.ErrorResp{Message: "Resource not found"}}}, true},
		{"missing url", &fakeCloudinary{resp: &uploader.UploadResult{PublicID: "x"}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &CloudinaryStore{api: tc.fake}
			_, err := store.Upload(context.Background(), UploadRequest{SourceURL: "https://x/y.png"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrRejected); got != tc.rejected {
				t.Fatalf("errors.Is(err, ErrRejected) = %v, want %v (err=%v)", got, tc.rejected, err)
			}
		})
	}
}

func TestNewCloudinaryStoreRequiresURL(t *testing.T) {
	if _, err := NewCloudinaryStore(" "); err == nil {
		t.Fatal("expected error")
	}
}
