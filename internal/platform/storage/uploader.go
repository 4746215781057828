package storage

import (
	"context"
	"fmt"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
)

// Uploader publishes rendered report artifacts to a bucket.
type Uploader struct {
	client objectPutter
	bucket string
}

// objectPutter is the slice of Client the uploader needs.
type objectPutter interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// NewUploader builds an Uploader from the upload configuration.
func NewUploader(cfg config.UploadConfig) (*Uploader, error) {
	client, err := NewClient(cfg.Endpoint, cfg.Region, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, err
	}
	return &Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Upload ensures the bucket exists and stores the report under a key
// derived from the run id. It returns the object key.
func (u *Uploader) Upload(ctx context.Context, runID, format string, data []byte) (string, error) {
	if err := u.client.EnsureBucket(ctx, u.bucket); err != nil {
		return "", err
	}

	key := ObjectKey(runID, format)
	if err := u.client.PutObject(ctx, u.bucket, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// ObjectKey derives the bucket key for a run's report.
func ObjectKey(runID, format string) string {
	ext := "txt"
	switch format {
	case "json":
		ext = "json"
	case "junit":
		ext = "xml"
	}
	return fmt.Sprintf("reports/%s.%s", runID, ext)
}
