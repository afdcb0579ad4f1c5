package submissions

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const stagingPrefix = "staging/"

// S3Staging holds submitted payloads only between upload and hand-off to the
// moderation channel. Objects here are transient; anything left behind is a
// crash orphan swept by the cleanup job.
type S3Staging struct {
	client *minio.Client
	bucket string

	ensureOnce sync.Once
	ensureErr  error
}

func NewS3Staging(client *minio.Client, bucket string) *S3Staging {
	return &S3Staging{
		client: client,
		bucket: strings.TrimSpace(bucket),
	}
}

func (s *S3Staging) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if s.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if exists {
			return
		}
		s.ensureErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	})

	if s.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", s.bucket, s.ensureErr)
	}

	return nil
}

func (s *S3Staging) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if key == "" || body == nil || size <= 0 {
		return ErrValidation
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put staged object: %w", err)
	}

	return nil
}

func (s *S3Staging) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}
	if key == "" {
		return nil, ErrValidation
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get staged object: %w", err)
	}

	return obj, nil
}

func (s *S3Staging) Delete(ctx context.Context, key string) error {
	if s.client == nil || key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete staged object: %w", err)
	}
	return nil
}

// ListStagedOlderThan returns staged object keys last modified before the
// cutoff.
func (s *S3Staging) ListStagedOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}

	keys := make([]string, 0)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: stagingPrefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list staged objects: %w", obj.Err)
		}
		if obj.LastModified.Before(cutoff) {
			keys = append(keys, obj.Key)
		}
	}

	return keys, nil
}

func buildStagedKey(fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}
	return stagingPrefix + uuid.NewString() + ext
}
