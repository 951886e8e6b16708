package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// ObjectPutter is the slice of *minio.Client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// BucketMaker is implemented by *minio.Client; EnsureBucket uses it.
type BucketMaker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

// S3 stores raw upstream pages in an S3-compatible bucket.
type S3 struct {
	client ObjectPutter
	bucket string
}

// NewMinio connects to an S3-compatible endpoint and makes sure bucket exists.
func NewMinio(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*S3, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("archive: endpoint, credentials and bucket are required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: create client: %w", err)
	}
	if err := EnsureBucket(ctx, client, bucket); err != nil {
		return nil, err
	}
	log.Info().Str("endpoint", endpoint).Str("bucket", bucket).Msg("page archive ready")
	return New(client, bucket), nil
}

func New(client ObjectPutter, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

func EnsureBucket(ctx context.Context, m BucketMaker, bucket string) error {
	exists, err := m.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("archive: check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("archive: make bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *S3) ArchivePage(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(body)).Msg("page archived")
	return nil
}
