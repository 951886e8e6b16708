package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
)

type fakeS3 struct {
	bucket, key, contentType string
	body                     []byte
	putErr                   error

	exists  bool
	made    []string
	headErr error
}

func (f *fakeS3) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if int64(len(b)) != size {
		return minio.UploadInfo{}, errors.New("size mismatch")
	}
	f.bucket, f.key, f.body, f.contentType = bucket, key, b, opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (f *fakeS3) BucketExists(context.Context, string) (bool, error) { return f.exists, f.headErr }

func (f *fakeS3) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func TestArchivePage(t *testing.T) {
	f := &fakeS3{}
	a := New(f, "raw-pages")

	body := []byte(`{"data":[]}`)
	if err := a.ArchivePage(context.Background(), "search-results/2024/01/02/run-p1.json", body); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if f.bucket != "raw-pages" || f.key != "search-results/2024/01/02/run-p1.json" {
		t.Fatalf("unexpected target %s/%s", f.bucket, f.key)
	}
	if string(f.body) != string(body) || f.contentType != "application/json" {
		t.Fatalf("unexpected object %q (%s)", f.body, f.contentType)
	}
}

func TestArchivePage_Error(t *testing.T) {
	a := New(&fakeS3{putErr: errors.New("access denied")}, "b")
	if err := a.ArchivePage(context.Background(), "k", []byte("x")); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureBucket(t *testing.T) {
	f := &fakeS3{}
	if err := EnsureBucket(context.Background(), f, "raw-pages"); err != nil {
		t.Fatal(err)
	}
	if len(f.made) != 1 || f.made[0] != "raw-pages" {
		t.Fatalf("expected bucket to be created, got %v", f.made)
	}

	f = &fakeS3{exists: true}
	_ = EnsureBucket(context.Background(), f, "raw-pages")
	if len(f.made) != 0 {
		t.Fatalf("existing bucket must not be recreated")
	}

	f = &fakeS3{headErr: errors.New("timeout")}
	if err := EnsureBucket(context.Background(), f, "raw-pages"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewMinio_RequiresSettings(t *testing.T) {
	if _, err := NewMinio(context.Background(), "", "a", "b", "c", false); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
