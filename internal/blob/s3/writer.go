package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// minPartSize is the smallest part S3 accepts in a multipart upload.
const minPartSize int64 = 5 * 1024 * 1024

// uploadConcurrency bounds the parts in flight for one snapshot.
const uploadConcurrency = 3

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectUploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Writer implements domain.BlobWriter for snapshot objects in one bucket.
// Small payloads go out as a single PutObject, large ones through a shared
// multipart uploader.
type Writer struct {
	put    objectPutter
	upload objectUploader
	bucket string
}

// NewWriter creates a Writer for the client's bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{
		put: c.s3,
		upload: manager.NewUploader(c.s3, func(u *manager.Uploader) {
			u.PartSize = minPartSize
			u.Concurrency = uploadConcurrency
		}),
		bucket: c.bucket,
	}
}

func (w *Writer) object(key string, body io.Reader, contentType string) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
}

// Put stores body at key in one request.
func (w *Writer) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if _, err := w.put.PutObject(ctx, w.object(key, body, contentType)); err != nil {
		return fmt.Errorf("s3blob: put %s/%s: %w", w.bucket, key, err)
	}
	return nil
}

// PutMultipart streams a JSONL body to key in parts of at least partSize
// bytes, raised to the S3 minimum when smaller.
func (w *Writer) PutMultipart(ctx context.Context, key string, body io.Reader, partSize int64) error {
	size := max(partSize, minPartSize)
	_, err := w.upload.Upload(ctx, w.object(key, body, jsonlContentType), func(u *manager.Uploader) {
		u.PartSize = size
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart put %s/%s: %w", w.bucket, key, err)
	}
	return nil
}

var _ domain.BlobWriter = (*Writer)(nil)
