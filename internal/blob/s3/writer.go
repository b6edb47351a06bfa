package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

// partSize is the multipart threshold; report CSVs normally fit in one part.
const partSize int64 = 5 * 1024 * 1024

// Writer uploads export files. It satisfies domain.BlobWriter.
type Writer struct {
	uploader *manager.Uploader
	bucket   string
}

func NewWriter(c *Client) *Writer {
	return &Writer{
		uploader: manager.NewUploader(c.s3, func(u *manager.Uploader) {
			u.PartSize = partSize
			u.Concurrency = 2
		}),
		bucket: c.bucket,
	}
}

func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(path),
		Body:   data,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := w.uploader.Upload(ctx, in); err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", path, err)
	}
	return nil
}

var _ domain.BlobWriter = (*Writer)(nil)
