package blob

import (
	"context"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
)

type gcsStore struct {
	client *storage.Client
}

// NewGCS creates a BlobStore backed by Google Cloud Storage, used by
// the optional archive mirror.
func NewGCS(ctx context.Context, opts ...option.ClientOption) (interfaces.BlobStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &gcsStore{client: client}, nil
}

// Put uploads a local file to bucket/key.
func (s *gcsStore) Put(ctx context.Context, bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return goerr.Wrap(err, "failed to open file for upload", goerr.V("path", path))
	}
	defer f.Close()

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return goerr.Wrap(err, "failed to upload object",
			goerr.V("bucket", bucket), goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object",
			goerr.V("bucket", bucket), goerr.V("key", key))
	}
	return nil
}
