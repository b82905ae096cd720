package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	apperrors "mysql-db-export/internal/errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSPublisher uploads artifacts to a Google Cloud Storage bucket
type GCSPublisher struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSPublisher creates a GCS publisher. Without a credentials file the
// application default credentials are used.
func NewGCSPublisher(ctx context.Context, config *GCSConfig, prefix string) (*GCSPublisher, error) {
	if config == nil {
		return nil, apperrors.NewConfigurationError("GCS publish configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid GCS publish configuration", err)
	}

	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}
	if config.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(config.ProjectID))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create GCS client", err)
	}

	return &GCSPublisher{client: client, bucketName: config.Bucket, prefix: prefix}, nil
}

// Publish streams localPath into the bucket and returns its gs:// location
func (p *GCSPublisher) Publish(ctx context.Context, localPath string, metadata Metadata) (string, error) {
	f, err := os.Open(localPath) //nolint:gosec // artifact path produced by the exporter
	if err != nil {
		return "", apperrors.NewResourceError("Cannot read artifact", localPath, err)
	}
	defer f.Close()

	objectName := ObjectKey(p.prefix, localPath)
	w := p.client.Bucket(p.bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = ContentType(localPath)
	w.Metadata = metadata

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return "", apperrors.NewStorageError("failed to write artifact to GCS", err)
	}
	if err := w.Close(); err != nil {
		return "", apperrors.NewStorageError("failed to upload artifact to GCS", err)
	}

	return fmt.Sprintf("gs://%s/%s", p.bucketName, objectName), nil
}

// Close releases the GCS client
func (p *GCSPublisher) Close() error {
	return p.client.Close()
}
