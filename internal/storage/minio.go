package storage

import (
	"context"
	"fmt"
	"os"

	apperrors "mysql-db-export/internal/errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioUploader is the part of minio.Client the publisher needs
type minioUploader interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOPublisher uploads artifacts to a MinIO bucket
type MinIOPublisher struct {
	client minioUploader
	bucket string
	prefix string
}

// NewMinIOPublisher creates a MinIO publisher with static credentials
func NewMinIOPublisher(config *MinIOConfig, prefix string) (*MinIOPublisher, error) {
	if config == nil {
		return nil, apperrors.NewConfigurationError("MinIO publish configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid MinIO publish configuration", err)
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create MinIO client", err)
	}

	return newMinIOPublisherWithClient(client, config.Bucket, prefix), nil
}

func newMinIOPublisherWithClient(client minioUploader, bucket, prefix string) *MinIOPublisher {
	return &MinIOPublisher{client: client, bucket: bucket, prefix: prefix}
}

// Publish uploads localPath and returns its s3:// location on the MinIO server
func (p *MinIOPublisher) Publish(ctx context.Context, localPath string, metadata Metadata) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", apperrors.NewResourceError("Cannot read artifact", localPath, err)
	}

	key := ObjectKey(p.prefix, localPath)
	_, err := p.client.FPutObject(ctx, p.bucket, key, localPath, minio.PutObjectOptions{
		ContentType:  ContentType(localPath),
		UserMetadata: metadata,
	})
	if err != nil {
		return "", apperrors.NewStorageError("failed to upload artifact to MinIO", err).
			WithContext("bucket", p.bucket).
			WithContext("key", key)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
