package storage

import (
	"context"
	"fmt"
	"os"

	apperrors "mysql-db-export/internal/errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// s3Uploader is the part of s3manager.Uploader the publisher needs
type s3Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Publisher uploads artifacts with the multipart s3manager uploader
type S3Publisher struct {
	uploader s3Uploader
	bucket   string
	prefix   string
}

// NewS3Publisher creates an S3 publisher. Static credentials are used when
// configured, otherwise the default AWS credential chain.
func NewS3Publisher(config *S3Config, prefix string) (*S3Publisher, error) {
	if config == nil {
		return nil, apperrors.NewConfigurationError("S3 publish configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid S3 publish configuration", err)
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create AWS session", err)
	}

	return newS3PublisherWithUploader(s3manager.NewUploader(sess), config.Bucket, prefix), nil
}

func newS3PublisherWithUploader(uploader s3Uploader, bucket, prefix string) *S3Publisher {
	return &S3Publisher{uploader: uploader, bucket: bucket, prefix: prefix}
}

// Publish uploads localPath and returns its s3:// location
func (p *S3Publisher) Publish(ctx context.Context, localPath string, metadata Metadata) (string, error) {
	f, err := os.Open(localPath) //nolint:gosec // artifact path produced by the exporter
	if err != nil {
		return "", apperrors.NewResourceError("Cannot read artifact", localPath, err)
	}
	defer f.Close()

	key := ObjectKey(p.prefix, localPath)
	_, err = p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentType(localPath)),
		Metadata:    aws.StringMap(metadata),
	})
	if err != nil {
		return "", apperrors.NewStorageError("failed to upload artifact to S3", err).
			WithContext("bucket", p.bucket).
			WithContext("key", key)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
