package storage

import (
	"context"
	"fmt"

	apperrors "mysql-db-export/internal/errors"
)

// NewPublisher creates the publisher selected by config. A disabled config
// yields a nil publisher and no error.
func NewPublisher(ctx context.Context, config Config) (Publisher, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid publish configuration", err)
	}

	switch config.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderLocal:
		return NewLocalPublisher(config.Local)
	case ProviderS3:
		return NewS3Publisher(config.S3, config.Prefix)
	case ProviderAzure:
		return NewAzurePublisher(config.Azure, config.Prefix)
	case ProviderGCS:
		return NewGCSPublisher(ctx, config.GCS, config.Prefix)
	case ProviderMinIO:
		return NewMinIOPublisher(config.MinIO, config.Prefix)
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unsupported publish provider: %s", config.Provider), nil)
	}
}

// SupportedProviders lists the provider names accepted in configuration
func SupportedProviders() []ProviderType {
	return []ProviderType{ProviderLocal, ProviderS3, ProviderAzure, ProviderGCS, ProviderMinIO}
}
