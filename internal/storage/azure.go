package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"

	apperrors "mysql-db-export/internal/errors"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

const azureBlockSize = 4 * 1024 * 1024

// AzurePublisher uploads artifacts to an Azure Blob Storage container
type AzurePublisher struct {
	containerURL  azblob.ContainerURL
	containerName string
	prefix        string
}

// NewAzurePublisher creates an Azure publisher authenticated by shared key
func NewAzurePublisher(config *AzureConfig, prefix string) (*AzurePublisher, error) {
	if config == nil {
		return nil, apperrors.NewConfigurationError("Azure publish configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, apperrors.NewConfigurationError("invalid Azure publish configuration", err)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to create Azure credentials", err)
	}
	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to parse Azure service URL", err)
	}

	return &AzurePublisher{
		containerURL:  azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		containerName: config.ContainerName,
		prefix:        prefix,
	}, nil
}

// Publish uploads localPath as a block blob and returns its azure:// location
func (p *AzurePublisher) Publish(ctx context.Context, localPath string, metadata Metadata) (string, error) {
	f, err := os.Open(localPath) //nolint:gosec // artifact path produced by the exporter
	if err != nil {
		return "", apperrors.NewResourceError("Cannot read artifact", localPath, err)
	}
	defer f.Close()

	blobName := ObjectKey(p.prefix, localPath)
	blobURL := p.containerURL.NewBlockBlobURL(blobName)

	_, err = azblob.UploadFileToBlockBlob(ctx, f, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   azureBlockSize,
		Parallelism: 16,
		Metadata:    azblob.Metadata(metadata),
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: ContentType(localPath),
		},
	})
	if err != nil {
		return "", apperrors.NewStorageError("failed to upload artifact to Azure", err).
			WithContext("container", p.containerName).
			WithContext("blob", blobName)
	}

	return fmt.Sprintf("azure://%s/%s", p.containerName, blobName), nil
}
