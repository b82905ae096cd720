package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	apperrors "mysql-db-export/internal/errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "db-exports/shop.sql.gz", ObjectKey("db-exports/", "/var/exports/shop.sql.gz"))
	assert.Equal(t, "nightly/shop.sql.gz", ObjectKey("/nightly", "shop.sql.gz"))
	assert.Equal(t, "shop.sql.gz", ObjectKey("", "/tmp/shop.sql.gz"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/gzip", ContentType("a.sql.gz"))
	assert.Equal(t, "application/zstd", ContentType("a.sql.zst"))
	assert.Equal(t, "application/x-lz4", ContentType("a.sql.lz4"))
	assert.Equal(t, "application/sql", ContentType("a.sql"))
	assert.Equal(t, "application/octet-stream", ContentType("a.bin"))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "disabled", config: Config{}},
		{name: "local", config: Config{Provider: ProviderLocal, Local: &LocalConfig{BasePath: "/mnt/exports"}}},
		{name: "local missing path", config: Config{Provider: ProviderLocal, Local: &LocalConfig{}}, wantErr: true},
		{name: "local missing section", config: Config{Provider: ProviderLocal}, wantErr: true},
		{name: "s3 default chain", config: Config{Provider: ProviderS3, S3: &S3Config{Bucket: "b", Region: "eu-west-1"}}},
		{name: "s3 half credentials", config: Config{Provider: ProviderS3, S3: &S3Config{Bucket: "b", Region: "eu-west-1", AccessKey: "k"}}, wantErr: true},
		{name: "s3 missing bucket", config: Config{Provider: ProviderS3, S3: &S3Config{Region: "eu-west-1"}}, wantErr: true},
		{name: "azure", config: Config{Provider: ProviderAzure, Azure: &AzureConfig{AccountName: "a", AccountKey: "k", ContainerName: "c"}}},
		{name: "azure missing key", config: Config{Provider: ProviderAzure, Azure: &AzureConfig{AccountName: "a", ContainerName: "c"}}, wantErr: true},
		{name: "gcs", config: Config{Provider: ProviderGCS, GCS: &GCSConfig{Bucket: "b"}}},
		{name: "gcs missing bucket", config: Config{Provider: ProviderGCS, GCS: &GCSConfig{}}, wantErr: true},
		{name: "minio", config: Config{Provider: ProviderMinIO, MinIO: &MinIOConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "k", SecretKey: "s"}}},
		{name: "minio missing credentials", config: Config{Provider: ProviderMinIO, MinIO: &MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"}}, wantErr: true},
		{name: "minio missing section", config: Config{Provider: ProviderMinIO}, wantErr: true},
		{name: "unknown", config: Config{Provider: "ftp"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	c := Config{Provider: "S3"}
	c.SetDefaults()

	assert.Equal(t, ProviderS3, c.Provider)
	assert.Equal(t, DefaultPrefix, c.Prefix)
	require.NotNil(t, c.S3)
	assert.Equal(t, "us-east-1", c.S3.Region)
	assert.True(t, c.Enabled())
	assert.False(t, (&Config{}).Enabled())
}

func TestConfigLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_EXPORT_PUBLISH_PROVIDER", "local")
	t.Setenv("DB_EXPORT_PUBLISH_LOCAL_BASE_PATH", "/srv/exports")
	t.Setenv("DB_EXPORT_PUBLISH_LOCAL_PERMISSIONS", "750")

	var c Config
	c.LoadFromEnvironment()

	assert.Equal(t, ProviderLocal, c.Provider)
	require.NotNil(t, c.Local)
	assert.Equal(t, "/srv/exports", c.Local.BasePath)
	assert.Equal(t, os.FileMode(0o750), c.Local.Permissions)
}

func TestLocalPublisher(t *testing.T) {
	src := writeArtifact(t, "shop_2024-03-09_14h05.sql.gz", "payload")
	dest := filepath.Join(t.TempDir(), "published")

	p, err := NewLocalPublisher(&LocalConfig{BasePath: dest})
	require.NoError(t, err)

	location, err := p.Publish(context.Background(), src, Metadata{"profile": "clean"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dest, "shop_2024-03-09_14h05.sql.gz"), location)
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestLocalPublisherSameDirectory(t *testing.T) {
	src := writeArtifact(t, "shop.sql", "payload")

	p, err := NewLocalPublisher(&LocalConfig{BasePath: filepath.Dir(src)})
	require.NoError(t, err)

	location, err := p.Publish(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, src, location)
}

func TestLocalPublisherMissingArtifact(t *testing.T) {
	p, err := NewLocalPublisher(&LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), filepath.Join(t.TempDir(), "gone.sql"), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeResource))
}

type fakeUploader struct {
	input   *s3manager.UploadInput
	body    string
	failErr error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, input *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	f.input = input
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(data)
	if f.failErr != nil {
		return nil, f.failErr
	}
	return &s3manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + *input.Key}, nil
}

func TestS3Publisher(t *testing.T) {
	src := writeArtifact(t, "shop.sql.zst", "zstd bytes")
	uploader := &fakeUploader{}
	p := newS3PublisherWithUploader(uploader, "backups", "db-exports/")

	location, err := p.Publish(context.Background(), src, Metadata{"run_id": "abc"})

	require.NoError(t, err)
	assert.Equal(t, "s3://backups/db-exports/shop.sql.zst", location)
	assert.Equal(t, "backups", aws.StringValue(uploader.input.Bucket))
	assert.Equal(t, "db-exports/shop.sql.zst", aws.StringValue(uploader.input.Key))
	assert.Equal(t, "application/zstd", aws.StringValue(uploader.input.ContentType))
	assert.Equal(t, "abc", aws.StringValue(uploader.input.Metadata["run_id"]))
	assert.Equal(t, "zstd bytes", uploader.body)
}

func TestS3PublisherFailure(t *testing.T) {
	src := writeArtifact(t, "shop.sql.gz", "x")
	p := newS3PublisherWithUploader(&fakeUploader{failErr: errors.New("AccessDenied")}, "backups", "")

	_, err := p.Publish(context.Background(), src, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStorage))
	assert.Contains(t, err.Error(), "AccessDenied")
}

type fakeMinIOClient struct {
	bucket, key, path string
	opts              minio.PutObjectOptions
	failErr           error
}

func (f *fakeMinIOClient) FPutObject(_ context.Context, bucket, key, path string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.bucket, f.key, f.path, f.opts = bucket, key, path, opts
	if f.failErr != nil {
		return minio.UploadInfo{}, f.failErr
	}
	return minio.UploadInfo{Bucket: bucket, Key: key}, nil
}

func TestMinIOPublisher(t *testing.T) {
	src := writeArtifact(t, "shop.sql.lz4", "lz4 bytes")
	client := &fakeMinIOClient{}
	p := newMinIOPublisherWithClient(client, "exports", "nightly")

	location, err := p.Publish(context.Background(), src, Metadata{"profile": "clean"})

	require.NoError(t, err)
	assert.Equal(t, "s3://exports/nightly/shop.sql.lz4", location)
	assert.Equal(t, "exports", client.bucket)
	assert.Equal(t, "nightly/shop.sql.lz4", client.key)
	assert.Equal(t, src, client.path)
	assert.Equal(t, "application/x-lz4", client.opts.ContentType)
	assert.Equal(t, "clean", client.opts.UserMetadata["profile"])
}

func TestMinIOPublisherErrors(t *testing.T) {
	t.Run("missing artifact", func(t *testing.T) {
		p := newMinIOPublisherWithClient(&fakeMinIOClient{}, "exports", "")
		_, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "gone.sql"), nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeResource))
	})

	t.Run("upload failure", func(t *testing.T) {
		src := writeArtifact(t, "shop.sql", "x")
		p := newMinIOPublisherWithClient(&fakeMinIOClient{failErr: errors.New("NoSuchBucket")}, "exports", "")
		_, err := p.Publish(context.Background(), src, nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStorage))
	})
}

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewPublisher(context.Background(), Config{Provider: ProviderLocal, Local: &LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalPublisher{}, p)

	p, err = NewPublisher(context.Background(), Config{Provider: ProviderS3, S3: &S3Config{Bucket: "b", Region: "eu-west-1", AccessKey: "k", SecretKey: "s"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Publisher{}, p)

	p, err = NewPublisher(context.Background(), Config{Provider: ProviderMinIO, MinIO: &MinIOConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "k", SecretKey: "s"}})
	require.NoError(t, err)
	assert.IsType(t, &MinIOPublisher{}, p)

	_, err = NewPublisher(context.Background(), Config{Provider: "ftp"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestNewAzurePublisherRejectsInvalidKey(t *testing.T) {
	_, err := NewAzurePublisher(&AzureConfig{AccountName: "acct", AccountKey: "not base64!", ContainerName: "c"}, "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestSupportedProviders(t *testing.T) {
	assert.ElementsMatch(t, []ProviderType{ProviderLocal, ProviderS3, ProviderAzure, ProviderGCS, ProviderMinIO}, SupportedProviders())
}
