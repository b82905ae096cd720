package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProviderType names an artifact destination
type ProviderType string

const (
	ProviderNone  ProviderType = ""
	ProviderLocal ProviderType = "local"
	ProviderS3    ProviderType = "s3"
	ProviderAzure ProviderType = "azure"
	ProviderGCS   ProviderType = "gcs"
	ProviderMinIO ProviderType = "minio"
)

// DefaultPrefix is prepended to object keys in remote buckets
const DefaultPrefix = "db-exports/"

// Config selects and configures the publisher of finished artifacts
type Config struct {
	Provider ProviderType `mapstructure:"provider" yaml:"provider"`
	Prefix   string       `mapstructure:"prefix" yaml:"prefix,omitempty"`
	// KeepLocal leaves the artifact on disk after a remote upload.
	KeepLocal bool         `mapstructure:"keep_local" yaml:"keep_local"`
	Local     *LocalConfig `mapstructure:"local" yaml:"local,omitempty"`
	S3        *S3Config    `mapstructure:"s3" yaml:"s3,omitempty"`
	Azure     *AzureConfig `mapstructure:"azure" yaml:"azure,omitempty"`
	GCS       *GCSConfig   `mapstructure:"gcs" yaml:"gcs,omitempty"`
	MinIO     *MinIOConfig `mapstructure:"minio" yaml:"minio,omitempty"`
}

// LocalConfig copies artifacts into another directory, e.g. a mounted share
type LocalConfig struct {
	BasePath    string      `mapstructure:"base_path" yaml:"base_path"`
	Permissions os.FileMode `mapstructure:"permissions" yaml:"permissions"`
}

// S3Config for Amazon S3 and S3 compatible stores
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
	ProjectID       string `mapstructure:"project_id" yaml:"project_id,omitempty"`
}

// MinIOConfig for MinIO and other self-hosted S3 servers
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
}

// Enabled reports whether a provider is configured
func (c *Config) Enabled() bool {
	return c != nil && c.Provider != ProviderNone
}

// Validate checks the section of the selected provider
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderNone:
		return nil
	case ProviderLocal:
		if c.Local == nil {
			return errors.New("local publish configuration is required")
		}
		return c.Local.Validate()
	case ProviderS3:
		if c.S3 == nil {
			return errors.New("s3 publish configuration is required")
		}
		return c.S3.Validate()
	case ProviderAzure:
		if c.Azure == nil {
			return errors.New("azure publish configuration is required")
		}
		return c.Azure.Validate()
	case ProviderGCS:
		if c.GCS == nil {
			return errors.New("gcs publish configuration is required")
		}
		return c.GCS.Validate()
	case ProviderMinIO:
		if c.MinIO == nil {
			return errors.New("minio publish configuration is required")
		}
		return c.MinIO.Validate()
	default:
		return fmt.Errorf("unsupported publish provider: %s", c.Provider)
	}
}

// SetDefaults fills the prefix and the selected provider's section
func (c *Config) SetDefaults() {
	c.Provider = ProviderType(strings.ToLower(string(c.Provider)))
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}

	switch c.Provider {
	case ProviderLocal:
		if c.Local == nil {
			c.Local = &LocalConfig{}
		}
		c.Local.SetDefaults()
	case ProviderS3:
		if c.S3 == nil {
			c.S3 = &S3Config{}
		}
		c.S3.SetDefaults()
	case ProviderAzure:
		if c.Azure == nil {
			c.Azure = &AzureConfig{}
		}
	case ProviderGCS:
		if c.GCS == nil {
			c.GCS = &GCSConfig{}
		}
		c.GCS.SetDefaults()
	case ProviderMinIO:
		if c.MinIO == nil {
			c.MinIO = &MinIOConfig{}
		}
	}
}

// LoadFromEnvironment overrides settings from DB_EXPORT_PUBLISH_* variables
func (c *Config) LoadFromEnvironment() {
	if val := os.Getenv("DB_EXPORT_PUBLISH_PROVIDER"); val != "" {
		c.Provider = ProviderType(strings.ToLower(val))
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_PREFIX"); val != "" {
		c.Prefix = val
	}

	switch c.Provider {
	case ProviderLocal:
		if c.Local == nil {
			c.Local = &LocalConfig{}
		}
		c.Local.LoadFromEnvironment()
	case ProviderS3:
		if c.S3 == nil {
			c.S3 = &S3Config{}
		}
		c.S3.LoadFromEnvironment()
	case ProviderAzure:
		if c.Azure == nil {
			c.Azure = &AzureConfig{}
		}
		c.Azure.LoadFromEnvironment()
	case ProviderGCS:
		if c.GCS == nil {
			c.GCS = &GCSConfig{}
		}
		c.GCS.LoadFromEnvironment()
	case ProviderMinIO:
		if c.MinIO == nil {
			c.MinIO = &MinIOConfig{}
		}
		c.MinIO.LoadFromEnvironment()
	}
}

// Validate checks the local section
func (lc *LocalConfig) Validate() error {
	if lc.BasePath == "" {
		return errors.New("base path is required for local publishing")
	}
	return nil
}

// SetDefaults sets default permissions
func (lc *LocalConfig) SetDefaults() {
	if lc.Permissions == 0 {
		lc.Permissions = 0o755
	}
}

// LoadFromEnvironment loads local settings from environment variables
func (lc *LocalConfig) LoadFromEnvironment() {
	if val := os.Getenv("DB_EXPORT_PUBLISH_LOCAL_BASE_PATH"); val != "" {
		lc.BasePath = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_LOCAL_PERMISSIONS"); val != "" {
		if parsed, err := strconv.ParseUint(val, 8, 32); err == nil {
			lc.Permissions = os.FileMode(parsed)
		}
	}
}

// Validate checks the S3 section. Credentials may be omitted to use the
// default AWS credential chain, but not half given.
func (s3c *S3Config) Validate() error {
	var errs []error
	if s3c.Bucket == "" {
		errs = append(errs, errors.New("S3 bucket name is required"))
	}
	if s3c.Region == "" {
		errs = append(errs, errors.New("S3 region is required"))
	}
	if (s3c.AccessKey == "") != (s3c.SecretKey == "") {
		errs = append(errs, errors.New("S3 access key and secret key must be given together"))
	}
	return errors.Join(errs...)
}

// SetDefaults sets the default region
func (s3c *S3Config) SetDefaults() {
	if s3c.Region == "" {
		s3c.Region = "us-east-1"
	}
}

// LoadFromEnvironment loads S3 settings from environment variables
func (s3c *S3Config) LoadFromEnvironment() {
	if val := os.Getenv("DB_EXPORT_PUBLISH_S3_BUCKET"); val != "" {
		s3c.Bucket = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_S3_REGION"); val != "" {
		s3c.Region = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_S3_ACCESS_KEY"); val != "" {
		s3c.AccessKey = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_S3_SECRET_KEY"); val != "" {
		s3c.SecretKey = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_S3_ENDPOINT"); val != "" {
		s3c.Endpoint = val
	}
}

// Validate checks the Azure section
func (ac *AzureConfig) Validate() error {
	var errs []error
	if ac.AccountName == "" {
		errs = append(errs, errors.New("Azure account name is required"))
	}
	if ac.AccountKey == "" {
		errs = append(errs, errors.New("Azure account key is required"))
	}
	if ac.ContainerName == "" {
		errs = append(errs, errors.New("Azure container name is required"))
	}
	return errors.Join(errs...)
}

// LoadFromEnvironment loads Azure settings from environment variables
func (ac *AzureConfig) LoadFromEnvironment() {
	if val := os.Getenv("DB_EXPORT_PUBLISH_AZURE_ACCOUNT_NAME"); val != "" {
		ac.AccountName = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_AZURE_ACCOUNT_KEY"); val != "" {
		ac.AccountKey = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_AZURE_CONTAINER_NAME"); val != "" {
		ac.ContainerName = val
	}
}

// Validate checks the GCS section. Without a credentials file the
// application default credentials are used.
func (gc *GCSConfig) Validate() error {
	if gc.Bucket == "" {
		return errors.New("GCS bucket name is required")
	}
	return nil
}

// SetDefaults picks up GOOGLE_APPLICATION_CREDENTIALS
func (gc *GCSConfig) SetDefaults() {
	if gc.CredentialsPath == "" {
		gc.CredentialsPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

// LoadFromEnvironment loads GCS settings from environment variables
func (gc *GCSConfig) LoadFromEnvironment() {
	if val := os.Getenv("DB_EXPORT_PUBLISH_GCS_BUCKET"); val != "" {
		gc.Bucket = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_GCS_CREDENTIALS_PATH"); val != "" {
		gc.CredentialsPath = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_GCS_PROJECT_ID"); val != "" {
		gc.ProjectID = val
	}
}

// Validate checks the MinIO section
func (mc *MinIOConfig) Validate() error {
	var errs []error
	if mc.Endpoint == "" {
		errs = append(errs, errors.New("MinIO endpoint is required"))
	}
	if mc.Bucket == "" {
		errs = append(errs, errors.New("MinIO bucket name is required"))
	}
	if mc.AccessKey == "" || mc.SecretKey == "" {
		errs = append(errs, errors.New("MinIO access key and secret key are required"))
	}
	return errors.Join(errs...)
}

// LoadFromEnvironment loads MinIO settings from environment variables
func (mc *MinIOConfig) LoadFromEnvironment() {
	if val := os.Getenv("DB_EXPORT_PUBLISH_MINIO_ENDPOINT"); val != "" {
		mc.Endpoint = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_MINIO_BUCKET"); val != "" {
		mc.Bucket = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_MINIO_ACCESS_KEY"); val != "" {
		mc.AccessKey = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_MINIO_SECRET_KEY"); val != "" {
		mc.SecretKey = val
	}
	if val := os.Getenv("DB_EXPORT_PUBLISH_MINIO_USE_SSL"); val != "" {
		mc.UseSSL, _ = strconv.ParseBool(val)
	}
}
