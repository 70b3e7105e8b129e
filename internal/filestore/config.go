package filestore

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
	ProviderDir   Provider = "dir"
)

// Config holds all settings needed to reach the template source.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO). Empty disables
	// templates.
	Provider Provider `mapstructure:"provider" validate:"omitempty,oneof=minio dir"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Provider minio"`

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string `mapstructure:"access_key"`

	// SecretKey is the secret access key.
	SecretKey string `mapstructure:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `mapstructure:"use_ssl"`

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string `mapstructure:"region"`

	// Bucket holds the templates. For ProviderDir it is a sub-directory of
	// Root.
	Bucket string `mapstructure:"bucket" validate:"required_with=Provider"`

	// Prefix narrows the bucket to a "folder" of templates.
	Prefix string `mapstructure:"prefix"`

	// Root is the base directory of ProviderDir.
	Root string `mapstructure:"root" validate:"required_if=Provider dir"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    false,
		Bucket:    "dsn-templates",
	}
}
