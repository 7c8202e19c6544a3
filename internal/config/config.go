// Package config loads the petcore service configuration from an optional
// YAML file, then applies PETCORE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"petcore/internal/blob"
	"petcore/internal/storage"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, sqlite, postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects the object store for uploads.
type BlobConfig struct {
	Driver    string   `yaml:"driver"` // fs, s3, memory
	FSRoot    string   `yaml:"fs_root"`
	PublicURL string   `yaml:"public_url"`
	S3        S3Config `yaml:"s3"`
}

// S3Config holds the bucket settings. Credentials come from the default AWS
// chain unless an access key is set.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	URLExpiry       string `yaml:"url_expiry"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080", MaxUploadMB: 20},
		Storage: StorageConfig{Driver: string(storage.DriverSQLite), SQLitePath: "petcore.db"},
		Blob: BlobConfig{
			Driver:    string(blob.DriverFilesystem),
			FSRoot:    "blobdata",
			PublicURL: "http://localhost:8080/files",
		},
		Metrics: MetricsConfig{Enabled: true, Namespace: "petcore"},
	}
}

// Load reads path (optional; a missing file yields defaults) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, env string) error {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = b
	return nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Server.Addr, "PETCORE_ADDR")
	if v := strings.TrimSpace(os.Getenv("PETCORE_MAX_UPLOAD_MB")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PETCORE_MAX_UPLOAD_MB: %w", err)
		}
		c.Server.MaxUploadMB = n
	}

	setString(&c.Storage.Driver, "PETCORE_STORAGE_DRIVER")
	setString(&c.Storage.SQLitePath, "PETCORE_SQLITE_PATH")
	setString(&c.Storage.PostgresDSN, "PETCORE_POSTGRES_DSN")

	setString(&c.Blob.Driver, "PETCORE_BLOB_DRIVER")
	setString(&c.Blob.FSRoot, "PETCORE_BLOB_FS_ROOT")
	setString(&c.Blob.PublicURL, "PETCORE_BLOB_PUBLIC_URL")
	setString(&c.Blob.S3.Bucket, "PETCORE_BLOB_S3_BUCKET")
	setString(&c.Blob.S3.Region, "PETCORE_BLOB_S3_REGION")
	setString(&c.Blob.S3.Endpoint, "PETCORE_BLOB_S3_ENDPOINT")
	setString(&c.Blob.S3.URLExpiry, "PETCORE_BLOB_S3_URL_EXPIRY")

	setString(&c.Metrics.Namespace, "PETCORE_METRICS_NAMESPACE")
	for dst, env := range map[*bool]string{
		&c.Blob.S3.PathStyle: "PETCORE_BLOB_S3_PATH_STYLE",
		&c.Logging.Verbose:   "PETCORE_VERBOSE",
		&c.Metrics.Enabled:   "PETCORE_METRICS_ENABLED",
	} {
		if err := setBool(dst, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects unknown drivers and incomplete backend settings.
func (c *Config) Validate() error {
	switch storage.Driver(c.Storage.Driver) {
	case storage.DriverMemory, storage.DriverSQLite:
	case storage.DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage: postgres driver needs postgres_dsn")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return errors.New("blob: s3 driver needs a bucket")
		}
	default:
		return fmt.Errorf("blob: unknown driver %q", c.Blob.Driver)
	}
	if _, err := c.urlExpiry(); err != nil {
		return err
	}
	if c.Server.MaxUploadMB < 0 {
		return errors.New("server: max_upload_mb must not be negative")
	}
	return nil
}

func (c *Config) urlExpiry() (time.Duration, error) {
	if c.Blob.S3.URLExpiry == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Blob.S3.URLExpiry)
	if err != nil {
		return 0, fmt.Errorf("blob: url_expiry: %w", err)
	}
	return d, nil
}

// StorageOptions converts to the storage package's settings.
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{
		Driver:      c.Storage.Driver,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobOptions converts to the blob package's settings.
func (c *Config) BlobOptions() blob.Config {
	expiry, _ := c.urlExpiry()
	return blob.Config{
		Driver:    c.Blob.Driver,
		FSRoot:    c.Blob.FSRoot,
		PublicURL: c.Blob.PublicURL,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			PathStyle:       c.Blob.S3.PathStyle,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			URLExpiry:       expiry,
		},
	}
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
