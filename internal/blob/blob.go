// Package blob is the entry point to uploaded-file storage. It re-exports
// the core contract and selects a backend; other packages must not import
// the infra implementations directly.
package blob

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"petcore/internal/blob/core"
	fsstore "petcore/internal/infra/blob/fs"
	memorystore "petcore/internal/infra/blob/memory"
	s3store "petcore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 backend.
	S3Config = s3store.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
	ErrInvalidKey  = core.ErrInvalidKey
	ErrUnsupported = core.ErrUnsupported
)

// NewMemory returns an in-memory store.
func NewMemory(baseURL string) Store { return memorystore.New(baseURL) }

// NewFilesystem returns a store rooted at a local directory.
func NewFilesystem(root, baseURL string) (Store, error) { return fsstore.New(root, baseURL) }

// NewS3 returns a bucket-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }

// Config selects and configures a backend.
type Config struct {
	Driver    string
	FSRoot    string
	PublicURL string
	S3        S3Config
}

// ConfigFromEnv reads the backend selection:
//
//	PETCORE_BLOB_DRIVER      fs|s3|memory (default fs)
//	PETCORE_BLOB_FS_ROOT     directory when driver=fs (default ./blobdata)
//	PETCORE_BLOB_PUBLIC_URL  prefix for object URLs
//
// S3 variables are documented on the s3 backend.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Driver:    os.Getenv("PETCORE_BLOB_DRIVER"),
		FSRoot:    os.Getenv("PETCORE_BLOB_FS_ROOT"),
		PublicURL: os.Getenv("PETCORE_BLOB_PUBLIC_URL"),
	}
	if Driver(cfg.Driver) == DriverS3 {
		s3cfg, err := s3store.ConfigFromEnv()
		if err != nil {
			return Config{}, err
		}
		cfg.S3 = s3cfg
	}
	return cfg, nil
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot, cfg.PublicURL)
	case DriverS3:
		s3cfg := cfg.S3
		if s3cfg.PublicURL == "" {
			s3cfg.PublicURL = cfg.PublicURL
		}
		return NewS3(ctx, s3cfg)
	case DriverMemory:
		return NewMemory(cfg.PublicURL), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}

// ObjectKey builds a unique key for a file uploaded into a pet's slot:
// pets/<petID>/<slot>/<uuid><ext>. Only the extension of the client file
// name is kept.
func ObjectKey(petID, slot, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 8 || strings.ContainsAny(ext, " /") {
		ext = ""
	}
	return path.Join("pets", sanitize(petID), sanitize(slot), uuid.NewString()+ext)
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "_"
	}
	return s
}
