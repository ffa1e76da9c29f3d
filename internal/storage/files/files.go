package files

import (
	"context"
	"errors"
	"fmt"

	"github.com/gravadigital/eventsoft-api/internal/config"
)

var ErrFileNotFound = errors.New("file not found")

// Store keeps uploaded documents, QR images and certificates by object key
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the store selected by configuration
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "local", "":
		return NewLocalStore(cfg.Upload.Dir)
	case "minio":
		return NewMinioStore(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}
