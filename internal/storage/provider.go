package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"fylr/internal/config"

	"go.uber.org/zap"
)

type UploadRequest struct {
	// Folder is the slash separated directory the object is placed in,
	// e.g. /fylr/<owner>/folder/<parent>.
	Folder      string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadResult struct {
	Path         string
	URL          string
	ThumbnailURL *string
}

// Provider stores the bytes behind file nodes. Delete of a missing object
// is not an error.
type Provider interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	Delete(ctx context.Context, objectPath string) error
}

func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Driver {
	case "local", "":
		logger.Info("using local storage", zap.String("path", cfg.Path))
		return NewLocalStorage(cfg.Path, cfg.PublicURL)
	case "s3":
		logger.Info("using s3 storage", zap.String("bucket", cfg.S3.Bucket), zap.String("endpoint", cfg.S3.Endpoint))
		return NewS3Storage(ctx, cfg.S3, cfg.PublicURL)
	case "imagekit":
		logger.Info("using imagekit storage", zap.String("url_endpoint", cfg.ImageKit.URLEndpoint))
		return NewImageKitStorage(cfg.ImageKit, nil, logger.Named("imagekit")), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func objectPath(folder, fileName string) string {
	return path.Join("/", folder, fileName)
}
