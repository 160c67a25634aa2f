package download

import (
	"context"
	"fmt"
	"time"

	"mirdata/config"
	"mirdata/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewMinioClient connects to the S3-compatible mirror described by cfg. It
// returns nil, nil when no endpoint is configured.
func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach MinIO at %s: %w", cfg.MinioEndpoint, err)
	}

	logger.Info("connected to S3 mirror",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.Bool("ssl", cfg.MinioUseSSL))
	return client, nil
}
