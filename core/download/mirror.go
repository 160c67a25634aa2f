package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// MirrorObject is one file held by an S3 mirror.
type MirrorObject struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// MirrorStats summarizes a mirror listing.
type MirrorStats struct {
	Objects      int64
	Size         int64
	LastModified time.Time
}

// ListMirror lists the objects under prefix in bucket. Use it to see what an
// s3:// remote can be served from.
func ListMirror(ctx context.Context, client *minio.Client, bucket, prefix string) ([]MirrorObject, *MirrorStats, error) {
	if client == nil {
		return nil, nil, errors.New("no S3 mirror configured")
	}

	stats := &MirrorStats{}
	var objects []MirrorObject
	for object := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, object.Err)
		}
		stats.Objects++
		stats.Size += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, MirrorObject{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ETag:         object.ETag,
		})
	}
	return objects, stats, nil
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
