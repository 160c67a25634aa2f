// Package download fetches remote dataset files, verifies them against their
// md5 checksum and unpacks archives.
package download

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mirdata/logger"

	"github.com/minio/minio-go/v7"
)

// ErrChecksumMismatch is returned when a fetched file does not hash to the
// expected checksum.
var ErrChecksumMismatch = errors.New("download: checksum mismatch")

// Remote describes one file to fetch.
type Remote struct {
	Filename string
	// URL is http(s)://... or s3://bucket/key for the S3-compatible mirror.
	URL      string
	Checksum string
	// DestinationDir is relative to the save directory.
	DestinationDir string
	// UnpackDirectories limits extraction to these archive subdirectories.
	UnpackDirectories []string
}

// MD5File returns the hex md5 digest of the file at path.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Downloader fetches Remotes over HTTP or from an S3-compatible bucket.
type Downloader struct {
	HTTP *http.Client
	// S3 serves s3:// URLs. Nil disables them.
	S3 *minio.Client
}

// New returns a Downloader with a default HTTP client.
func New(s3 *minio.Client) *Downloader {
	return &Downloader{
		HTTP: &http.Client{Timeout: 30 * time.Minute},
		S3:   s3,
	}
}

// Fetch downloads r into saveDir/r.DestinationDir and returns the local path.
// An existing file is kept unless force is set. When r.Checksum is set the
// file is verified and removed on mismatch.
func (d *Downloader) Fetch(ctx context.Context, r Remote, saveDir string, force bool) (string, error) {
	dir := filepath.Join(saveDir, r.DestinationDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	filename := r.Filename
	if filename == "" {
		filename = filepath.Base(r.URL)
	}
	path := filepath.Join(dir, filename)

	if _, err := os.Stat(path); err == nil && !force {
		logger.Info("file already exists, skipping download",
			logger.String("path", path))
		return path, nil
	}

	logger.Info("downloading",
		logger.String("url", r.URL),
		logger.String("path", path))

	start := time.Now()
	tmp := path + ".part"
	if err := d.fetchTo(ctx, r.URL, tmp); err != nil {
		os.Remove(tmp)
		return "", err
	}

	if r.Checksum != "" {
		sum, err := MD5File(tmp)
		if err != nil {
			os.Remove(tmp)
			return "", err
		}
		if sum != r.Checksum {
			os.Remove(tmp)
			return "", fmt.Errorf("%w: %s has md5 %s, expected %s", ErrChecksumMismatch, r.URL, sum, r.Checksum)
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	logger.Info("download complete",
		logger.String("path", path),
		logger.Duration("elapsed", time.Since(start)))
	return path, nil
}

func (d *Downloader) fetchTo(ctx context.Context, rawURL, path string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	var body io.ReadCloser
	switch u.Scheme {
	case "http", "https":
		body, err = d.openHTTP(ctx, rawURL)
	case "s3":
		body, err = d.openS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return fmt.Errorf("unsupported url scheme %q in %s", u.Scheme, rawURL)
	}
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return fmt.Errorf("failed to save %s: %w", rawURL, err)
	}
	return out.Close()
}

func (d *Downloader) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	client := d.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download %s: status code %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (d *Downloader) openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if d.S3 == nil {
		return nil, fmt.Errorf("s3://%s/%s requested but no S3 mirror is configured", bucket, key)
	}
	obj, err := d.S3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	// GetObject is lazy; Stat surfaces NoSuchKey before we create the file.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to stat s3://%s/%s: %w", bucket, key, err)
	}
	return obj, nil
}
