package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mirdata/core/download"
	"mirdata/logger"
)

// ErrUnknownRemote is returned when a partial download names a remote the
// dataset does not define.
var ErrUnknownRemote = errors.New("dataset: unknown remote")

// DownloadOptions controls Download.
type DownloadOptions struct {
	// Partial limits the download to these remote keys.
	Partial []string
	// Force re-downloads files that already exist.
	Force bool
	// Cleanup removes archives once they are unpacked.
	Cleanup bool
}

// Download fetches the dataset remotes into the data home and unpacks
// archives. Datasets without remotes only log their manual download
// instructions.
func (d *Dataset) Download(ctx context.Context, opts DownloadOptions) error {
	if spec, err := d.indexSpec(); err == nil && spec.URL != "" && d.cfg.IndexFS == nil {
		if _, statErr := os.Stat(d.localIndexPath(spec)); statErr != nil || opts.Force {
			if err := d.fetchIndex(ctx, spec); err != nil {
				return err
			}
		}
	}

	if len(d.cfg.Remotes) == 0 {
		if d.cfg.DownloadInfo != "" {
			logger.Info("dataset must be downloaded manually",
				logger.String("dataset", d.cfg.Name),
				logger.String("info", d.cfg.DownloadInfo))
		}
		return nil
	}

	keys := opts.Partial
	if len(keys) == 0 {
		keys = d.RemoteKeys()
	}
	for _, k := range keys {
		if _, ok := d.cfg.Remotes[k]; !ok {
			return fmt.Errorf("%w: %s has no remote %q, choose from %v", ErrUnknownRemote, d.cfg.Name, k, d.RemoteKeys())
		}
	}

	bar := startProgress(d.progress, "Downloading: ", len(keys))
	defer bar.Done()

	for _, k := range keys {
		if err := d.fetchRemote(ctx, d.cfg.Remotes[k], opts); err != nil {
			return fmt.Errorf("remote %s: %w", k, err)
		}
		bar.Increment()
	}

	if d.cfg.DownloadInfo != "" {
		logger.Info("additional download information",
			logger.String("dataset", d.cfg.Name),
			logger.String("info", d.cfg.DownloadInfo))
	}
	return nil
}

func (d *Dataset) fetchRemote(ctx context.Context, r download.Remote, opts DownloadOptions) error {
	if !download.IsArchive(r.Filename) {
		_, err := d.downloader.Fetch(ctx, r, d.dataHome, opts.Force)
		return err
	}

	// archives land in the data home and unpack into the destination dir
	archive := r
	archive.DestinationDir = ""
	path, err := d.downloader.Fetch(ctx, archive, d.dataHome, opts.Force)
	if err != nil {
		return err
	}

	dest := filepath.Join(d.dataHome, r.DestinationDir)
	if err := download.Extract(path, dest, r.UnpackDirectories); err != nil {
		return err
	}
	if opts.Cleanup {
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove archive", logger.String("path", path), logger.ErrorField(err))
		}
	}
	return nil
}
