package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"mirdata/core/download"
	"mirdata/logger"
)

// ChecksumCache stores md5 sums of files keyed by path, size and mtime so
// unchanged files are not re-read on every validation.
type ChecksumCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, sum string)
}

// FileIssue names one file that failed validation. TrackID is empty for
// dataset-level metadata files.
type FileIssue struct {
	TrackID string `json:"track_id,omitempty"`
	Role    string `json:"role"`
	Path    string `json:"path"`
}

// Report lists the files that are missing or whose checksum does not match
// the index.
type Report struct {
	Missing          []FileIssue `json:"missing"`
	InvalidChecksums []FileIssue `json:"invalid_checksums"`
}

// OK reports whether every indexed file was found intact.
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.InvalidChecksums) == 0
}

// TrackIssues groups the issues of one track by kind.
type TrackIssues struct {
	Missing          map[string]string
	InvalidChecksums map[string]string
}

// ByTrack groups issues by track id, then by role, mapping to the file path.
func (r *Report) ByTrack() map[string]TrackIssues {
	out := map[string]TrackIssues{}
	get := func(id string) TrackIssues {
		ti, ok := out[id]
		if !ok {
			ti = TrackIssues{Missing: map[string]string{}, InvalidChecksums: map[string]string{}}
			out[id] = ti
		}
		return ti
	}
	for _, is := range r.Missing {
		get(is.TrackID).Missing[is.Role] = is.Path
	}
	for _, is := range r.InvalidChecksums {
		get(is.TrackID).InvalidChecksums[is.Role] = is.Path
	}
	return out
}

// Validate checks every indexed file against the data home. Missing and
// corrupt files are reported, never returned as errors; an error means the
// index itself could not be resolved or ctx was cancelled.
func (d *Dataset) Validate(ctx context.Context) (*Report, error) {
	idx, err := d.Index()
	if err != nil {
		return nil, err
	}

	ids := idx.TrackIDs()
	report := &Report{}
	bar := startProgress(d.progress, "Validating: ", len(ids)+1)
	defer bar.Done()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.checkFiles(ctx, report, id, idx.Tracks[id])
		bar.Increment()
	}
	d.checkFiles(ctx, report, "", idx.Metadata)
	bar.Increment()

	if report.OK() {
		logger.Info("dataset validated",
			logger.String("dataset", d.cfg.Name),
			logger.Int("tracks", len(ids)))
	} else {
		logger.Warn("dataset has missing or invalid files",
			logger.String("dataset", d.cfg.Name),
			logger.Int("missing", len(report.Missing)),
			logger.Int("invalidChecksums", len(report.InvalidChecksums)))
	}
	return report, nil
}

func (d *Dataset) checkFiles(ctx context.Context, report *Report, trackID string, files map[string]FileEntry) {
	roles := make([]string, 0, len(files))
	for role := range files {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	for _, role := range roles {
		entry := files[role]
		if entry.Path == "" {
			continue
		}
		path := filepath.Join(d.dataHome, entry.Path)
		issue := FileIssue{TrackID: trackID, Role: role, Path: path}

		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("cannot stat indexed file", logger.String("path", path), logger.ErrorField(err))
			}
			report.Missing = append(report.Missing, issue)
			continue
		}
		if entry.Checksum == "" {
			continue
		}
		sum, err := d.checksum(ctx, path, info)
		if err != nil {
			logger.Warn("cannot checksum indexed file", logger.String("path", path), logger.ErrorField(err))
			report.InvalidChecksums = append(report.InvalidChecksums, issue)
			continue
		}
		if sum != entry.Checksum {
			report.InvalidChecksums = append(report.InvalidChecksums, issue)
		}
	}
}

func (d *Dataset) checksum(ctx context.Context, path string, info fs.FileInfo) (string, error) {
	if d.checksums == nil {
		return download.MD5File(path)
	}
	key := fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano())
	if sum, ok := d.checksums.Get(ctx, key); ok {
		return sum, nil
	}
	sum, err := download.MD5File(path)
	if err != nil {
		return "", err
	}
	d.checksums.Set(ctx, key, sum)
	return sum, nil
}
