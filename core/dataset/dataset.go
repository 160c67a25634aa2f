// Package dataset is the shared framework every dataset loader is built on:
// index resolution, track construction, lazily parsed annotations, checksum
// validation and downloads.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"mirdata/config"
	"mirdata/core/audio"
	"mirdata/core/download"
	"mirdata/core/jams"
	"mirdata/logger"
)

var (
	// ErrUnknownVersion is returned when a dataset has no index for the
	// requested version.
	ErrUnknownVersion = errors.New("dataset: unknown version")
	// ErrNoJAMS is returned by datasets that do not define a JAMS export.
	ErrNoJAMS = errors.New("dataset: JAMS export not supported")
)

// Config describes one dataset. Loaders declare a Config and hand it to New.
type Config struct {
	Name     string
	Bibtex   string
	HomePage string
	License  string
	// DownloadInfo is shown when the data cannot be fetched automatically.
	DownloadInfo string

	DefaultVersion string
	Indexes        map[string]IndexSpec
	// IndexFS holds packaged index files, looked up by IndexSpec.Filename.
	IndexFS fs.FS

	Remotes map[string]download.Remote

	// LoadMetadata reads dataset-wide metadata keyed by MetadataKey. Missing
	// files must surface as an error matching fs.ErrNotExist.
	LoadMetadata func(dataHome string) (map[string]any, error)
	// MetadataKey maps a track id to its metadata key. Nil uses the id.
	MetadataKey func(trackID string) string
	// JAMS converts a track of this dataset.
	JAMS func(t *Track) (*jams.JAMS, error)
}

// Dataset is a configured dataset rooted at a data home.
type Dataset struct {
	cfg        Config
	dataHome   string
	version    string
	audio      audio.Loader
	downloader *download.Downloader
	checksums  ChecksumCache
	progress   io.Writer

	mu       sync.Mutex
	index    *Index
	metadata map[string]any
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithDataHome sets the directory holding the dataset files. The default is
// <MIRDATA_HOME>/<name>.
func WithDataHome(dir string) Option {
	return func(d *Dataset) { d.dataHome = dir }
}

// WithVersion selects an index version other than the default.
func WithVersion(v string) Option {
	return func(d *Dataset) { d.version = v }
}

// WithAudioLoader sets the decoder used by Track.Audio.
func WithAudioLoader(l audio.Loader) Option {
	return func(d *Dataset) { d.audio = l }
}

// WithDownloader replaces the default HTTP-only downloader.
func WithDownloader(dl *download.Downloader) Option {
	return func(d *Dataset) { d.downloader = dl }
}

// WithChecksumCache lets Validate reuse checksums of unchanged files.
func WithChecksumCache(c ChecksumCache) Option {
	return func(d *Dataset) { d.checksums = c }
}

// WithIndex uses idx instead of resolving an index file.
func WithIndex(idx *Index) Option {
	return func(d *Dataset) { d.index = idx }
}

// WithProgress draws progress bars for long operations on w.
func WithProgress(w io.Writer) Option {
	return func(d *Dataset) { d.progress = w }
}

// New creates a Dataset from cfg.
func New(cfg Config, opts ...Option) *Dataset {
	d := &Dataset{
		cfg:     cfg,
		version: cfg.DefaultVersion,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.dataHome == "" {
		d.dataHome = filepath.Join(config.DefaultDataHome(), cfg.Name)
	}
	if d.downloader == nil {
		d.downloader = download.New(nil)
	}
	return d
}

func (d *Dataset) Name() string     { return d.cfg.Name }
func (d *Dataset) DataHome() string { return d.dataHome }
func (d *Dataset) Version() string  { return d.version }
func (d *Dataset) HomePage() string { return d.cfg.HomePage }

// Cite returns the BibTeX entry of the dataset.
func (d *Dataset) Cite() string { return d.cfg.Bibtex }

// License returns the license statement of the dataset.
func (d *Dataset) License() string { return d.cfg.License }

func (d *Dataset) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The %s dataset (version %s)\n", d.cfg.Name, d.version)
	if d.cfg.HomePage != "" {
		fmt.Fprintf(&b, "Home page: %s\n", d.cfg.HomePage)
	}
	fmt.Fprintf(&b, "Data home: %s\n", d.dataHome)
	if d.cfg.License != "" {
		fmt.Fprintf(&b, "License: %s\n", d.cfg.License)
	}
	return b.String()
}

// Index returns the track index, resolving it on first use. Packaged indexes
// are preferred, then a copy under the data home, then the remote URL.
func (d *Dataset) Index() (*Index, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index != nil {
		return d.index, nil
	}
	idx, err := d.loadIndex(context.Background())
	if err != nil {
		return nil, err
	}
	d.index = idx
	return idx, nil
}

func (d *Dataset) indexSpec() (IndexSpec, error) {
	spec, ok := d.cfg.Indexes[d.version]
	if !ok {
		return IndexSpec{}, fmt.Errorf("%w: %s has no version %q", ErrUnknownVersion, d.cfg.Name, d.version)
	}
	return spec, nil
}

func (d *Dataset) localIndexPath(spec IndexSpec) string {
	return filepath.Join(d.dataHome, "mirdata_indexes", spec.Filename)
}

func (d *Dataset) loadIndex(ctx context.Context) (*Index, error) {
	spec, err := d.indexSpec()
	if err != nil {
		return nil, err
	}

	if d.cfg.IndexFS != nil {
		f, err := d.cfg.IndexFS.Open(spec.Filename)
		if err == nil {
			defer f.Close()
			return ParseIndex(f)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to open packaged index %s: %w", spec.Filename, err)
		}
	}

	path := d.localIndexPath(spec)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && spec.URL != "" {
		if err := d.fetchIndex(ctx, spec); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index for %s %s: %w", d.cfg.Name, d.version, err)
	}
	defer f.Close()
	return ParseIndex(f)
}

func (d *Dataset) fetchIndex(ctx context.Context, spec IndexSpec) error {
	if spec.Checksum == "" {
		logger.Warn("remote index has no checksum, skipping verification",
			logger.String("dataset", d.cfg.Name),
			logger.String("url", spec.URL))
	}
	_, err := d.downloader.Fetch(ctx, download.Remote{
		Filename: spec.Filename,
		URL:      spec.URL,
		Checksum: spec.Checksum,
	}, filepath.Dir(d.localIndexPath(spec)), false)
	if err != nil {
		return fmt.Errorf("failed to fetch index for %s %s: %w", d.cfg.Name, d.version, err)
	}
	return nil
}

// TrackIDs returns the sorted ids of all indexed tracks.
func (d *Dataset) TrackIDs() ([]string, error) {
	idx, err := d.Index()
	if err != nil {
		return nil, err
	}
	return idx.TrackIDs(), nil
}

// Track builds the track with the given id. Unknown ids fail with
// ErrUnknownTrack.
func (d *Dataset) Track(id string) (*Track, error) {
	idx, err := d.Index()
	if err != nil {
		return nil, err
	}
	t, err := NewTrack(id, d.dataHome, idx)
	if err != nil {
		return nil, err
	}
	t.Dataset = d.cfg.Name
	t.audio = d.audio
	if d.cfg.LoadMetadata != nil {
		t.metadata = func() (any, error) {
			md, err := d.Metadata()
			if err != nil {
				return nil, err
			}
			key := id
			if d.cfg.MetadataKey != nil {
				key = d.cfg.MetadataKey(id)
			}
			return md[key], nil
		}
	}
	return t, nil
}

// LoadTracks builds every indexed track.
func (d *Dataset) LoadTracks() (map[string]*Track, error) {
	ids, err := d.TrackIDs()
	if err != nil {
		return nil, err
	}
	bar := startProgress(d.progress, "Loading tracks: ", len(ids))
	defer bar.Done()

	tracks := make(map[string]*Track, len(ids))
	for _, id := range ids {
		t, err := d.Track(id)
		if err != nil {
			return nil, err
		}
		tracks[id] = t
		bar.Increment()
	}
	return tracks, nil
}

// ChooseTrack returns a random track. A nil r uses the global source.
func (d *Dataset) ChooseTrack(r *rand.Rand) (*Track, error) {
	ids, err := d.TrackIDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("dataset %s has no tracks", d.cfg.Name)
	}
	var i int
	if r != nil {
		i = r.Intn(len(ids))
	} else {
		i = rand.Intn(len(ids))
	}
	return d.Track(ids[i])
}

// Metadata returns the dataset-wide metadata, reading it once. A dataset
// without metadata returns an empty map.
func (d *Dataset) Metadata() (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.metadata != nil {
		return d.metadata, nil
	}
	if d.cfg.LoadMetadata == nil {
		return map[string]any{}, nil
	}
	md, err := d.cfg.LoadMetadata(d.dataHome)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s metadata: %w", d.cfg.Name, err)
	}
	if md == nil {
		md = map[string]any{}
	}
	d.metadata = md
	return md, nil
}

// JAMS converts the track with the given id.
func (d *Dataset) JAMS(id string) (*jams.JAMS, error) {
	if d.cfg.JAMS == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoJAMS, d.cfg.Name)
	}
	t, err := d.Track(id)
	if err != nil {
		return nil, err
	}
	return d.cfg.JAMS(t)
}

// RemoteKeys returns the sorted keys of the downloadable files.
func (d *Dataset) RemoteKeys() []string {
	keys := make([]string, 0, len(d.cfg.Remotes))
	for k := range d.cfg.Remotes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
