package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"mirdata/core/audio"
	"mirdata/core/jams"
)

// ErrUnknownTrack is returned when a track id is not in the index.
var ErrUnknownTrack = errors.New("dataset: track id not in index")

// Track is one indexed recording. Paths are resolved when the track is built;
// annotations are parsed on first access through a Property and cached on the
// track.
type Track struct {
	ID       string
	DataHome string
	Dataset  string

	files    map[string]FileEntry
	metadata func() (any, error)
	audio    audio.Loader

	mu    sync.Mutex
	cache map[string]any
}

// NewTrack builds a track for id from index. It fails with ErrUnknownTrack when
// id is not indexed.
func NewTrack(id, dataHome string, index *Index) (*Track, error) {
	files, ok := index.Tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrack, id)
	}
	return &Track{
		ID:       id,
		DataHome: dataHome,
		files:    files,
		cache:    map[string]any{},
	}, nil
}

// Path returns the absolute path of the file indexed under role, or "" when
// the track has no such file.
func (t *Track) Path(role string) string {
	entry, ok := t.files[role]
	if !ok || entry.Path == "" {
		return ""
	}
	return filepath.Join(t.DataHome, entry.Path)
}

// Roles returns the roles with a file for this track, sorted.
func (t *Track) Roles() []string {
	roles := make([]string, 0, len(t.files))
	for role, entry := range t.files {
		if entry.Path != "" {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

// Files returns the index entries of this track keyed by role.
func (t *Track) Files() map[string]FileEntry {
	out := make(map[string]FileEntry, len(t.files))
	for k, v := range t.files {
		out[k] = v
	}
	return out
}

// Metadata returns the dataset metadata record of this track, or nil when the
// dataset has none for it.
func (t *Track) Metadata() (any, error) {
	if t.metadata == nil {
		return nil, nil
	}
	return t.metadata()
}

// Audio decodes the file under the "audio" role.
func (t *Track) Audio(ctx context.Context, opts audio.Options) (*audio.Signal, error) {
	return t.AudioFor(ctx, "audio", opts)
}

// AudioFor decodes the audio file under role. A missing role yields nil, nil.
func (t *Track) AudioFor(ctx context.Context, role string, opts audio.Options) (*audio.Signal, error) {
	if t.audio == nil {
		return nil, fmt.Errorf("track %s: no audio loader configured", t.ID)
	}
	return t.audio.Load(ctx, t.Path(role), opts)
}

// Duration probes the length of the "audio" file in seconds.
func (t *Track) Duration() (float64, error) {
	if t.audio == nil {
		return 0, fmt.Errorf("track %s: no audio loader configured", t.ID)
	}
	path := t.Path("audio")
	if path == "" {
		return 0, fmt.Errorf("track %s has no audio", t.ID)
	}
	return t.audio.Duration(path)
}

// DurationProbe exposes the audio loader for JAMS conversion, or nil when no
// loader is configured.
func (t *Track) DurationProbe() jams.DurationProbe {
	if t.audio == nil {
		return nil
	}
	return t.audio.Duration
}

func (t *Track) String() string {
	return fmt.Sprintf("Track(dataset=%s, id=%s, roles=%v)", t.Dataset, t.ID, t.Roles())
}
