package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// FileEntry is one indexed file: a path relative to the data home and its md5
// checksum. An empty Path means the role is not available for the track.
type FileEntry struct {
	Path     string
	Checksum string
}

// UnmarshalJSON reads the [path, checksum] pair used by index files. Either
// element may be null.
func (e *FileEntry) UnmarshalJSON(b []byte) error {
	var pair []*string
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("index entry should be a [path, checksum] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("index entry should have 2 elements, got %d", len(pair))
	}
	*e = FileEntry{}
	if pair[0] != nil {
		e.Path = *pair[0]
	}
	if pair[1] != nil {
		e.Checksum = *pair[1]
	}
	return nil
}

// MarshalJSON writes the [path, checksum] pair, using null for empty values.
func (e FileEntry) MarshalJSON() ([]byte, error) {
	pair := [2]*string{}
	if e.Path != "" {
		pair[0] = &e.Path
	}
	if e.Checksum != "" {
		pair[1] = &e.Checksum
	}
	return json.Marshal(pair)
}

// Index maps track ids to their files by role. It is the single source of
// truth for which tracks exist.
type Index struct {
	Version  string
	Tracks   map[string]map[string]FileEntry
	Metadata map[string]FileEntry
}

// TrackIDs returns the indexed track ids in sorted order.
func (idx *Index) TrackIDs() []string {
	ids := make([]string, 0, len(idx.Tracks))
	for id := range idx.Tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id is indexed.
func (idx *Index) Has(id string) bool {
	_, ok := idx.Tracks[id]
	return ok
}

type versionedIndex struct {
	Version  json.RawMessage                 `json:"version"`
	Tracks   map[string]map[string]FileEntry `json:"tracks"`
	Metadata map[string]FileEntry            `json:"metadata"`
}

// ParseIndex reads an index file. Both the flat {track_id: {role: [path,
// checksum]}} layout and the versioned {"version", "tracks", "metadata"}
// layout are accepted.
func ParseIndex(r io.Reader) (*Index, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}

	_, hasVersion := probe["version"]
	_, hasTracks := probe["tracks"]
	if hasVersion && hasTracks {
		var v versionedIndex
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to parse versioned index: %w", err)
		}
		idx := &Index{
			Version:  strings.Trim(string(bytes.TrimSpace(v.Version)), `"`),
			Tracks:   v.Tracks,
			Metadata: v.Metadata,
		}
		if idx.Tracks == nil {
			idx.Tracks = map[string]map[string]FileEntry{}
		}
		return idx, nil
	}

	tracks := map[string]map[string]FileEntry{}
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return &Index{Tracks: tracks}, nil
}

// IndexSpec says where to find the index of one dataset version.
type IndexSpec struct {
	Filename string
	// URL is used when the index is neither packaged nor already present
	// under the data home.
	URL      string
	Checksum string
}
