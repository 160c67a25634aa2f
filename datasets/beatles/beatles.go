// Package beatles loads the Isophonics Beatles reference annotations: beats,
// chords, keys and structural sections for 180 songs.
package beatles

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"mirdata/core/annotations"
	"mirdata/core/dataset"
	"mirdata/core/download"
	"mirdata/core/jams"
)

//go:embed indexes/*.json
var indexes embed.FS

const bibtex = `@inproceedings{mauch2009beatles,
    title={OMRAS2 metadata project 2009},
    author={Mauch, Matthias and Cannam, Chris and Davies, Matthew and Dixon, Simon and Harte,
    Christopher and Kolozali, Sefki and Tidhar, Dan and Sandler, Mark},
    booktitle={12th International Society for Music Information Retrieval Conference},
    year={2009},
    series = {ISMIR}
}`

const downloadInfo = `Unfortunately the audio files of the Beatles dataset are not available
for download. If you have the Beatles dataset, place the contents into a
folder called Beatles with the following structure:
    > Beatles/
        > annotations/
        > audio/
and copy the Beatles folder to the data home.`

// Config returns the dataset definition.
func Config() dataset.Config {
	sub, err := fs.Sub(indexes, "indexes")
	if err != nil {
		panic(err)
	}
	return dataset.Config{
		Name:         "beatles",
		Bibtex:       bibtex,
		HomePage:     "http://isophonics.net/content/reference-annotations-beatles",
		License:      "Unfortunately we couldn't find the license information for the Beatles dataset.",
		DownloadInfo: downloadInfo,

		DefaultVersion: "1.2",
		Indexes: map[string]dataset.IndexSpec{
			"1.2": {
				Filename: "beatles_index_1.2.json",
				URL:      "https://raw.githubusercontent.com/mir-dataset-loaders/mirdata/master/mirdata/datasets/indexes/beatles_index_1.2.json",
			},
			"sample": {Filename: "beatles_index_sample.json"},
		},
		IndexFS: sub,

		Remotes: map[string]download.Remote{
			"annotations": {
				Filename:       "The Beatles Annotations.tar.gz",
				URL:            "http://isophonics.net/files/annotations/The%20Beatles%20Annotations.tar.gz",
				Checksum:       "62425c552d37c6bb655a78e4603828cc",
				DestinationDir: "annotations",
			},
		},

		JAMS: func(t *dataset.Track) (*jams.JAMS, error) {
			return (&Track{t}).ToJAMS()
		},
	}
}

// Load creates the dataset.
func Load(opts ...dataset.Option) *dataset.Dataset {
	return dataset.New(Config(), opts...)
}

var (
	beatsProperty    = dataset.Property[*annotations.BeatData]{Role: "beats", Load: LoadBeats}
	chordsProperty   = dataset.Property[*annotations.ChordData]{Role: "chords", Load: LoadChords}
	keysProperty     = dataset.Property[*annotations.KeyData]{Role: "keys", Load: LoadKeys}
	sectionsProperty = dataset.Property[*annotations.SectionData]{Role: "sections", Load: LoadSections}
)

// Track is a Beatles song.
type Track struct {
	*dataset.Track
}

// NewTrack looks up id in d.
func NewTrack(d *dataset.Dataset, id string) (*Track, error) {
	t, err := d.Track(id)
	if err != nil {
		return nil, err
	}
	return &Track{t}, nil
}

func (t *Track) Beats() (*annotations.BeatData, error)       { return beatsProperty.Get(t.Track) }
func (t *Track) Chords() (*annotations.ChordData, error)     { return chordsProperty.Get(t.Track) }
func (t *Track) Keys() (*annotations.KeyData, error)         { return keysProperty.Get(t.Track) }
func (t *Track) Sections() (*annotations.SectionData, error) { return sectionsProperty.Get(t.Track) }

// Title is the song title taken from the annotation file name.
func (t *Track) Title() string {
	for _, role := range []string{"sections", "beats", "chords", "keys", "audio"} {
		if p := t.Path(role); p != "" {
			return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
	}
	return t.ID
}

// ToJAMS converts every available annotation of the track.
func (t *Track) ToJAMS() (*jams.JAMS, error) {
	opts := jams.Options{
		AudioPath:     t.Path("audio"),
		DurationProbe: t.DurationProbe(),
		Metadata:      map[string]any{"artist": "The Beatles", "title": t.Title()},
	}

	beats, err := t.Beats()
	if err != nil {
		return nil, err
	}
	if beats != nil {
		opts.Beats = []jams.Entry{{Data: beats}}
	}
	chords, err := t.Chords()
	if err != nil {
		return nil, err
	}
	if chords != nil {
		opts.Chords = []jams.Entry{{Data: chords}}
	}
	keys, err := t.Keys()
	if err != nil {
		return nil, err
	}
	if keys != nil {
		opts.Keys = []jams.Entry{{Data: keys}}
	}
	sections, err := t.Sections()
	if err != nil {
		return nil, err
	}
	if sections != nil {
		opts.Sections = []jams.Entry{{Data: sections}}
	}
	return jams.Convert(opts)
}

// LoadBeats reads a beat file of "time position" lines. Positions written as
// "New Point" are inferred from their neighbours.
func LoadBeats(path string) (*annotations.BeatData, error) {
	return dataset.Open(path, parseBeats)
}

func parseBeats(r io.Reader) (*annotations.BeatData, error) {
	rows, err := dataset.ReadFields(r)
	if err != nil {
		return nil, err
	}
	times := make([]float64, len(rows))
	raw := make([]string, len(rows))
	for i, row := range rows {
		ts, err := dataset.ParseFloats(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		times[i] = ts[0]
		raw[i] = strings.Join(row[1:], " ")
	}
	positions, err := fixBeatPositions(raw)
	if err != nil {
		return nil, err
	}
	return annotations.NewBeatData(times, positions)
}

// fixBeatPositions resolves unknown positions from the next known position,
// or for the last beat from the previous one, counting in 4/4. Position 0
// wraps to 4.
func fixBeatPositions(raw []string) ([]int, error) {
	const unknown = -1
	pos := make([]int, len(raw))
	missing := 0
	for i, s := range raw {
		if s == "" || s == "New Point" {
			pos[i] = unknown
			missing++
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid beat position %q", i+1, s)
		}
		pos[i] = v
	}

	for missing > 0 {
		fixed := 0
		for i := range pos {
			if pos[i] != unknown {
				continue
			}
			switch {
			case i < len(pos)-1 && pos[i+1] != unknown:
				pos[i] = mod4(pos[i+1] - 1)
				fixed++
			case i == len(pos)-1 && i > 0 && pos[i-1] != unknown:
				pos[i] = mod4(pos[i-1] + 1)
				fixed++
			}
		}
		if fixed == 0 {
			return nil, fmt.Errorf("%w: cannot infer %d beat positions", annotations.ErrValue, missing)
		}
		missing -= fixed
	}

	for i, p := range pos {
		if p == 0 {
			pos[i] = 4
		}
	}
	return pos, nil
}

func mod4(v int) int {
	return ((v % 4) + 4) % 4
}

// readIntervals parses "start end label..." lines; keep selects and rewrites
// the label of each row and may drop it by returning false.
func readIntervals(r io.Reader, keep func(fields []string) (string, bool)) (annotations.Intervals, []string, error) {
	rows, err := dataset.ReadFields(r)
	if err != nil {
		return nil, nil, err
	}
	var intervals annotations.Intervals
	var labels []string
	for i, row := range rows {
		if len(row) < 3 {
			return nil, nil, fmt.Errorf("line %d: expected start, end and label, got %q", i+1, strings.Join(row, " "))
		}
		label, ok := keep(row)
		if !ok {
			continue
		}
		bounds, err := dataset.ParseFloats(row[0], row[1])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		intervals = append(intervals, bounds)
		labels = append(labels, label)
	}
	return intervals, labels, nil
}

func restLabel(fields []string) (string, bool) {
	return strings.Join(fields[2:], " "), true
}

// LoadChords reads a chord .lab file.
func LoadChords(path string) (*annotations.ChordData, error) {
	return dataset.Open(path, func(r io.Reader) (*annotations.ChordData, error) {
		intervals, labels, err := readIntervals(r, restLabel)
		if err != nil {
			return nil, err
		}
		return annotations.NewChordData(intervals, labels, nil)
	})
}

// LoadKeys reads a key .lab file. Only "Key" rows are kept, so a file that
// marks nothing but silence yields nil.
func LoadKeys(path string) (*annotations.KeyData, error) {
	return dataset.Open(path, func(r io.Reader) (*annotations.KeyData, error) {
		intervals, keys, err := readIntervals(r, func(fields []string) (string, bool) {
			if fields[2] != "Key" || len(fields) < 4 {
				return "", false
			}
			return fields[3], true
		})
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return annotations.NewKeyData(intervals, keys)
	})
}

// LoadSections reads a segmentation .lab file.
func LoadSections(path string) (*annotations.SectionData, error) {
	return dataset.Open(path, func(r io.Reader) (*annotations.SectionData, error) {
		intervals, labels, err := readIntervals(r, restLabel)
		if err != nil {
			return nil, err
		}
		return annotations.NewSectionData(intervals, labels)
	})
}
