// Package ikala loads iKala: 252 Mandarin pop excerpts with the instrumental
// on the left channel and the vocal on the right, vocal pitch contours and
// time-aligned lyrics.
package ikala

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mirdata/core/annotations"
	"mirdata/core/audio"
	"mirdata/core/dataset"
	"mirdata/core/jams"
)

//go:embed indexes/*.json
var indexes embed.FS

const (
	// pitch labels are sampled every 32 ms, centred on the frame
	timeStep   = 0.032
	timeOffset = 0.016
)

const bibtex = `@inproceedings{chan2015vocal,
    title={Vocal activity informed singing voice separation with the iKala dataset},
    author={Chan, Tak-Shing and Yeh, Tzu-Chun and Fan, Zhe-Cheng and Chen, Hung-Wei and Su, Li and Yang, Yi-Hsuan and
    Jang, Roger},
    booktitle={2015 IEEE International Conference on Acoustics, Speech and Signal Processing (ICASSP)},
    pages={718--722},
    year={2015},
    organization={IEEE}
}`

const downloadInfo = `Unfortunately the iKala dataset is not available for download.
If you have the iKala dataset, place the contents into a folder called
iKala with the following structure:
    > iKala/
        > Lyrics/
        > PitchLabel/
        > Wavfile/
        id_mapping.txt
and copy the iKala folder to the data home.`

// Config returns the dataset definition.
func Config() dataset.Config {
	sub, err := fs.Sub(indexes, "indexes")
	if err != nil {
		panic(err)
	}
	return dataset.Config{
		Name:         "ikala",
		Bibtex:       bibtex,
		HomePage:     "http://mac.citi.sinica.edu.tw/ikala/",
		License:      "When it was distributed, iKala was available for non-commercial use only.",
		DownloadInfo: downloadInfo,

		DefaultVersion: "1.0",
		Indexes: map[string]dataset.IndexSpec{
			"1.0": {
				Filename: "ikala_index_1.0.json",
				URL:      "https://raw.githubusercontent.com/mir-dataset-loaders/mirdata/master/mirdata/datasets/indexes/ikala_index_1.0.json",
			},
			"sample": {Filename: "ikala_index_sample.json"},
		},
		IndexFS: sub,

		LoadMetadata: LoadMetadata,
		MetadataKey:  SongID,
		JAMS: func(t *dataset.Track) (*jams.JAMS, error) {
			return (&Track{t}).ToJAMS()
		},
	}
}

// Load creates the dataset.
func Load(opts ...dataset.Option) *dataset.Dataset {
	return dataset.New(Config(), opts...)
}

// SongID is the part of a track id before the section name.
func SongID(trackID string) string {
	song, _, _ := strings.Cut(trackID, "_")
	return song
}

// Singer is the metadata record of a song.
type Singer struct {
	ID string `json:"singer_id"`
}

// LoadMetadata reads id_mapping.txt, a tab separated list of singer and song
// ids, into singers keyed by song id.
func LoadMetadata(dataHome string) (map[string]any, error) {
	f, err := os.Open(filepath.Join(dataHome, "id_mapping.txt"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	out := map[string]any{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading id_mapping.txt: %w", err)
		}
		if len(rec) < 2 || rec[0] == "singer" {
			continue
		}
		out[strings.TrimSpace(rec[1])] = Singer{ID: strings.TrimSpace(rec[0])}
	}
	return out, nil
}

var (
	f0Property     = dataset.Property[*annotations.F0Data]{Role: "f0", Load: LoadF0}
	lyricsProperty = dataset.Property[*annotations.LyricData]{Role: "lyrics", Load: LoadLyrics}
)

// Track is an iKala excerpt, e.g. "10161_chorus".
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

func (t *Track) F0() (*annotations.F0Data, error)        { return f0Property.Get(t.Track) }
func (t *Track) Lyrics() (*annotations.LyricData, error) { return lyricsProperty.Get(t.Track) }

func (t *Track) SongID() string { return SongID(t.ID) }

// Section is the part of the song the excerpt covers, e.g. "chorus".
func (t *Track) Section() string {
	_, section, _ := strings.Cut(t.ID, "_")
	return section
}

// SingerID looks the singer up in the dataset metadata.
func (t *Track) SingerID() (string, error) {
	md, err := t.Metadata()
	if err != nil {
		return "", err
	}
	s, ok := md.(Singer)
	if !ok {
		return "", nil
	}
	return s.ID, nil
}

func (t *Track) channel(ctx context.Context, sampleRate, ch int) (*audio.Signal, error) {
	sig, err := t.Audio(ctx, audio.Options{SampleRate: sampleRate})
	if err != nil || sig == nil {
		return nil, err
	}
	if sig.Channels() != 2 {
		return nil, fmt.Errorf("track %s: expected stereo audio, got %d channels", t.ID, sig.Channels())
	}
	return &audio.Signal{Data: [][]float32{sig.Data[ch]}, SampleRate: sig.SampleRate}, nil
}

// InstrumentalAudio returns the left channel.
func (t *Track) InstrumentalAudio(ctx context.Context, sampleRate int) (*audio.Signal, error) {
	return t.channel(ctx, sampleRate, 0)
}

// VocalAudio returns the right channel.
func (t *Track) VocalAudio(ctx context.Context, sampleRate int) (*audio.Signal, error) {
	return t.channel(ctx, sampleRate, 1)
}

// MixAudio returns the sum of both channels.
func (t *Track) MixAudio(ctx context.Context, sampleRate int) (*audio.Signal, error) {
	sig, err := t.Audio(ctx, audio.Options{SampleRate: sampleRate})
	if err != nil || sig == nil {
		return nil, err
	}
	return Mix(sig), nil
}

// Mix sums all channels of sig into one.
func Mix(sig *audio.Signal) *audio.Signal {
	mix := make([]float32, sig.Len())
	for _, ch := range sig.Data {
		for i, v := range ch {
			mix[i] += v
		}
	}
	return &audio.Signal{Data: [][]float32{mix}, SampleRate: sig.SampleRate}
}

// ToJAMS converts the vocal pitch and lyrics of the track.
func (t *Track) ToJAMS() (*jams.JAMS, error) {
	opts := jams.Options{
		AudioPath:     t.Path("audio"),
		DurationProbe: t.DurationProbe(),
		Metadata:      map[string]any{"section": t.Section(), "song_id": t.SongID()},
	}
	if singer, err := t.SingerID(); err == nil && singer != "" {
		opts.Metadata["singer_id"] = singer
	}

	f0, err := t.F0()
	if err != nil {
		return nil, err
	}
	if f0 != nil {
		opts.F0 = []jams.Entry{{Data: f0, Description: "vocal pitch"}}
	}
	lyrics, err := t.Lyrics()
	if err != nil {
		return nil, err
	}
	if lyrics != nil {
		opts.Lyrics = []jams.Entry{{Data: lyrics, Description: "lyrics"}}
	}
	return jams.Convert(opts)
}

// LoadF0 reads a .pv file of one MIDI pitch per frame. Zero marks an unvoiced
// frame and stays 0 Hz with zero confidence.
func LoadF0(path string) (*annotations.F0Data, error) {
	return dataset.Open(path, parseF0)
}

func parseF0(r io.Reader) (*annotations.F0Data, error) {
	rows, err := dataset.ReadFields(r)
	if err != nil {
		return nil, err
	}
	times := make([]float64, len(rows))
	freqs := make([]float64, len(rows))
	conf := make([]float64, len(rows))
	for i, row := range rows {
		midi, err := dataset.ParseFloats(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		times[i] = timeOffset + timeStep*float64(i)
		if midi[0] > 0 {
			freqs[i] = annotations.MIDIToHz(midi[0])
			conf[i] = 1
		}
	}
	return annotations.NewF0Data(times, freqs, conf)
}

// LoadLyrics reads a lyrics .lab file of "start end lyric [pronunciation]"
// lines.
func LoadLyrics(path string) (*annotations.LyricData, error) {
	return dataset.Open(path, parseLyrics)
}

func parseLyrics(r io.Reader) (*annotations.LyricData, error) {
	rows, err := dataset.ReadFields(r)
	if err != nil {
		return nil, err
	}
	var (
		intervals      annotations.Intervals
		lyrics         []string
		pronunciations []string
		anyPron        bool
	)
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("line %d: expected start, end and lyric", i+1)
		}
		bounds, err := dataset.ParseFloats(row[0], row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		intervals = append(intervals, bounds)
		lyrics = append(lyrics, row[2])
		pron := ""
		if len(row) > 3 {
			pron = strings.Join(row[3:], " ")
			anyPron = true
		}
		pronunciations = append(pronunciations, pron)
	}
	if !anyPron {
		pronunciations = nil
	}
	return annotations.NewLyricData(intervals, lyrics, pronunciations)
}
