package dataset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"mirdata/core/download"
)

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testIndex() *Index {
	return &Index{
		Tracks: map[string]map[string]FileEntry{
			"t1": {
				"audio": {Path: "audio/t1.wav", Checksum: md5Hex("wave-1")},
				"beats": {Path: "annotations/t1.txt", Checksum: md5Hex("0.5\n1.0\n")},
				"keys":  {},
			},
			"t2": {
				"audio": {Path: "audio/t2.wav", Checksum: md5Hex("wave-2")},
				"beats": {Path: "annotations/t2.txt", Checksum: md5Hex("1.5\n")},
			},
		},
		Metadata: map[string]FileEntry{
			"meta": {Path: "meta.csv", Checksum: md5Hex("id,title\n")},
		},
	}
}

func TestParseIndexFlat(t *testing.T) {
	raw := `{"t1": {"audio": ["a/t1.wav", "abc"], "beats": [null, null]}}`
	idx, err := ParseIndex(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !idx.Has("t1") || len(idx.Tracks) != 1 {
		t.Fatalf("got tracks %v", idx.Tracks)
	}
	if got := idx.Tracks["t1"]["audio"]; got.Path != "a/t1.wav" || got.Checksum != "abc" {
		t.Errorf("got audio entry %+v", got)
	}
	if got := idx.Tracks["t1"]["beats"]; got.Path != "" {
		t.Errorf("null path should be empty, got %q", got.Path)
	}
}

func TestParseIndexVersioned(t *testing.T) {
	raw := `{"version": "1.2", "tracks": {"b": {"audio": ["x.wav", "1"]}, "a": {}}, "metadata": {"m": ["m.csv", "2"]}}`
	idx, err := ParseIndex(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if idx.Version != "1.2" {
		t.Errorf("got version %q, want 1.2", idx.Version)
	}
	if ids := idx.TrackIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("got ids %v, want [a b]", ids)
	}
	if idx.Metadata["m"].Path != "m.csv" {
		t.Errorf("got metadata %v", idx.Metadata)
	}
}

func TestParseIndexRejectsBadEntries(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"t1": {"audio": ["only-one"]}}`,
		`{"t1": {"audio": "a.wav"}}`,
	} {
		if _, err := ParseIndex(strings.NewReader(raw)); err == nil {
			t.Errorf("ParseIndex(%s) should fail", raw)
		}
	}
}

func TestTrackUnknownID(t *testing.T) {
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(t.TempDir()))
	_, err := d.Track("nope")
	if !errors.Is(err, ErrUnknownTrack) {
		t.Fatalf("got %v, want ErrUnknownTrack", err)
	}
}

func TestTrackPaths(t *testing.T) {
	home := t.TempDir()
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(home))
	tr, err := d.Track("t1")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := tr.Path("beats"), filepath.Join(home, "annotations/t1.txt"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if tr.Path("keys") != "" {
		t.Errorf("null role should resolve to an empty path, got %q", tr.Path("keys"))
	}
	if tr.Path("chords") != "" {
		t.Errorf("unknown role should resolve to an empty path, got %q", tr.Path("chords"))
	}
	if roles := tr.Roles(); len(roles) != 2 || roles[0] != "audio" || roles[1] != "beats" {
		t.Errorf("got roles %v", roles)
	}
	if tr.Dataset != "test" {
		t.Errorf("got dataset %q", tr.Dataset)
	}
}

func TestPropertyParsesOnce(t *testing.T) {
	home := t.TempDir()
	writeFile(t, home, "annotations/t1.txt", "0.5\n1.0\n")
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(home))
	tr, err := d.Track("t1")
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	beats := Property[string]{Role: "beats", Load: func(path string) (string, error) {
		calls++
		return Open(path, func(r io.Reader) (string, error) {
			b, err := io.ReadAll(r)
			return string(b), err
		})
	}}

	for i := 0; i < 3; i++ {
		got, err := beats.Get(tr)
		if err != nil {
			t.Fatal(err)
		}
		if got != "0.5\n1.0\n" {
			t.Errorf("got %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader ran %d times, want 1", calls)
	}
}

func TestPropertyAbsentRole(t *testing.T) {
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(t.TempDir()))
	tr, _ := d.Track("t1")
	keys := Property[*string]{Role: "keys", Load: func(path string) (*string, error) {
		if path != "" {
			t.Errorf("got path %q for an absent role", path)
		}
		return nil, nil
	}}
	v, err := keys.Get(tr)
	if err != nil || v != nil {
		t.Errorf("got %v, %v; want nil, nil", v, err)
	}
}

func TestPropertyErrorIsNotCached(t *testing.T) {
	home := t.TempDir()
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(home))
	tr, _ := d.Track("t2")

	calls := 0
	beats := Property[int]{Role: "beats", Load: func(path string) (int, error) {
		calls++
		return Open(path, func(r io.Reader) (int, error) { return 1, nil })
	}}

	if _, err := beats.Get(tr); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("got %v, want fs.ErrNotExist", err)
	}
	writeFile(t, home, "annotations/t2.txt", "1.5\n")
	if v, err := beats.Get(tr); err != nil || v != 1 {
		t.Errorf("got %v, %v after the file appeared", v, err)
	}
	if calls != 2 {
		t.Errorf("loader ran %d times, want 2", calls)
	}
}

func TestValidate(t *testing.T) {
	home := t.TempDir()
	writeFile(t, home, "audio/t1.wav", "wave-1")
	writeFile(t, home, "annotations/t1.txt", "0.5\n1.0\n")
	writeFile(t, home, "audio/t2.wav", "tampered")
	writeFile(t, home, "meta.csv", "id,title\n")

	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(home), WithProgress(io.Discard))
	report, err := d.Validate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() {
		t.Fatal("report should not be OK")
	}
	if len(report.Missing) != 1 || report.Missing[0].TrackID != "t2" || report.Missing[0].Role != "beats" {
		t.Errorf("got missing %+v", report.Missing)
	}
	if len(report.InvalidChecksums) != 1 || report.InvalidChecksums[0].TrackID != "t2" || report.InvalidChecksums[0].Role != "audio" {
		t.Errorf("got invalid %+v", report.InvalidChecksums)
	}

	byTrack := report.ByTrack()
	if byTrack["t2"].Missing["beats"] != filepath.Join(home, "annotations/t2.txt") {
		t.Errorf("got grouped %+v", byTrack)
	}
	if _, ok := byTrack["t1"]; ok {
		t.Error("t1 is intact and should not be reported")
	}
}

func TestValidateAllPresent(t *testing.T) {
	home := t.TempDir()
	writeFile(t, home, "audio/t1.wav", "wave-1")
	writeFile(t, home, "annotations/t1.txt", "0.5\n1.0\n")
	writeFile(t, home, "audio/t2.wav", "wave-2")
	writeFile(t, home, "annotations/t2.txt", "1.5\n")

	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(home))
	report, err := d.Validate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Missing) != 1 || report.Missing[0].TrackID != "" || report.Missing[0].Role != "meta" {
		t.Errorf("only the metadata file should be missing, got %+v", report.Missing)
	}
	if len(report.InvalidChecksums) != 0 {
		t.Errorf("got invalid %+v", report.InvalidChecksums)
	}
}

func TestValidateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(t.TempDir()))
	if _, err := d.Validate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

type mapCache struct {
	sums map[string]string
	hits int
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool) {
	s, ok := c.sums[key]
	if ok {
		c.hits++
	}
	return s, ok
}

func (c *mapCache) Set(_ context.Context, key, sum string) { c.sums[key] = sum }

func TestValidateUsesChecksumCache(t *testing.T) {
	home := t.TempDir()
	writeFile(t, home, "audio/t1.wav", "wave-1")
	cache := &mapCache{sums: map[string]string{}}
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(home), WithChecksumCache(cache))

	for i := 0; i < 2; i++ {
		if _, err := d.Validate(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if len(cache.sums) != 1 {
		t.Errorf("got %d cached sums, want 1", len(cache.sums))
	}
	if cache.hits != 1 {
		t.Errorf("got %d cache hits, want 1", cache.hits)
	}
}

func TestMetadata(t *testing.T) {
	calls := 0
	cfg := Config{
		Name: "test",
		LoadMetadata: func(home string) (map[string]any, error) {
			calls++
			return map[string]any{"t1": "first"}, nil
		},
	}
	d := New(cfg, WithIndex(testIndex()), WithDataHome(t.TempDir()))

	t1, _ := d.Track("t1")
	t2, _ := d.Track("t2")
	if md, err := t1.Metadata(); err != nil || md != "first" {
		t.Errorf("got %v, %v", md, err)
	}
	if md, err := t2.Metadata(); err != nil || md != nil {
		t.Errorf("got %v, %v; want nil for a track without metadata", md, err)
	}
	if calls != 1 {
		t.Errorf("metadata loaded %d times, want 1", calls)
	}
}

func TestMetadataNotFound(t *testing.T) {
	cfg := Config{
		Name: "test",
		LoadMetadata: func(home string) (map[string]any, error) {
			_, err := os.Open(filepath.Join(home, "missing.csv"))
			return nil, err
		},
	}
	d := New(cfg, WithIndex(testIndex()), WithDataHome(t.TempDir()))
	if _, err := d.Metadata(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got %v, want fs.ErrNotExist", err)
	}
	tr, _ := d.Track("t1")
	if _, err := tr.Metadata(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got %v, want fs.ErrNotExist", err)
	}
}

func TestIndexFromFS(t *testing.T) {
	cfg := Config{
		Name:           "test",
		DefaultVersion: "sample",
		Indexes:        map[string]IndexSpec{"sample": {Filename: "sample.json"}},
		IndexFS: fstest.MapFS{
			"sample.json": {Data: []byte(`{"a": {"audio": ["a.wav", null]}}`)},
		},
	}
	ids, err := New(cfg, WithDataHome(t.TempDir())).TrackIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("got %v", ids)
	}

	_, err = New(cfg, WithVersion("9.9"), WithDataHome(t.TempDir())).TrackIDs()
	if !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("got %v, want ErrUnknownVersion", err)
	}
}

func TestIndexFetchedFromRemote(t *testing.T) {
	body := `{"version": "1.0", "tracks": {"r1": {"audio": ["r1.wav", null]}}}`
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	home := t.TempDir()
	cfg := Config{
		Name:           "test",
		DefaultVersion: "1.0",
		Indexes: map[string]IndexSpec{"1.0": {
			Filename: "test_index_1.0.json",
			URL:      srv.URL + "/index.json",
			Checksum: md5Hex(body),
		}},
	}
	ids, err := New(cfg, WithDataHome(home)).TrackIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "r1" {
		t.Errorf("got %v", ids)
	}
	if _, err := os.Stat(filepath.Join(home, "mirdata_indexes", "test_index_1.0.json")); err != nil {
		t.Errorf("index should be cached under the data home: %v", err)
	}

	// a second dataset on the same home reuses the local copy
	if _, err := New(cfg, WithDataHome(home)).TrackIDs(); err != nil {
		t.Fatal(err)
	}
	if requests != 1 {
		t.Errorf("got %d requests, want 1", requests)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "content of "+r.URL.Path)
	}))
	defer srv.Close()

	home := t.TempDir()
	cfg := Config{
		Name: "test",
		Remotes: map[string]download.Remote{
			"annotations": {Filename: "ann.txt", URL: srv.URL + "/ann", DestinationDir: "annotations"},
			"audio":       {Filename: "audio.txt", URL: srv.URL + "/audio"},
		},
	}
	d := New(cfg, WithIndex(testIndex()), WithDataHome(home))

	if err := d.Download(context.Background(), DownloadOptions{Partial: []string{"annotations"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(home, "annotations", "ann.txt")); err != nil {
		t.Errorf("partial download missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "audio.txt")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("audio should not be downloaded, stat gave %v", err)
	}

	err := d.Download(context.Background(), DownloadOptions{Partial: []string{"video"}})
	if !errors.Is(err, ErrUnknownRemote) {
		t.Errorf("got %v, want ErrUnknownRemote", err)
	}
}

func TestJAMSUnsupported(t *testing.T) {
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(t.TempDir()))
	if _, err := d.JAMS("t1"); !errors.Is(err, ErrNoJAMS) {
		t.Errorf("got %v, want ErrNoJAMS", err)
	}
}

func TestPropertiesSharingRole(t *testing.T) {
	home := t.TempDir()
	writeFile(t, home, "annotations/t1.txt", "0.5\n1.0\n")
	d := New(Config{Name: "test"}, WithIndex(testIndex()), WithDataHome(home))
	tr, err := d.Track("t1")
	if err != nil {
		t.Fatal(err)
	}

	count := Property[int]{Role: "beats", Load: func(path string) (int, error) {
		return Open(path, func(r io.Reader) (int, error) {
			rows, err := ReadFields(r)
			return len(rows), err
		})
	}}
	first := Property[string]{Role: "beats", Load: func(path string) (string, error) {
		return Open(path, func(r io.Reader) (string, error) {
			rows, err := ReadFields(r)
			if err != nil {
				return "", err
			}
			return rows[0][0], nil
		})
	}}
	last := Property[string]{Name: "last beat", Role: "beats", Load: func(path string) (string, error) {
		return "1.0", nil
	}}

	if n, err := count.Get(tr); err != nil || n != 2 {
		t.Errorf("count = %v, %v; want 2", n, err)
	}
	if s, err := first.Get(tr); err != nil || s != "0.5" {
		t.Errorf("first = %q, %v; want 0.5", s, err)
	}
	if s, err := last.Get(tr); err != nil || s != "1.0" {
		t.Errorf("last = %q, %v; want 1.0", s, err)
	}
	if n, err := count.Get(tr); err != nil || n != 2 {
		t.Errorf("cached count = %v, %v; want 2", n, err)
	}
}
