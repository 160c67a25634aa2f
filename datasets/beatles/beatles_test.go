package beatles

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"mirdata/core/annotations"
	"mirdata/core/dataset"
)

func sampleTrack(t *testing.T) *Track {
	t.Helper()
	d := Load(dataset.WithVersion("sample"), dataset.WithDataHome("testdata"))
	tr, err := NewTrack(d, "0111")
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestSampleIndexValidates(t *testing.T) {
	d := Load(dataset.WithVersion("sample"), dataset.WithDataHome("testdata"))
	ids, err := d.TrackIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "0111" {
		t.Errorf("got ids %v", ids)
	}
	report, err := d.Validate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Errorf("sample data should validate, got %+v", report)
	}
}

func TestBeats(t *testing.T) {
	beats, err := sampleTrack(t).Beats()
	if err != nil {
		t.Fatal(err)
	}
	wantTimes := []float64{13.249, 13.959, 14.416, 14.965, 15.580}
	if !reflect.DeepEqual(beats.Times, wantTimes) {
		t.Errorf("got times %v, want %v", beats.Times, wantTimes)
	}
	wantPositions := []int{2, 3, 4, 1, 2}
	if !reflect.DeepEqual(beats.Positions, wantPositions) {
		t.Errorf("got positions %v, want %v", beats.Positions, wantPositions)
	}
}

func TestChordsKeysSections(t *testing.T) {
	tr := sampleTrack(t)

	chords, err := tr.Chords()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(chords.Labels, []string{"N", "E", "A", "E"}) {
		t.Errorf("got chord labels %v", chords.Labels)
	}
	if chords.Intervals[1][0] != 2.612267 || chords.Intervals[1][1] != 11.45907 {
		t.Errorf("got second chord interval %v", chords.Intervals[1])
	}

	keys, err := tr.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys.Keys, []string{"E"}) {
		t.Errorf("got keys %v", keys.Keys)
	}
	if !reflect.DeepEqual(keys.Intervals, annotations.Intervals{{2.612, 119.053}}) {
		t.Errorf("got key intervals %v", keys.Intervals)
	}

	sections, err := tr.Sections()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sections.Labels, []string{"silence", "intro", "verse"}) {
		t.Errorf("got section labels %v", sections.Labels)
	}
}

func TestAbsentRole(t *testing.T) {
	idx := &dataset.Index{Tracks: map[string]map[string]dataset.FileEntry{
		"0111": {"beats": {Path: "annotations/beat/The Beatles/01_-_Please_Please_Me/11_-_Do_You_Want_To_Know_A_Secret.txt"}},
	}}
	d := Load(dataset.WithIndex(idx), dataset.WithDataHome("testdata"))
	tr, err := NewTrack(d, "0111")
	if err != nil {
		t.Fatal(err)
	}
	sections, err := tr.Sections()
	if err != nil || sections != nil {
		t.Errorf("got %v, %v; want nil, nil", sections, err)
	}
	if beats, err := tr.Beats(); err != nil || beats == nil {
		t.Errorf("got %v, %v", beats, err)
	}
}

func TestUnknownTrack(t *testing.T) {
	d := Load(dataset.WithVersion("sample"), dataset.WithDataHome("testdata"))
	if _, err := NewTrack(d, "9999"); !errors.Is(err, dataset.ErrUnknownTrack) {
		t.Errorf("got %v, want ErrUnknownTrack", err)
	}
}

func TestFixBeatPositions(t *testing.T) {
	cases := []struct {
		raw  []string
		want []int
	}{
		{[]string{"New Point", "2"}, []int{1, 2}},
		{[]string{"3", "New Point"}, []int{3, 4}},
		{[]string{"New Point", "New Point", "1"}, []int{3, 4, 1}},
		{[]string{"4", "0", "1"}, []int{4, 4, 1}},
	}
	for _, c := range cases {
		got, err := fixBeatPositions(c.raw)
		if err != nil {
			t.Errorf("fixBeatPositions(%q): %v", c.raw, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("fixBeatPositions(%q) = %v, want %v", c.raw, got, c.want)
		}
	}

	if _, err := fixBeatPositions([]string{"New Point"}); !errors.Is(err, annotations.ErrValue) {
		t.Errorf("got %v, want ErrValue", err)
	}
	if _, err := fixBeatPositions([]string{"x"}); err == nil {
		t.Error("expected an error for a non-numeric position")
	}
}

func TestParseBeatsRejectsBadInput(t *testing.T) {
	if _, err := parseBeats(strings.NewReader("abc 1\n")); err == nil {
		t.Error("expected an error for a bad time")
	}
	if _, err := parseBeats(strings.NewReader("2.0 1\n1.0 2\n")); !errors.Is(err, annotations.ErrValue) {
		t.Errorf("decreasing times: got %v, want ErrValue", err)
	}
}

func TestToJAMS(t *testing.T) {
	doc, err := sampleTrack(t).ToJAMS()
	if err != nil {
		t.Fatal(err)
	}
	for _, ns := range []string{"beat", "chord", "key_mode", "segment_open"} {
		if n := len(doc.Search(ns)); n != 1 {
			t.Errorf("got %d %s annotations, want 1", n, ns)
		}
	}
	if doc.FileMetadata.Artist != "The Beatles" || doc.FileMetadata.Title != "11_-_Do_You_Want_To_Know_A_Secret" {
		t.Errorf("got file metadata %+v", doc.FileMetadata)
	}
	if doc.FileMetadata.Duration != 119.053 {
		t.Errorf("got duration %v, want the latest annotation end 119.053", doc.FileMetadata.Duration)
	}
}
