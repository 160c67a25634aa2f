package jams

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mirdata/core/annotations"
)

func mustBeats(t *testing.T) *annotations.BeatData {
	t.Helper()
	b, err := annotations.NewBeatData([]float64{1.86, 2.627, 3.333}, []int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestConvertBeats(t *testing.T) {
	doc, err := Convert(Options{Beats: []Entry{{Data: mustBeats(t), Description: "annotated"}}})
	if err != nil {
		t.Fatal(err)
	}
	anns := doc.Search("beat")
	if len(anns) != 1 {
		t.Fatalf("got %d beat annotations, want 1", len(anns))
	}
	data := anns[0].Data
	if len(data) != 3 {
		t.Fatalf("got %d observations, want 3", len(data))
	}
	wantTimes := []float64{1.86, 2.627, 3.333}
	for i, o := range data {
		if o.Time != wantTimes[i] {
			t.Errorf("observation %d: got time %v, want %v", i, o.Time, wantTimes[i])
		}
		if o.Duration != 0 {
			t.Errorf("observation %d: got duration %v, want 0", i, o.Duration)
		}
		if o.Value != i+1 {
			t.Errorf("observation %d: got value %v, want %d", i, o.Value, i+1)
		}
		if o.Confidence != nil {
			t.Errorf("observation %d: got confidence %v, want nil", i, *o.Confidence)
		}
	}
	if anns[0].Sandbox["name"] != "annotated" {
		t.Errorf("got sandbox %v", anns[0].Sandbox)
	}
	if doc.FileMetadata.Duration != 3.333 {
		t.Errorf("got inferred duration %v, want 3.333", doc.FileMetadata.Duration)
	}
}

func TestConvertBeatsWithoutPositions(t *testing.T) {
	b, err := annotations.NewBeatData([]float64{0.5, 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Convert(Options{Beats: []Entry{{Data: b}}})
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range doc.Annotations[0].Data {
		if o.Value != nil {
			t.Errorf("got value %v, want nil", o.Value)
		}
	}
}

func TestConvertSections(t *testing.T) {
	s, err := annotations.NewSectionData(
		annotations.Intervals{{0, 10}, {10, 20}, {20, 25}},
		[]string{"verse A", "verse B", "verse A"},
	)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Convert(Options{Sections: []Entry{{Data: s, Description: "annotated"}}})
	if err != nil {
		t.Fatal(err)
	}
	var times, durations []float64
	for _, o := range doc.Search("segment_open")[0].Data {
		times = append(times, o.Time)
		durations = append(durations, o.Duration)
	}
	if !reflect.DeepEqual(durations, []float64{10, 10, 5}) {
		t.Errorf("got durations %v", durations)
	}
	if !reflect.DeepEqual(times, []float64{0, 10, 20}) {
		t.Errorf("got times %v", times)
	}
}

func TestConvertRejectsWrongKinds(t *testing.T) {
	s, err := annotations.NewSectionData(annotations.Intervals{{0, 1}}, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	cases := []Options{
		{Beats: []Entry{{Data: s}}},
		{Beats: []Entry{{Data: mustBeats(t)}, {Data: nil}}},
		{Chords: []Entry{{Data: mustBeats(t)}}},
		{Beats: []Entry{{Data: (*annotations.BeatData)(nil)}}},
		{MultiSections: []MultiSectionEntry{{Levels: []SectionLevel{{Data: mustBeats(t), Level: 0}}}}},
	}
	for i, opts := range cases {
		if _, err := Convert(opts); !errors.Is(err, annotations.ErrType) {
			t.Errorf("case %d: got %v, want ErrType", i, err)
		}
	}
}

func TestConvertPitchAndConfidence(t *testing.T) {
	f0, err := annotations.NewF0Data([]float64{0, 0.01}, []float64{0, 220}, []float64{0, 0.9})
	if err != nil {
		t.Fatal(err)
	}
	mf0, err := annotations.NewMultiF0Data([]float64{0, 0.01}, [][]float64{{}, {220, 330}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Convert(Options{
		F0:       []Entry{{Data: f0}},
		MultiF0:  []Entry{{Data: mf0}},
		Duration: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	contours := doc.Search("pitch_contour")
	if len(contours) != 2 {
		t.Fatalf("got %d contours, want 2", len(contours))
	}
	first := contours[0].Data
	if v := first[0].Value.(PitchValue); v.Voiced {
		t.Errorf("0 Hz frame should be unvoiced: %+v", v)
	}
	if first[1].Confidence == nil || *first[1].Confidence != 0.9 {
		t.Errorf("got confidence %v", first[1].Confidence)
	}
	multi := contours[1].Data
	if len(multi) != 2 {
		t.Fatalf("got %d multi-f0 observations, want 2", len(multi))
	}
	if v := multi[1].Value.(PitchValue); v.Index != 1 || v.Frequency != 330 {
		t.Errorf("got %+v", v)
	}
	if doc.FileMetadata.Duration != 1 {
		t.Errorf("got duration %v, want 1", doc.FileMetadata.Duration)
	}
}

func TestConvertTagsMetadataAndProbe(t *testing.T) {
	probed := ""
	doc, err := Convert(Options{
		AudioPath: "/data/track.wav",
		DurationProbe: func(path string) (float64, error) {
			probed = path
			return 42, nil
		},
		Tags:     []TagEntry{{Tag: "rock", Description: "genre"}},
		Metadata: map[string]any{"title": "Help!", "artist": "The Beatles", "year": 1965},
	})
	if err != nil {
		t.Fatal(err)
	}
	if probed != "/data/track.wav" {
		t.Errorf("probe called with %q", probed)
	}
	tag := doc.Search("tag_open")[0].Data[0]
	if tag.Duration != 42 || tag.Value != "rock" {
		t.Errorf("got tag %+v", tag)
	}
	if doc.FileMetadata.Title != "Help!" || doc.FileMetadata.Artist != "The Beatles" {
		t.Errorf("got file metadata %+v", doc.FileMetadata)
	}
	if doc.Sandbox["year"] != 1965 {
		t.Errorf("got sandbox %v", doc.Sandbox)
	}
}

func TestConvertMultiSections(t *testing.T) {
	coarse, _ := annotations.NewSectionData(annotations.Intervals{{0, 20}}, []string{"A"})
	fine, _ := annotations.NewSectionData(annotations.Intervals{{0, 10}, {10, 20}}, []string{"a", "b"})
	doc, err := Convert(Options{MultiSections: []MultiSectionEntry{{
		Levels:      []SectionLevel{{Data: coarse, Level: 0}, {Data: fine, Level: 1}},
		Description: "annotator 1",
	}}})
	if err != nil {
		t.Fatal(err)
	}
	data := doc.Search("multi_segment")[0].Data
	if len(data) != 3 {
		t.Fatalf("got %d observations, want 3", len(data))
	}
	if v := data[2].Value.(SegmentValue); v.Label != "b" || v.Level != 1 {
		t.Errorf("got %+v", v)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	doc := &JAMS{Annotations: []*Annotation{newAnnotation("chord", "")}}
	doc.Annotations[0].append(0, 1, 3.0, nil)
	if err := doc.Validate(); !errors.Is(err, ErrSchema) {
		t.Errorf("got %v, want ErrSchema", err)
	}

	doc = &JAMS{Annotations: []*Annotation{newAnnotation("unknown", "")}}
	if err := doc.Validate(); !errors.Is(err, ErrSchema) {
		t.Errorf("got %v, want ErrSchema", err)
	}

	doc = &JAMS{Annotations: []*Annotation{newAnnotation("tempo", "")}}
	doc.Annotations[0].append(0, 1, -5.0, nil)
	if err := doc.Validate(); !errors.Is(err, ErrSchema) {
		t.Errorf("got %v, want ErrSchema", err)
	}
}

func TestSaveWritesJSON(t *testing.T) {
	doc, err := Convert(Options{Beats: []Entry{{Data: mustBeats(t)}}, Duration: 4})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out", "track.jams")
	if err := doc.Save(path); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	fm := decoded["file_metadata"].(map[string]any)
	if fm["jams_version"] != Version || fm["duration"] != 4.0 {
		t.Errorf("got file_metadata %v", fm)
	}
	anns := decoded["annotations"].([]any)
	first := anns[0].(map[string]any)
	if first["namespace"] != "beat" {
		t.Errorf("got namespace %v", first["namespace"])
	}
	obs := first["data"].([]any)[0].(map[string]any)
	if _, ok := obs["confidence"]; !ok || obs["confidence"] != nil {
		t.Errorf("confidence should be encoded as null, got %v", obs)
	}
}
