package jams

import (
	"fmt"

	"mirdata/core/annotations"
	"mirdata/logger"
)

// Entry pairs an annotation with a human-readable description stored in the
// annotation sandbox.
type Entry struct {
	Data        annotations.Annotation
	Description string
}

// SectionLevel is one level of a hierarchical segmentation.
type SectionLevel struct {
	Data  annotations.Annotation
	Level int
}

// MultiSectionEntry is a hierarchical segmentation written to one
// multi_segment annotation.
type MultiSectionEntry struct {
	Levels      []SectionLevel
	Description string
}

// TagEntry is a track-level tag spanning the whole file.
type TagEntry struct {
	Tag         string
	Description string
}

// DurationProbe reports the duration of an audio file in seconds.
type DurationProbe func(path string) (float64, error)

// Options lists everything Convert should put into a document. Each slice
// only accepts entries of its own annotation type.
type Options struct {
	AudioPath     string
	DurationProbe DurationProbe
	// Duration overrides probing when positive.
	Duration float64

	Beats         []Entry
	Sections      []Entry
	MultiSections []MultiSectionEntry
	Chords        []Entry
	Notes         []Entry
	Keys          []Entry
	F0            []Entry
	MultiF0       []Entry
	Lyrics        []Entry
	Tempos        []Entry
	Events        []Entry
	Tags          []TagEntry

	// Metadata keys title, artist, release and duration go to the file
	// metadata; everything else to the document sandbox.
	Metadata map[string]any
}

func confidenceAt(conf []float64, i int) *float64 {
	if conf == nil {
		return nil
	}
	c := conf[i]
	return &c
}

func typeError(kind string, got annotations.Annotation) error {
	if got == nil {
		return fmt.Errorf("%w: %s entry has no data", annotations.ErrType, kind)
	}
	return fmt.Errorf("%w: %s entry holds %T", annotations.ErrType, kind, got)
}

func beatsToJAMS(e Entry) (*Annotation, error) {
	b, ok := e.Data.(*annotations.BeatData)
	if !ok || b == nil {
		return nil, typeError("beats", e.Data)
	}
	ann := newAnnotation("beat", e.Description)
	for i, t := range b.Times {
		var value any
		if b.Positions != nil {
			value = b.Positions[i]
		}
		ann.append(t, 0, value, nil)
	}
	return ann, nil
}

func sectionsToJAMS(e Entry) (*Annotation, error) {
	s, ok := e.Data.(*annotations.SectionData)
	if !ok || s == nil {
		return nil, typeError("sections", e.Data)
	}
	ann := newAnnotation("segment_open", e.Description)
	for i, iv := range s.Intervals {
		label := ""
		if s.Labels != nil {
			label = s.Labels[i]
		}
		ann.append(iv[0], iv[1]-iv[0], label, nil)
	}
	return ann, nil
}

func multiSectionsToJAMS(e MultiSectionEntry) (*Annotation, error) {
	ann := newAnnotation("multi_segment", e.Description)
	for _, lvl := range e.Levels {
		s, ok := lvl.Data.(*annotations.SectionData)
		if !ok || s == nil {
			return nil, typeError("multi_sections", lvl.Data)
		}
		for i, iv := range s.Intervals {
			label := ""
			if s.Labels != nil {
				label = s.Labels[i]
			}
			ann.append(iv[0], iv[1]-iv[0], SegmentValue{Label: label, Level: lvl.Level}, nil)
		}
	}
	return ann, nil
}

func chordsToJAMS(e Entry) (*Annotation, error) {
	c, ok := e.Data.(*annotations.ChordData)
	if !ok || c == nil {
		return nil, typeError("chords", e.Data)
	}
	ann := newAnnotation("chord", e.Description)
	for i, iv := range c.Intervals {
		ann.append(iv[0], iv[1]-iv[0], c.Labels[i], confidenceAt(c.Confidence, i))
	}
	return ann, nil
}

func notesToJAMS(e Entry) (*Annotation, error) {
	n, ok := e.Data.(*annotations.NoteData)
	if !ok || n == nil {
		return nil, typeError("notes", e.Data)
	}
	ann := newAnnotation("note_hz", e.Description)
	for i, iv := range n.Intervals {
		ann.append(iv[0], iv[1]-iv[0], n.Notes[i], confidenceAt(n.Confidence, i))
	}
	return ann, nil
}

func keysToJAMS(e Entry) (*Annotation, error) {
	k, ok := e.Data.(*annotations.KeyData)
	if !ok || k == nil {
		return nil, typeError("keys", e.Data)
	}
	ann := newAnnotation("key_mode", e.Description)
	for i, iv := range k.Intervals {
		ann.append(iv[0], iv[1]-iv[0], k.Keys[i], nil)
	}
	return ann, nil
}

func f0ToJAMS(e Entry) (*Annotation, error) {
	f, ok := e.Data.(*annotations.F0Data)
	if !ok || f == nil {
		return nil, typeError("f0", e.Data)
	}
	ann := newAnnotation("pitch_contour", e.Description)
	for i, t := range f.Times {
		freq := f.Frequencies[i]
		ann.append(t, 0, PitchValue{Index: 0, Frequency: freq, Voiced: freq > 0}, confidenceAt(f.Confidence, i))
	}
	return ann, nil
}

func multiF0ToJAMS(e Entry) (*Annotation, error) {
	m, ok := e.Data.(*annotations.MultiF0Data)
	if !ok || m == nil {
		return nil, typeError("multif0", e.Data)
	}
	ann := newAnnotation("pitch_contour", e.Description)
	for i, t := range m.Times {
		for voice, freq := range m.FrequencyList[i] {
			var conf []float64
			if m.ConfidenceList != nil {
				conf = m.ConfidenceList[i]
			}
			ann.append(t, 0, PitchValue{Index: voice, Frequency: freq, Voiced: freq > 0}, confidenceAt(conf, voice))
		}
	}
	return ann, nil
}

func lyricsToJAMS(e Entry) (*Annotation, error) {
	l, ok := e.Data.(*annotations.LyricData)
	if !ok || l == nil {
		return nil, typeError("lyrics", e.Data)
	}
	ann := newAnnotation("lyrics", e.Description)
	for i, iv := range l.Intervals {
		ann.append(iv[0], iv[1]-iv[0], l.Lyrics[i], nil)
	}
	if l.Pronunciations != nil {
		ann.Sandbox["pronunciations"] = l.Pronunciations
	}
	return ann, nil
}

func temposToJAMS(e Entry) (*Annotation, error) {
	t, ok := e.Data.(*annotations.TempoData)
	if !ok || t == nil {
		return nil, typeError("tempo", e.Data)
	}
	ann := newAnnotation("tempo", e.Description)
	for i, iv := range t.Intervals {
		ann.append(iv[0], iv[1]-iv[0], t.Value[i], confidenceAt(t.Confidence, i))
	}
	return ann, nil
}

func eventsToJAMS(e Entry) (*Annotation, error) {
	ev, ok := e.Data.(*annotations.EventData)
	if !ok || ev == nil {
		return nil, typeError("events", e.Data)
	}
	ann := newAnnotation("tag_open", e.Description)
	for i, iv := range ev.Intervals {
		ann.append(iv[0], iv[1]-iv[0], ev.Events[i], nil)
	}
	return ann, nil
}

// Convert builds and validates a JAMS document from opts.
func Convert(opts Options) (*JAMS, error) {
	doc := &JAMS{
		Annotations: []*Annotation{},
		FileMetadata: FileMetadata{
			Identifiers: Sandbox{},
			JAMSVersion: Version,
		},
		Sandbox: Sandbox{},
	}

	groups := []struct {
		entries []Entry
		convert func(Entry) (*Annotation, error)
	}{
		{opts.Beats, beatsToJAMS},
		{opts.Sections, sectionsToJAMS},
		{opts.Chords, chordsToJAMS},
		{opts.Notes, notesToJAMS},
		{opts.Keys, keysToJAMS},
		{opts.F0, f0ToJAMS},
		{opts.MultiF0, multiF0ToJAMS},
		{opts.Lyrics, lyricsToJAMS},
		{opts.Tempos, temposToJAMS},
		{opts.Events, eventsToJAMS},
	}
	for _, g := range groups {
		for _, e := range g.entries {
			ann, err := g.convert(e)
			if err != nil {
				return nil, err
			}
			doc.Annotations = append(doc.Annotations, ann)
		}
	}
	for _, e := range opts.MultiSections {
		ann, err := multiSectionsToJAMS(e)
		if err != nil {
			return nil, err
		}
		doc.Annotations = append(doc.Annotations, ann)
	}

	duration, err := resolveDuration(opts, doc)
	if err != nil {
		return nil, err
	}
	doc.FileMetadata.Duration = duration

	for _, tag := range opts.Tags {
		ann := newAnnotation("tag_open", tag.Description)
		ann.append(0, duration, tag.Tag, nil)
		doc.Annotations = append(doc.Annotations, ann)
	}

	for k, v := range opts.Metadata {
		switch k {
		case "title":
			doc.FileMetadata.Title = fmt.Sprint(v)
		case "artist":
			doc.FileMetadata.Artist = fmt.Sprint(v)
		case "release":
			doc.FileMetadata.Release = fmt.Sprint(v)
		case "duration":
		default:
			doc.Sandbox[k] = v
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func resolveDuration(opts Options, doc *JAMS) (float64, error) {
	if opts.Duration > 0 {
		return opts.Duration, nil
	}
	if opts.AudioPath != "" && opts.DurationProbe != nil {
		d, err := opts.DurationProbe(opts.AudioPath)
		if err != nil {
			return 0, fmt.Errorf("failed to get duration of %s: %w", opts.AudioPath, err)
		}
		return d, nil
	}
	if d, ok := asNumber(opts.Metadata["duration"]); ok && d > 0 {
		return d, nil
	}
	end := 0.0
	for _, a := range doc.Annotations {
		if e := a.End(); e > end {
			end = e
		}
	}
	logger.Debug("file duration inferred from annotations", logger.Float64("duration", end))
	return end, nil
}
