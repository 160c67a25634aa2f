// Package annotations holds the in-memory annotation types shared by every
// dataset loader. Each type validates its fields when constructed and is not
// modified afterwards. A nil slice marks a facet that was not annotated.
package annotations

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Annotation is implemented by every annotation type.
type Annotation interface {
	fmt.Stringer
	// Kind is a short name for the annotation type, e.g. "beats".
	Kind() string
}

// Intervals is an (n x 2) array of [start, end] times in seconds.
type Intervals [][]float64

// Starts returns the first column.
func (iv Intervals) Starts() []float64 {
	out := make([]float64, len(iv))
	for i, row := range iv {
		out[i] = row[0]
	}
	return out
}

// Ends returns the second column.
func (iv Intervals) Ends() []float64 {
	out := make([]float64, len(iv))
	for i, row := range iv {
		out[i] = row[1]
	}
	return out
}

// Durations returns end - start for every row.
func (iv Intervals) Durations() []float64 {
	out := make([]float64, len(iv))
	for i, row := range iv {
		out[i] = row[1] - row[0]
	}
	return out
}

// MIDIToHz converts a (possibly fractional) MIDI note number to Hz.
func MIDIToHz(midi float64) float64 {
	return 440.0 * math.Pow(2, (midi-69.0)/12.0)
}

type field struct {
	name     string
	value    any
	c        Container
	elem     reflect.Type
	required bool
}

// check runs the shared construction contract over fields: required fields
// present, container and element types, then equal lengths.
func check(fields ...field) error {
	values := make([]any, 0, len(fields))
	for _, f := range fields {
		if f.required && isNil(f.value) {
			return fmt.Errorf("%w: %s is required", ErrType, f.name)
		}
		if err := ValidateArrayLike(f.value, f.c, f.elem); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		values = append(values, f.value)
	}
	return ValidateLengthsEqual(values...)
}

func describe(name string, fields ...field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if isNil(f.value) {
			parts = append(parts, f.name+"=nil")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", f.name, reflect.ValueOf(f.value).Len()))
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// BeatData holds beat times and, optionally, their metrical positions.
type BeatData struct {
	Times     []float64
	Positions []int
}

// NewBeatData validates and builds a BeatData. positions may be nil.
func NewBeatData(times []float64, positions []int) (*BeatData, error) {
	if err := check(
		field{"times", times, Array, Float, true},
		field{"positions", positions, Array, Int, false},
	); err != nil {
		return nil, err
	}
	return &BeatData{Times: times, Positions: positions}, nil
}

func (b *BeatData) Kind() string { return "beats" }

func (b *BeatData) String() string {
	return describe("BeatData",
		field{name: "times", value: b.Times},
		field{name: "positions", value: b.Positions})
}

// SectionData holds structural segments such as verse or chorus.
type SectionData struct {
	Intervals Intervals
	Labels    []string
}

// NewSectionData validates and builds a SectionData. labels may be nil.
func NewSectionData(intervals Intervals, labels []string) (*SectionData, error) {
	if err := check(
		field{"intervals", intervals, Array, Float, true},
		field{"labels", labels, List, Str, false},
	); err != nil {
		return nil, err
	}
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return &SectionData{Intervals: intervals, Labels: labels}, nil
}

func (s *SectionData) Kind() string { return "sections" }

func (s *SectionData) String() string {
	return describe("SectionData",
		field{name: "intervals", value: s.Intervals},
		field{name: "labels", value: s.Labels})
}

// NoteData holds discrete note events with pitches in Hz.
type NoteData struct {
	Intervals  Intervals
	Notes      []float64
	Confidence []float64
}

// NewNoteData validates and builds a NoteData. confidence may be nil.
func NewNoteData(intervals Intervals, notes []float64, confidence []float64) (*NoteData, error) {
	if err := check(
		field{"intervals", intervals, Array, Float, true},
		field{"notes", notes, Array, Float, true},
		field{"confidence", confidence, Array, Float, false},
	); err != nil {
		return nil, err
	}
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return &NoteData{Intervals: intervals, Notes: notes, Confidence: confidence}, nil
}

func (n *NoteData) Kind() string { return "notes" }

func (n *NoteData) String() string {
	return describe("NoteData",
		field{name: "intervals", value: n.Intervals},
		field{name: "notes", value: n.Notes},
		field{name: "confidence", value: n.Confidence})
}

// ChordData holds chord labels over intervals.
type ChordData struct {
	Intervals  Intervals
	Labels     []string
	Confidence []float64
}

// NewChordData validates and builds a ChordData. confidence may be nil.
func NewChordData(intervals Intervals, labels []string, confidence []float64) (*ChordData, error) {
	if err := check(
		field{"intervals", intervals, Array, Float, true},
		field{"labels", labels, List, Str, true},
		field{"confidence", confidence, Array, Float, false},
	); err != nil {
		return nil, err
	}
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return &ChordData{Intervals: intervals, Labels: labels, Confidence: confidence}, nil
}

func (c *ChordData) Kind() string { return "chords" }

func (c *ChordData) String() string {
	return describe("ChordData",
		field{name: "intervals", value: c.Intervals},
		field{name: "labels", value: c.Labels},
		field{name: "confidence", value: c.Confidence})
}

// F0Data is a monophonic pitch track. A frequency of 0 marks an unvoiced frame.
type F0Data struct {
	Times       []float64
	Frequencies []float64
	Confidence  []float64
}

// NewF0Data validates and builds an F0Data. confidence may be nil.
func NewF0Data(times, frequencies, confidence []float64) (*F0Data, error) {
	if err := check(
		field{"times", times, Array, Float, true},
		field{"frequencies", frequencies, Array, Float, true},
		field{"confidence", confidence, Array, Float, false},
	); err != nil {
		return nil, err
	}
	return &F0Data{Times: times, Frequencies: frequencies, Confidence: confidence}, nil
}

func (f *F0Data) Kind() string { return "f0" }

func (f *F0Data) String() string {
	return describe("F0Data",
		field{name: "times", value: f.Times},
		field{name: "frequencies", value: f.Frequencies},
		field{name: "confidence", value: f.Confidence})
}

// MultiF0Data is a polyphonic pitch track: every frame carries zero or more
// active frequencies.
type MultiF0Data struct {
	Times          []float64
	FrequencyList  [][]float64
	ConfidenceList [][]float64
}

// NewMultiF0Data validates and builds a MultiF0Data. confidenceList may be
// nil; when present each frame must list one confidence per frequency.
func NewMultiF0Data(times []float64, frequencyList, confidenceList [][]float64) (*MultiF0Data, error) {
	if err := check(
		field{"times", times, Array, Float, true},
		field{"frequency_list", frequencyList, List, FloatSlice, true},
		field{"confidence_list", confidenceList, List, FloatSlice, false},
	); err != nil {
		return nil, err
	}
	if confidenceList != nil {
		for i := range frequencyList {
			if len(frequencyList[i]) != len(confidenceList[i]) {
				return nil, fmt.Errorf("%w: frame %d has %d frequencies but %d confidences",
					ErrValue, i, len(frequencyList[i]), len(confidenceList[i]))
			}
		}
	}
	return &MultiF0Data{Times: times, FrequencyList: frequencyList, ConfidenceList: confidenceList}, nil
}

func (m *MultiF0Data) Kind() string { return "multif0" }

func (m *MultiF0Data) String() string {
	return describe("MultiF0Data",
		field{name: "times", value: m.Times},
		field{name: "frequency_list", value: m.FrequencyList},
		field{name: "confidence_list", value: m.ConfidenceList})
}

// KeyData holds key labels over intervals.
type KeyData struct {
	Intervals Intervals
	Keys      []string
}

// NewKeyData validates and builds a KeyData.
func NewKeyData(intervals Intervals, keys []string) (*KeyData, error) {
	if err := check(
		field{"intervals", intervals, Array, Float, true},
		field{"keys", keys, List, Str, true},
	); err != nil {
		return nil, err
	}
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return &KeyData{Intervals: intervals, Keys: keys}, nil
}

func (k *KeyData) Kind() string { return "keys" }

func (k *KeyData) String() string {
	return describe("KeyData",
		field{name: "intervals", value: k.Intervals},
		field{name: "keys", value: k.Keys})
}

// LyricData holds time-aligned lyric tokens.
type LyricData struct {
	Intervals      Intervals
	Lyrics         []string
	Pronunciations []string
}

// NewLyricData validates and builds a LyricData. pronunciations may be nil.
func NewLyricData(intervals Intervals, lyrics, pronunciations []string) (*LyricData, error) {
	if err := check(
		field{"intervals", intervals, Array, Float, true},
		field{"lyrics", lyrics, List, Str, true},
		field{"pronunciations", pronunciations, List, Str, false},
	); err != nil {
		return nil, err
	}
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return &LyricData{Intervals: intervals, Lyrics: lyrics, Pronunciations: pronunciations}, nil
}

func (l *LyricData) Kind() string { return "lyrics" }

func (l *LyricData) String() string {
	return describe("LyricData",
		field{name: "intervals", value: l.Intervals},
		field{name: "lyrics", value: l.Lyrics},
		field{name: "pronunciations", value: l.Pronunciations})
}

// TempoData holds tempo values in beats per minute over intervals.
type TempoData struct {
	Intervals  Intervals
	Value      []float64
	Confidence []float64
}

// NewTempoData validates and builds a TempoData. confidence may be nil.
func NewTempoData(intervals Intervals, value, confidence []float64) (*TempoData, error) {
	if err := check(
		field{"intervals", intervals, Array, Float, true},
		field{"value", value, Array, Float, true},
		field{"confidence", confidence, Array, Float, false},
	); err != nil {
		return nil, err
	}
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return &TempoData{Intervals: intervals, Value: value, Confidence: confidence}, nil
}

func (t *TempoData) Kind() string { return "tempo" }

func (t *TempoData) String() string {
	return describe("TempoData",
		field{name: "intervals", value: t.Intervals},
		field{name: "value", value: t.Value},
		field{name: "confidence", value: t.Confidence})
}

// EventData holds generic labeled intervals such as onsets or activity.
type EventData struct {
	Intervals Intervals
	Events    []string
}

// NewEventData validates and builds an EventData.
func NewEventData(intervals Intervals, events []string) (*EventData, error) {
	if err := check(
		field{"intervals", intervals, Array, Float, true},
		field{"events", events, List, Str, true},
	); err != nil {
		return nil, err
	}
	if err := ValidateIntervals(intervals); err != nil {
		return nil, err
	}
	return &EventData{Intervals: intervals, Events: events}, nil
}

func (e *EventData) Kind() string { return "events" }

func (e *EventData) String() string {
	return describe("EventData",
		field{name: "intervals", value: e.Intervals},
		field{name: "events", value: e.Events})
}
