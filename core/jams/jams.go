// Package jams converts annotations into JAMS documents.
package jams

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Version is the JAMS schema version documents are written against.
const Version = "0.3.4"

// ErrSchema reports an observation the namespace schema does not allow.
var ErrSchema = errors.New("jams: schema violation")

// Sandbox holds free-form data.
type Sandbox map[string]any

// Curator identifies who produced an annotation.
type Curator struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AnnotationMetadata describes where an annotation came from.
type AnnotationMetadata struct {
	Curator         Curator `json:"curator"`
	Annotator       Sandbox `json:"annotator"`
	Version         string  `json:"version"`
	Corpus          string  `json:"corpus"`
	AnnotationTools string  `json:"annotation_tools"`
	AnnotationRules string  `json:"annotation_rules"`
	Validation      string  `json:"validation"`
	DataSource      string  `json:"data_source"`
}

// Observation is one timed value.
type Observation struct {
	Time       float64  `json:"time"`
	Duration   float64  `json:"duration"`
	Value      any      `json:"value"`
	Confidence *float64 `json:"confidence"`
}

// PitchValue is the value of a pitch_contour observation.
type PitchValue struct {
	Index     int     `json:"index"`
	Frequency float64 `json:"frequency"`
	Voiced    bool    `json:"voiced"`
}

// SegmentValue is the value of a multi_segment observation.
type SegmentValue struct {
	Label string `json:"label"`
	Level int    `json:"level"`
}

// Annotation is one namespace-typed list of observations.
type Annotation struct {
	Namespace          string             `json:"namespace"`
	Data               []Observation      `json:"data"`
	AnnotationMetadata AnnotationMetadata `json:"annotation_metadata"`
	Sandbox            Sandbox            `json:"sandbox"`
	Time               float64            `json:"time"`
	Duration           *float64           `json:"duration"`
}

func newAnnotation(namespace, description string) *Annotation {
	return &Annotation{
		Namespace: namespace,
		Data:      []Observation{},
		AnnotationMetadata: AnnotationMetadata{
			Annotator:  Sandbox{},
			DataSource: "mirdata",
		},
		Sandbox: Sandbox{"name": description},
	}
}

func (a *Annotation) append(time, duration float64, value any, confidence *float64) {
	a.Data = append(a.Data, Observation{Time: time, Duration: duration, Value: value, Confidence: confidence})
}

// End is the latest observation end time.
func (a *Annotation) End() float64 {
	end := 0.0
	for _, o := range a.Data {
		end = math.Max(end, o.Time+o.Duration)
	}
	return end
}

// FileMetadata describes the audio the annotations refer to.
type FileMetadata struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Release     string  `json:"release"`
	Duration    float64 `json:"duration"`
	Identifiers Sandbox `json:"identifiers"`
	JAMSVersion string  `json:"jams_version"`
}

// JAMS is a complete document.
type JAMS struct {
	Annotations  []*Annotation `json:"annotations"`
	FileMetadata FileMetadata  `json:"file_metadata"`
	Sandbox      Sandbox       `json:"sandbox"`
}

// Search returns the annotations in the given namespace.
func (j *JAMS) Search(namespace string) []*Annotation {
	var out []*Annotation
	for _, a := range j.Annotations {
		if a.Namespace == namespace {
			out = append(out, a)
		}
	}
	return out
}

// Encode writes j as indented JSON.
func (j *JAMS) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(j)
}

// Save writes j to path, creating parent directories.
func (j *JAMS) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := j.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Validate checks every observation against its namespace.
func (j *JAMS) Validate() error {
	if j.FileMetadata.Duration < 0 || math.IsNaN(j.FileMetadata.Duration) {
		return fmt.Errorf("%w: file duration %v", ErrSchema, j.FileMetadata.Duration)
	}
	for _, a := range j.Annotations {
		check, ok := namespaces[a.Namespace]
		if !ok {
			return fmt.Errorf("%w: unknown namespace %q", ErrSchema, a.Namespace)
		}
		for i, o := range a.Data {
			if o.Time < 0 || o.Duration < 0 || math.IsNaN(o.Time) || math.IsNaN(o.Duration) {
				return fmt.Errorf("%w: %s observation %d has time %v duration %v", ErrSchema, a.Namespace, i, o.Time, o.Duration)
			}
			if o.Confidence != nil && math.IsNaN(*o.Confidence) {
				return fmt.Errorf("%w: %s observation %d has NaN confidence", ErrSchema, a.Namespace, i)
			}
			if err := check(o.Value); err != nil {
				return fmt.Errorf("%w: %s observation %d: %v", ErrSchema, a.Namespace, i, err)
			}
		}
	}
	return nil
}

type valueCheck func(v any) error

func isString(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("value %v is not a string", v)
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func isNonNegative(v any) error {
	n, ok := asNumber(v)
	if !ok {
		return fmt.Errorf("value %v is not a number", v)
	}
	if n < 0 || math.IsNaN(n) {
		return fmt.Errorf("value %v is negative", v)
	}
	return nil
}

var namespaces = map[string]valueCheck{
	"beat": func(v any) error {
		if v == nil {
			return nil
		}
		if _, ok := asNumber(v); !ok {
			return fmt.Errorf("beat position %v is not a number", v)
		}
		return nil
	},
	"segment_open": isString,
	"chord":        isString,
	"key_mode":     isString,
	"lyrics":       isString,
	"tag_open":     isString,
	"note_hz":      isNonNegative,
	"tempo":        isNonNegative,
	"pitch_contour": func(v any) error {
		p, ok := v.(PitchValue)
		if !ok {
			return fmt.Errorf("value %v is not a pitch value", v)
		}
		if p.Index < 0 || math.IsNaN(p.Frequency) {
			return fmt.Errorf("invalid pitch value %+v", p)
		}
		return nil
	},
	"multi_segment": func(v any) error {
		s, ok := v.(SegmentValue)
		if !ok {
			return fmt.Errorf("value %v is not a segment value", v)
		}
		if s.Level < 0 {
			return fmt.Errorf("segment level %d is negative", s.Level)
		}
		return nil
	},
}
