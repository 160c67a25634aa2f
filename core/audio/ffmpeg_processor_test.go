package audio

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeF32LE(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.25, -0.25}
	raw := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}

	data, err := DecodeF32LE(raw, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 || len(data[0]) != 2 {
		t.Fatalf("got shape %d x %d, want 2 x 2", len(data), len(data[0]))
	}
	if data[0][0] != 0.5 || data[1][0] != -0.5 || data[0][1] != 0.25 || data[1][1] != -0.25 {
		t.Errorf("got %v", data)
	}

	if _, err := DecodeF32LE(raw[:6], 1); err == nil {
		t.Error("expected an error for a partial frame")
	}
	if _, err := DecodeF32LE(raw, 0); err == nil {
		t.Error("expected an error for zero channels")
	}
}

func TestParseProbe(t *testing.T) {
	raw := []byte(`{"streams":[{"sample_rate":"44100","channels":2}],"format":{"duration":"12.5"}}`)
	info, err := parseProbe(raw, "song.wav")
	if err != nil {
		t.Fatal(err)
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.Duration != 12.5 {
		t.Errorf("got %+v", info)
	}

	if _, err := parseProbe([]byte(`{"streams":[]}`), "song.wav"); err == nil {
		t.Error("expected an error when there is no audio stream")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	sig, err := NewFFmpegLoader("").Load(context.Background(), "", Options{})
	if sig != nil || err != nil {
		t.Errorf("got %v, %v; want nil, nil", sig, err)
	}
}

func TestSignalDuration(t *testing.T) {
	s := &Signal{Data: [][]float32{make([]float32, 22050)}, SampleRate: 44100}
	if s.Duration() != 0.5 || s.Channels() != 1 {
		t.Errorf("got duration %v channels %d", s.Duration(), s.Channels())
	}
}

func TestFFprobePath(t *testing.T) {
	cases := map[string]string{
		"ffmpeg":                 "ffprobe",
		"/usr/bin/ffmpeg":        "/usr/bin/ffprobe",
		"/opt/ffmpeg/bin/ffmpeg": "/opt/ffmpeg/bin/ffprobe",
	}
	for in, want := range cases {
		if got := NewFFmpegLoader(in).ffprobePath(); got != want {
			t.Errorf("ffprobePath(%q) = %q, want %q", in, got, want)
		}
	}
}
