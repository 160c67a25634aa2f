package audio

import "context"

// Signal is decoded audio, one slice of samples per channel.
type Signal struct {
	Data       [][]float32
	SampleRate int
}

// Channels returns the number of channels.
func (s *Signal) Channels() int {
	return len(s.Data)
}

// Len returns the number of samples per channel.
func (s *Signal) Len() int {
	if len(s.Data) == 0 {
		return 0
	}
	return len(s.Data[0])
}

// Duration returns the signal length in seconds.
func (s *Signal) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(s.Len()) / float64(s.SampleRate)
}

// Options controls decoding. The zero value keeps the native sample rate and
// channel layout.
type Options struct {
	SampleRate int
	Mono       bool
}

// Loader decodes audio files.
type Loader interface {
	Load(ctx context.Context, path string, opts Options) (*Signal, error)
	Duration(path string) (float64, error)
}
