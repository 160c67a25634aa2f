package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"mirdata/logger"
)

// FFmpegLoader decodes audio by piping it through ffmpeg as raw float32 PCM.
type FFmpegLoader struct {
	ffmpegPath string
}

// NewFFmpegLoader creates a new FFmpegLoader.
func NewFFmpegLoader(ffmpegPath string) *FFmpegLoader {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegLoader{ffmpegPath: ffmpegPath}
}

func (p *FFmpegLoader) ffprobePath() string {
	dir, name := filepath.Split(p.ffmpegPath)
	return dir + strings.Replace(name, "ffmpeg", "ffprobe", 1)
}

// StreamInfo is what ffprobe reports about the first audio stream.
type StreamInfo struct {
	SampleRate int
	Channels   int
	Duration   float64
}

type ffprobeOutput struct {
	Streams []struct {
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe on inputFile.
func (p *FFmpegLoader) Probe(inputFile string) (*StreamInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels:format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.Command(p.ffprobePath(), args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}
	return parseProbe(out.Bytes(), inputFile)
}

func parseProbe(raw []byte, inputFile string) (*StreamInfo, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(raw, &probeData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", inputFile, err)
	}
	if len(probeData.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found in %s", inputFile)
	}

	info := &StreamInfo{Channels: probeData.Streams[0].Channels}
	sr, err := strconv.Atoi(probeData.Streams[0].SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sample rate %q for %s: %w", probeData.Streams[0].SampleRate, inputFile, err)
	}
	info.SampleRate = sr

	if probeData.Format.Duration != "" {
		d, err := strconv.ParseFloat(probeData.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration string %q for %s: %w", probeData.Format.Duration, inputFile, err)
		}
		info.Duration = d
	}
	return info, nil
}

// Duration returns the length of inputFile in seconds.
func (p *FFmpegLoader) Duration(inputFile string) (float64, error) {
	info, err := p.Probe(inputFile)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// Load decodes inputFile. An empty path means the track has no audio for the
// requested role and yields nil, nil.
func (p *FFmpegLoader) Load(ctx context.Context, inputFile string, opts Options) (*Signal, error) {
	if inputFile == "" {
		return nil, nil
	}

	info, err := p.Probe(inputFile)
	if err != nil {
		return nil, err
	}

	channels := info.Channels
	sampleRate := info.SampleRate
	args := []string{"-v", "error", "-i", inputFile, "-f", "f32le", "-acodec", "pcm_f32le"}
	if opts.Mono {
		channels = 1
		args = append(args, "-ac", "1")
	}
	if opts.SampleRate > 0 {
		sampleRate = opts.SampleRate
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	args = append(args, "-")

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	logger.Debug("decoding audio",
		logger.String("path", inputFile),
		logger.Int("sampleRate", sampleRate),
		logger.Int("channels", channels))

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg execution failed for %s: %w\nFFmpeg Error: %s", inputFile, err, stderr.String())
	}

	data, err := DecodeF32LE(out.Bytes(), channels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", inputFile, err)
	}
	return &Signal{Data: data, SampleRate: sampleRate}, nil
}

// DecodeF32LE splits interleaved little-endian float32 PCM into channels.
func DecodeF32LE(raw []byte, channels int) ([][]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	frameSize := 4 * channels
	if len(raw)%frameSize != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %d-channel frames", len(raw), channels)
	}
	frames := len(raw) / frameSize
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := i*frameSize + c*4
			data[c][i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
		}
	}
	return data, nil
}
