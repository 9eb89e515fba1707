// Package transcode decodes audio files into interleaved float64 PCM by
// shelling out to ffprobe and ffmpeg.
package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-tempo/config"
	"github.com/RyanBlaney/sonido-tempo/logging"
)

var (
	// ErrEmptyInput is returned for zero-length input
	ErrEmptyInput = errors.New("empty audio data")

	// ErrNoAudio means the input has no decodable audio stream
	ErrNoAudio = errors.New("no audio stream")
)

// maxChannels bounds what the decoder accepts from ffprobe
const maxChannels = config.MaxChannels

// AudioData is decoded audio. PCM is interleaved when Channels > 1.
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Codec      string        `json:"codec,omitempty"`
}

// Frames returns the number of samples per channel
func (a *AudioData) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// Channel returns a de-interleaved copy of channel n (0-based)
func (a *AudioData) Channel(n int) ([]float64, error) {
	if n < 0 || n >= a.Channels {
		return nil, fmt.Errorf("channel %d out of range [0, %d)", n, a.Channels)
	}

	frames := a.Frames()
	out := make([]float64, frames)
	for i := range frames {
		out[i] = a.PCM[i*a.Channels+n]
	}
	return out, nil
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	TargetChannels   int           `json:"target_channels"` // 0 keeps the source layout
	MaxDuration      time.Duration `json:"max_duration"`
	ResampleQuality  string        `json:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout"` // per ffmpeg/ffprobe invocation
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 44100,
		TargetChannels:   0,
		ResampleQuality:  "medium",
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          30 * time.Second,
	}
}

// DecoderConfigFrom maps the [decoder] config section onto a DecoderConfig
func DecoderConfigFrom(c config.DecoderConfig) *DecoderConfig {
	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = c.SampleRate
	cfg.TargetChannels = c.Channels
	cfg.MaxDuration = c.MaxDuration.Duration
	cfg.ResampleQuality = c.ResampleQuality
	cfg.FFmpegPath = c.FFmpegPath
	cfg.FFprobePath = c.FFprobePath
	cfg.Timeout = c.Timeout.Duration
	return cfg
}

// AudioMetadata holds detected audio properties from ffprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// Decoder handles audio decoding using ffmpeg
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(cfg *DecoderConfig) *Decoder {
	if cfg == nil {
		cfg = DefaultDecoderConfig()
	}
	return &Decoder{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// DecodeFile decodes an audio file
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": filename,
	})

	return d.decode(ctx, filename, nil, logger)
}

// DecodeBytes decodes an in-memory audio file, piping it through stdin
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte) (*AudioData, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":  "DecodeBytes",
		"data_size": len(data),
	})

	return d.decode(ctx, "pipe:0", data, logger)
}

// DecodeReader reads r to EOF and decodes the result
func (d *Decoder) DecodeReader(ctx context.Context, reader io.Reader) (*AudioData, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	return d.DecodeBytes(ctx, data)
}

func (d *Decoder) decode(ctx context.Context, input string, stdin []byte, logger logging.Logger) (*AudioData, error) {
	metadata, err := d.probe(ctx, input, stdin)
	if err != nil {
		logger.Error(err, "Failed to probe audio")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	args := buildFFmpegArgs(d.config, metadata, input)

	startTime := time.Now()
	output, err := d.run(ctx, d.config.FFmpegPath, args, stdin)
	if err != nil {
		logger.Error(err, "FFmpeg decode failed")
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples decoded", ErrNoAudio)
	}

	channels := outputChannels(d.config, metadata)
	audio := &AudioData{
		PCM:        samples,
		SampleRate: d.config.TargetSampleRate,
		Channels:   channels,
		Codec:      metadata.Codec,
	}
	audio.Duration = time.Duration(audio.Frames()) * time.Second / time.Duration(audio.SampleRate)

	logger.Debug("FFmpeg decode completed", logging.Fields{
		"output_samples":     len(samples),
		"output_sample_rate": audio.SampleRate,
		"output_channels":    channels,
		"output_duration":    audio.Duration.Seconds(),
		"decode_ms":          time.Since(startTime).Milliseconds(),
	})

	return audio, nil
}

func (d *Decoder) probe(ctx context.Context, input string, stdin []byte) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		input,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, stdin)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFFprobeOutput(output)
}

// run executes a tool under the configured timeout and returns its stdout
func (d *Decoder) run(ctx context.Context, path string, args []string, stdin []byte) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

// CheckAvailability verifies that ffmpeg and ffprobe can be executed
func (d *Decoder) CheckAvailability(ctx context.Context) error {
	for _, path := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if err := exec.CommandContext(ctx, path, "-version").Run(); err != nil {
			return fmt.Errorf("%s not available: %w", path, err)
		}
	}
	return nil
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, ErrNoAudio
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("%w: stream is %q", ErrNoAudio, stream.CodecType)
	}

	if stream.Channels <= 0 || stream.Channels > maxChannels {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		sampleRate = 44100
	}

	// duration and bit_rate are absent for many piped inputs
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

func outputChannels(cfg *DecoderConfig, metadata *AudioMetadata) int {
	if cfg.TargetChannels > 0 {
		return cfg.TargetChannels
	}
	return metadata.Channels
}

// buildFFmpegArgs builds the full ffmpeg command line for one decode
func buildFFmpegArgs(cfg *DecoderConfig, metadata *AudioMetadata, input string) []string {
	args := []string{
		"-v", "error",
		"-i", input,
		"-vn",
		"-f", "f64le",
		"-ac", strconv.Itoa(outputChannels(cfg, metadata)),
		"-ar", strconv.Itoa(cfg.TargetSampleRate),
	}

	if metadata.SampleRate != cfg.TargetSampleRate {
		switch cfg.ResampleQuality {
		case "fast":
			args = append(args, "-af", "aresample=resampler=soxr:precision=16")
		case "medium":
			args = append(args, "-af", "aresample=resampler=soxr:precision=20")
		case "high":
			args = append(args, "-af", "aresample=resampler=soxr:precision=28")
		}
	}

	if cfg.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", cfg.MaxDuration.Seconds()))
	}

	return append(args, "pipe:1")
}

// bytesToFloat64 converts raw f64le bytes to samples, dropping a trailing
// partial sample.
func bytesToFloat64(data []byte) []float64 {
	sampleCount := len(data) / 8
	if sampleCount == 0 {
		return nil
	}

	samples := make([]float64, sampleCount)
	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples
}
