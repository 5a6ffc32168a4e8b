package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoVideoStream is returned by Probe when the input carries no video.
var ErrNoVideoStream = errors.New("no video stream found")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Info is the flattened metadata view consumed by operation handlers: total
// duration for progress math plus the primary video stream's characteristics.
type Info struct {
	Duration  float64 `json:"duration"`
	SizeBytes int64   `json:"size"`
	BitRate   int64   `json:"bitrate"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Codec     string  `json:"codec"`
	FrameRate float64 `json:"fps"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Probe inspects the input and flattens it into an Info. It fails with
// ErrNoVideoStream when the container has no video stream.
func Probe(ctx context.Context, binary string, path string) (Info, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Info{}, err
	}
	return result.Info()
}

// Info flattens an inspection result; see Probe.
func (r Result) Info() (Info, error) {
	video, ok := r.PrimaryVideoStream()
	if !ok {
		return Info{}, ErrNoVideoStream
	}
	return Info{
		Duration:  r.DurationSeconds(),
		SizeBytes: r.SizeBytes(),
		BitRate:   r.BitRate(),
		Width:     video.Width,
		Height:    video.Height,
		Codec:     video.CodecName,
		FrameRate: video.FrameRate(),
	}, nil
}

// PrimaryVideoStream returns the first video stream, if any.
func (r Result) PrimaryVideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	duration := parseFloat(r.Format.Duration)
	if math.IsNaN(duration) || duration < 0 {
		return 0
	}
	return duration
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

// FrameRate parses the stream's r_frame_rate fraction (e.g. "30000/1001")
// into frames per second, or 0 when unavailable.
func (s Stream) FrameRate() float64 {
	value := strings.TrimSpace(s.RFrameRate)
	if value == "" {
		return 0
	}
	numerator, denominator, found := strings.Cut(value, "/")
	num, err := strconv.ParseFloat(strings.TrimSpace(numerator), 64)
	if err != nil {
		return 0
	}
	if !found {
		return num
	}
	den, err := strconv.ParseFloat(strings.TrimSpace(denominator), 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
