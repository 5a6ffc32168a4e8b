package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
)

func TestRegisterWiresAllOperations(t *testing.T) {
	cfg := &config.Config{}
	processor := NewProcessor(cfg, logging.NewNop())
	registry := queue.NewRegistry()
	if err := processor.Register(registry); err != nil {
		t.Fatalf("Register: %v", err)
	}
	want := []string{"compress", "concat", "extract_audio", "gif", "thumbnail", "transcode", "trim", "watermark"}
	if got := registry.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("registered operations = %v, want %v", got, want)
	}
}

func TestTranscodeArgs(t *testing.T) {
	got := transcodeArgs("in.mp4", nil)
	want := []string{"-i", "in.mp4", "-c:v", "libx264", "-preset", "medium", "-crf", "23", "-c:a", "aac", "-movflags", "+faststart"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("default args = %v, want %v", got, want)
	}

	got = transcodeArgs("in.mp4", queue.Params{"codec": "libx265", "preset": "slow", "crf": 18, "audio_codec": "copy"})
	want = []string{"-i", "in.mp4", "-c:v", "libx265", "-preset", "slow", "-crf", "18", "-c:a", "copy", "-movflags", "+faststart"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("custom args = %v, want %v", got, want)
	}
}

func TestCompressArgsBitrateMath(t *testing.T) {
	got := compressArgs("in.mp4", 60, queue.Params{"target_size_mb": 10.0})
	// 10*8192/60 = 1365, minus 128 audio headroom.
	want := []string{
		"-i", "in.mp4",
		"-b:v", "1237k", "-maxrate", "1855k", "-bufsize", "2474k",
		"-c:v", "libx264", "-preset", "medium", "-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
}

func TestCompressArgsOptionalScaleAndNoTarget(t *testing.T) {
	got := compressArgs("in.mp4", 60, queue.Params{"scale": "1280:-2"})
	want := []string{
		"-i", "in.mp4",
		"-vf", "scale=1280:-2",
		"-c:v", "libx264", "-preset", "medium", "-c:a", "aac", "-b:a", "128k", "-movflags", "+faststart",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
}

func TestOverlayPosition(t *testing.T) {
	cases := map[string]string{
		"top-left":     "10:10",
		"top-right":    "W-w-10:10",
		"bottom-left":  "10:H-h-10",
		"bottom-right": "W-w-10:H-h-10",
		"center":       "(W-w)/2:(H-h)/2",
		"sideways":     "W-w-10:H-h-10",
	}
	for position, want := range cases {
		if got := overlayPosition(position); got != want {
			t.Errorf("overlayPosition(%q) = %q, want %q", position, got, want)
		}
	}
}

func TestWatermarkArgs(t *testing.T) {
	got := watermarkArgs("in.mp4", "logo.png", queue.Params{"position": "center", "opacity": 0.5})
	filter := "[1]format=rgba,colorchannelmixer=aa=0.5[wm];[0][wm]overlay=(W-w)/2:(H-h)/2"
	want := []string{
		"-i", "in.mp4", "-i", "logo.png",
		"-filter_complex", filter,
		"-c:v", "libx264", "-preset", "medium", "-crf", "23", "-c:a", "copy", "-movflags", "+faststart",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
}

func TestWatermarkRequiresPath(t *testing.T) {
	cfg := &config.Config{}
	processor := NewProcessor(cfg, logging.NewNop())
	sink := make(chan float64, 1)
	_, err := processor.Watermark(context.Background(), queue.Request{InputRef: "in.mp4", OutputRef: "out.mp4"}, sink)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestParseSize(t *testing.T) {
	width, height, err := parseSize("640x360")
	if err != nil || width != "640" || height != "360" {
		t.Fatalf("parseSize(640x360) = %q, %q, %v", width, height, err)
	}
	width, height, err = parseSize("320:240")
	if err != nil || width != "320" || height != "240" {
		t.Fatalf("parseSize(320:240) = %q, %q, %v", width, height, err)
	}
	if _, _, err := parseSize("640"); err == nil {
		t.Fatal("parseSize(640) accepted a size without a separator")
	}
}

func TestThumbnailFilter(t *testing.T) {
	cases := map[string]string{
		"cover":   "scale=640:360:force_original_aspect_ratio=increase,crop=640:360:(iw-640)/2:(ih-360)/2",
		"contain": "scale=640:360:force_original_aspect_ratio=decrease,pad=640:360:(ow-iw)/2:(oh-ih)/2",
		"none":    "scale=640:360",
		"other":   "scale=640:360:force_original_aspect_ratio=increase,crop=640:360:(iw-640)/2:(ih-360)/2",
	}
	for fit, want := range cases {
		if got := thumbnailFilter("640", "360", fit); got != want {
			t.Errorf("thumbnailFilter(%q) = %q, want %q", fit, got, want)
		}
	}
}

func TestThumbnailQualityArgs(t *testing.T) {
	if got := thumbnailQualityArgs("png", 90); got != nil {
		t.Fatalf("png quality args = %v, want none", got)
	}
	if got := thumbnailQualityArgs("webp", 75); !reflect.DeepEqual(got, []string{"-quality", "75"}) {
		t.Fatalf("webp quality args = %v", got)
	}
	// 0-100 maps onto jpeg's inverted 2-31 scale.
	if got := thumbnailQualityArgs("jpg", 75); !reflect.DeepEqual(got, []string{"-q:v", "10"}) {
		t.Fatalf("jpg quality args = %v", got)
	}
	if got := thumbnailQualityArgs("jpg", 0); !reflect.DeepEqual(got, []string{"-q:v", "31"}) {
		t.Fatalf("jpg worst quality args = %v", got)
	}
	if got := thumbnailQualityArgs("jpg", 100); !reflect.DeepEqual(got, []string{"-q:v", "2"}) {
		t.Fatalf("jpg best quality args = %v", got)
	}
	// Out-of-range quality clamps instead of failing.
	if got := thumbnailQualityArgs("webp", 150); !reflect.DeepEqual(got, []string{"-quality", "100"}) {
		t.Fatalf("clamped quality args = %v", got)
	}
}

func TestThumbnailArgs(t *testing.T) {
	got, err := thumbnailArgs("in.mp4", queue.Params{"timestamp": "00:00:05", "size": "640x360", "image_format": "png"})
	if err != nil {
		t.Fatalf("thumbnailArgs: %v", err)
	}
	want := []string{
		"-i", "in.mp4", "-ss", "00:00:05", "-vframes", "1",
		"-vf", "scale=640:360:force_original_aspect_ratio=increase,crop=640:360:(iw-640)/2:(ih-360)/2",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}

	if _, err := thumbnailArgs("in.mp4", queue.Params{"size": "broken"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("invalid size err = %v, want validation error", err)
	}
}

func TestAudioCodecMap(t *testing.T) {
	cases := map[string]string{
		"mp3":  "libmp3lame",
		"aac":  "aac",
		"wav":  "pcm_s16le",
		"flac": "flac",
		"ogg":  "libmp3lame",
	}
	for format, want := range cases {
		if got := audioCodec(format); got != want {
			t.Errorf("audioCodec(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestExtractAudioArgs(t *testing.T) {
	got := extractAudioArgs("in.mp4", queue.Params{"audio_format": "flac", "bitrate": "320k"})
	want := []string{"-i", "in.mp4", "-vn", "-c:a", "flac", "-b:a", "320k"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
}

func TestGIFArgs(t *testing.T) {
	got := gifArgs("in.mp4", queue.Params{"start_time": "00:00:10", "duration": 3, "fps": 15, "scale": 320})
	want := []string{
		"-ss", "00:00:10", "-t", "3", "-i", "in.mp4",
		"-vf", "fps=15,scale=320:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		"-loop", "0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "joined.mp4")
	listFile, err := writeConcatList(output, []string{"/videos/a.mp4", "/videos/b.mp4"})
	if err != nil {
		t.Fatalf("writeConcatList: %v", err)
	}
	if want := filepath.Join(dir, "joined_concat_list.txt"); listFile != want {
		t.Fatalf("list file = %q, want %q", listFile, want)
	}
	data, err := os.ReadFile(listFile)
	if err != nil {
		t.Fatalf("read list file: %v", err)
	}
	want := "file '/videos/a.mp4'\nfile '/videos/b.mp4'\n"
	if string(data) != want {
		t.Fatalf("list file contents = %q, want %q", data, want)
	}
}

func TestConcatRequiresInputs(t *testing.T) {
	cfg := &config.Config{}
	processor := NewProcessor(cfg, logging.NewNop())
	sink := make(chan float64, 1)
	_, err := processor.Concat(context.Background(), queue.Request{InputRef: "a.mp4", OutputRef: "out.mp4"}, sink)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestTrimArgs(t *testing.T) {
	got, err := trimArgs("in.mp4", queue.Params{"start_time": "00:00:10", "end_time": "00:00:20"})
	if err != nil {
		t.Fatalf("trimArgs: %v", err)
	}
	want := []string{"-i", "in.mp4", "-ss", "00:00:10", "-to", "00:00:20", "-c", "copy"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("end_time args = %v, want %v", got, want)
	}

	got, err = trimArgs("in.mp4", queue.Params{"start_time": "00:00:10", "duration": 5})
	if err != nil {
		t.Fatalf("trimArgs: %v", err)
	}
	want = []string{"-i", "in.mp4", "-ss", "00:00:10", "-t", "5", "-c", "copy"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("duration args = %v, want %v", got, want)
	}

	if _, err := trimArgs("in.mp4", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing start_time err = %v, want validation error", err)
	}
}

func TestParseOutTime(t *testing.T) {
	cases := []struct {
		line    string
		seconds float64
		ok      bool
	}{
		{"out_time_ms=2500000", 2.5, true},
		{"out_time_ms=0", 0, true},
		{" out_time_ms=1000000 ", 1, true},
		{"out_time_ms=N/A", 0, false},
		{"out_time_us=2500000", 0, false},
		{"frame=42", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		seconds, ok := parseOutTime(tc.line)
		if ok != tc.ok || seconds != tc.seconds {
			t.Errorf("parseOutTime(%q) = %v, %v, want %v, %v", tc.line, seconds, ok, tc.seconds, tc.ok)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	if got := progressPercent(30, 60); got != 50 {
		t.Fatalf("progressPercent(30, 60) = %v", got)
	}
	// Overshoot clamps at 100, unknown duration reports 0.
	if got := progressPercent(90, 60); got != 100 {
		t.Fatalf("progressPercent(90, 60) = %v", got)
	}
	if got := progressPercent(30, 0); got != 0 {
		t.Fatalf("progressPercent(30, 0) = %v", got)
	}
}

func TestOfferNeverBlocks(t *testing.T) {
	sink := make(chan float64, 1)
	offer(sink, 10)
	offer(sink, 20)
	if got := <-sink; got != 10 {
		t.Fatalf("first buffered value = %v, want 10", got)
	}
	select {
	case extra := <-sink:
		t.Fatalf("unexpected extra value %v", extra)
	default:
	}
}

func TestTailBuffer(t *testing.T) {
	buf := newTailBuffer(16)
	buf.Write([]byte("first line\n"))
	buf.Write([]byte("Error: conversion failed\n"))
	if got := buf.Tail(); got != "Error: conversion failed" {
		t.Fatalf("Tail() = %q", got)
	}
	if len(buf.data) > 16 {
		t.Fatalf("buffer grew past its limit: %d bytes", len(buf.data))
	}
	if empty := newTailBuffer(16).Tail(); empty != "" {
		t.Fatalf("empty Tail() = %q", empty)
	}
}

func TestRunReportsMissingBinary(t *testing.T) {
	processor := &Processor{ffmpegBin: filepath.Join(t.TempDir(), "no-such-ffmpeg"), logger: logging.NewNop()}
	sink := make(chan float64, 1)
	_, err := processor.run(context.Background(), "transcode", 10, []string{"-i", "in.mp4"}, "out.mp4", sink)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want external tool error", err)
	}
	if !strings.Contains(err.Error(), "transcode") {
		t.Fatalf("error lacks operation context: %v", err)
	}
}
