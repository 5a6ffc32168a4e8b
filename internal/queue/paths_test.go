package queue_test

import (
	"path/filepath"
	"testing"
	"time"

	"reel/internal/queue"
)

func TestDeriveOutputPath(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	cases := []struct {
		name      string
		operation string
		params    queue.Params
		want      string
	}{
		{"transcode keeps input extension", "transcode", nil, "clip_transcode_20260314_150926.mp4"},
		{"trim keeps input extension", "trim", nil, "clip_trim_20260314_150926.mp4"},
		{"thumbnail defaults to webp", "thumbnail", nil, "clip_thumbnail_20260314_150926.webp"},
		{"thumbnail honors png", "thumbnail", queue.Params{"image_format": "png"}, "clip_thumbnail_20260314_150926.png"},
		{"thumbnail maps jpeg to jpg", "thumbnail", queue.Params{"image_format": "JPEG"}, "clip_thumbnail_20260314_150926.jpg"},
		{"thumbnail falls back on unknown format", "thumbnail", queue.Params{"image_format": "tiff"}, "clip_thumbnail_20260314_150926.webp"},
		{"gif is always gif", "gif", nil, "clip_gif_20260314_150926.gif"},
		{"extract_audio defaults to mp3", "extract_audio", nil, "clip_extract_audio_20260314_150926.mp3"},
		{"extract_audio honors flac", "extract_audio", queue.Params{"audio_format": "flac"}, "clip_extract_audio_20260314_150926.flac"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := queue.DeriveOutputPath("/media/clip.mp4", tc.operation, tc.params, now)
			want := filepath.Join("/media", tc.want)
			if got != want {
				t.Fatalf("got %q want %q", got, want)
			}
		})
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	registry := queue.NewRegistry()
	handler := okHandler(0)

	if err := registry.Register("Transcode", handler); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Register("transcode", handler); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := registry.Register("", handler); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if err := registry.Register("noop", nil); err == nil {
		t.Fatal("expected nil handler to fail")
	}

	if _, ok := registry.Resolve("TRANSCODE"); !ok {
		t.Fatal("expected case-insensitive resolve")
	}
	if _, ok := registry.Resolve("missing"); ok {
		t.Fatal("expected unknown name to miss")
	}
	names := registry.Names()
	if len(names) != 1 || names[0] != "transcode" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestParamsAccessors(t *testing.T) {
	params := queue.Params{
		"codec":   "libx265",
		"crf":     float64(28),
		"scale":   "1280:720",
		"opacity": "0.4",
		"inputs":  []any{"/a.mp4", "/b.mp4"},
	}

	if got := params.String("codec", "libx264"); got != "libx265" {
		t.Fatalf("String = %q", got)
	}
	if got := params.String("preset", "medium"); got != "medium" {
		t.Fatalf("String fallback = %q", got)
	}
	if got := params.Int("crf", 23); got != 28 {
		t.Fatalf("Int = %d", got)
	}
	if got := params.Int("missing", 23); got != 23 {
		t.Fatalf("Int fallback = %d", got)
	}
	if got := params.Float("opacity", 0.7); got != 0.4 {
		t.Fatalf("Float = %v", got)
	}
	inputs := params.Strings("inputs")
	if len(inputs) != 2 || inputs[0] != "/a.mp4" {
		t.Fatalf("Strings = %v", inputs)
	}

	clone := params.Clone()
	clone["codec"] = "libaom-av1"
	if params.String("codec", "") != "libx265" {
		t.Fatal("Clone must not alias the original map")
	}
}
