package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reel/internal/queue"
	"reel/internal/services"
)

// Transcode re-encodes the input with the requested codec settings.
// Parameters: codec, preset, crf, audio_codec.
func (p *Processor) Transcode(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	info, err := p.probe(ctx, "transcode", req.InputRef)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "transcode", info.Duration, transcodeArgs(req.InputRef, req.Parameters), req.OutputRef, sink)
}

func transcodeArgs(input string, params queue.Params) []string {
	return []string{
		"-i", input,
		"-c:v", params.String("codec", "libx264"),
		"-preset", params.String("preset", "medium"),
		"-crf", strconv.Itoa(params.Int("crf", 23)),
		"-c:a", params.String("audio_codec", "aac"),
		"-movflags", "+faststart",
	}
}

// Compress re-encodes toward a smaller file. When target_size_mb is set the
// video bitrate is derived from the input duration; an optional scale
// parameter adds a scale filter.
func (p *Processor) Compress(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	info, err := p.probe(ctx, "compress", req.InputRef)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "compress", info.Duration, compressArgs(req.InputRef, info.Duration, req.Parameters), req.OutputRef, sink)
}

func compressArgs(input string, duration float64, params queue.Params) []string {
	args := []string{"-i", input}
	if targetMB := params.Float("target_size_mb", 0); targetMB > 0 && duration > 0 {
		// 8192 kbit per MB, minus headroom for the 128k audio track.
		bitrate := int(targetMB*8192/duration) - 128
		args = append(args,
			"-b:v", fmt.Sprintf("%dk", bitrate),
			"-maxrate", fmt.Sprintf("%dk", int(float64(bitrate)*1.5)),
			"-bufsize", fmt.Sprintf("%dk", bitrate*2),
		)
	}
	if scale := params.String("scale", ""); scale != "" {
		args = append(args, "-vf", "scale="+scale)
	}
	return append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
	)
}

// Watermark overlays an image on the video. Parameters: watermark (required
// path), position, opacity.
func (p *Processor) Watermark(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	watermark := req.Parameters.String("watermark", "")
	if watermark == "" {
		return nil, services.Wrap(services.ErrValidation, "watermark", "watermark parameter is required", nil)
	}
	info, err := p.probe(ctx, "watermark", req.InputRef)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "watermark", info.Duration, watermarkArgs(req.InputRef, watermark, req.Parameters), req.OutputRef, sink)
}

func overlayPosition(position string) string {
	switch position {
	case "top-left":
		return "10:10"
	case "top-right":
		return "W-w-10:10"
	case "bottom-left":
		return "10:H-h-10"
	case "center":
		return "(W-w)/2:(H-h)/2"
	default:
		return "W-w-10:H-h-10"
	}
}

func watermarkArgs(input, watermark string, params queue.Params) []string {
	opacity := params.Float("opacity", 0.7)
	filter := fmt.Sprintf("[1]format=rgba,colorchannelmixer=aa=%s[wm];[0][wm]overlay=%s",
		strconv.FormatFloat(opacity, 'f', -1, 64),
		overlayPosition(params.String("position", "bottom-right")))
	return []string{
		"-i", input,
		"-i", watermark,
		"-filter_complex", filter,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "copy",
		"-movflags", "+faststart",
	}
}

// Thumbnail captures a single frame. Parameters: timestamp, size, image_fit,
// image_format, image_quality. The output extension is decided at submission
// time from image_format; the handler never rewrites the output path.
func (p *Processor) Thumbnail(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	args, err := thumbnailArgs(req.InputRef, req.Parameters)
	if err != nil {
		return nil, err
	}
	info, err := p.probe(ctx, "thumbnail", req.InputRef)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "thumbnail", info.Duration, args, req.OutputRef, sink)
}

func thumbnailArgs(input string, params queue.Params) ([]string, error) {
	width, height, err := parseSize(params.String("size", "1280x720"))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "thumbnail", "invalid size", err)
	}
	args := []string{
		"-i", input,
		"-ss", params.String("timestamp", "00:00:01"),
		"-vframes", "1",
		"-vf", thumbnailFilter(width, height, params.String("image_fit", "cover")),
	}
	return append(args, thumbnailQualityArgs(params.String("image_format", "webp"), params.Int("image_quality", 75))...), nil
}

// parseSize accepts WIDTHxHEIGHT with either x or : as the separator.
func parseSize(size string) (string, string, error) {
	width, height, ok := strings.Cut(strings.ReplaceAll(size, ":", "x"), "x")
	if !ok || width == "" || height == "" {
		return "", "", fmt.Errorf("want WIDTHxHEIGHT, got %q", size)
	}
	return width, height, nil
}

func thumbnailFilter(width, height, imageFit string) string {
	switch imageFit {
	case "contain":
		// Fit inside, pad with black bars.
		return fmt.Sprintf("scale=%s:%s:force_original_aspect_ratio=decrease,pad=%s:%s:(ow-iw)/2:(oh-ih)/2",
			width, height, width, height)
	case "none":
		// Force exact size, may distort.
		return fmt.Sprintf("scale=%s:%s", width, height)
	default:
		// Fill and crop from center.
		return fmt.Sprintf("scale=%s:%s:force_original_aspect_ratio=increase,crop=%s:%s:(iw-%s)/2:(ih-%s)/2",
			width, height, width, height, width, height)
	}
}

// thumbnailQualityArgs maps a 0-100 quality onto the encoder's native scale.
// PNG is lossless and takes no quality argument.
func thumbnailQualityArgs(imageFormat string, quality int) []string {
	quality = max(0, min(100, quality))
	switch strings.ToLower(imageFormat) {
	case "png":
		return nil
	case "jpg", "jpeg":
		// q:v runs 2-31 with lower meaning better.
		jpegQuality := max(2, min(31, 31-quality*29/100))
		return []string{"-q:v", strconv.Itoa(jpegQuality)}
	default:
		return []string{"-quality", strconv.Itoa(quality)}
	}
}

// ExtractAudio strips the video track. Parameters: audio_format, bitrate.
func (p *Processor) ExtractAudio(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	info, err := p.probe(ctx, "extract_audio", req.InputRef)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "extract_audio", info.Duration, extractAudioArgs(req.InputRef, req.Parameters), req.OutputRef, sink)
}

func audioCodec(audioFormat string) string {
	switch audioFormat {
	case "aac":
		return "aac"
	case "wav":
		return "pcm_s16le"
	case "flac":
		return "flac"
	default:
		return "libmp3lame"
	}
}

func extractAudioArgs(input string, params queue.Params) []string {
	return []string{
		"-i", input,
		"-vn",
		"-c:a", audioCodec(params.String("audio_format", "mp3")),
		"-b:a", params.String("bitrate", "192k"),
	}
}

// GIF converts a segment to an animated GIF using a two-pass palette filter
// chain. Parameters: start_time, duration, fps, scale.
func (p *Processor) GIF(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	info, err := p.probe(ctx, "gif", req.InputRef)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "gif", info.Duration, gifArgs(req.InputRef, req.Parameters), req.OutputRef, sink)
}

func gifArgs(input string, params queue.Params) []string {
	filter := fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		params.Int("fps", 10), params.Int("scale", 480))
	return []string{
		"-ss", params.String("start_time", "00:00:00"),
		"-t", strconv.Itoa(params.Int("duration", 5)),
		"-i", input,
		"-vf", filter,
		"-loop", "0",
	}
}

// Concat joins the input with the additional paths from the inputs parameter
// using the concat demuxer. The list file is written next to the output and
// removed afterward.
func (p *Processor) Concat(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	extra := req.Parameters.Strings("inputs")
	if len(extra) == 0 {
		return nil, services.Wrap(services.ErrValidation, "concat", "inputs parameter is required", nil)
	}
	inputs := append([]string{req.InputRef}, extra...)

	info, err := p.probe(ctx, "concat", req.InputRef)
	if err != nil {
		return nil, err
	}

	listFile, err := writeConcatList(req.OutputRef, inputs)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "concat", "write list file", err)
	}
	defer os.Remove(listFile)

	return p.run(ctx, "concat", info.Duration, concatArgs(listFile), req.OutputRef, sink)
}

func concatListPath(outputRef string) string {
	base := filepath.Base(outputRef)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(outputRef), stem+"_concat_list.txt")
}

func writeConcatList(outputRef string, inputs []string) (string, error) {
	var builder strings.Builder
	for _, input := range inputs {
		fmt.Fprintf(&builder, "file '%s'\n", input)
	}
	listFile := concatListPath(outputRef)
	if err := os.WriteFile(listFile, []byte(builder.String()), 0o644); err != nil {
		return "", err
	}
	return listFile, nil
}

func concatArgs(listFile string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
	}
}

// Trim cuts a segment without re-encoding. Parameters: start_time (required),
// end_time or duration.
func (p *Processor) Trim(ctx context.Context, req queue.Request, sink chan<- float64) (*queue.Outcome, error) {
	args, err := trimArgs(req.InputRef, req.Parameters)
	if err != nil {
		return nil, err
	}
	info, err := p.probe(ctx, "trim", req.InputRef)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, "trim", info.Duration, args, req.OutputRef, sink)
}

func trimArgs(input string, params queue.Params) ([]string, error) {
	startTime := params.String("start_time", "")
	if startTime == "" {
		return nil, services.Wrap(services.ErrValidation, "trim", "start_time parameter is required", nil)
	}
	args := []string{"-i", input, "-ss", startTime}
	if endTime := params.String("end_time", ""); endTime != "" {
		args = append(args, "-to", endTime)
	} else if duration := params.Int("duration", 0); duration > 0 {
		args = append(args, "-t", strconv.Itoa(duration))
	}
	return append(args, "-c", "copy"), nil
}
