package ffmpeg

import (
	"bufio"
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/media/ffprobe"
	"reel/internal/queue"
	"reel/internal/services"
)

// Processor executes ffmpeg for every supported operation. It is stateless
// apart from the binary paths, so one instance serves all workers.
type Processor struct {
	ffmpegBin  string
	ffprobeBin string
	logger     *slog.Logger
}

// NewProcessor builds a processor using the configured ffmpeg and ffprobe
// binaries.
func NewProcessor(cfg *config.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		ffmpegBin:  cfg.FFmpegBinary(),
		ffprobeBin: cfg.FFprobeBinary(),
		logger:     logging.WithComponent(logger, "ffmpeg"),
	}
}

// Register wires every operation handler into the registry.
func (p *Processor) Register(registry *queue.Registry) error {
	handlers := map[string]queue.Handler{
		"transcode":     p.Transcode,
		"compress":      p.Compress,
		"watermark":     p.Watermark,
		"thumbnail":     p.Thumbnail,
		"extract_audio": p.ExtractAudio,
		"gif":           p.GIF,
		"concat":        p.Concat,
		"trim":          p.Trim,
	}
	for name, handler := range handlers {
		if err := registry.Register(name, handler); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) probe(ctx context.Context, operation, inputRef string) (ffprobe.Info, error) {
	info, err := ffprobe.Probe(ctx, p.ffprobeBin, inputRef)
	if err != nil {
		return ffprobe.Info{}, services.Wrap(services.ErrExternalTool, operation, "probe input", err)
	}
	return info, nil
}

// run executes ffmpeg with the `-progress pipe:1` line protocol appended to
// args, relaying out_time_ms lines to the sink as percentages of
// totalDuration. The exit status alone decides success; progress parsing
// failures are ignored.
func (p *Processor) run(ctx context.Context, operation string, totalDuration float64, args []string, outputRef string, sink chan<- float64) (*queue.Outcome, error) {
	startedAt := time.Now()

	argv := make([]string, 0, len(args)+4)
	argv = append(argv, args...)
	argv = append(argv, "-progress", "pipe:1", "-y", outputRef)

	cmd := exec.CommandContext(ctx, p.ffmpegBin, argv...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, operation, "open ffmpeg stdout", err)
	}
	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, operation, "start ffmpeg", err)
	}
	p.logger.Debug("ffmpeg started",
		logging.String(logging.FieldOperation, operation),
		logging.String("output", outputRef))

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for scanner.Scan() {
		if current, ok := parseOutTime(scanner.Text()); ok {
			offer(sink, progressPercent(current, totalDuration))
		}
	}

	if err := cmd.Wait(); err != nil {
		message := "ffmpeg failed"
		if detail := stderr.Tail(); detail != "" {
			message += ": " + detail
		}
		return nil, services.Wrap(services.ErrExternalTool, operation, message, err)
	}

	completedAt := time.Now()
	p.logger.Info("ffmpeg finished",
		logging.String(logging.FieldOperation, operation),
		logging.String("output", outputRef),
		logging.Duration("elapsed", completedAt.Sub(startedAt)))
	return &queue.Outcome{
		ProcessingTime: completedAt.Sub(startedAt),
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
	}, nil
}

// parseOutTime extracts the out_time_ms value from one progress line. The
// value is in microseconds despite the key name; ffmpeg also emits "N/A"
// before the first frame, which is skipped.
func parseOutTime(line string) (float64, bool) {
	value, ok := strings.CutPrefix(strings.TrimSpace(line), "out_time_ms=")
	if !ok {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	return float64(micros) / 1_000_000, true
}

func progressPercent(currentSeconds, totalSeconds float64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	return min(100, currentSeconds/totalSeconds*100)
}

// offer sends without blocking; a full sink drops the update so the process
// reader never stalls.
func offer(sink chan<- float64, percent float64) {
	select {
	case sink <- percent:
	default:
	}
}

// tailBuffer keeps the last limit bytes written to it. ffmpeg reports the
// actionable error at the end of stderr, so the tail is enough context.
type tailBuffer struct {
	limit int
	data  []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if len(b.data) > b.limit {
		b.data = b.data[len(b.data)-b.limit:]
	}
	return len(p), nil
}

// Tail returns the last non-empty stderr line.
func (b *tailBuffer) Tail() string {
	lines := strings.Split(string(b.data), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
