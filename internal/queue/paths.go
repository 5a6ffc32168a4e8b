package queue

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var thumbnailExtensions = map[string]string{
	"webp": ".webp",
	"jpg":  ".jpg",
	"jpeg": ".jpg",
	"png":  ".png",
}

// DeriveOutputPath builds the destination path for a job whose caller did not
// supply one: {dir}/{stem}_{operation}_{timestamp}{ext}, where the extension
// depends on the operation's declared format parameters.
func DeriveOutputPath(inputRef, operation string, params Params, now time.Time) string {
	dir := filepath.Dir(inputRef)
	base := filepath.Base(inputRef)
	inputExt := filepath.Ext(base)
	stem := strings.TrimSuffix(base, inputExt)
	timestamp := now.Format("20060102_150405")

	ext := inputExt
	switch operation {
	case "thumbnail":
		format := strings.ToLower(params.String("image_format", "webp"))
		mapped, ok := thumbnailExtensions[format]
		if !ok {
			mapped = ".webp"
		}
		ext = mapped
	case "gif":
		ext = ".gif"
	case "extract_audio":
		ext = "." + strings.TrimPrefix(strings.ToLower(params.String("audio_format", "mp3")), ".")
	}

	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s%s", stem, operation, timestamp, ext))
}
