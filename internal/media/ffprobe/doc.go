// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no reel-specific dependencies and could be extracted as a
// standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Info: flattened view of the primary video stream used for progress math
package ffprobe
