package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scriptflow/internal/services"
)

// Delivery encode settings. Sessions are long, mostly static two-person
// shots, so a low constant bitrate at 24fps keeps files small without
// hurting transcript quality.
const (
	videoCodec   = "libx264"
	videoBitrate = "96k"
	videoPreset  = "ultrafast"
	videoFPS     = "24"
	audioCodec   = "aac"
	audioBitrate = "72k"
)

// FFmpegTranscoder is the ffmpeg-backed Transcoder.
type FFmpegTranscoder struct {
	binary string
	run    commandRunner
}

// NewTranscoder builds a transcoder using the given ffmpeg binary. An empty
// binary falls back to "ffmpeg" on PATH.
func NewTranscoder(binary string) *FFmpegTranscoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{binary: binary, run: runCommand}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if strings.TrimSpace(inputPath) == "" || strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrValidation, "media", "transcode", "input and output paths are required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-b:v", videoBitrate,
		"-r", videoFPS,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		outputPath,
	}
	if output, err := t.run(ctx, t.binary, args...); err != nil {
		return services.Wrapf(services.ErrExternalTool, "media", "transcode", err,
			"ffmpeg: %s", strings.TrimSpace(string(output)))
	}
	return nil
}
