// Package media wraps the ffmpeg and ffprobe binaries behind the Transcoder
// and Splitter capabilities the pipeline jobs depend on.
package media

import (
	"context"
	"os/exec"
	"time"
)

// Transcoder converts an origin video into the pipeline's delivery format.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// Chunk is one fixed-length audio segment cut from a session recording.
type Chunk struct {
	Index    int
	Path     string
	Offset   time.Duration
	Duration time.Duration
}

// Splitter extracts a session's audio track and cuts it into chunks sized for
// the transcription engine.
type Splitter interface {
	Split(ctx context.Context, inputPath, outputDir string) ([]Chunk, error)
}

// commandRunner executes an external binary and returns its combined output.
// Tests substitute it to exercise argument construction without ffmpeg.
type commandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput()
}
