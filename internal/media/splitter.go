package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scriptflow/internal/services"
)

// FFmpegSplitter extracts a session's audio as mp3 and cuts it into
// fixed-length chunks named {stem}_part_000.mp3, {stem}_part_001.mp3, and so
// on inside the output directory.
type FFmpegSplitter struct {
	ffmpeg       string
	ffprobe      string
	chunkSeconds int
	run          commandRunner
}

// NewSplitter builds a splitter. chunkSeconds below 1 falls back to 120.
func NewSplitter(ffmpegBinary, ffprobeBinary string, chunkSeconds int) *FFmpegSplitter {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	if chunkSeconds < 1 {
		chunkSeconds = 120
	}
	return &FFmpegSplitter{
		ffmpeg:       ffmpegBinary,
		ffprobe:      ffprobeBinary,
		chunkSeconds: chunkSeconds,
		run:          runCommand,
	}
}

func (s *FFmpegSplitter) Split(ctx context.Context, inputPath, outputDir string) ([]Chunk, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "media", "split", "input path is required", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create split directory: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	audioPath := filepath.Join(outputDir, stem+".mp3")

	extractArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
		"-vn",
		"-sn",
		"-dn",
		"-c:a", "libmp3lame",
		"-q:a", "4",
		audioPath,
	}
	if output, err := s.run(ctx, s.ffmpeg, extractArgs...); err != nil {
		return nil, services.Wrapf(services.ErrExternalTool, "media", "split", err,
			"ffmpeg extract audio: %s", strings.TrimSpace(string(output)))
	}

	pattern := filepath.Join(outputDir, stem+"_part_%03d.mp3")
	segmentArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", audioPath,
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", s.chunkSeconds),
		"-c", "copy",
		pattern,
	}
	if output, err := s.run(ctx, s.ffmpeg, segmentArgs...); err != nil {
		return nil, services.Wrapf(services.ErrExternalTool, "media", "split", err,
			"ffmpeg segment audio: %s", strings.TrimSpace(string(output)))
	}

	matches, err := filepath.Glob(filepath.Join(outputDir, stem+"_part_*.mp3"))
	if err != nil {
		return nil, fmt.Errorf("collect chunks: %w", err)
	}
	if len(matches) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "media", "split", "no chunks produced", nil)
	}
	sort.Strings(matches)

	totalDuration, durationErr := Duration(ctx, s.run, s.ffprobe, audioPath)

	chunkLen := time.Duration(s.chunkSeconds) * time.Second
	chunks := make([]Chunk, len(matches))
	for i, match := range matches {
		chunk := Chunk{
			Index:    i,
			Path:     match,
			Offset:   time.Duration(i) * chunkLen,
			Duration: chunkLen,
		}
		// The final chunk is usually shorter than the segment length.
		if durationErr == nil && i == len(matches)-1 {
			if remainder := totalDuration - chunk.Offset; remainder > 0 && remainder < chunkLen {
				chunk.Duration = remainder
			}
		}
		chunks[i] = chunk
	}
	return chunks, nil
}

// ChunkSeconds reports the configured segment length.
func (s *FFmpegSplitter) ChunkSeconds() int { return s.chunkSeconds }
