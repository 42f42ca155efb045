package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scriptflow/internal/services"
)

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration asks ffprobe for the container duration of a media file.
func Duration(ctx context.Context, run commandRunner, binary, path string) (time.Duration, error) {
	if run == nil {
		run = runCommand
	}
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return 0, services.Wrap(services.ErrValidation, "media", "probe", "empty path", nil)
	}

	args := []string{
		"-v", "error",
		"-hide_banner",
		"-show_entries", "format=duration",
		"-of", "json",
		"--", path,
	}
	output, err := run(ctx, binary, args...)
	if err != nil {
		return 0, services.Wrapf(services.ErrExternalTool, "media", "probe", err,
			"ffprobe: %s", strings.TrimSpace(string(output)))
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", result.Format.Duration, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
