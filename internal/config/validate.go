package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir must not be empty")
	}
	if strings.TrimSpace(c.Storage.RootDir) == "" {
		problems = append(problems, "storage.root_dir must not be empty")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of console, json", c.Logging.Format))
	}
	if c.STT.SimilarityThreshold <= 0 || c.STT.SimilarityThreshold > 1 {
		problems = append(problems, fmt.Sprintf("stt.similarity_threshold %.2f must be in (0, 1]", c.STT.SimilarityThreshold))
	}
	if c.STT.ChunkSeconds < 10 {
		problems = append(problems, fmt.Sprintf("stt.chunk_seconds %d must be at least 10", c.STT.ChunkSeconds))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
