package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the daemon.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
	SplitDir string `toml:"split_dir"`
}

// Storage contains object-store configuration.
type Storage struct {
	RootDir        string `toml:"root_dir"`
	PresignSecret  string `toml:"presign_secret"`
	PresignBaseURL string `toml:"presign_base_url"`
	PresignTTL     int    `toml:"presign_ttl_seconds"`
}

// STT contains speech-to-text and speaker-verification configuration.
type STT struct {
	EngineURL           string  `toml:"engine_url"`
	VerifierURL         string  `toml:"verifier_url"`
	Language            string  `toml:"language"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	ChunkSeconds        int     `toml:"chunk_seconds"`
	RequestTimeout      int     `toml:"request_timeout"`
}

// LLM contains chat-completion connection settings for speaker classification.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains job scheduling intervals and lease settings.
type Workflow struct {
	EncodingInterval int `toml:"encoding_interval"`
	ScriptInterval   int `toml:"script_interval"`
	ClaimLeaseTTL    int `toml:"claim_lease_ttl"`
}

// AMQP contains configuration for the pipeline event publisher.
type AMQP struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// Monitor contains configuration for the monitor HTTP API.
type Monitor struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scriptflow.
//
// Configuration sections by subsystem:
//   - Paths: session database, log, and scratch directories
//   - Storage: object-store root and presigned upload settings
//   - STT: transcription engine and speaker-verifier endpoints
//   - LLM: chat-completion settings for speaker role classification
//   - Workflow: job cadences and the stale-claim lease
//   - AMQP: pipeline event publishing
//   - Monitor: HTTP status API bind address
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Storage  Storage  `toml:"storage"`
	STT      STT      `toml:"stt"`
	LLM      LLM      `toml:"llm"`
	Workflow Workflow `toml:"workflow"`
	AMQP     AMQP     `toml:"amqp"`
	Monitor  Monitor  `toml:"monitor"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scriptflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scriptflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DownloadDir returns the scratch directory for origin-video downloads.
func (c *Config) DownloadDir() string {
	return filepath.Join(c.Paths.WorkDir, "download")
}

// EncodingDir returns the scratch directory for transcoded outputs.
func (c *Config) EncodingDir() string {
	return filepath.Join(c.Paths.WorkDir, "encoding")
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.LogDir,
		c.Paths.SplitDir,
		c.DownloadDir(),
		c.EncodingDir(),
	}
	if strings.TrimSpace(c.Storage.RootDir) != "" {
		dirs = append(dirs, c.Storage.RootDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for transcoding and splitting.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
