package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeSTT()
	c.normalizeLLM()
	c.normalizeWorkflow()
	c.normalizeAMQP()
	c.normalizeMonitor()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SplitDir) == "" {
		c.Paths.SplitDir = defaultSplitDir
	}
	if c.Paths.SplitDir, err = expandPath(c.Paths.SplitDir); err != nil {
		return fmt.Errorf("paths.split_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	if strings.TrimSpace(c.Storage.RootDir) == "" {
		c.Storage.RootDir = defaultStorageRootDir
	}
	if c.Storage.RootDir, err = expandPath(c.Storage.RootDir); err != nil {
		return fmt.Errorf("storage.root_dir: %w", err)
	}
	c.Storage.PresignSecret = strings.TrimSpace(c.Storage.PresignSecret)
	if c.Storage.PresignSecret == "" {
		if value, ok := os.LookupEnv("SCRIPTFLOW_PRESIGN_SECRET"); ok {
			c.Storage.PresignSecret = strings.TrimSpace(value)
		}
	}
	c.Storage.PresignBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PresignBaseURL), "/")
	if c.Storage.PresignTTL <= 0 {
		c.Storage.PresignTTL = defaultPresignTTL
	}
	return nil
}

func (c *Config) normalizeSTT() {
	c.STT.EngineURL = strings.TrimSpace(c.STT.EngineURL)
	c.STT.VerifierURL = strings.TrimSpace(c.STT.VerifierURL)
	c.STT.Language = strings.ToLower(strings.TrimSpace(c.STT.Language))
	if c.STT.Language == "" {
		c.STT.Language = defaultSTTLanguage
	}
	if c.STT.SimilarityThreshold <= 0 {
		c.STT.SimilarityThreshold = defaultSimilarity
	}
	if c.STT.ChunkSeconds <= 0 {
		c.STT.ChunkSeconds = defaultChunkSeconds
	}
	if c.STT.RequestTimeout <= 0 {
		c.STT.RequestTimeout = defaultSTTTimeout
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("SCRIPTFLOW_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.EncodingInterval <= 0 {
		c.Workflow.EncodingInterval = defaultEncodingInterval
	}
	if c.Workflow.ScriptInterval <= 0 {
		c.Workflow.ScriptInterval = defaultScriptInterval
	}
	if c.Workflow.ClaimLeaseTTL < 0 {
		c.Workflow.ClaimLeaseTTL = 0
	}
}

func (c *Config) normalizeAMQP() {
	if c.AMQP.URL == "" {
		if value, ok := os.LookupEnv("SCRIPTFLOW_AMQP_URL"); ok {
			c.AMQP.URL = strings.TrimSpace(value)
		}
	}
	c.AMQP.URL = strings.TrimSpace(c.AMQP.URL)
	c.AMQP.Exchange = strings.TrimSpace(c.AMQP.Exchange)
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = defaultAMQPExchange
	}
}

func (c *Config) normalizeMonitor() {
	c.Monitor.Bind = strings.TrimSpace(c.Monitor.Bind)
	if c.Monitor.Bind == "" {
		c.Monitor.Bind = defaultMonitorBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
