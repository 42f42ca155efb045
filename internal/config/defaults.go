package config

const (
	defaultDataDir          = "~/.local/share/scriptflow"
	defaultLogDir           = "~/.local/share/scriptflow/logs"
	defaultWorkDir          = "~/.local/share/scriptflow/work"
	defaultSplitDir         = "~/.local/share/scriptflow/work/split"
	defaultStorageRootDir   = "~/.local/share/scriptflow/objects"
	defaultPresignTTL       = 3600
	defaultSTTLanguage      = "ko"
	defaultSimilarity       = 0.60
	defaultChunkSeconds     = 120
	defaultSTTTimeout       = 300
	defaultLLMTimeout       = 30
	defaultEncodingInterval = 60
	defaultScriptInterval   = 60
	defaultClaimLeaseTTL    = 0
	defaultAMQPExchange     = "scriptflow.events"
	defaultMonitorBind      = "127.0.0.1:7512"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns the built-in configuration values before any file or
// environment overrides are applied.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			WorkDir:  defaultWorkDir,
			SplitDir: defaultSplitDir,
		},
		Storage: Storage{
			RootDir:    defaultStorageRootDir,
			PresignTTL: defaultPresignTTL,
		},
		STT: STT{
			Language:            defaultSTTLanguage,
			SimilarityThreshold: defaultSimilarity,
			ChunkSeconds:        defaultChunkSeconds,
			RequestTimeout:      defaultSTTTimeout,
		},
		LLM: LLM{
			TimeoutSeconds: defaultLLMTimeout,
		},
		Workflow: Workflow{
			EncodingInterval: defaultEncodingInterval,
			ScriptInterval:   defaultScriptInterval,
			ClaimLeaseTTL:    defaultClaimLeaseTTL,
		},
		AMQP: AMQP{
			Exchange: defaultAMQPExchange,
		},
		Monitor: Monitor{
			Bind: defaultMonitorBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
