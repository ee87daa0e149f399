package config

import "github.com/papercomputeco/rehearse/pkg/session"

const (
	defaultClientTarget = "http://localhost:5000"
	defaultTimeout      = "10m"

	defaultServerListen = ":5000"
	defaultUpstream     = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultModel        = "deepseek-r1"
	defaultAPIKeyEnv    = "DASHSCOPE_API_KEY"

	defaultLogFile = "rehearse.log"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Target:  defaultClientTarget,
			Timeout: defaultTimeout,
		},
		Server: ServerConfig{
			Listen:    defaultServerListen,
			Upstream:  defaultUpstream,
			Model:     defaultModel,
			APIKeyEnv: defaultAPIKeyEnv,
		},
		Generation: GenerationConfig{
			DialogTurns: session.DefaultDialogTurns,
		},
		Log: LogConfig{
			File: defaultLogFile,
		},
	}
}
