package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent rehearse configuration stored as
// config.toml in the .rehearse/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Client     ClientConfig     `toml:"client"`
	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	Log        LogConfig        `toml:"log"`
}

// ClientConfig holds settings for commands that talk to the generation
// service (rehearse generate, rehearse adjust).
type ClientConfig struct {
	// Target is the generation service base URL (scheme + host + port).
	Target string `toml:"target,omitempty"`

	// Timeout bounds one whole session as a Go duration ("10m"). Empty means
	// no limit.
	Timeout string `toml:"timeout,omitempty"`
}

// ServerConfig holds generation server settings (rehearse serve).
type ServerConfig struct {
	Listen   string `toml:"listen,omitempty"`
	Upstream string `toml:"upstream,omitempty"`
	Model    string `toml:"model,omitempty"`

	// APIKeyEnv names the environment variable holding the upstream API key.
	// The key itself is never stored in config.toml.
	APIKeyEnv string `toml:"api_key_env,omitempty"`
}

// GenerationConfig holds defaults for new scenes.
type GenerationConfig struct {
	DialogTurns int `toml:"dialog_turns,omitempty"`
}

// LogConfig holds log output settings.
type LogConfig struct {
	// File is the rotating log file. Relative paths resolve inside the
	// .rehearse/ directory.
	File string `toml:"file,omitempty"`

	// Telemetry exports session spans and metrics to the log file.
	Telemetry bool `toml:"telemetry,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for client.timeout: %w", err)
				}
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.upstream": {
		get: func(c *Config) string { return c.Server.Upstream },
		set: func(c *Config, v string) error { c.Server.Upstream = v; return nil },
	},
	"server.model": {
		get: func(c *Config) string { return c.Server.Model },
		set: func(c *Config, v string) error { c.Server.Model = v; return nil },
	},
	"server.api_key_env": {
		get: func(c *Config) string { return c.Server.APIKeyEnv },
		set: func(c *Config, v string) error { c.Server.APIKeyEnv = v; return nil },
	},
	"generation.dialog_turns": {
		get: func(c *Config) string {
			if c.Generation.DialogTurns == 0 {
				return ""
			}
			return strconv.Itoa(c.Generation.DialogTurns)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for generation.dialog_turns: %w", err)
			}
			if n < 1 {
				return fmt.Errorf("invalid value for generation.dialog_turns: %d is not positive", n)
			}
			c.Generation.DialogTurns = n
			return nil
		},
	},
	"log.file": {
		get: func(c *Config) string { return c.Log.File },
		set: func(c *Config, v string) error { c.Log.File = v; return nil },
	},
	"log.telemetry": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.Telemetry) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for log.telemetry: %w", err)
			}
			c.Log.Telemetry = b
			return nil
		},
	},
}
