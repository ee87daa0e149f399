package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/rehearse/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the REHEARSE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (REHEARSE_CLIENT_TARGET, REHEARSE_SERVER_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
		if err := v.ReadInConfig(); err != nil {
			// Config file not found errors are fine, defaults will apply.
			if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	// 3. Environment variables: REHEARSE_CLIENT_TARGET, REHEARSE_LOG_FILE, etc.
	v.SetEnvPrefix("REHEARSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.target", d.Client.Target)
	v.SetDefault("client.timeout", d.Client.Timeout)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.upstream", d.Server.Upstream)
	v.SetDefault("server.model", d.Server.Model)
	v.SetDefault("server.api_key_env", d.Server.APIKeyEnv)

	// Generation
	v.SetDefault("generation.dialog_turns", d.Generation.DialogTurns)

	// Log
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.telemetry", d.Log.Telemetry)
}
