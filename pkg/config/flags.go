package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --target
// on both "rehearse generate" and "rehearse adjust").
type Flag struct {
	// Name is the long flag name (e.g. "target").
	Name string

	// Shorthand is the one-letter short flag (e.g. "t"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.target").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagTarget      = "target"
	FlagTimeout     = "timeout"
	FlagDialogTurns = "turns"
	FlagListen      = "listen"
	FlagUpstream    = "upstream"
	FlagModel       = "model"
	FlagAPIKeyEnv   = "api-key-env"
	FlagLogFile     = "log-file"
	FlagTelemetry   = "telemetry"
)

// Flags is the registry shared by every rehearse command.
var Flags = FlagSet{
	FlagTarget:      {Name: "target", Shorthand: "t", ViperKey: "client.target", Description: "Generation service URL"},
	FlagTimeout:     {Name: "timeout", ViperKey: "client.timeout", Description: "Maximum duration of one session (e.g. 10m, 0 for none)"},
	FlagDialogTurns: {Name: "turns", Shorthand: "n", ViperKey: "generation.dialog_turns", Description: "Number of dialog turns to generate"},
	FlagListen:      {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the generation server to listen on"},
	FlagUpstream:    {Name: "upstream", Shorthand: "u", ViperKey: "server.upstream", Description: "OpenAI-compatible upstream base URL"},
	FlagModel:       {Name: "model", Shorthand: "m", ViperKey: "server.model", Description: "Upstream model name"},
	FlagAPIKeyEnv:   {Name: "api-key-env", ViperKey: "server.api_key_env", Description: "Environment variable holding the upstream API key"},
	FlagLogFile:     {Name: "log-file", ViperKey: "log.file", Description: "Rotating log file (relative paths resolve inside .rehearse/)"},
	FlagTelemetry:   {Name: "telemetry", ViperKey: "log.telemetry", Description: "Export session traces and metrics to the log file"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
