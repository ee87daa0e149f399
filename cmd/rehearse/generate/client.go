package generatecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/rehearse/pkg/config"
	"github.com/papercomputeco/rehearse/pkg/dotdir"
	"github.com/papercomputeco/rehearse/pkg/logger"
	"github.com/papercomputeco/rehearse/pkg/session"
	"github.com/papercomputeco/rehearse/pkg/telemetry"
	"github.com/papercomputeco/rehearse/pkg/utils"
)

// clientFlags are the registry flags shared by generate and adjust.
var clientFlags = []string{
	config.FlagTarget,
	config.FlagTimeout,
	config.FlagDialogTurns,
	config.FlagLogFile,
	config.FlagTelemetry,
}

// clientOptions is everything generate and adjust resolve before a session.
type clientOptions struct {
	flags struct {
		target    string
		timeout   string
		turns     string
		logFile   string
		telemetry bool
	}

	target    string
	timeout   time.Duration
	turns     int
	logFile   string
	telemetry bool

	debug      bool
	configDir  string
	plain      bool
	transcript string
	output     string

	scenePath string
	scene     sceneFlags
}

func (o *clientOptions) register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &o.flags.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &o.flags.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagDialogTurns, &o.flags.turns)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &o.flags.logFile)
	config.AddBoolFlag(cmd, config.Flags, config.FlagTelemetry, &o.flags.telemetry)

	cmd.Flags().BoolVar(&o.plain, "plain", false, "Stream to stdout instead of the interactive view")
	cmd.Flags().StringVar(&o.transcript, "transcript", "", "Write every raw stream line to this file")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write the finished dialog to this file")
	cmd.Flags().StringVarP(&o.scenePath, "scene", "s", "", "TOML file describing the scene")
	o.scene.register(cmd)
}

// load resolves settings through the flag > env > file > default chain.
func (o *clientOptions) load(cmd *cobra.Command) error {
	var err error
	o.debug, err = cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("could not get debug flag: %w", err)
	}
	o.configDir, err = cmd.Flags().GetString("config-dir")
	if err != nil {
		return fmt.Errorf("could not get config-dir flag: %w", err)
	}

	v, err := config.InitViper(o.configDir)
	if err != nil {
		return err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, clientFlags)

	o.target = v.GetString("client.target")
	o.turns = session.ParseTurns(v.GetString("generation.dialog_turns"))
	o.logFile = v.GetString("log.file")
	o.telemetry = v.GetBool("log.telemetry")

	if raw := v.GetString("client.timeout"); raw != "" {
		o.timeout, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
	}

	if o.target == "" {
		return errors.New("no generation service target configured")
	}

	return nil
}

// interactive reports whether the terminal UI should run.
func (o *clientOptions) interactive() bool {
	return !o.plain && term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// clientRuntime holds what a running command owns and must release.
type clientRuntime struct {
	logger     *slog.Logger
	telemetry  *telemetry.Provider
	controller *session.Controller

	closers []io.Closer
}

// open builds the logger, telemetry and controller for one command run.
// The interactive view owns the terminal, so logs only go to the rotating
// file unless plain output runs with --debug.
func (o *clientOptions) open(ctx context.Context, stderr io.Writer) (*clientRuntime, error) {
	rt := &clientRuntime{}

	logPath, err := dotdir.NewManager().Path(o.configDir, o.logFile)
	if err != nil {
		return nil, fmt.Errorf("resolving log file: %w", err)
	}

	var logFile io.WriteCloser
	if logPath != "" {
		logFile = logger.RotatingFile(logPath)
		rt.closers = append(rt.closers, logFile)
		rt.logger = logger.New(
			logger.WithDebug(o.debug),
			logger.WithSource(o.debug),
			logger.WithJSON(true),
			logger.WithWriter(logFile),
		)
	} else {
		rt.logger = logger.Nop()
	}

	if o.debug && !o.interactive() {
		rt.logger = logger.Multi(
			logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(stderr)),
			rt.logger,
		)
	}

	var telemetryWriter io.Writer
	if o.telemetry && logFile != nil {
		telemetryWriter = logFile
	}
	rt.telemetry, err = telemetry.Setup(ctx, telemetry.Config{
		Writer:         telemetryWriter,
		ServiceName:    "rehearse",
		ServiceVersion: utils.Version,
	})
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}

	opts := []session.Option{
		session.WithLogger(rt.logger),
		session.WithTracer(rt.telemetry.Tracer),
		session.WithMeter(rt.telemetry.Meter),
	}

	if o.transcript != "" {
		f, err := os.Create(o.transcript)
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("creating transcript: %w", err)
		}
		rt.closers = append(rt.closers, f)
		opts = append(opts, session.WithTranscript(f))
	}

	rt.controller = session.NewController(session.Config{
		Target:  o.target,
		Timeout: o.timeout,
	}, opts...)

	return rt, nil
}

// Close cancels any in-flight session, flushes telemetry, and closes files.
func (rt *clientRuntime) Close(ctx context.Context) error {
	var errs []error
	if rt.controller != nil {
		rt.controller.Cancel()
	}
	if rt.telemetry != nil {
		if err := rt.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// finished persists a completed dialog as the draft and, when requested,
// to the output file.
func (o *clientOptions) finished(rt *clientRuntime, scene session.SceneParameters, snap session.Snapshot) error {
	if snap.Status != session.Completed || snap.Content == "" {
		return nil
	}

	err := dotdir.NewManager().SaveDraft(&dotdir.Draft{
		SessionID: snap.ID,
		Scene:     scene,
		Reasoning: snap.Reasoning,
		Content:   snap.Content,
		SavedAt:   time.Now(),
	}, o.configDir)
	if err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}

	if o.output != "" {
		if err := os.WriteFile(o.output, []byte(snap.Content), 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	rt.logger.Debug("saved draft", "id", snap.ID, "output", o.output)
	return nil
}
