// Package servecmder provides the generation server cobra command.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/rehearse/api"
	"github.com/papercomputeco/rehearse/pkg/config"
	"github.com/papercomputeco/rehearse/pkg/dotdir"
	"github.com/papercomputeco/rehearse/pkg/llm"
	"github.com/papercomputeco/rehearse/pkg/logger"
	"github.com/papercomputeco/rehearse/pkg/session"
)

// demoDelay paces the scripted demo stream so it renders incrementally.
const demoDelay = 150 * time.Millisecond

type serveCommander struct {
	flags struct {
		listen    string
		upstream  string
		model     string
		apiKeyEnv string
		turns     string
		timeout   string
		logFile   string
	}

	listen    string
	upstream  string
	model     string
	apiKeyEnv string
	turns     int
	timeout   time.Duration
	logFile   string
	demo      bool
	debug     bool
	configDir string

	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagUpstream,
	config.FlagModel,
	config.FlagAPIKeyEnv,
	config.FlagDialogTurns,
	config.FlagTimeout,
	config.FlagLogFile,
}

const serveLongDesc string = `Run the rehearse generation server.

The server accepts scene forms on /ai_create_course and adjustment requests on
/ai_adjust_course, asks an OpenAI-compatible upstream for a completion, and
streams the model's reasoning and the dialog back as separate events.

The upstream API key is read from the environment variable named by
--api-key-env (DASHSCOPE_API_KEY by default).

Examples:
  rehearse serve
  rehearse serve --listen :8080 --model qwen-plus
  rehearse serve --demo`

const serveShortDesc string = "Run the generation server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.load(cmd)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.flags.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.flags.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKeyEnv, &cmder.flags.apiKeyEnv)
	config.AddStringFlag(cmd, config.Flags, config.FlagDialogTurns, &cmder.flags.turns)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.flags.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.flags.logFile)
	cmd.Flags().BoolVar(&cmder.demo, "demo", false, "Serve a scripted dialog instead of calling the upstream")

	return cmd
}

// load resolves every setting through the flag > env > file > default chain.
func (c *serveCommander) load(cmd *cobra.Command) error {
	var err error
	c.debug, err = cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("could not get debug flag: %w", err)
	}
	c.configDir, err = cmd.Flags().GetString("config-dir")
	if err != nil {
		return fmt.Errorf("could not get config-dir flag: %w", err)
	}

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

	c.listen = v.GetString("server.listen")
	c.upstream = v.GetString("server.upstream")
	c.model = v.GetString("server.model")
	c.apiKeyEnv = v.GetString("server.api_key_env")
	c.turns = session.ParseTurns(v.GetString("generation.dialog_turns"))
	c.logFile = v.GetString("log.file")

	if raw := v.GetString("client.timeout"); raw != "" {
		c.timeout, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
	}

	return nil
}

func (c *serveCommander) run() error {
	logPath, err := dotdir.NewManager().Path(c.configDir, c.logFile)
	if err != nil {
		return fmt.Errorf("resolving log file: %w", err)
	}

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
		logger.WithRotatingFile(logPath),
	)

	streamer, err := c.newStreamer()
	if err != nil {
		return err
	}

	server := api.NewServer(api.Config{
		ListenAddr:  c.listen,
		DialogTurns: c.turns,
		Timeout:     c.timeout,
	}, streamer, c.logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

func (c *serveCommander) newStreamer() (llm.Streamer, error) {
	if c.demo {
		c.logger.Info("serving scripted demo dialog")
		return llm.Demo(demoDelay), nil
	}

	apiKey := os.Getenv(c.apiKeyEnv)
	if apiKey == "" {
		c.logger.Warn("upstream API key is not set", "env", c.apiKeyEnv)
	}

	streamer, err := llm.NewOpenAI(llm.OpenAIConfig{
		BaseURL: c.upstream,
		APIKey:  apiKey,
		Model:   c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}

	c.logger.Info("using upstream",
		"upstream", c.upstream,
		"model", c.model,
	)
	return streamer, nil
}
