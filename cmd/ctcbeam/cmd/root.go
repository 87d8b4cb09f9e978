// Package cmd implements the ctcbeam command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/ctcbeam/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by one command tree.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
}

// NewRootCommand builds the ctcbeam command tree with its own configuration
// state.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	rootCmd := &cobra.Command{
		Use:   "ctcbeam",
		Short: "CTC beam search decoding for probability matrices",
		Long: `ctcbeam decodes per-timestep label probability matrices produced by CTC-trained
networks into ranked label sequences using prefix beam search.

This tool provides:
- Beam search and best-path decoding of JSON, YAML and CSV matrices
- Parallel batch decoding of files and directories
- An HTTP and WebSocket decoding service with Prometheus metrics
- Heatmap rendering of matrices and decoded paths
- Synthetic benchmarks across beam widths

Examples:
  ctcbeam decode matrix.json --alphabet "-abc"
  ctcbeam batch matrices/ --recursive --format json
  ctcbeam serve --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), a.cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/ctcbeam, /etc/ctcbeam)")
	flags.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newDecodeCommand(a),
		newBatchCommand(a),
		newServeCommand(a),
		newBenchCommand(a),
		newGenerateCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs a fresh command tree with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) loadConfig() error {
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// config returns the loaded configuration.
func (a *app) config() (*config.Config, error) {
	if a.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return a.cfg, nil
}

// setupLogging installs a JSON slog handler on w at the configured level.
func setupLogging(w io.Writer, cfg *config.Config) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
