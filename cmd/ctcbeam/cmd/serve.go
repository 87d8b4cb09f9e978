package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/config"
	"github.com/MeKo-Tech/ctcbeam/internal/server"
	"github.com/MeKo-Tech/ctcbeam/internal/version"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket decoding server",
		Long: `Start an HTTP server that decodes probability matrices.

Endpoints:
  GET  /health        - health check
  GET  /alphabet      - the default alphabet
  POST /decode        - decode one matrix
  POST /decode/batch  - decode several matrices
  GET  /ws            - WebSocket decoding
  GET  /metrics       - Prometheus metrics

Examples:
  ctcbeam serve --alphabet "-abc"
  ctcbeam serve --port 9000 --cors-origin "https://example.org"
  ctcbeam serve --rate-limit --requests-per-minute 60`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}
	addDecoderFlags(cmd)
	f := cmd.Flags()
	f.StringP("host", "H", "", "server host")
	f.IntP("port", "p", 0, "server port")
	f.String("cors-origin", "", "allowed CORS origin")
	f.Int("max-upload-mb", 0, "maximum request body size in MB")
	f.Int("max-batch", 0, "maximum matrices per batch request")
	f.Int("max-beam-size", 0, "largest beam_size a request may ask for")
	f.Int("max-alphabet-size", 0, "largest alphabet a request may supply")
	f.Int("timeout", 0, "per-request decode timeout in seconds")
	f.Int("shutdown-timeout", 0, "graceful shutdown timeout in seconds")
	f.Bool("rate-limit", false, "enable per-client rate limiting")
	f.Int("requests-per-minute", 0, "requests per minute per client")
	f.Int("requests-per-hour", 0, "requests per hour per client")
	f.Int("max-requests-per-day", 0, "requests per day per client")
	f.Int64("max-data-per-day", 0, "request body MB per day per client")
	return cmd
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	applyDecoderFlags(cmd, cfg)
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Server.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		cfg.Server.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-mb") {
		cfg.Server.MaxUploadMB, _ = f.GetInt("max-upload-mb")
	}
	if f.Changed("max-batch") {
		cfg.Server.MaxBatch, _ = f.GetInt("max-batch")
	}
	if f.Changed("max-beam-size") {
		cfg.Server.MaxBeamSize, _ = f.GetInt("max-beam-size")
	}
	if f.Changed("max-alphabet-size") {
		cfg.Server.MaxAlphabetSize, _ = f.GetInt("max-alphabet-size")
	}
	if f.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("rate-limit") {
		cfg.RateLimit.Enabled, _ = f.GetBool("rate-limit")
	}
	if f.Changed("requests-per-minute") {
		cfg.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		cfg.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		cfg.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		cfg.RateLimit.MaxDataPerDayMB, _ = f.GetInt64("max-data-per-day")
	}
}

// serverConfig converts the loaded configuration into a server.Config.
func serverConfig(cfg *config.Config) (server.Config, error) {
	alpha, err := cfg.LoadAlphabet()
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		MaxBatch:    cfg.Server.MaxBatch,
		TimeoutSec:  cfg.Server.TimeoutSec,

		MaxBeamSize:     cfg.Server.MaxBeamSize,
		MaxAlphabetSize: cfg.Server.MaxAlphabetSize,
		Version:     version.Version,
		Pipeline:    cfg.ToPipelineConfig(),
		Alphabet:    alpha,
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			RequestsPerHour:   cfg.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: cfg.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     cfg.RateLimit.MaxDataPerDayMB * 1024 * 1024,
		},
	}, nil
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sc, err := serverConfig(cfg)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(sc)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Server listening on http://%s\n", addr)
	return srv.Run(ctx, addr, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
}
