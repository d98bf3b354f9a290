package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wa-relay/internal/config"
	"github.com/ziadkadry99/wa-relay/internal/dispatch"
	"github.com/ziadkadry99/wa-relay/internal/pipeline"
	"github.com/ziadkadry99/wa-relay/internal/relay"
	"github.com/ziadkadry99/wa-relay/internal/server"
	"github.com/ziadkadry99/wa-relay/internal/webhook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook relay server",
	Long: `Starts the HTTP server that receives provider webhooks on the configured path,
verifies their signature, and answers text messages with an AI reply.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	gen, err := newGeneratorFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	format, err := relay.ParseFormat(cfg.Relay.Format)
	if err != nil {
		return err
	}
	client := relay.NewClient(relay.ClientConfig{
		BaseURL:    cfg.Relay.BaseURL,
		APIKey:     cfg.Relay.APIKey,
		AuthScheme: cfg.Relay.AuthScheme,
		Timeout:    cfg.Relay.Timeout,
	})
	relayer := relay.NewRelayer(client, format, cfg.Relay.MaxLength, logger)

	policy, err := pipeline.NewSenderPolicy(cfg.Relay.AllowSenders, cfg.Relay.DenySenders)
	if err != nil {
		return err
	}
	proc := pipeline.New(gen, relayer, policy, pipeline.Options{
		FallbackOnError: cfg.Reply.FallbackOnError,
		NonTextReply:    cfg.Relay.NonTextReply,
	}, logger)

	jobs := dispatch.New(dispatch.Options{
		Workers:    cfg.Dispatch.Workers,
		QueueSize:  cfg.Dispatch.QueueSize,
		JobTimeout: cfg.JobTimeout(),
	}, logger)

	hook := webhook.NewHandler(webhook.Config{
		Path:            cfg.Webhook.Path,
		Secret:          []byte(cfg.Webhook.Secret),
		SignatureHeader: cfg.Webhook.SignatureHeader,
		VerifyToken:     cfg.Webhook.VerifyToken,
		MaxBodyBytes:    cfg.Webhook.MaxBodyBytes,
	}, proc, jobs, logger)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MetricsPath:  metricsPath,
	}, logger)
	webhook.RegisterRoutes(srv.Router(), hook)

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("warelay starting",
		"version", Version,
		"port", cfg.Server.Port,
		"webhook", cfg.Webhook.Path,
		"api", cfg.Completion.API,
		"model", cfg.Completion.Model,
		"format", format,
		"workers", cfg.Dispatch.Workers,
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		jobs.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "pending", jobs.Pending())
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultConfig().Server.ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		logger.Warn("dropping unfinished replies", "error", err)
	}
	return nil
}
