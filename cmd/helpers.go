package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ziadkadry99/wa-relay/internal/config"
	"github.com/ziadkadry99/wa-relay/internal/llm"
	"github.com/ziadkadry99/wa-relay/internal/logging"
	"github.com/ziadkadry99/wa-relay/internal/reply"
)

// loadConfig loads the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `warelay init` to create a config file", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Log.Format, os.Stderr)
}

// newGeneratorFromConfig creates the completion provider and wraps it in a
// reply generator. Shared by serve and ask.
func newGeneratorFromConfig(cfg *config.Config, logger *slog.Logger) (*reply.Generator, error) {
	provider, err := llm.NewProvider(llm.Options{
		API:                cfg.Completion.API,
		BaseURL:            cfg.Completion.BaseURL,
		APIKey:             cfg.Completion.APIKey,
		Model:              cfg.Completion.Model,
		Timeout:            cfg.Completion.Timeout,
		RateLimitPerMinute: cfg.Completion.RateLimitPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion provider: %w", err)
	}

	gen, err := reply.New(provider, reply.Config{
		BusinessName:    cfg.Reply.BusinessName,
		Persona:         cfg.Reply.Persona,
		Fallback:        cfg.Reply.Fallback,
		Model:           cfg.Completion.Model,
		MaxOutputTokens: cfg.Completion.MaxOutputTokens,
		Timeout:         cfg.Completion.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating reply generator: %w", err)
	}
	return gen, nil
}
