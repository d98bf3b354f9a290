package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/wa-relay/internal/llm"
	"github.com/ziadkadry99/wa-relay/internal/logging"
	"github.com/ziadkadry99/wa-relay/internal/pipeline"
	"github.com/ziadkadry99/wa-relay/internal/relay"
)

// EnvPrefix marks structured overrides: WARELAY_COMPLETION__MODEL sets
// completion.model.
const EnvPrefix = "WARELAY_"

// Environment variables read without the prefix, as used by existing
// deployments.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvInteraktKey = "INTERAKT_API_KEY"
	EnvSecret      = "WEBHOOK_SECRET"
	EnvVerifyToken = "WEBHOOK_VERIFY_TOKEN"
	EnvPort        = "PORT"
)

var plainEnv = map[string]string{
	EnvOpenAIKey:   "completion.api_key",
	EnvInteraktKey: "relay.api_key",
	EnvSecret:      "webhook.secret",
	EnvVerifyToken: "webhook.verify_token",
	EnvPort:        "server.port",
}

// EnvFile is the dotenv file loaded before the environment is read. Variables
// already set in the process win.
var EnvFile = ".env"

// Load builds the configuration from defaults, the optional .env file, the
// YAML file at path, the plain environment variables, and finally
// WARELAY_* overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	if EnvFile != "" {
		if _, err := os.Stat(EnvFile); err == nil {
			if err := godotenv.Load(EnvFile); err != nil {
				return nil, fmt.Errorf("reading %s: %w", EnvFile, err)
			}
		}
	}

	// Load YAML file if it exists.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// Plain variables: OPENAI_API_KEY -> completion.api_key, etc. Empty
	// values do not clear the file's settings.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		target, ok := plainEnv[key]
		if !ok || value == "" {
			return "", nil
		}
		return target, value
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	// Structured overrides: WARELAY_RELAY__MAX_LENGTH -> relay.max_length.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// Comma-separated env values fill list settings such as allow_senders.
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path. Secrets are
// never written; they belong in the environment.
func (c *Config) Save(path string) error {
	out := *c
	out.Webhook.Secret = ""
	out.Completion.APIKey = ""
	out.Relay.APIKey = ""

	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration can run the relay.
func (c *Config) Validate() error {
	if c.Webhook.Secret == "" {
		return fmt.Errorf("webhook secret is required (set %s)", EnvSecret)
	}
	if c.Completion.APIKey == "" {
		return fmt.Errorf("completion api_key is required (set %s)", EnvOpenAIKey)
	}
	if c.Relay.APIKey == "" {
		return fmt.Errorf("relay api_key is required (set %s)", EnvInteraktKey)
	}
	return c.validateSettings()
}

// ValidateCompletion checks only what a one-off completion needs.
func (c *Config) ValidateCompletion() error {
	if c.Completion.APIKey == "" {
		return fmt.Errorf("completion api_key is required (set %s)", EnvOpenAIKey)
	}
	return c.validateSettings()
}

func (c *Config) validateSettings() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}

	if !strings.HasPrefix(c.Webhook.Path, "/") {
		return fmt.Errorf("webhook path %q must start with /", c.Webhook.Path)
	}
	if c.Webhook.SignatureHeader == "" {
		return fmt.Errorf("webhook signature_header is required")
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		return fmt.Errorf("webhook max_body_bytes must be positive")
	}

	switch c.Completion.API {
	case llm.APIResponses, llm.APIChat:
	default:
		return fmt.Errorf("invalid completion api %q: must be one of responses, chat", c.Completion.API)
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion model is required")
	}
	if c.Completion.Timeout < time.Second || c.Completion.Timeout > time.Minute {
		return fmt.Errorf("completion timeout %s must be between 1s and 60s", c.Completion.Timeout)
	}
	if c.Completion.MaxOutputTokens < 0 || c.Completion.RateLimitPerMinute < 0 {
		return fmt.Errorf("completion max_output_tokens and rate_limit_per_minute must be non-negative")
	}

	if c.Relay.BaseURL == "" {
		return fmt.Errorf("relay base_url is required")
	}
	switch c.Relay.AuthScheme {
	case relay.AuthBearer, relay.AuthBasic:
	default:
		return fmt.Errorf("invalid relay auth_scheme %q: must be one of bearer, basic", c.Relay.AuthScheme)
	}
	if c.Relay.Timeout <= 0 || c.Relay.Timeout > time.Minute {
		return fmt.Errorf("relay timeout %s must be between 0 and 60s", c.Relay.Timeout)
	}
	if _, err := relay.ParseFormat(c.Relay.Format); err != nil {
		return err
	}
	if c.Relay.MaxLength < 0 {
		return fmt.Errorf("relay max_length must be non-negative")
	}
	for _, p := range append(append([]string{}, c.Relay.AllowSenders...), c.Relay.DenySenders...) {
		if err := pipeline.ValidatePattern(p); err != nil {
			return err
		}
	}

	if c.Dispatch.Workers < 1 || c.Dispatch.QueueSize < 1 {
		return fmt.Errorf("dispatch workers and queue_size must be at least 1")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.Log.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path %q must start with /", c.Metrics.Path)
	}

	return nil
}
