package config

import "time"

// Config is the top-level warelay configuration, corresponding to .warelay.yml.
type Config struct {
	Server     ServerConfig     `yaml:"server" koanf:"server"`
	Webhook    WebhookConfig    `yaml:"webhook" koanf:"webhook"`
	Completion CompletionConfig `yaml:"completion" koanf:"completion"`
	Reply      ReplyConfig      `yaml:"reply" koanf:"reply"`
	Relay      RelayConfig      `yaml:"relay" koanf:"relay"`
	Dispatch   DispatchConfig   `yaml:"dispatch" koanf:"dispatch"`
	Log        LogConfig        `yaml:"log" koanf:"log"`
	Metrics    MetricsConfig    `yaml:"metrics" koanf:"metrics"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port" koanf:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" koanf:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" koanf:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty" koanf:"cors_origins"`
}

// WebhookConfig holds inbound webhook settings. Secret is normally supplied
// through WEBHOOK_SECRET.
type WebhookConfig struct {
	Path            string `yaml:"path" koanf:"path"`
	Secret          string `yaml:"secret,omitempty" koanf:"secret"`
	SignatureHeader string `yaml:"signature_header" koanf:"signature_header"`
	VerifyToken     string `yaml:"verify_token,omitempty" koanf:"verify_token"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes" koanf:"max_body_bytes"`
}

// CompletionConfig selects and tunes the completion service.
type CompletionConfig struct {
	API                string        `yaml:"api" koanf:"api"`
	BaseURL            string        `yaml:"base_url" koanf:"base_url"`
	APIKey             string        `yaml:"api_key,omitempty" koanf:"api_key"`
	Model              string        `yaml:"model" koanf:"model"`
	Timeout            time.Duration `yaml:"timeout" koanf:"timeout"`
	MaxOutputTokens    int           `yaml:"max_output_tokens" koanf:"max_output_tokens"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" koanf:"rate_limit_per_minute"`
}

// ReplyConfig shapes what customers are told.
type ReplyConfig struct {
	BusinessName    string `yaml:"business_name" koanf:"business_name"`
	Persona         string `yaml:"persona,omitempty" koanf:"persona"`
	Fallback        string `yaml:"fallback,omitempty" koanf:"fallback"`
	FallbackOnError bool   `yaml:"fallback_on_error" koanf:"fallback_on_error"`
}

// RelayConfig holds the provider's outbound API settings.
type RelayConfig struct {
	BaseURL      string        `yaml:"base_url" koanf:"base_url"`
	APIKey       string        `yaml:"api_key,omitempty" koanf:"api_key"`
	AuthScheme   string        `yaml:"auth_scheme" koanf:"auth_scheme"`
	Timeout      time.Duration `yaml:"timeout" koanf:"timeout"`
	Format       string        `yaml:"format" koanf:"format"`
	MaxLength    int           `yaml:"max_length" koanf:"max_length"`
	NonTextReply string        `yaml:"non_text_reply,omitempty" koanf:"non_text_reply"`
	AllowSenders []string      `yaml:"allow_senders,omitempty" koanf:"allow_senders"`
	DenySenders  []string      `yaml:"deny_senders,omitempty" koanf:"deny_senders"`
}

// DispatchConfig sizes the background worker pool.
type DispatchConfig struct {
	Workers   int `yaml:"workers" koanf:"workers"`
	QueueSize int `yaml:"queue_size" koanf:"queue_size"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Path    string `yaml:"path" koanf:"path"`
}

// JobTimeout bounds one generate-and-relay job.
func (c *Config) JobTimeout() time.Duration {
	return c.Completion.Timeout + c.Relay.Timeout
}
