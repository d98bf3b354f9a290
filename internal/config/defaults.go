package config

import "time"

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".warelay.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            10000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 20 * time.Second,
		},
		Webhook: WebhookConfig{
			Path:            "/webhook",
			SignatureHeader: "Interakt-Signature",
			MaxBodyBytes:    1 << 20,
		},
		Completion: CompletionConfig{
			API:             "responses",
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4.1-mini",
			Timeout:         15 * time.Second,
			MaxOutputTokens: 300,
		},
		Reply: ReplyConfig{
			BusinessName:    "Karuvadukadai",
			FallbackOnError: true,
		},
		Relay: RelayConfig{
			BaseURL:    "https://api.interakt.ai/v1/public/message",
			AuthScheme: "bearer",
			Timeout:    10 * time.Second,
			Format:     "whatsapp",
			MaxLength:  4096,
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
