package relay

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/wa-relay/internal/logging"
	"github.com/ziadkadry99/wa-relay/internal/metrics"
)

// DefaultMaxLength is the WhatsApp text body limit in characters.
const DefaultMaxLength = 4096

// Sender delivers one reply. *Client implements it.
type Sender interface {
	Send(ctx context.Context, r OutboundReply) error
}

// Relayer formats replies and hands them to a Sender. It never reports
// failures to its caller; outcomes are logged and counted.
type Relayer struct {
	sender    Sender
	format    Format
	maxLength int
	logger    *slog.Logger
}

// NewRelayer creates a relayer. maxLength <= 0 uses DefaultMaxLength.
func NewRelayer(sender Sender, format Format, maxLength int, logger *slog.Logger) *Relayer {
	if format == "" {
		format = FormatWhatsApp
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relayer{sender: sender, format: format, maxLength: maxLength, logger: logger}
}

// Relay sends text to recipient.
func (r *Relayer) Relay(ctx context.Context, recipient, text string) {
	log := logging.FromContext(ctx, r.logger).With("recipient", recipient)

	body := Truncate(Render(r.format, text), r.maxLength)
	if strings.TrimSpace(recipient) == "" || strings.TrimSpace(body) == "" {
		log.Warn("reply not sent: empty recipient or text")
		metrics.Reply(metrics.ReplyFailed)
		return
	}

	if err := r.sender.Send(ctx, OutboundReply{Recipient: recipient, Text: body}); err != nil {
		log.Error("reply delivery failed", "error", err, "chars", utf8.RuneCountInString(body))
		metrics.Reply(metrics.ReplyFailed)
		return
	}

	log.Info("reply delivered", "chars", utf8.RuneCountInString(body))
	metrics.Reply(metrics.ReplySent)
}
