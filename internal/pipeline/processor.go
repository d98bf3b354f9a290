// Package pipeline decides what to do with an inbound message and runs the
// generate-then-relay step for the messages that get a reply.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/wa-relay/internal/envelope"
	"github.com/ziadkadry99/wa-relay/internal/logging"
	"github.com/ziadkadry99/wa-relay/internal/metrics"
	"github.com/ziadkadry99/wa-relay/internal/reply"
)

// Generator produces reply text. *reply.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
	Fallback() string
}

// Relayer delivers text to a recipient and never fails. *relay.Relayer
// implements it.
type Relayer interface {
	Relay(ctx context.Context, recipient, text string)
}

// Decision is the routing outcome for one inbound message.
type Decision int

const (
	// Ignore takes no further action.
	Ignore Decision = iota
	// Reply generates an answer and relays it.
	Reply
	// Courtesy relays the fixed non-text notice without generation.
	Courtesy
)

func (d Decision) String() string {
	switch d {
	case Reply:
		return "reply"
	case Courtesy:
		return "courtesy"
	default:
		return "ignore"
	}
}

// Options tune the processor.
type Options struct {
	// FallbackOnError relays the generator's fallback text when generation
	// fails. When false nothing is sent.
	FallbackOnError bool
	// NonTextReply is sent to senders of non-text messages. Empty disables it.
	NonTextReply string
}

// Processor routes inbound messages to the generator and relayer.
type Processor struct {
	gen    Generator
	relay  Relayer
	policy *SenderPolicy
	opts   Options
	logger *slog.Logger
}

// New creates a processor. A nil policy allows every sender.
func New(gen Generator, relay Relayer, policy *SenderPolicy, opts Options, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{gen: gen, relay: relay, policy: policy, opts: opts, logger: logger}
}

// Classify decides how msg is handled. It does no I/O.
func (p *Processor) Classify(msg envelope.InboundMessage) Decision {
	if msg.SenderID == "" || !p.policy.Allowed(msg.SenderID) {
		return Ignore
	}
	if msg.IsText() {
		return Reply
	}
	if strings.TrimSpace(p.opts.NonTextReply) != "" {
		return Courtesy
	}
	return Ignore
}

// Handle runs the work for msg: generation then relay for text, the courtesy
// notice for non-text. It blocks until the relay attempt finishes.
func (p *Processor) Handle(ctx context.Context, msg envelope.InboundMessage) {
	log := logging.FromContext(ctx, p.logger).With("message_id", msg.MessageID, "source", msg.Source)

	switch p.Classify(msg) {
	case Reply:
		p.answer(ctx, log, msg)
	case Courtesy:
		log.Info("non-text message, sending notice", "type", msg.RawType)
		p.relay.Relay(ctx, msg.SenderID, p.opts.NonTextReply)
	default:
		log.Debug("message ignored", "type", msg.RawType)
	}
}

func (p *Processor) answer(ctx context.Context, log *slog.Logger, msg envelope.InboundMessage) {
	text, err := p.gen.Generate(ctx, msg.Text)
	if err == nil {
		p.relay.Relay(ctx, msg.SenderID, text)
		return
	}

	var ue *reply.UpstreamError
	timeout := errors.As(err, &ue) && ue.Timeout()
	if !p.opts.FallbackOnError {
		log.Warn("reply generation failed, nothing sent", "error", err, "timeout", timeout)
		metrics.Reply(metrics.ReplySkipped)
		return
	}

	log.Warn("reply generation failed, sending fallback", "error", err, "timeout", timeout)
	metrics.Reply(metrics.ReplyFallback)
	p.relay.Relay(ctx, msg.SenderID, p.gen.Fallback())
}
