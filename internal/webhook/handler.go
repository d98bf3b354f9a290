// Package webhook serves the provider-facing endpoint: it authenticates the
// request, extracts the message, and queues the reply work.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/wa-relay/internal/envelope"
	"github.com/ziadkadry99/wa-relay/internal/logging"
	"github.com/ziadkadry99/wa-relay/internal/metrics"
	"github.com/ziadkadry99/wa-relay/internal/pipeline"
	"github.com/ziadkadry99/wa-relay/internal/signature"
)

// Defaults for Config fields left empty.
const (
	DefaultPath            = "/webhook"
	DefaultSignatureHeader = "Interakt-Signature"
	DefaultMaxBodyBytes    = 1 << 20
)

// Processor routes and handles extracted messages. *pipeline.Processor
// implements it.
type Processor interface {
	Classify(msg envelope.InboundMessage) pipeline.Decision
	Handle(ctx context.Context, msg envelope.InboundMessage)
}

// Submitter queues background work without blocking. *dispatch.Dispatcher
// implements it.
type Submitter interface {
	Submit(name string, run func(ctx context.Context)) (string, error)
}

// Config configures the webhook endpoint.
type Config struct {
	Path            string
	Secret          []byte
	SignatureHeader string
	// VerifyToken enables the GET subscription handshake when set.
	VerifyToken  string
	MaxBodyBytes int64
	// Extract parses verified bodies. Nil uses envelope.Extract.
	Extract func(body []byte) (envelope.InboundMessage, error)
}

// Handler serves the webhook endpoint.
type Handler struct {
	cfg    Config
	proc   Processor
	jobs   Submitter
	logger *slog.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(cfg Config, proc Processor, jobs Submitter, logger *slog.Logger) *Handler {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = DefaultSignatureHeader
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Extract == nil {
		cfg.Extract = envelope.Extract
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, proc: proc, jobs: jobs, logger: logger}
}

// RegisterRoutes mounts the webhook endpoints on the given router.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post(h.cfg.Path, h.HandleEvent)
	r.Get(h.cfg.Path, h.HandleVerification)
}

// HandleEvent handles a provider callback (HTTP POST). Once the signature is
// accepted the response is always 200.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), h.logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("webhook body too large", "limit", h.cfg.MaxBodyBytes)
			metrics.Webhook(metrics.WebhookTooLarge)
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	defer r.Body.Close()

	if !signature.Verify(h.cfg.Secret, body, r.Header.Get(h.cfg.SignatureHeader)) {
		log.Warn("webhook signature rejected", "remote", r.RemoteAddr, "header_present", r.Header.Get(h.cfg.SignatureHeader) != "")
		metrics.Webhook(metrics.WebhookUnauthorized)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid signature"})
		return
	}

	msg, err := h.cfg.Extract(body)
	if err != nil {
		if errors.Is(err, envelope.ErrMalformed) {
			log.Warn("webhook body is not valid JSON", "error", err, "bytes", len(body))
		} else {
			log.Debug("webhook carries no actionable message", "bytes", len(body))
		}
		h.ignored(w)
		return
	}

	log = log.With("sender", msg.SenderID, "message_id", msg.MessageID, "source", msg.Source)
	decision := h.proc.Classify(msg)
	if decision == pipeline.Ignore {
		log.Info("message ignored", "type", msg.RawType)
		h.ignored(w)
		return
	}

	jobID, err := h.jobs.Submit(decision.String(), func(ctx context.Context) {
		h.proc.Handle(ctx, msg)
	})
	if err != nil {
		log.Error("reply dropped", "error", err)
		metrics.Webhook(metrics.WebhookDropped)
	} else {
		log.Info("reply queued", "job_id", jobID, "decision", decision.String(), "chars", len([]rune(msg.Text)))
		metrics.Webhook(metrics.WebhookAccepted)
	}

	if decision == pipeline.Courtesy {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ignored(w http.ResponseWriter) {
	metrics.Webhook(metrics.WebhookIgnored)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
}

// HandleVerification answers the subscription handshake (HTTP GET) by echoing
// hub.challenge when hub.verify_token matches.
func (h *Handler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("hub.verify_token")

	if h.cfg.VerifyToken == "" ||
		q.Get("hub.mode") != "subscribe" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.VerifyToken)) != 1 {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "verification failed"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, q.Get("hub.challenge"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
