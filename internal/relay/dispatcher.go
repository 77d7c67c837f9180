// Package relay contains the webhook dispatcher: the orchestration core
// that turns one inbound Cloud API event into zero or more generated
// replies delivered back to their senders.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"warelay/internal/domain"
	"warelay/internal/metrics"
	"warelay/internal/whatsapp"
)

const defaultCallTimeout = 30 * time.Second

// Dispatcher coordinates completion and delivery for inbound events. It
// holds no mutable state across calls; distinct webhook requests may be
// processed concurrently by the transport layer.
type Dispatcher struct {
	completer   domain.Completer
	sender      domain.Sender
	logger      *slog.Logger
	callTimeout time.Duration
}

type DispatcherConfig struct {
	Completer   domain.Completer
	Sender      domain.Sender
	Logger      *slog.Logger
	CallTimeout time.Duration // bound per outbound call (provider, delivery)
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Dispatcher{
		completer:   cfg.Completer,
		sender:      cfg.Sender,
		logger:      cfg.Logger,
		callTimeout: cfg.CallTimeout,
	}
}

// Process handles one webhook event. Messages are processed sequentially to
// preserve platform delivery order; a failure in one message's pipeline is
// logged and does not abort its siblings. The only error returned is
// *PayloadError for a body missing the required top-level shape.
func (d *Dispatcher) Process(ctx context.Context, event whatsapp.Event) error {
	metrics.WebhookEventsTotal.Inc()

	if event.Object == "" {
		return &PayloadError{Reason: "missing object discriminator"}
	}

	log := d.logger.With("event_id", uuid.NewString())

	if event.Object != whatsapp.BusinessAccountObject {
		// Status and delivery events arrive with other discriminators;
		// dropping them silently is expected behavior, not an error.
		log.Info("ignoring event with unrecognized object", "object", event.Object)
		return nil
	}

	for _, msg := range textMessages(event) {
		d.handleMessage(ctx, log, msg)
	}

	return nil
}

// textMessages flattens entry → changes → value.messages into an ordered
// slice of text messages. Other message types are counted and dropped here,
// before any provider or delivery work.
func textMessages(event whatsapp.Event) []whatsapp.Message {
	var msgs []whatsapp.Message
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" {
					metrics.MessagesSkippedTotal.Inc()
					continue
				}
				msgs = append(msgs, msg)
			}
		}
	}
	return msgs
}

// handleMessage runs one message through completion and delivery. Both
// faults are deliberately swallowed here: the provider already degrades to
// a fallback reply, and a failed send must not block the webhook ack — the
// platform's retry policy is not ours to trigger.
func (d *Dispatcher) handleMessage(ctx context.Context, log *slog.Logger, msg whatsapp.Message) {
	if msg.Text == nil {
		log.Warn("text message without body, skipping", "message_id", msg.ID, "from", msg.From)
		return
	}

	sender := msg.From
	text := msg.Text.Body

	log.Info("message received", "message_id", msg.ID, "from", sender, "text_len", len(text))

	genCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	reply := d.completer.Generate(genCtx, text, sender)
	cancel()

	sendCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	err := d.sender.SendText(sendCtx, sender, reply)
	cancel()
	if err != nil {
		log.Error("delivery failed", "message_id", msg.ID, "to", sender, "err", err)
		return
	}

	metrics.MessagesProcessedTotal.Inc()
}
