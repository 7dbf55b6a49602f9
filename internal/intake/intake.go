// Package intake receives WAHA webhook deliveries and runs each inbound
// message through the answer pipeline. The webhook handler must answer the
// gateway fast, so accepted messages are processed on background goroutines
// behind a bounded gate; when the gate is full the delivery is rejected
// rather than queued without limit.
//
// Redeliveries are dropped through the message-id dedup store before any
// slot is taken. Work for one conversation is serialized through the
// session store's per-key lock, so turn order holds per user while
// different users proceed in parallel.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/varejolabs/salesbot/internal/messenger"
	"github.com/varejolabs/salesbot/internal/observability"
	"github.com/varejolabs/salesbot/internal/session"
	"github.com/varejolabs/salesbot/internal/utils"
)

var (
	// ErrBusy indicates the in-flight cap is reached and the delivery was
	// rejected. The gateway will redeliver.
	ErrBusy = errors.New("intake: too many messages in flight")

	// ErrDuplicate indicates this message id was already processed.
	ErrDuplicate = errors.New("intake: duplicate message")
)

// WebhookEvent is the envelope WAHA posts to the webhook endpoint.
type WebhookEvent struct {
	ID      string         `json:"id"`
	Event   string         `json:"event"`
	Session string         `json:"session"`
	Payload MessagePayload `json:"payload"`
}

// MessagePayload is the message carried by a "message" event.
type MessagePayload struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	FromMe     bool   `json:"fromMe"`
	Body       string `json:"body"`
	HasMedia   bool   `json:"hasMedia"`
	Media      *Media `json:"media,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// Media describes an attachment on a media message.
type Media struct {
	Mimetype string `json:"mimetype"`
	Filename string `json:"filename,omitempty"`
}

// Answerer produces the reply for one question.
type Answerer interface {
	Answer(ctx context.Context, contextText, question string) string
}

// Deduper is the processed-message store.
type Deduper interface {
	MarkProcessed(ctx context.Context, messageID, conversationID string, now time.Time) (bool, error)
}

// Processor handles webhook events end to end.
type Processor struct {
	sessions *session.Store
	dedupe   Deduper
	answerer Answerer
	sender   messenger.Sender

	gate    chan struct{}
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewProcessor builds a Processor. maxInflight caps concurrent message
// processing; timeout bounds the full pipeline run for one message.
func NewProcessor(sessions *session.Store, dedupe Deduper, answerer Answerer, sender messenger.Sender, maxInflight int, timeout time.Duration) *Processor {
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &Processor{
		sessions: sessions,
		dedupe:   dedupe,
		answerer: answerer,
		sender:   sender,
		gate:     make(chan struct{}, maxInflight),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Process validates and admits one webhook event. Non-message events, own
// messages, and empty bodies are ignored without error. Accepted messages
// are handled on a background goroutine; Process returns as soon as the
// message holds a slot.
func (p *Processor) Process(ctx context.Context, ev WebhookEvent) error {
	if ev.Event != "message" || ev.Payload.FromMe {
		observability.CountIntake("ignored")
		return nil
	}
	text, ok := extractText(ev.Payload)
	if !ok {
		observability.CountIntake("ignored")
		return nil
	}

	first, err := p.dedupe.MarkProcessed(ctx, ev.Payload.ID, ev.Payload.From, p.now())
	if err != nil {
		// A broken dedup store must not make the bot mute. Process anyway
		// and accept the small chance of a doubled reply.
		log.Warn().Err(err).Str("message_id", ev.Payload.ID).Msg("dedup store unavailable")
	} else if !first {
		observability.CountIntake("duplicate")
		return ErrDuplicate
	}

	select {
	case p.gate <- struct{}{}:
	default:
		observability.CountIntake("rejected")
		return ErrBusy
	}

	observability.CountIntake("accepted")
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.gate }()
		p.handle(ev.Payload.From, text)
	}()
	return nil
}

// Wait blocks until all in-flight messages finish. Called on shutdown.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// handle runs the pipeline for one admitted message. It deliberately uses a
// fresh context: the webhook request is long gone by the time this runs.
func (p *Processor) handle(conversationID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	unlock := p.sessions.Acquire(conversationID)
	defer unlock()

	p.sessions.RecordMessage(conversationID, text)
	contextText := p.sessions.RenderContext(conversationID)

	reply := p.answerer.Answer(ctx, contextText, text)

	if err := p.sender.SendText(ctx, conversationID, reply); err != nil {
		// Never retried: a second attempt risks the user seeing the reply twice.
		log.Error().Err(err).Str("conversation_id", utils.MaskConversationID(conversationID)).Msg("reply delivery failed")
	}
	p.sessions.RecordReply(conversationID, reply)
}

// extractText pulls the question text out of a message payload. Media and
// voice messages become bracketed placeholders so the classifier still sees
// what kind of message arrived.
func extractText(m MessagePayload) (string, bool) {
	if m.Transcript != "" {
		return fmt.Sprintf("[voice message] %s", strings.TrimSpace(m.Transcript)), true
	}
	if m.HasMedia {
		kind := "media"
		if m.Media != nil {
			switch {
			case strings.HasPrefix(m.Media.Mimetype, "audio/"):
				kind = "voice message"
			case strings.HasPrefix(m.Media.Mimetype, "image/"):
				kind = "image"
			case strings.HasPrefix(m.Media.Mimetype, "video/"):
				kind = "video"
			}
		}
		caption := strings.TrimSpace(m.Body)
		if caption == "" {
			return fmt.Sprintf("[%s]", kind), true
		}
		return fmt.Sprintf("[%s] %s", kind, caption), true
	}

	body := strings.TrimSpace(m.Body)
	if body == "" {
		return "", false
	}
	return body, true
}
