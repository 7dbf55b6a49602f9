package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/varejolabs/salesbot/internal/http/middleware"
	"github.com/varejolabs/salesbot/internal/intake"
)

// EventProcessor admits one webhook event into the pipeline.
type EventProcessor interface {
	Process(ctx context.Context, ev intake.WebhookEvent) error
}

// WebhookHandler receives WAHA event deliveries.
type WebhookHandler struct {
	Processor EventProcessor
}

// Receive godoc
// @ID          receiveWebhook
// @Summary     Receive a WAHA webhook event
// @Description Accepts a gateway event, admits message events into the answer pipeline, and returns immediately. Duplicates are acknowledged so the gateway stops redelivering.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       body  body  intake.WebhookEvent  true  "Webhook event"
//
// @Success     200  {object}  map[string]string
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed payload"
// @Failure     429  {object}  handlers.ErrorResponse  "In-flight cap reached"
// @Router      /webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	var ev intake.WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed webhook payload")
		return
	}

	err := h.Processor.Process(c.Request.Context(), ev)
	switch {
	case err == nil:
		ok(c, http.StatusOK, gin.H{"status": "accepted"})
	case errors.Is(err, intake.ErrDuplicate):
		// Acknowledged so the gateway stops redelivering.
		ok(c, http.StatusOK, gin.H{"status": "duplicate"})
	case errors.Is(err, intake.ErrBusy):
		c.Header("Retry-After", "1")
		fail(c, http.StatusTooManyRequests, ErrCodeBusy, "too many messages in flight")
	default:
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Msg("webhook intake failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not accept event")
	}
}
