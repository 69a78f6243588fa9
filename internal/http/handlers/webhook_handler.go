// Payment webhook handler.
//
// The provider signs the raw body, so the handler reads it untouched and
// passes it on; no JSON binding happens before verification.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-page-restore/internal/http/middleware"
	"github.com/tbourn/go-page-restore/internal/payments"
)

// WebhookResponse reports what happened to a delivery.
type WebhookResponse struct {
	Status string `json:"status" example:"processed" enums:"processed,duplicate,ignored"`
	Event  string `json:"event"  example:"order_created"`
}

// LemonSqueezyWebhook godoc
// @ID          lemonSqueezyWebhook
// @Summary     Payment provider webhook
// @Description Applies order_created (adds credits) and refund_created (removes credits, clamped at zero). Deliveries are applied at most once per order; redeliveries answer "duplicate". Other events are acknowledged as "ignored".
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Signature  header  string  true  "Hex HMAC-SHA256 of the raw body"
//
// @Success     200  {object} handlers.WebhookResponse
// @Failure     400  {object} handlers.ErrorResponse "Malformed event"
// @Failure     401  {object} handlers.ErrorResponse "Bad signature"
// @Failure     404  {object} handlers.ErrorResponse "Unknown user"
// @Router      /webhooks/lemonsqueezy [post]
func (h *Handlers) LemonSqueezyWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable request body")
		return
	}

	ev, outcome, err := h.webhooks.Handle(c.Request.Context(), body, c.GetHeader(payments.SignatureHeader))
	if err != nil {
		failErr(c, err)
		return
	}
	lg := middleware.LoggerFrom(c)
	lg.Info().
		Str("event", ev.Name).
		Str("order_id", ev.OrderID).
		Str("user_id", ev.UserID).
		Int("pages", ev.Pages).
		Bool("test_mode", ev.TestMode).
		Str("outcome", outcome).
		Msg("webhook delivery")
	ok(c, http.StatusOK, WebhookResponse{Status: outcome, Event: ev.Name})
}
