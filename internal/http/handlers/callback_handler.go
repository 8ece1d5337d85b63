package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-calorie-bot/internal/domain"
	"github.com/tbourn/go-calorie-bot/internal/line"
)

// LivenessText is the body of GET /.
const LivenessText = "calorie bot is running"

// Dispatcher handles verified webhook events. It must not fail: outcomes of
// individual events are its own concern.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []domain.InboundEvent)
}

// Handlers groups the webhook handlers and their dependencies.
type Handlers struct {
	channelSecret string
	bot           Dispatcher
}

// New returns handlers verifying deliveries with channelSecret and handing
// events to bot.
func New(channelSecret string, bot Dispatcher) *Handlers {
	return &Handlers{channelSecret: channelSecret, bot: bot}
}

// Callback receives a LINE webhook delivery.
//
//   - 400 invalid_signature when X-Line-Signature does not match the body;
//     nothing is dispatched.
//   - 413 payload_too_large when the body exceeds the router's cap.
//   - 400 bad_request when a correctly signed body is not a webhook payload.
//   - 200 "OK" otherwise, whatever the outcome of individual events.
func (h *Handlers) Callback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read request body")
		return
	}

	if err := line.VerifySignature(h.channelSecret, c.GetHeader(line.SignatureHeader), body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidSignature, "signature verification failed")
		return
	}

	events, err := line.ParseEvents(body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed webhook payload")
		return
	}

	if len(events) > 0 {
		h.bot.Dispatch(c.Request.Context(), events)
	}
	c.String(http.StatusOK, "OK")
}

// Root is the static liveness route.
func (h *Handlers) Root(c *gin.Context) {
	c.String(http.StatusOK, LivenessText)
}

// Health reports process health for probes.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
