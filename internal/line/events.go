// Package line adapts the LINE Messaging platform: webhook signature checks,
// decoding webhook payloads into domain.InboundEvent values, and the outbound
// messaging client (reply, profile, loading indicator, message content).
package line

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the request body.
const SignatureHeader = "X-Line-Signature"

// ErrInvalidSignature is returned when the signature is missing or does not
// match the body.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks signature against the HMAC-SHA256 of body keyed by
// the channel secret.
func VerifySignature(channelSecret, signature string, body []byte) error {
	if signature == "" || channelSecret == "" {
		return ErrInvalidSignature
	}
	if !webhook.ValidateSignature(channelSecret, signature, body) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseEvents decodes a verified webhook body. Events without a user id
// (e.g. group events from users who have not consented) are dropped.
func ParseEvents(body []byte) ([]domain.InboundEvent, error) {
	var req webhook.CallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	out := make([]domain.InboundEvent, 0, len(req.Events))
	for _, e := range req.Events {
		ev, ok := toInbound(e)
		if !ok || ev.UserID == "" {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func toInbound(e webhook.EventInterface) (domain.InboundEvent, bool) {
	switch e := e.(type) {
	case webhook.MessageEvent:
		ev := domain.InboundEvent{
			Kind:       domain.EventOther,
			EventID:    e.WebhookEventId,
			Redelivery: e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery,
			ReplyToken: e.ReplyToken,
		}
		ev.UserID, ev.ChatID = source(e.Source)
		switch m := e.Message.(type) {
		case webhook.ImageMessageContent:
			ev.Kind = domain.EventImage
			ev.MessageID = m.Id
		case webhook.TextMessageContent:
			ev.Kind = domain.EventText
			ev.MessageID = m.Id
			ev.Text = m.Text
		}
		return ev, true

	case webhook.FollowEvent:
		ev := domain.InboundEvent{
			Kind:       domain.EventFollow,
			EventID:    e.WebhookEventId,
			Redelivery: e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery,
			ReplyToken: e.ReplyToken,
		}
		ev.UserID, ev.ChatID = source(e.Source)
		return ev, true
	}
	return domain.InboundEvent{}, false
}

// source returns the sender's user id and, for 1:1 chats only, the chat id
// used by the loading indicator.
func source(s webhook.SourceInterface) (userID, chatID string) {
	switch s := s.(type) {
	case webhook.UserSource:
		return s.UserId, s.UserId
	case webhook.GroupSource:
		return s.UserId, ""
	case webhook.RoomSource:
		return s.UserId, ""
	}
	return "", ""
}
