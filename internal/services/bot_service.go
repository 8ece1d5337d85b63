// Package services – BotService
//
// This file implements BotService, which owns the handling of verified
// webhook events: meal photos are estimated by the model, logged, and
// answered with the running daily total; text messages get a persona reply;
// follow events register the user.
//
// Each event is handled in isolation. A failure (or panic) in one handler is
// logged and resolved by the event kind's FailurePolicy, and never reaches
// sibling events or the HTTP response.
//
// Observability: Dispatch and the per-kind handlers are OpenTelemetry spans;
// outcomes and model latency are exported as Prometheus metrics.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-calorie-bot/internal/domain"
	"github.com/tbourn/go-calorie-bot/internal/llm"
)

// Generator produces text from a prompt, optionally with an image.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Messenger is the outbound surface of the messaging platform.
type Messenger interface {
	// MessageContent downloads the binary payload of a message and its MIME type.
	MessageContent(ctx context.Context, messageID string) ([]byte, string, error)
	ShowLoading(ctx context.Context, chatID string, seconds int) error
	DisplayName(ctx context.Context, userID string) (string, error)
	Reply(ctx context.Context, replyToken string, texts ...string) error
}

// BotService handles inbound events end to end.
type BotService struct {
	Gateway   *LogGateway
	Model     Generator
	Messenger Messenger

	// LoadingSeconds is the loading indicator duration for 1:1 chats; 0 disables it.
	LoadingSeconds int

	// EventTimeout bounds the handling of one event, including the wait for
	// the model rate limiter; 0 means DefaultEventTimeout.
	EventTimeout time.Duration

	// Now is the clock used for daily totals; nil means time.Now.
	Now func() time.Time
}

// DefaultEventTimeout keeps one event well inside the reply token lifetime.
const DefaultEventTimeout = 45 * time.Second

func (s *BotService) eventTimeout() time.Duration {
	if s.EventTimeout > 0 {
		return s.EventTimeout
	}
	return DefaultEventTimeout
}

func (s *BotService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Dispatch handles every event in order. It never fails: errors are logged
// and resolved per event. Outbound calls run on a context detached from the
// caller's cancellation so a dropped webhook connection does not abort
// half-processed events; each event gets its own EventTimeout deadline
// instead.
func (s *BotService) Dispatch(ctx context.Context, events []domain.InboundEvent) {
	ctx = context.WithoutCancel(ctx)
	tr := otel.Tracer("services/BotService")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(attribute.Int("events.count", len(events))),
	)
	defer span.End()

	for _, ev := range events {
		s.dispatchOne(ctx, ev)
	}
}

func (s *BotService) dispatchOne(ctx context.Context, ev domain.InboundEvent) {
	lg := zerolog.Ctx(ctx).With().
		Str("event_id", ev.EventID).
		Str("kind", string(ev.Kind)).
		Bool("redelivery", ev.Redelivery).
		Logger()
	ctx = lg.WithContext(ctx)

	if ev.Kind == domain.EventOther {
		lg.Debug().Msg("ignoring unsupported event")
		eventsTotal.WithLabelValues(string(ev.Kind), outcomeIgnored).Inc()
		return
	}

	hctx, cancel := context.WithTimeout(ctx, s.eventTimeout())
	err := s.safeHandle(hctx, ev)
	cancel()
	if err == nil {
		eventsTotal.WithLabelValues(string(ev.Kind), outcomeOK).Inc()
		return
	}

	policy := PolicyFor(ev.Kind)
	lg.Error().Err(err).Str("policy", policy.String()).Msg("event handling failed")

	// A failed reply already consumed (or lost) the reply token. The apology
	// runs on the event's parent context so an expired deadline can still
	// be answered.
	if policy == PolicyApologize && ev.ReplyToken != "" && !errors.Is(err, ErrReply) {
		if rerr := s.Messenger.Reply(ctx, ev.ReplyToken, Apology); rerr != nil {
			lg.Error().Err(rerr).Msg("apology reply failed")
		}
		eventsTotal.WithLabelValues(string(ev.Kind), outcomeApologized).Inc()
		return
	}
	eventsTotal.WithLabelValues(string(ev.Kind), outcomeDropped).Inc()
}

// safeHandle routes one event and converts a handler panic into an error.
func (s *BotService) safeHandle(ctx context.Context, ev domain.InboundEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	switch ev.Kind {
	case domain.EventImage:
		return s.HandleImage(ctx, ev)
	case domain.EventText:
		return s.HandleText(ctx, ev)
	case domain.EventFollow:
		return s.HandleFollow(ctx, ev)
	}
	return nil
}

// HandleImage estimates the meal in a photo, logs it, and replies with the
// estimation and today's running total. The meal row is written only after
// the model's answer parsed.
func (s *BotService) HandleImage(ctx context.Context, ev domain.InboundEvent) (err error) {
	ctx, span := otel.Tracer("services/BotService").Start(ctx, "HandleImage",
		trace.WithAttributes(attribute.String("message.id", ev.MessageID)),
	)
	defer endSpan(span, &err)

	if ev.ChatID != "" && s.LoadingSeconds > 0 {
		if lerr := s.Messenger.ShowLoading(ctx, ev.ChatID, s.LoadingSeconds); lerr != nil {
			zerolog.Ctx(ctx).Debug().Err(lerr).Msg("loading indicator failed")
		}
	}

	if err := s.Gateway.EnsureUser(ctx, ev.UserID, s.Messenger.DisplayName); err != nil {
		return err
	}

	img, mime, err := s.Messenger.MessageContent(ctx, ev.MessageID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchContent, err)
	}

	raw, err := s.generate(ctx, "json", llm.Request{
		Prompt:    estimationPrompt,
		Image:     img,
		ImageMIME: mime,
		JSON:      true,
	})
	if err != nil {
		return err
	}

	est, err := ParseEstimation(raw)
	if err != nil {
		return err
	}

	if err := s.Gateway.RecordMeal(ctx, ev.UserID, est.FoodName, est.Calorie); err != nil {
		return err
	}
	total, err := s.Gateway.DailyTotal(ctx, ev.UserID, DayStart(s.now()))
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("food_name", est.FoodName).
		Int("calorie", est.Calorie).
		Int("daily_total", total).
		Msg("meal logged")

	if err := s.Messenger.Reply(ctx, ev.ReplyToken, ComposeMealReply(est, total)); err != nil {
		return fmt.Errorf("%w: %w", ErrReply, err)
	}
	return nil
}

// HandleText answers a text message in the persona voice, addressing the
// user by their stored name. The model's text is sent verbatim.
func (s *BotService) HandleText(ctx context.Context, ev domain.InboundEvent) (err error) {
	ctx, span := otel.Tracer("services/BotService").Start(ctx, "HandleText")
	defer endSpan(span, &err)

	if err := s.Gateway.EnsureUser(ctx, ev.UserID, s.Messenger.DisplayName); err != nil {
		return err
	}

	name, nerr := s.Gateway.UserDisplayName(ctx, ev.UserID)
	if nerr != nil {
		zerolog.Ctx(ctx).Warn().Err(nerr).Msg("display name lookup failed")
	}

	reply, err := s.generate(ctx, "text", llm.Request{Prompt: buildConversationPrompt(name, ev.Text)})
	if err != nil {
		return err
	}
	if err := s.Messenger.Reply(ctx, ev.ReplyToken, reply); err != nil {
		return fmt.Errorf("%w: %w", ErrReply, err)
	}
	return nil
}

// HandleFollow registers a user who added the bot as a friend.
func (s *BotService) HandleFollow(ctx context.Context, ev domain.InboundEvent) (err error) {
	ctx, span := otel.Tracer("services/BotService").Start(ctx, "HandleFollow")
	defer endSpan(span, &err)

	return s.Gateway.EnsureUser(ctx, ev.UserID, s.Messenger.DisplayName)
}

// generate calls the model, wrapping failures in ErrModel and recording latency.
func (s *BotService) generate(ctx context.Context, mode string, req llm.Request) (string, error) {
	start := time.Now()
	out, err := s.Model.Generate(ctx, req)
	modelLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrModel, err)
	}
	return out, nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
