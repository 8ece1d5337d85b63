// Package services defines the bot's business logic: event dispatch, meal
// estimation, conversation, and the log store gateway. This file centralizes
// the stage errors every handler wraps its causes in, and the per-event-kind
// failure policy the dispatcher applies to them.
//
// Stage errors wrap the underlying cause, so callers can test the stage with
// errors.Is(err, ErrModel) and still log the original error text.
package services

import (
	"errors"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// Stage errors.
var (
	// ErrFetchContent indicates the image bytes could not be downloaded from
	// the messaging platform.
	ErrFetchContent = errors.New("fetch message content")

	// ErrModel indicates the generative model call failed.
	ErrModel = errors.New("model request")

	// ErrParse indicates the model answered with something that is not a
	// usable JSON estimation.
	ErrParse = errors.New("parse estimation")

	// ErrStore indicates a log store round-trip failed.
	ErrStore = errors.New("log store")

	// ErrReply indicates the outbound reply could not be sent.
	ErrReply = errors.New("send reply")
)

// FailurePolicy is what the dispatcher does when an event handler fails.
type FailurePolicy int

const (
	// PolicyDrop logs the failure and sends nothing.
	PolicyDrop FailurePolicy = iota
	// PolicyApologize sends the fixed apology through the event's reply token.
	PolicyApologize
)

func (p FailurePolicy) String() string {
	switch p {
	case PolicyApologize:
		return "apologize"
	default:
		return "drop"
	}
}

// PolicyFor returns the failure policy of an event kind. Only meal photos
// get an apology; text and follow failures stay silent.
func PolicyFor(kind domain.EventKind) FailurePolicy {
	if kind == domain.EventImage {
		return PolicyApologize
	}
	return PolicyDrop
}
