package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// LogStore is the persistence backend behind the gateway. It is implemented
// by repo.Store (gorm: sqlite/postgres) and supabase.Client (PostgREST).
type LogStore interface {
	// FindUser returns (nil, nil) when the user does not exist.
	FindUser(ctx context.Context, userID string) (*domain.User, error)
	// InsertUserIfAbsent reports whether a row was created.
	InsertUserIfAbsent(ctx context.Context, u *domain.User) (bool, error)
	InsertFoodLog(ctx context.Context, userID, foodName string, calorie int) error
	SumCaloriesSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// NameFetcher looks up a user's display name on the messaging platform.
type NameFetcher func(ctx context.Context, userID string) (string, error)

// LogGateway registers users, records meals and computes daily totals.
// Every call is a direct store round-trip; nothing is cached.
type LogGateway struct {
	Store LogStore
}

// EnsureUser creates the user row on first contact. The existence check
// keeps the profile lookup off the hot path; the insert itself is
// insert-if-absent, so concurrent first contacts still yield one row.
// A failed name lookup degrades to GuestName.
func (g *LogGateway) EnsureUser(ctx context.Context, userID string, fetchName NameFetcher) error {
	u, err := g.Store.FindUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: find user: %w", ErrStore, err)
	}
	if u != nil {
		return nil
	}

	name := GuestName
	if fetchName != nil {
		n, ferr := fetchName(ctx, userID)
		switch {
		case ferr != nil:
			zerolog.Ctx(ctx).Warn().Err(ferr).Msg("profile lookup failed, storing guest name")
		case strings.TrimSpace(n) != "":
			name = n
		}
	}

	created, err := g.Store.InsertUserIfAbsent(ctx, &domain.User{UserID: userID, UserName: name})
	if err != nil {
		return fmt.Errorf("%w: insert user: %w", ErrStore, err)
	}
	if created {
		zerolog.Ctx(ctx).Info().Msg("registered new user")
	}
	return nil
}

// RecordMeal inserts one food log row. The store assigns the timestamp.
func (g *LogGateway) RecordMeal(ctx context.Context, userID, foodName string, calorie int) error {
	if err := g.Store.InsertFoodLog(ctx, userID, foodName, calorie); err != nil {
		return fmt.Errorf("%w: insert food log: %w", ErrStore, err)
	}
	return nil
}

// DailyTotal sums the user's calories logged at or after dayStart.
func (g *LogGateway) DailyTotal(ctx context.Context, userID string, dayStart time.Time) (int, error) {
	total, err := g.Store.SumCaloriesSince(ctx, userID, dayStart)
	if err != nil {
		return 0, fmt.Errorf("%w: daily total: %w", ErrStore, err)
	}
	return total, nil
}

// UserDisplayName returns the stored name, or FallbackDisplayName when the
// row is missing or the name is blank.
func (g *LogGateway) UserDisplayName(ctx context.Context, userID string) (string, error) {
	u, err := g.Store.FindUser(ctx, userID)
	if err != nil {
		return FallbackDisplayName, fmt.Errorf("%w: find user: %w", ErrStore, err)
	}
	if u == nil || strings.TrimSpace(u.UserName) == "" {
		return FallbackDisplayName, nil
	}
	return u.UserName, nil
}
