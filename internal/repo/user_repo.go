// Package repo implements the gorm-backed persistence layer for users and
// food logs. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// FindUser fetches a user by LINE user id. A missing row is not an error:
// it returns (nil, nil).
func FindUser(ctx context.Context, db *gorm.DB, userID string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertUserIfAbsent inserts u unless a row with the same user_id exists.
// It reports whether a new row was written. Concurrent first-contact events
// for the same id therefore create exactly one row.
func InsertUserIfAbsent(ctx context.Context, db *gorm.DB, u *domain.User) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(u)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
