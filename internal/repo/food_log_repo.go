// Package repo implements the gorm-backed persistence layer for users and
// food logs. This file provides the FoodLog insert and the daily aggregate.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// CreateFoodLog inserts one meal row. ID and CreatedAt are left for the
// store to assign.
func CreateFoodLog(ctx context.Context, db *gorm.DB, userID, foodName string, calorie int) (*domain.FoodLog, error) {
	fl := &domain.FoodLog{
		UserID:   userID,
		FoodName: foodName,
		Calorie:  calorie,
	}
	if err := db.WithContext(ctx).Create(fl).Error; err != nil {
		return nil, err
	}
	return fl, nil
}

// SumCaloriesSince returns the total calories logged by userID with
// created_at >= since. It returns 0 when the user has no rows in the window.
func SumCaloriesSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.FoodLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Select("COALESCE(SUM(calorie), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}
