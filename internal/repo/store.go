package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

// Store adapts the repository free functions to the services.LogStore
// interface so the service layer stays decoupled from gorm.
type Store struct {
	DB *gorm.DB
}

// NewStore wraps db.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// FindUser proxies FindUser.
func (s *Store) FindUser(ctx context.Context, userID string) (*domain.User, error) {
	return FindUser(ctx, s.DB, userID)
}

// InsertUserIfAbsent proxies InsertUserIfAbsent.
func (s *Store) InsertUserIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	return InsertUserIfAbsent(ctx, s.DB, u)
}

// InsertFoodLog proxies CreateFoodLog.
func (s *Store) InsertFoodLog(ctx context.Context, userID, foodName string, calorie int) error {
	_, err := CreateFoodLog(ctx, s.DB, userID, foodName, calorie)
	return err
}

// SumCaloriesSince proxies SumCaloriesSince.
func (s *Store) SumCaloriesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return SumCaloriesSince(ctx, s.DB, userID, since)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// String identifies the backend in startup logs.
func (s *Store) String() string {
	return "gorm(" + s.DB.Dialector.Name() + ")"
}
