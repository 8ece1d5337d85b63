package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-calorie-bot/internal/domain"
)

func TestFindUser_MissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	u, err := FindUser(context.Background(), db, "U404")
	if err != nil || u != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", u, err)
	}
}

func TestInsertUserIfAbsent_CreatesOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := InsertUserIfAbsent(ctx, db, &domain.User{UserID: "U1", UserName: "Aki"})
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	created, err = InsertUserIfAbsent(ctx, db, &domain.User{UserID: "U1", UserName: "Impostor"})
	if err != nil || created {
		t.Fatalf("second insert: created=%v err=%v", created, err)
	}

	var n int64
	db.Model(&domain.User{}).Where("user_id = ?", "U1").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one row, got %d", n)
	}
	u, err := FindUser(ctx, db, "U1")
	if err != nil || u == nil || u.UserName != "Aki" {
		t.Fatalf("first name must win, got %+v err=%v", u, err)
	}
}

func TestStore_Close(t *testing.T) {
	s := NewStore(newTestDB(t))
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFindUser_ErrorWithoutTable(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrator().DropTable(&domain.User{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := FindUser(context.Background(), db, "U1"); err == nil {
		t.Fatalf("expected error when users table is missing")
	}
}
