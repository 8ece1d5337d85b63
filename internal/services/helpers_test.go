package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-calorie-bot/internal/domain"
	"github.com/tbourn/go-calorie-bot/internal/llm"
	"github.com/tbourn/go-calorie-bot/internal/repo"
)

// ---------- store ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:botsvc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *gorm.DB, model any, userID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func seedMeal(t *testing.T, db *gorm.DB, userID string, calorie int, at time.Time) {
	t.Helper()
	fl := domain.FoodLog{UserID: userID, FoodName: "seed", Calorie: calorie, CreatedAt: at.UTC()}
	if err := db.Create(&fl).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (f failingStore) FindUser(context.Context, string) (*domain.User, error) { return nil, f.err }
func (f failingStore) InsertUserIfAbsent(context.Context, *domain.User) (bool, error) {
	return false, f.err
}
func (f failingStore) InsertFoodLog(context.Context, string, string, int) error { return f.err }
func (f failingStore) SumCaloriesSince(context.Context, string, time.Time) (int, error) {
	return 0, f.err
}

// ---------- messenger ----------

type sentReply struct {
	token string
	texts []string
}

type fakeMessenger struct {
	mu sync.Mutex

	image      []byte
	contentErr error
	name       string
	nameErr    error
	replyErr   error
	loadingErr error

	replies      []sentReply
	loadingCalls []string
	nameCalls    int
	contentCalls int
}

func (m *fakeMessenger) MessageContent(_ context.Context, _ string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentCalls++
	if m.contentErr != nil {
		return nil, "", m.contentErr
	}
	img := m.image
	if img == nil {
		img = []byte{0xff, 0xd8, 0xff}
	}
	return img, "image/jpeg", nil
}

func (m *fakeMessenger) ShowLoading(_ context.Context, chatID string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadingCalls = append(m.loadingCalls, chatID)
	return m.loadingErr
}

func (m *fakeMessenger) DisplayName(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nameCalls++
	return m.name, m.nameErr
}

func (m *fakeMessenger) Reply(_ context.Context, token string, texts ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replyErr != nil {
		return m.replyErr
	}
	m.replies = append(m.replies, sentReply{token: token, texts: texts})
	return nil
}

func (m *fakeMessenger) outbound() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies) + len(m.loadingCalls) + m.nameCalls + m.contentCalls
}

// ---------- model ----------

// fakeModel answers JSON requests with jsonOut and text requests with textOut.
type fakeModel struct {
	jsonOut string
	textOut string
	err     error
	panics  bool

	requests []llm.Request
}

func (f *fakeModel) Generate(_ context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.panics {
		panic("model exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	if req.JSON {
		return f.jsonOut, nil
	}
	return f.textOut, nil
}

var errBoom = errors.New("boom")

// ---------- events ----------

func imageEvent(userID, token string) domain.InboundEvent {
	return domain.InboundEvent{
		Kind:       domain.EventImage,
		EventID:    "ev-" + token,
		ReplyToken: token,
		UserID:     userID,
		ChatID:     userID,
		MessageID:  "m-" + token,
	}
}

func textEvent(userID, token, text string) domain.InboundEvent {
	return domain.InboundEvent{
		Kind:       domain.EventText,
		EventID:    "ev-" + token,
		ReplyToken: token,
		UserID:     userID,
		ChatID:     userID,
		MessageID:  "m-" + token,
		Text:       text,
	}
}
