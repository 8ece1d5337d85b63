package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-calorie-bot/internal/config"
	"github.com/tbourn/go-calorie-bot/internal/domain"
	"github.com/tbourn/go-calorie-bot/internal/http/handlers"
	"github.com/tbourn/go-calorie-bot/internal/line"
)

type countingBot struct {
	mu     sync.Mutex
	events []domain.InboundEvent
}

func (b *countingBot) Dispatch(_ context.Context, events []domain.InboundEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
}

func (b *countingBot) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func testConfig() config.Config {
	return config.Config{
		WebhookPath: "/callback",
		Line:        config.LineConfig{ChannelSecret: "s3cret"},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestRegisterRoutes_Liveness_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, &countingBot{}, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != handlers.LivenessText {
		t.Fatalf("GET / = %d %q", w.Code, w.Body.String())
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), handlers.ErrCodeNotFound) {
		t.Fatalf("GET /nope = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /callback expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_WebhookPipeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	bot := &countingBot{}
	cfg := testConfig()
	cfg.WebhookPath = "/hooks/line"
	RegisterRoutes(r, bot, cfg)

	body := `{"destination":"Ubot","events":[{"type":"follow","mode":"active","timestamp":1,` +
		`"webhookEventId":"01HEVF","deliveryContext":{"isRedelivery":false},"replyToken":"rt",` +
		`"source":{"type":"user","userId":"U4af4980629a0a8b0c3e4b5e1b2d3c4f5"},"follow":{"isUnblocked":false}}]}`

	// bad signature
	req := httptest.NewRequest(http.MethodPost, "/hooks/line", strings.NewReader(body))
	req.Header.Set(line.SignatureHeader, sign("other", body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad signature = %d", w.Code)
	}
	if bot.count() != 0 {
		t.Fatalf("bad signature must not dispatch")
	}

	// good signature
	req = httptest.NewRequest(http.MethodPost, "/hooks/line", strings.NewReader(body))
	req.Header.Set(line.SignatureHeader, sign(cfg.Line.ChannelSecret, body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("good signature = %d %q", w.Code, w.Body.String())
	}
	if bot.count() != 1 {
		t.Fatalf("expected one dispatched event, got %d", bot.count())
	}
}

func TestRegisterRoutes_OversizedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	bot := &countingBot{}
	RegisterRoutes(r, bot, testConfig())

	big := `{"events":[],"pad":"` + strings.Repeat("x", MaxWebhookBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(big))
	req.Header.Set(line.SignatureHeader, sign("s3cret", big))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if bot.count() != 0 {
		t.Fatalf("oversized body must not dispatch")
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}
