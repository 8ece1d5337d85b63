// Command server runs the LINE calorie bot: it receives webhook deliveries,
// estimates meals from photos with Gemini and keeps per-user daily totals.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-calorie-bot/internal/config"
	httpapi "github.com/tbourn/go-calorie-bot/internal/http"
	"github.com/tbourn/go-calorie-bot/internal/line"
	"github.com/tbourn/go-calorie-bot/internal/llm"
	"github.com/tbourn/go-calorie-bot/internal/observability"
	"github.com/tbourn/go-calorie-bot/internal/repo"
	"github.com/tbourn/go-calorie-bot/internal/services"
	"github.com/tbourn/go-calorie-bot/internal/supabase"
	"github.com/tbourn/go-calorie-bot/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

// logStore is a services.LogStore that can also report its health.
type logStore interface {
	services.LogStore
	Ping(ctx context.Context) error
	String() string
}

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	zerolog.DefaultContextLogger = &log.Logger
	gin.SetMode(cfg.GinMode)

	if missing := cfg.MissingSecrets(); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("required secrets are not set; calls depending on them will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		shutdownOTel = func(context.Context) error { return nil }
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
	if err := store.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Stringer("store", store).Msg("log store unreachable at startup")
	}
	cancel()

	messenger, err := line.NewClient(line.Config{AccessToken: cfg.Line.ChannelAccessToken})
	if err != nil {
		return fmt.Errorf("line client: %w", err)
	}

	bot := &services.BotService{
		Gateway:        &services.LogGateway{Store: store},
		Model:          newModel(ctx, cfg.Gemini),
		Messenger:      messenger,
		LoadingSeconds: cfg.Line.LoadingSeconds,
		EventTimeout:   cfg.EventTimeout,
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, bot, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("webhook", cfg.WebhookPath).
			Str("store", cfg.Store.Driver).
			Str("version", appVersion).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		if err := shutdownOTel(sctx); err != nil {
			log.Error().Err(err).Msg("otel shutdown")
		}
		return nil
	})
	return g.Wait()
}

// openStore selects the log store backend.
func openStore(cfg config.StoreConfig) (logStore, error) {
	switch cfg.Driver {
	case config.StoreSupabase:
		return supabase.New(cfg.URL, cfg.APIKey, supabase.WithTimeout(cfg.Timeout)), nil
	case config.StorePostgres:
		db, err := repo.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, err
		}
		return repo.NewStore(db), nil
	case config.StoreSQLite:
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, err
		}
		return repo.NewStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newModel builds the Gemini client. Without a usable key every request
// fails fast and the bot answers photos with the apology text.
func newModel(ctx context.Context, cfg config.GeminiConfig) services.Generator {
	g, err := llm.NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.RPM)
	if err != nil {
		log.Warn().Err(err).Msg("gemini client unavailable")
		return llm.Unavailable{Err: err}
	}
	log.Info().Str("model", g.Model()).Int("rpm", cfg.RPM).Msg("gemini ready")
	return g
}
