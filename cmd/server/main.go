package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"healthscribe/internal/config"
	"healthscribe/internal/core"
	"healthscribe/internal/db"
	httpserver "healthscribe/internal/http"
	"healthscribe/internal/llm"
	"healthscribe/internal/metrics"
	"healthscribe/internal/store"
	"healthscribe/internal/triage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	lex := triage.DefaultLexicon()
	if cfg.LexiconPath != "" {
		l, err := triage.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return err
		}
		lex = l
	}

	var (
		repo     core.SessionRepository
		notifier httpserver.MintNotifier
	)
	if cfg.DatabaseURL != "" {
		dbConn, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer dbConn.Close()
		repo = db.NewRepository(dbConn)
		notifier = db.NewNotifier(dbConn, cfg.NotifyChannel)
	} else {
		slog.Warn("DATABASE_URL not set, sessions are kept in memory")
		repo = db.NewMemoryRepository()
	}

	var responder core.Responder
	switch cfg.Responder {
	case config.ResponderLLM:
		client := llm.NewOpenAIClient(llm.Options{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		})
		responder = core.NewLLMResponder(client, cfg.LLMTimeout)
	default:
		responder = triage.NewEngine(lex)
	}

	var summaries interface {
		core.SummaryStore
		httpserver.SummaryStore
	}
	switch cfg.StoreBackend {
	case config.StoreRedis:
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return err
		}
		defer rs.Close()
		summaries = rs
	default:
		fs, err := store.NewFileStore(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open summary store: %w", err)
		}
		summaries = fs
	}

	metrics.Register(prometheus.DefaultRegisterer)

	chat := core.NewChatService(repo, responder, core.NewSummarizer(lex), summaries, cfg.MessageCap)
	chat.Delay = cfg.ResponseDelay

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpserver.NewServer(chat, summaries, notifier, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "responder", cfg.Responder, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	dbConn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := db.RunMigrations(databaseURL); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}
