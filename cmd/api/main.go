package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/khanlabs/neurachat/backend/internal/config"
	"github.com/khanlabs/neurachat/backend/internal/handler"
	"github.com/khanlabs/neurachat/backend/internal/policy"
	"github.com/khanlabs/neurachat/backend/internal/service/ai"
	chatservice "github.com/khanlabs/neurachat/backend/internal/service/chat"
	"github.com/khanlabs/neurachat/backend/internal/service/conversation"
	"github.com/khanlabs/neurachat/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	kv, err := store.NewSQLite(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("failed to open key-value store: %v", err)
	}
	defer kv.Close()

	// Policy guard, rehydrated from the store and writing back on change.
	policyCfg := policy.DefaultConfig()
	policyCfg.WordBoundary = cfg.Policy.WordBoundary
	if cfg.Policy.LockDuration != nil {
		policyCfg.LockDuration = *cfg.Policy.LockDuration
	}

	guard := policy.NewGuard(policyCfg, nil, func(count int, lockUntil time.Time) {
		store.Save(context.Background(), kv, store.KeyAbuseCount, count)
		store.Save(context.Background(), kv, store.KeyLockUntil, lockUntil)
	})
	guard.Restore(
		store.Load(ctx, kv, store.KeyAbuseCount, 0),
		store.Load(ctx, kv, store.KeyLockUntil, time.Time{}),
	)
	if guard.Locked() {
		log.Printf("send lock active, %s remaining", policy.FormatRemaining(guard.Remaining()))
	}

	backend := ai.NewService(cfg.AI)
	if cfg.AI.Enabled() {
		backend.Initialize(ctx)
		log.Println("AI backend initialized")
	} else {
		log.Println("model credentials not configured, backend will reply with diagnostics")
	}

	sessions := chatservice.NewService(ctx, kv, backend.Initialize)
	orchestrator := conversation.New(guard, sessions, backend, nil)

	router := handler.NewRouter(sessions, orchestrator, guard)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("NeuraChat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
