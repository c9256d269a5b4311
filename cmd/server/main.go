package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sumire/profilecreator/internal/config"
	"github.com/sumire/profilecreator/internal/handler"
	"github.com/sumire/profilecreator/internal/profile"
	"github.com/sumire/profilecreator/internal/service"
	"github.com/sumire/profilecreator/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	uaepass := service.NewUAEPass(service.UAEPassConfig{
		ClientID:     cfg.UAEPassClientID,
		ClientSecret: cfg.UAEPassClientSecret,
		BaseURL:      cfg.UAEPassBaseURL,
		RedirectURL:  cfg.RedirectURL(),
		Scope:        cfg.UAEPassScope,
		ACRValues:    cfg.UAEPassACRValues,
		StateSecret:  cfg.UAEPassStateSecret,
		Timeout:      cfg.UpstreamTimeout,
	})

	images := profile.NewMemoryImageStore(handler.ImagesPath)
	sessions := profile.NewRegistry(images)
	secure := strings.HasPrefix(cfg.PublicURL, "https://")

	e := handler.NewRouter(handler.RouterConfig{
		Auth:        handler.NewAuthHandler(uaepass, cfg.PublicURL),
		Profiles:    handler.NewProfileHandler(sessions, images, cfg.MaxUploadBytes, secure),
		Renderer:    renderer,
		Development: cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, sessions, cfg.SessionTTL)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "public_url", cfg.PublicURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// sweepSessions drops idle profile sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions *profile.Registry, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(ttl); n > 0 {
				slog.Info("idle profile sessions removed", "count", n, "remaining", sessions.Len())
			}
		}
	}
}
