package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rowanvale/choreboard/internal/backup"
	"github.com/rowanvale/choreboard/internal/database"
	"github.com/rowanvale/choreboard/internal/logging"
	"github.com/rowanvale/choreboard/internal/server"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	logger := logging.Setup(env("CHOREBOARD_LOG_LEVEL", "info"), env("CHOREBOARD_LOG_FORMAT", "text"))

	port := env("CHOREBOARD_PORT", "8080")
	dbPath := env("CHOREBOARD_DB_PATH", "choreboard.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		BaseURL:         env("CHOREBOARD_BASE_URL", "http://localhost:"+port),
		SecureCookies:   env("CHOREBOARD_SECURE_COOKIES", "") == "true",
		InviteSecret:    env("CHOREBOARD_INVITE_SECRET", ""),
		PostmarkToken:   os.Getenv("CHOREBOARD_POSTMARK_TOKEN"),
		FromEmail:       os.Getenv("CHOREBOARD_FROM_EMAIL"),
		VAPIDPublicKey:  os.Getenv("CHOREBOARD_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("CHOREBOARD_VAPID_PRIVATE_KEY"),
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("CHOREBOARD_S3_ENDPOINT"),
				Bucket:    os.Getenv("CHOREBOARD_S3_BUCKET"),
				Region:    env("CHOREBOARD_S3_REGION", "auto"),
				AccessKey: os.Getenv("CHOREBOARD_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("CHOREBOARD_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("CHOREBOARD_BACKUP_PASSPHRASE"),
			ScheduleHour:  envInt("CHOREBOARD_BACKUP_HOUR", 3),
			RetentionDays: envInt("CHOREBOARD_BACKUP_RETENTION_DAYS", 30),
		},
	}
	if cfg.InviteSecret == "" {
		logger.Warn("CHOREBOARD_INVITE_SECRET is not set, invite links will not survive restarts")
		cfg.InviteSecret = strconv.FormatInt(time.Now().UnixNano(), 36)
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Expired sessions and login codes accumulate; sweep hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("session cleanup", "deleted", n)
				}
				if n, err := srv.MagicLinkStore().DeleteExpired(); err != nil {
					logger.Error("login code cleanup", "error", err)
				} else if n > 0 {
					logger.Info("login code cleanup", "deleted", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("choreboard listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
