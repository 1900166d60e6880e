// Command devapi serves the task API in memory for local development and
// manual testing of the client.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/fakeapi"
	"github.com/dmitrijs2005/taskdesk/internal/logging"
	"github.com/joho/godotenv"
)

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func main() {
	_ = godotenv.Load() // optional

	addr := flag.String("a", envOr("TASKDESK_DEVAPI_ADDR", "127.0.0.1:8080"), "listen address")
	secret := flag.String("k", os.Getenv("TASKDESK_DEVAPI_SECRET"), "token signing secret, 16 bytes or more")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	adminEmail := flag.String("admin-email", envOr("TASKDESK_DEVAPI_ADMIN_EMAIL", "admin@example.com"), "seeded admin email")
	adminPassword := flag.String("admin-password", os.Getenv("TASKDESK_DEVAPI_ADMIN_PASSWORD"), "seeded admin password; no admin is seeded when empty")
	level := flag.String("l", envOr("TASKDESK_LOG_LEVEL", "info"), "log level")
	flag.Parse()

	logger := logging.NewTextLogger(os.Stderr, *level)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key := []byte(*secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
		logger.Warn(ctx, "no secret configured, tokens will not survive a restart")
	}

	srv, err := fakeapi.New(fakeapi.Config{Secret: key, TokenTTL: *ttl}, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *adminPassword != "" {
		if _, err := srv.SeedUser("Admin", *adminEmail, *adminPassword, true); err != nil {
			log.Fatalf("seed admin: %v", err)
		}
		logger.Info(ctx, "seeded admin", "email", *adminEmail)
	}

	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
