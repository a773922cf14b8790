package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"frontporch/internal/adapters/email"
	web "frontporch/internal/adapters/http"
	"frontporch/internal/adapters/http/perf"
	"frontporch/internal/adapters/session"
	"frontporch/internal/adapters/storage"
	accountStore "frontporch/internal/adapters/storage/account"
	auditStore "frontporch/internal/adapters/storage/audit"
	signupStore "frontporch/internal/adapters/storage/signup"
	"frontporch/internal/application/orchestrators"
	"frontporch/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	setupLogging(cfg)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	stores := &web.Stores{
		SignupStore: signupStore.NewSQLiteStore(timedDB),
		AdminStore:  accountStore.NewSQLiteStore(timedDB),
		Sessions:    newSessionStore(cfg),
		AuditStore:  auditStore.NewSQLiteStore(timedDB),
		DB:          timedDB,
	}

	if _, err := orchestrators.ExecuteSeedAdmin(context.Background(),
		orchestrators.SeedAdminDeps{AdminStore: stores.AdminStore}, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		log.Fatalf("invalid csrf key: %v", err)
	}
	if csrfKey == nil {
		slog.Warn("FRONTPORCH_CSRF_KEY is not set; CSRF protection is disabled")
	}

	srv, err := web.NewServer(stores, collector, web.Options{
		CSRFKey:            csrfKey,
		SecureCookies:      cfg.IsProduction(),
		TrustedOrigins:     trustedOrigins(cfg.PublicURL),
		RateLimitPerSecond: cfg.RateLimit,
		CORSOrigins:        cfg.CORSOrigins,
		PublicURL:          cfg.PublicURL,
		BannerMarkdown:     cfg.Banner,
		SlowRequestMs:      cfg.SlowRequestMs,
		Notify: web.Notifier{
			Sender: newEmailSender(cfg),
			From:   cfg.Email.From,
			To:     cfg.Email.NotifyTo,
		},
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go srv.Run(ctx)

	go func() {
		slog.Info("server_start", "version", version, "addr", cfg.Addr, "env", cfg.Env,
			"schema", storage.LatestSchemaVersion(), "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("server_stop", "reason", "signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("internal_error", "where", "shutdown", "error", err)
	}
	srv.Wait()
}

// setupLogging installs the process-wide slog handler.
func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newSessionStore picks Redis when configured, memory otherwise.
func newSessionStore(cfg config.Config) session.Store {
	if cfg.Redis.Addr == "" {
		return session.NewMemoryStore()
	}
	store := session.NewRedisStore(session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("redis unreachable at %s: %v", cfg.Redis.Addr, err)
	}
	slog.Info("session store configured", "backend", "redis", "addr", cfg.Redis.Addr)
	return store
}

// newEmailSender returns Resend when a key is set, a logging no-op otherwise.
func newEmailSender(cfg config.Config) email.Sender {
	if cfg.Email.ResendKey != "" {
		slog.Info("email sender configured", "backend", "resend")
		return email.NewResendSender(cfg.Email.ResendKey, cfg.Email.From)
	}
	if cfg.IsProduction() && len(cfg.Email.NotifyTo) > 0 {
		slog.Warn("FRONTPORCH_RESEND_KEY is not set; coordinator e-mails are disabled")
	}
	return email.NewNoopSender()
}

// trustedOrigins lets the CSRF check accept form posts from the public host.
func trustedOrigins(publicURL string) []string {
	u, err := url.Parse(publicURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
