package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"showdesk/internal/api"
	"showdesk/internal/auth"
	"showdesk/internal/blob"
	"showdesk/internal/config"
	"showdesk/internal/db"
	"showdesk/internal/relay"
	"showdesk/internal/translate"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting server", "name", cfg.Server.Name)

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.Info("database opened", "path", cfg.Database.Path)

	if err := seedStaff(cfg, database); err != nil {
		slog.Error("failed to provision staff", "error", err)
		os.Exit(1)
	}

	blobService, err := blob.NewService(cfg.Storage.BlobRoot, cfg.Storage.UploadMaxBytes)
	if err != nil {
		slog.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}
	slog.Info("blob storage initialized", "root", cfg.Storage.BlobRoot, "upload_max_bytes", cfg.Storage.UploadMaxBytes)

	blobRepo := db.NewBlobRepository(database)
	cleanupService := db.NewCleanupService(blobRepo, blobService)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go cleanupService.Start(cleanupCtx)

	var announcer api.Announcer
	if cfg.RelayEnabled() {
		announcer = relay.NewSMTPService(
			cfg.Relay.SMTP.Host,
			cfg.Relay.SMTP.Port,
			cfg.Relay.SMTP.Username,
			cfg.Relay.SMTP.Password,
			cfg.Relay.SMTP.From,
		)
		slog.Info("announcement relay configured", "host", cfg.Relay.SMTP.Host, "recipients", len(cfg.Relay.AnnounceList))
	}

	translator := translate.NewHTTPTranslator(cfg.Translate.URL, cfg.Translate.APIKey, cfg.Translate.Timeout)

	server, err := api.NewServer(cfg, database, blobService, announcer, translator)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	cleanupCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// seedStaff upserts every configured crew member so access keys and role
// assignments follow the config file across restarts.
func seedStaff(cfg *config.Config, database *db.DB) error {
	staffRepo := db.NewStaffRepository(database)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, seed := range cfg.Staff {
		member, err := staffRepo.Upsert(ctx, seed.DisplayName, seed.Email, auth.HashAccessKey(seed.AccessKey), seed.Roles)
		if err != nil {
			return err
		}
		slog.Info("staff provisioned", "staff_id", member.ID, "roles", member.RoleKeys)
	}
	return nil
}
