package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/heimdex/timeline-agent/internal/api"
	"github.com/heimdex/timeline-agent/internal/config"
	"github.com/heimdex/timeline-agent/internal/db"
	"github.com/heimdex/timeline-agent/internal/library"
	"github.com/heimdex/timeline-agent/internal/logging"
	"github.com/heimdex/timeline-agent/internal/media"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting timeline agent",
		"version", config.Version,
		"commit", config.GitCommit,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"max_document_size", humanize.IBytes(uint64(cfg.MaxDocumentBytes())))

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := library.NewRepository(database.Conn())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deviceID, err := ensureDeviceID(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	if !cfg.Headless() {
		fmt.Println()
		fmt.Println("╔═══════════════════════════════════════════════════════════╗")
		fmt.Printf("║                  TIMELINE AGENT v%-24s ║\n", config.Version)
		fmt.Println("╠═══════════════════════════════════════════════════════════╣")
		fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
		fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
		fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
		fmt.Println("╚═══════════════════════════════════════════════════════════╝")
		fmt.Println()
	} else {
		logger.Info("running headless", "auth_token", logging.SanitizeToken(authToken))
	}

	svc := library.NewService(repo, logger, library.WithMaxDocumentBytes(cfg.MaxDocumentBytes()))
	importer := library.NewImporter(svc, repo, cfg.InboxDir(), cfg.ImportPollInterval(), logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Service:      svc,
		Repository:   repo,
		Importer:     importer,
		Media:        media.NewServer(logger),
		Logger:       logger,
		StartTime:    startTime,
		DeviceID:     deviceID,
		Version:      config.Version,
		DefaultRate:  cfg.DefaultRate(),
		MaxBodyBytes: cfg.MaxDocumentBytes(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		importer.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return apiServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(ctx context.Context, repo library.Repository) (string, error) {
	existing, err := repo.GetConfig(ctx, library.ConfigDeviceID)
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, library.ConfigDeviceID, deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(ctx context.Context, repo library.Repository) (string, error) {
	existing, err := repo.GetConfig(ctx, library.ConfigAuthToken)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, library.ConfigAuthToken, token); err != nil {
		return "", err
	}

	return token, nil
}
