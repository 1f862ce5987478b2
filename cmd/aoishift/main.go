// Command aoishift serves the angle-of-incidence wavelength shift calculator
// over HTTP: the widget page, the JSON API and diagram images.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/aoi-shift/internal/api"
	"github.com/talgya/aoi-shift/internal/config"
	"github.com/talgya/aoi-shift/internal/logging"
	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	slog.Info("AOI shift calculator starting",
		"version", api.Version,
		"strictness", cfg.Strictness.String(),
		"wavelength_range_nm", fmt.Sprintf("%.0f-%.0f", optics.MinWavelengthNm, optics.MaxWavelengthNm),
		"angle_range_deg", fmt.Sprintf("%.0f-%.0f", optics.MinAngleDeg, optics.MaxAngleDeg),
	)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("failed to create data directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Presets ───────────────────────────────────────────────────────
	if _, err := db.SeedPresets(optics.DefaultPresets()); err != nil {
		slog.Error("preset seed failed", "error", err)
		os.Exit(1)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.GetMeta("first_started"); errors.Is(err, sql.ErrNoRows) {
		if err := db.SaveMeta("first_started", now); err != nil {
			slog.Error("meta save failed", "error", err)
		}
	}
	if err := db.SaveMeta("last_started", now); err != nil {
		slog.Error("meta save failed", "error", err)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("AOI_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		DB:          db,
		Strictness:  cfg.Strictness,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		PublicURL:   cfg.PublicURL,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nWidget: %s\n", apiServer.GetWebURL())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Serving... (Ctrl+C to stop)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	slog.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	fmt.Println("Stopped.")
}
