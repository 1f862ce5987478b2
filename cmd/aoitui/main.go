// Command aoitui runs the shift calculator in the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/aoi-shift/internal/config"
	"github.com/talgya/aoi-shift/internal/logging"
	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/persistence"
	"github.com/talgya/aoi-shift/internal/tui"
	"github.com/talgya/aoi-shift/internal/widget"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// The screen owns stdout, so logs go to stderr and stay quiet by default.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	slog.SetDefault(logging.New(os.Stderr, level, "json"))

	presets := loadPresets(cfg.DBPath)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	app := tui.New(screen, widget.NewControls(presets), cfg.Strictness, cfg.FrameEvery)
	app.Run(ctx)
}

// loadPresets reads the catalog the server keeps, if its database exists.
// Otherwise the built-in presets are used.
func loadPresets(path string) []optics.Preset {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	db, err := persistence.Open(path)
	if err != nil {
		slog.Warn("preset database unavailable", "path", path, "error", err)
		return nil
	}
	defer db.Close()

	presets, err := db.ListPresets()
	if err != nil || len(presets) == 0 {
		return nil
	}
	return presets
}
