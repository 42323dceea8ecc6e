package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"frac_ledger/internal/app"
	"frac_ledger/internal/parser"

	_ "net/http/pprof" // For pprof profiling
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := defaultConfigPath
	if p := os.Getenv("FRAC_CONFIG"); p != "" {
		configPath = p
	}

	// 3. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	fmt.Print(parser.Usage())

	// 4. Sequencer, Host Feed, Query API
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("❌ Ledger stopped", slog.Any("error", err))
		return
	}

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
