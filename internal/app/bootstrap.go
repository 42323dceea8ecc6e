package app

import (
	"context"
	"fmt"
	"log/slog"

	"frac_ledger/internal/engine"
	"frac_ledger/internal/event"
	"frac_ledger/internal/execution"
	"frac_ledger/internal/infra"
	"frac_ledger/internal/infra/feed"
	"frac_ledger/internal/infra/httpapi"
	"frac_ledger/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Storage   *storage.Storage
	Contract  *execution.Contract
	Sequencer *engine.Sequencer
	Feed      *feed.Worker
	API       *httpapi.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, DB, sequencer, feed)
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	slog.Info("🚀 Bootstrapping Frac Ledger...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Contract & Sequencer
	b.Contract = execution.NewContract(logger)
	b.Sequencer = engine.NewSequencer(cfg.Sequencer.InboxSize, store, store, b.Contract, func(o engine.Outcome) {
		b.Feed.Reply(o)
	})
	b.Sequencer.SetDumpFile(cfg.Sequencer.DumpFile)

	if err := b.Sequencer.Resume(ctx); err != nil {
		return err
	}

	if cfg.ShouldVerifyOnStart() {
		if err := engine.NewReplayer(store, b.Contract).VerifyDeterminism(ctx, store); err != nil {
			return fmt.Errorf("startup replay check: %w", err)
		}
		slog.Info("✅ Journal replay matches stored state")
	}
	event.Warmup()

	// 5. Host Feed & Query API
	b.Feed = feed.NewWorker(cfg.Host.FeedURL, cfg.Host.Token, b.Sequencer.Inbox(), b.Sequencer.NextSeq)
	if cfg.HTTP.Addr != "" {
		b.API = httpapi.NewServer(store, b.Contract, b.Sequencer.NextSeq)
	}

	return nil
}

// Run starts the sequencer, feed and API and blocks until ctx is done.
func (b *Bootstrap) Run(ctx context.Context) error {
	// Start Sequencer in its own goroutine (The Hotpath Loop)
	go b.Sequencer.Run(ctx)
	slog.InfoContext(ctx, "✅ Sequencer started", slog.Uint64("next_seq", b.Sequencer.NextSeq()))

	if err := b.Feed.Connect(ctx); err != nil {
		return fmt.Errorf("connect host feed: %w", err)
	}
	defer b.Feed.Disconnect()
	slog.InfoContext(ctx, "✅ Host feed started", slog.String("session", b.Feed.Session()))

	errCh := make(chan error, 1)
	if b.API != nil {
		go func() {
			errCh <- b.API.ListenAndServe(ctx, b.Config.HTTP.Addr)
		}()
	}

	slog.InfoContext(ctx, "✨ Ledger fully operational. Press Ctrl+C to exit.")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("query API: %w", err)
	}
}

// Close releases storage.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Error("Failed to close storage", slog.Any("error", err))
		}
	}
}
