package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestBootstrap_Initialize(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`
storage:
  path: %s
host:
  feed_url: ws://127.0.0.1:1/feed
http:
  addr: "127.0.0.1:0"
sequencer:
  verify_on_start: true
  dump_file: %s
logging:
  level: error
  dir: %s
`, filepath.Join(dir, "ledger.db"), filepath.Join(dir, "dump.json"), filepath.Join(dir, "logs"))
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	b := NewBootstrap()
	if err := b.Initialize(context.Background(), cfgPath); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(b.Close)

	if b.Sequencer.NextSeq() != 1 {
		t.Errorf("Expected fresh sequencer at 1, got %d", b.Sequencer.NextSeq())
	}
	if b.Feed == nil || b.Feed.IsConnected() {
		t.Error("Expected an idle feed worker")
	}
	if b.API == nil {
		t.Error("Expected query API to be configured")
	}
}

func TestBootstrap_InitializeBadConfig(t *testing.T) {
	b := NewBootstrap()
	if err := b.Initialize(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config")
	}
}
