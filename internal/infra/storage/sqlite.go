package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"frac_ledger/internal/domain"
	"frac_ledger/internal/event"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const replayBatchSize = 500

// Storage is the SQLite-backed host storage. It serves both the ledger's
// key-value document and the op journal.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the database at path. An empty path resolves
// to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newStorage(db)
}

func newStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&KVEntry{}, &JournalEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "FracLedger", "data", "ledger.db"), nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Key-Value Operations
// ======================================================================================

// Get returns the value stored under key. ok is false when the key is absent.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).First(&entry, "state_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil // Not found is not an error
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

// Put creates or replaces the value under key.
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	return s.db.WithContext(ctx).Save(&KVEntry{Key: key, Value: value}).Error
}

// ======================================================================================
// Journal Operations
// ======================================================================================

// SaveEvent journals an op. Saving the same seq twice fails.
func (s *Storage) SaveEvent(ctx context.Context, ev *event.TxEvent) error {
	entry, err := toJournalEntry(ev)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (s *Storage) LastSeq(ctx context.Context) (uint64, error) {
	var last uint64
	err := s.db.WithContext(ctx).
		Model(&JournalEntry{}).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error
	return last, err
}

// LoadEvents streams journaled ops with seq >= from in ascending order.
// Returning an error from fn stops the scan.
func (s *Storage) LoadEvents(ctx context.Context, from uint64, fn func(*event.TxEvent) error) error {
	var batch []JournalEntry
	res := s.db.WithContext(ctx).
		Where("seq >= ?", from).
		FindInBatches(&batch, replayBatchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				ev, err := fromJournalEntry(batch[i])
				if err != nil {
					return err
				}
				if err := fn(ev); err != nil {
					return err
				}
			}
			return nil
		})
	return res.Error
}

func toJournalEntry(ev *event.TxEvent) (JournalEntry, error) {
	entry := JournalEntry{
		Seq:       ev.Seq,
		Ts:        int64(ev.Ts),
		Type:      ev.Type,
		Initiator: ev.Initiator,
	}
	if ev.Dispatch != nil {
		raw, err := json.Marshal(ev.Dispatch)
		if err != nil {
			return JournalEntry{}, fmt.Errorf("encode dispatch for seq %d: %w", ev.Seq, err)
		}
		entry.Dispatch = string(raw)
	}
	return entry, nil
}

func fromJournalEntry(entry JournalEntry) (*event.TxEvent, error) {
	ev := &event.TxEvent{
		BaseEvent: event.BaseEvent{Seq: entry.Seq, Ts: domain.TimeStamp(entry.Ts)},
		Type:      entry.Type,
		Initiator: entry.Initiator,
	}
	if entry.Dispatch != "" {
		var d domain.Dispatch
		if err := json.Unmarshal([]byte(entry.Dispatch), &d); err != nil {
			return nil, fmt.Errorf("decode dispatch for seq %d: %w", entry.Seq, err)
		}
		ev.Dispatch = &d
	}
	return ev, nil
}
