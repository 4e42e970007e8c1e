package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	coreerrors "github.com/davidahmann/logclean/core/errors"
)

var cleanedBucket = []byte("cleaned")

const ledgerOpenTimeout = 2 * time.Second

type LedgerEntry struct {
	InputDigest  string    `json:"input_digest"`
	InputPath    string    `json:"input_path"`
	OutputPath   string    `json:"output_path"`
	OutputDigest string    `json:"output_digest"`
	CleanID      string    `json:"clean_id"`
	CleanedAt    time.Time `json:"cleaned_at"`
}

// Ledger remembers which input archives were already cleaned, keyed by the
// sha256 of the archive bytes.
type Ledger struct {
	db *bolt.DB
}

func OpenLedger(path string) (*Ledger, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, coreerrors.Wrap(fmt.Errorf("ledger path is required"), coreerrors.CategoryInvalidInput, "ledger_path_required", "pass --ledger <path>", false)
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, coreerrors.Wrap(fmt.Errorf("create ledger directory: %w", err), coreerrors.CategoryIOFailure, "ledger_open_failed", "check ledger directory permissions", false)
		}
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: ledgerOpenTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, coreerrors.Wrap(fmt.Errorf("open ledger: %w", err), coreerrors.CategoryStateContention, "ledger_locked", "another batch holds the ledger; retry after it finishes", true)
		}
		return nil, coreerrors.Wrap(fmt.Errorf("open ledger: %w", err), coreerrors.CategoryIOFailure, "ledger_open_failed", "check the ledger path or remove a corrupt ledger file", false)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cleanedBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, coreerrors.Wrap(fmt.Errorf("initialize ledger: %w", err), coreerrors.CategoryIOFailure, "ledger_open_failed", "", false)
	}
	return &Ledger{db: db}, nil
}

func (ledger *Ledger) Lookup(inputDigest string) (LedgerEntry, bool, error) {
	var entry LedgerEntry
	found := false
	err := ledger.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(cleanedBucket).Get([]byte(inputDigest))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return LedgerEntry{}, false, fmt.Errorf("read ledger entry: %w", err)
	}
	return entry, found, nil
}

func (ledger *Ledger) Record(entry LedgerEntry) error {
	if strings.TrimSpace(entry.InputDigest) == "" {
		return fmt.Errorf("ledger entry input_digest is required")
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	if err := ledger.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cleanedBucket).Put([]byte(entry.InputDigest), encoded)
	}); err != nil {
		return fmt.Errorf("write ledger entry: %w", err)
	}
	return nil
}

func (ledger *Ledger) Len() (int, error) {
	count := 0
	err := ledger.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(cleanedBucket).Stats().KeyN
		return nil
	})
	return count, err
}

func (ledger *Ledger) Close() error {
	if ledger == nil || ledger.db == nil {
		return nil
	}
	return ledger.db.Close()
}
