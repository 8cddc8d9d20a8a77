package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
)

// AdminKey is the key of the unscoped admin view.
const AdminKey = "admin"

const artistPrefix = "artist:"

// Bucket names.
var (
	bucketSnapshots = []byte("snapshots") // key -> Snapshot
	bucketIndex     = []byte("index")     // key -> Entry
)

// ArtistKey returns the key of an artist's scoped view.
func ArtistKey(userID int64) string {
	return artistPrefix + strconv.FormatInt(userID, 10)
}

// KeyFor returns AdminKey for an unscoped view and ArtistKey otherwise.
func KeyFor(scopeUserID int64) string {
	if scopeUserID == 0 {
		return AdminKey
	}
	return ArtistKey(scopeUserID)
}

// store implements the Store interface using bbolt.
type store struct {
	db     *bolt.DB
	logger logger.Logger
	config Config
}

// New opens (creating if needed) the snapshot database.
//
// Parameters:
//   - cfg: Store configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Store
//   - Error if database cannot be opened
func New(cfg Config, log logger.Logger) (Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	dbPath := expandHome(cfg.DBPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, createErr := tx.CreateBucketIfNotExists(bucketSnapshots); createErr != nil {
			return fmt.Errorf("failed to create snapshots bucket: %w", createErr)
		}
		if _, createErr := tx.CreateBucketIfNotExists(bucketIndex); createErr != nil {
			return fmt.Errorf("failed to create index bucket: %w", createErr)
		}
		return nil
	}); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization error",
				"error", closeErr)
		}
		return nil, err
	}

	log.Debug("snapshot store opened", "db_path", dbPath)

	return &store{
		db:     db,
		logger: log,
		config: cfg,
	}, nil
}

// Save implements Store.Save.
func (s *store) Save(key string, snap *Snapshot) error {
	if snap == nil {
		return ErrInvalidSnapshot
	}
	if !isValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	now := time.Now()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = now
	}
	snap.Key = key

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	entry, err := json.Marshal(Entry{
		Key:       key,
		Records:   len(snap.Records),
		Works:     len(snap.Works),
		FetchedAt: snap.FetchedAt,
		SavedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal index entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSnapshots).Put([]byte(key), data); err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}
		if err := tx.Bucket(bucketIndex).Put([]byte(key), entry); err != nil {
			return fmt.Errorf("failed to store index entry: %w", err)
		}

		s.logger.Debug("snapshot saved",
			"key", key,
			"records", len(snap.Records),
			"works", len(snap.Works))

		return nil
	})
}

// Load implements Store.Load.
func (s *store) Load(key string) (*Snapshot, error) {
	if !isValidKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	var snap *Snapshot

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSnapshots).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}

		var decoded Snapshot
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}

		snap = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Delete implements Store.Delete.
func (s *store) Delete(key string) error {
	if !isValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketSnapshots).Get([]byte(key)) == nil {
			return nil
		}

		if err := tx.Bucket(bucketSnapshots).Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
		if err := tx.Bucket(bucketIndex).Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete index entry: %w", err)
		}

		s.logger.Info("snapshot deleted", "key", key)
		return nil
	})
}

// List implements Store.List. Keys come back in bbolt's byte order.
func (s *store) List() ([]Entry, error) {
	entries := make([]Entry, 0, 4)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIndex).ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				s.logger.Warn("failed to unmarshal index entry",
					"key", string(k),
					"error", err)
				return nil // Skip invalid entries.
			}

			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return entries, nil
}

// Close implements Store.Close.
func (s *store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.Debug("snapshot store closed")
	return nil
}

// isValidKey accepts "admin" and "artist:<positive id>".
func isValidKey(key string) bool {
	if key == AdminKey {
		return true
	}

	id, ok := strings.CutPrefix(key, artistPrefix)
	if !ok || id == "" {
		return false
	}

	n, err := strconv.ParseInt(id, 10, 64)
	return err == nil && n > 0 && strconv.FormatInt(n, 10) == id
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
