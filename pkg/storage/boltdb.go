package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/timeclock/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketCredentials = []byte("credentials")
	bucketProfiles    = []byte("profiles")
	bucketAttempts    = []byte("attempts")

	keyToken   = []byte("token")
	keyProfile = []byte("current")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "timeclock.db")

	// A second CLI invocation waits briefly for the file lock instead of hanging
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketCredentials,
			bucketProfiles,
			bucketAttempts,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Credential operations
func (s *BoltStore) SaveToken(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		return b.Put(keyToken, []byte(token))
	})
}

func (s *BoltStore) GetToken() (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		data := b.Get(keyToken)
		if data == nil {
			return fmt.Errorf("token %w", ErrNotFound)
		}
		// Copy out, BoltDB data is only valid during the transaction
		token = string(data)
		return nil
	})
	return token, err
}

func (s *BoltStore) DeleteToken() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		return b.Delete(keyToken)
	})
}

// Profile operations
func (s *BoltStore) SaveProfile(user *types.User) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return b.Put(keyProfile, data)
	})
}

func (s *BoltStore) GetProfile() (*types.User, error) {
	var user types.User
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		data := b.Get(keyProfile)
		if data == nil {
			return fmt.Errorf("profile %w", ErrNotFound)
		}
		return json.Unmarshal(data, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *BoltStore) DeleteProfile() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProfiles)
		return b.Delete(keyProfile)
	})
}

// Attempt journal operations. Keys sort by start time so cursors walk chronologically.
func attemptKey(a *types.Attempt) []byte {
	return []byte(fmt.Sprintf("%020d-%s", a.StartedAt.UnixNano(), a.ID))
}

func (s *BoltStore) RecordAttempt(attempt *types.Attempt) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAttempts)
		data, err := json.Marshal(attempt)
		if err != nil {
			return err
		}
		return b.Put(attemptKey(attempt), data)
	})
}

// ListAttempts returns the newest attempts first; an empty userID lists everyone's
func (s *BoltStore) ListAttempts(userID string, limit int) ([]*types.Attempt, error) {
	var attempts []*types.Attempt
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAttempts).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var attempt types.Attempt
			if err := json.Unmarshal(v, &attempt); err != nil {
				return err
			}
			if userID != "" && attempt.UserID != userID {
				continue
			}
			attempts = append(attempts, &attempt)
			if limit > 0 && len(attempts) >= limit {
				return nil
			}
		}
		return nil
	})
	return attempts, err
}

// PruneAttempts keeps only the newest keep entries and returns how many were removed
func (s *BoltStore) PruneAttempts(keep int) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAttempts)
		c := b.Cursor()

		count := 0
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		excess := count - keep
		if excess <= 0 {
			return nil
		}

		var stale [][]byte
		for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
