package storage

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("Sessions")

// SessionStorage is a fiber.Storage backed by a bbolt file, so flash
// messages survive a restart. Each value is prefixed with its expiry as
// unix seconds, zero meaning none.
type SessionStorage struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewSessionStorage opens or creates the database at path
func NewSessionStorage(path string) (*SessionStorage, error) {
	// It will be created if it doesn't exist.
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", sessionBucket, err)
	}

	return &SessionStorage{db: db, now: time.Now}, nil
}

// Get returns nil for missing or expired keys
func (s *SessionStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(sessionBucket).Get([]byte(key))
		if len(raw) < 8 {
			return nil
		}
		expires := int64(binary.BigEndian.Uint64(raw[:8]))
		if expires != 0 && s.now().Unix() >= expires {
			return nil
		}
		// raw is only valid inside the transaction
		value = append([]byte(nil), raw[8:]...)
		return nil
	})
	return value, err
}

// Set stores val. A zero exp keeps it until deleted.
func (s *SessionStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	var expires int64
	if exp > 0 {
		expires = s.now().Add(exp).Unix()
	}
	raw := make([]byte, 8+len(val))
	binary.BigEndian.PutUint64(raw[:8], uint64(expires))
	copy(raw[8:], val)

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(key), raw)
	})
}

func (s *SessionStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(key))
	})
}

// Reset removes every session
func (s *SessionStorage) Reset() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(sessionBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(sessionBucket)
		return err
	})
}

// Sweep deletes expired sessions and reports how many were removed
func (s *SessionStorage) Sweep() (int, error) {
	now := s.now().Unix()
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) < 8 {
				return nil
			}
			if expires := int64(binary.BigEndian.Uint64(v[:8])); expires != 0 && now >= expires {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func (s *SessionStorage) Close() error {
	return s.db.Close()
}
