// Package store provides bbolt-based persistence for doctrack.
// It keeps every document collection and the field lock table in a single
// embedded bbolt database file; the lock table can instead live in SQLite.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names used by the store.
var (
	bucketCollections = []byte("collections") // one nested bucket per collection
	bucketLocks       = []byte("locks")
)

// Store represents the bbolt database store.
type Store struct {
	db    *bolt.DB
	locks LockCollection
	// closeLocks is set when the lock collection is owned by the store
	closeLocks func() error
}

// New opens or creates a bbolt database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	s.locks = &boltLocks{db: db}
	return s, nil
}

// Lock table backends accepted by Open.
const (
	LockBackendBolt   = "bolt"
	LockBackendSQLite = "sqlite"
)

// Open opens and initializes the store at dbPath with its lock table on
// the given backend. lockPath is only used by the sqlite backend.
func Open(dbPath, lockBackend, lockPath string) (*Store, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Initialize(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	switch lockBackend {
	case "", LockBackendBolt:
	case LockBackendSQLite:
		locks, err := NewSQLiteLocks(lockPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.UseLocks(locks)
	default:
		s.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, lockBackend)
	}
	return s, nil
}

// Close closes the database and any lock collection the store owns.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.closeLocks != nil {
		if err := s.closeLocks(); err != nil {
			s.db.Close()
			return fmt.Errorf("close lock collection: %w", err)
		}
	}
	return s.db.Close()
}

// Initialize creates all required buckets.
func (s *Store) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCollections, bucketLocks} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// UseLocks replaces the built-in bbolt lock table. The store closes the
// given collection on Close when it implements Close() error.
func (s *Store) UseLocks(locks LockCollection) {
	s.locks = locks
	s.closeLocks = nil
	if c, ok := locks.(interface{ Close() error }); ok {
		s.closeLocks = c.Close
	}
}

// Locks returns the lock collection in use.
func (s *Store) Locks() LockCollection {
	return s.locks
}

// Collection returns the named document collection, creating it if needed.
func (s *Store) Collection(name string) (DocumentCollection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(bucketCollections)
		if err != nil {
			return err
		}
		_, err = root.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return &boltCollection{db: s.db, name: name}, nil
}

// CollectionNames lists the existing collections in name order.
func (s *Store) CollectionNames() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketCollections)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(k []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}
