package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kilupskalvis/doctrack/internal/models"
	bolt "go.etcd.io/bbolt"
)

// boltLocks is the lock table kept in the "locks" bucket.
// Rows are JSON keyed by "{document_id}\x00{field}".
type boltLocks struct {
	db *bolt.DB
}

// lockRowKey builds the bbolt key for a lock row.
func lockRowKey(key LockKey) []byte {
	return []byte(key.DocumentID + "\x00" + key.Field)
}

// FindOneAndUpsert inserts onInsert when no row exists for key and returns
// the stored row.
func (l *boltLocks) FindOneAndUpsert(ctx context.Context, key LockKey, onInsert *models.Lock) (*models.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var row models.Lock
	err := l.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketLocks)
		if err != nil {
			return err
		}
		k := lockRowKey(key)
		if data := b.Get(k); data != nil {
			return json.Unmarshal(data, &row)
		}

		row = *onInsert
		row.DocumentID = key.DocumentID
		row.Field = key.Field
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal lock: %w", err)
		}
		return b.Put(k, data)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteMany removes the rows owned by filter.Owner, restricted to
// filter.Keys when given.
func (l *boltLocks) DeleteMany(ctx context.Context, filter LockFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		if b == nil {
			return nil
		}

		var keys [][]byte
		if len(filter.Keys) > 0 {
			for _, key := range filter.Keys {
				keys = append(keys, lockRowKey(key))
			}
		} else {
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				keys = append(keys, append([]byte(nil), k...))
			}
		}

		for _, k := range keys {
			data := b.Get(k)
			if data == nil {
				continue
			}
			var row models.Lock
			if err := json.Unmarshal(data, &row); err != nil {
				return fmt.Errorf("unmarshal lock: %w", err)
			}
			if row.TakenBy != filter.Owner {
				continue
			}
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// List returns every lock row in key order.
func (l *boltLocks) List(ctx context.Context) ([]*models.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var locks []*models.Lock
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var row models.Lock
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("unmarshal lock: %w", err)
			}
			locks = append(locks, &row)
			return nil
		})
	})
	return locks, err
}
