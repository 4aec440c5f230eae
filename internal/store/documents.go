package store

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/doctrack/internal/models"
	bolt "go.etcd.io/bbolt"
)

// boltCollection is a document collection stored in a nested bucket,
// keyed by document id.
type boltCollection struct {
	db   *bolt.DB
	name string
}

func (c *boltCollection) Name() string {
	return c.name
}

func (c *boltCollection) bucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	root := tx.Bucket(bucketCollections)
	if root == nil {
		return nil, fmt.Errorf("collections bucket not found")
	}
	b := root.Bucket([]byte(c.name))
	if b == nil {
		return nil, fmt.Errorf("collection %s not found", c.name)
	}
	return b, nil
}

// Find returns all documents matching filter, in id order.
func (c *boltCollection) Find(ctx context.Context, filter Filter) ([]*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []*models.Document
	err := c.db.View(func(tx *bolt.Tx) error {
		b, err := c.bucket(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			doc, err := DecodeDocument(v)
			if err != nil {
				return fmt.Errorf("document %s: %w", k, err)
			}
			if filter == nil || filter(doc) {
				docs = append(docs, doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// FindByID returns one document. Returns ErrNotFound if missing.
func (c *boltCollection) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc *models.Document
	err := c.db.View(func(tx *bolt.Tx) error {
		b, err := c.bucket(tx)
		if err != nil {
			return err
		}
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		doc, err = DecodeDocument(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// InsertOne stores a new document. Returns ErrDuplicateKey if the id is taken.
func (c *boltCollection) InsertOne(ctx context.Context, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := c.bucket(tx)
		if err != nil {
			return err
		}
		return insertDocument(b, doc)
	})
}

// DeleteOne removes a document and returns the number removed.
func (c *boltCollection) DeleteOne(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := c.db.Update(func(tx *bolt.Tx) error {
		b, err := c.bucket(tx)
		if err != nil {
			return err
		}
		n, err = deleteDocument(b, id)
		return err
	})
	return n, err
}

// BulkWrite applies ops in order inside one transaction. Processing stops
// at the first failed operation; the operations before it are committed
// and the failure is reported in WriteErrors.
func (c *boltCollection) BulkWrite(ctx context.Context, ops []models.WriteOperation) (*BulkWriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := &BulkWriteResult{RequestCount: len(ops)}

	err := c.db.Update(func(tx *bolt.Tx) error {
		b, err := c.bucket(tx)
		if err != nil {
			return err
		}
		for i, op := range ops {
			if err := applyOperation(b, op, result); err != nil {
				result.WriteErrors = append(result.WriteErrors, WriteError{Index: i, Err: err})
				return nil
			}
			result.ProcessedCount++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bulk write %s: %w", c.name, err)
	}
	return result, nil
}

func applyOperation(b *bolt.Bucket, op models.WriteOperation, result *BulkWriteResult) error {
	switch op.Type {
	case models.OperationInsert:
		if err := insertDocument(b, op.Document); err != nil {
			return err
		}
		result.InsertedCount++

	case models.OperationDelete:
		n, err := deleteDocument(b, op.DocumentID)
		if err != nil {
			return err
		}
		result.DeletedCount += n

	case models.OperationUpdate:
		data := b.Get([]byte(op.DocumentID))
		if data == nil {
			return nil
		}
		doc, err := DecodeDocument(data)
		if err != nil {
			return err
		}
		if err := ApplyUpdate(doc, op.Update); err != nil {
			return err
		}
		encoded, err := EncodeDocument(doc)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(op.DocumentID), encoded); err != nil {
			return err
		}
		result.MatchedCount++

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
	return nil
}

func insertDocument(b *bolt.Bucket, doc *models.Document) error {
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("insert: document has no %s", models.IDField)
	}
	if b.Get([]byte(id)) != nil {
		return fmt.Errorf("insert %s: %w", id, ErrDuplicateKey)
	}
	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), data)
}

func deleteDocument(b *bolt.Bucket, id string) (int, error) {
	if b.Get([]byte(id)) == nil {
		return 0, nil
	}
	if err := b.Delete([]byte(id)); err != nil {
		return 0, err
	}
	return 1, nil
}
