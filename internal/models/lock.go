package models

import "time"

// LockRequest asks for a cooperative lock on one root field of a document
type LockRequest struct {
	DocumentID string `json:"document_id"`
	Field      string `json:"field"`
}

// Lock is a granted field lock as persisted in the lock collection.
// (DocumentID, Field) is unique.
type Lock struct {
	ID         string    `json:"_id"`
	DocumentID string    `json:"document_id"`
	Field      string    `json:"field"`
	TakenBy    string    `json:"taken_by"`
	TakenAt    time.Time `json:"taken_at"`
}

// Request returns the request this lock satisfies
func (l *Lock) Request() LockRequest {
	return LockRequest{DocumentID: l.DocumentID, Field: l.Field}
}
