// Package store keeps rendered figures under stable identifiers so that
// dashboards and HTTP clients can fetch them again after the request that
// built them.
//
// Three backends implement [Store]:
//   - MemoryStore: bounded in-process LRU for the CLI and tests
//   - FileStore: one JSON document per figure, for single-host servers
//   - MongoStore: a MongoDB collection for multi-instance deployments
//
// Records hold the figure's JSON description as produced by the JSON sink,
// so a stored figure can be exported again in any format without re-running
// extraction.
//
// # Usage
//
//	rec := store.NewRecord(result.FigureKey, figureJSON, store.DefaultTTL)
//	if err := st.Put(ctx, rec); err != nil {
//	    return err
//	}
//	got, err := st.Get(ctx, rec.ID)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // unknown or expired
//	}
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// DefaultTTL is how long a stored figure is kept.
const DefaultTTL = 24 * time.Hour

// Record is one stored figure.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	FigureKey string    `json:"figure_key" bson:"figure_key"`
	Source    string    `json:"source,omitempty" bson:"source,omitempty"`
	Figure    []byte    `json:"figure" bson:"figure"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// IsExpired reports whether the record has outlived its TTL.
func (r *Record) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// NewRecord creates a record with a fresh identifier.
func NewRecord(figureKey string, figureJSON []byte, ttl time.Duration) *Record {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	return &Record{
		ID:        NewID(),
		FigureKey: figureKey,
		Figure:    figureJSON,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// NewID returns a random figure identifier.
func NewID() string {
	return uuid.NewString()
}

// Store is the interface for figure storage backends.
type Store interface {
	// Get retrieves a record by ID. A missing or expired record fails with
	// NOT_FOUND.
	Get(ctx context.Context, id string) (*Record, error)

	// Put stores a record, replacing any record with the same ID.
	Put(ctx context.Context, rec *Record) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired records (may be a no-op when the backend
	// expires records itself).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "unknown figure %q", id)
}

func checkRecord(rec *Record) error {
	if rec == nil {
		return errors.New(errors.ErrCodeInvalidInput, "nil record")
	}
	return errors.ValidateFigureID(rec.ID)
}
