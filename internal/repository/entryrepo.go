package repository

import (
	"context"

	"github.com/and161185/authcore/internal/model"
	"github.com/gofrs/uuid/v5"
)

// EntryMutator edits an entry in place during Update.
type EntryMutator func(e *model.Entry) error

// EntryRepository provides owner-scoped access to entries.
// Every call is filtered by userID; a foreign entry reports errs.ErrNotFound.
type EntryRepository interface {
	// Create inserts a new entry.
	Create(ctx context.Context, e *model.Entry) error
	// Get returns a single entry.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error)
	// Update loads the entry, applies fn and writes the result atomically.
	Update(ctx context.Context, userID, id uuid.UUID, fn EntryMutator) (*model.Entry, error)
	// Delete removes a single entry.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// List returns the user's entries, most recently updated first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Entry, error)
	// DeleteByUser removes every entry of a user and returns how many were removed.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
