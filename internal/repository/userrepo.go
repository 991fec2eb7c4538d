// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/authcore/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository stores account documents together with their embedded session lists.
//
// Lookups return errs.ErrNotFound when nothing matches.
type UserRepository interface {
	// Create inserts a new account. Returns errs.ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads an account by its normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetBySessionHash loads the account owning a session with the given refresh token hash.
	GetBySessionHash(ctx context.Context, tokenHash string) (*model.User, error)
	// Save replaces the stored document if its version still equals u.Ver, then bumps u.Ver.
	// Returns errs.ErrVersionConflict if the document changed or disappeared since it was read.
	Save(ctx context.Context, u *model.User) error
	// Delete removes an account.
	Delete(ctx context.Context, id uuid.UUID) error
}
