package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
// Sessions live in a JSONB array column on the users row.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, email, pwd_hash, sessions, ver, created_at, updated_at`

func encodeSessions(ss []model.Session) ([]byte, error) {
	if ss == nil {
		ss = []model.Session{}
	}
	return json.Marshal(ss)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u   model.User
		raw []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PwdHash, &raw, &u.Ver, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &u.Sessions); err != nil {
			return nil, fmt.Errorf("decode sessions: %w", err)
		}
	}
	return &u, nil
}

// Create inserts a new user row with version 1.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	sessions, err := encodeSessions(u.Sessions)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (id, email, pwd_hash, sessions, ver, created_at, updated_at)
VALUES ($1, $2, $3, $4, 1, $5, $6)`
	_, err = r.db.Pool.Exec(ctx, q, u.ID, u.Email, u.PwdHash, sessions, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	u.Ver = 1
	return nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// GetBySessionHash finds the user whose sessions array contains the token hash.
// The containment operator is served by the GIN index on sessions.
func (r *UserRepo) GetBySessionHash(ctx context.Context, tokenHash string) (*model.User, error) {
	const q = `
SELECT ` + userCols + `
FROM users
WHERE sessions @> jsonb_build_array(jsonb_build_object('token_hash', $1::text))`
	return scanUser(r.db.Pool.QueryRow(ctx, q, tokenHash))
}

// Save overwrites password hash and sessions if the row is still at u.Ver.
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	sessions, err := encodeSessions(u.Sessions)
	if err != nil {
		return err
	}
	const q = `
UPDATE users
SET pwd_hash=$3, sessions=$4, ver=ver+1, updated_at=$5
WHERE id=$1 AND ver=$2`
	tag, err := r.db.Pool.Exec(ctx, q, u.ID, u.Ver, u.PwdHash, sessions, u.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	u.Ver++
	return nil
}

// Delete removes a user row. Entries go with it through the foreign key cascade.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM users WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
