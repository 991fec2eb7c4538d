package postgres

import (
	"context"
	"errors"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// EntryRepo implements EntryRepository using PostgreSQL.
type EntryRepo struct{ db *DB }

// NewEntryRepo constructs an entry repository.
func NewEntryRepo(db *DB) *EntryRepo { return &EntryRepo{db: db} }

func scanEntry(row pgx.Row) (*model.Entry, error) {
	var e model.Entry
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Create inserts a new entry row.
func (r *EntryRepo) Create(ctx context.Context, e *model.Entry) error {
	const q = `
INSERT INTO entries (id, user_id, title, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, e.ID, e.UserID, e.Title, e.Content, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get returns a single entry by id.
func (r *EntryRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error) {
	const q = `
SELECT id, user_id, title, content, created_at, updated_at
FROM entries WHERE user_id=$1 AND id=$2`
	return scanEntry(r.db.Pool.QueryRow(ctx, q, userID, id))
}

// Update locks the row, applies fn and writes title, content and updated_at back.
func (r *EntryRepo) Update(
	ctx context.Context, userID, id uuid.UUID, fn repository.EntryMutator,
) (out *model.Entry, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const sel = `
SELECT id, user_id, title, content, created_at, updated_at
FROM entries WHERE user_id=$1 AND id=$2 FOR UPDATE`
	const upd = `UPDATE entries SET title=$3, content=$4, updated_at=$5 WHERE user_id=$1 AND id=$2`

	cur, err := scanEntry(tx.QueryRow(ctx, sel, userID, id))
	if err != nil {
		return nil, err
	}
	if err = fn(cur); err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx, upd, userID, id, cur.Title, cur.Content, cur.UpdatedAt); err != nil {
		return nil, err
	}
	return cur, nil
}

// Delete removes a single entry.
func (r *EntryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM entries WHERE user_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// List returns all entries of a user, newest update first.
func (r *EntryRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Entry, error) {
	const q = `
SELECT id, user_id, title, content, created_at, updated_at
FROM entries
WHERE user_id=$1
ORDER BY updated_at DESC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Entry{}
	for rows.Next() {
		var e model.Entry
		if err = rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteByUser removes every entry owned by userID.
func (r *EntryRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const q = `DELETE FROM entries WHERE user_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
