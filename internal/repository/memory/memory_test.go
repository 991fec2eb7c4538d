package memory

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func newUser(email string, hashes ...string) *model.User {
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: email, PwdHash: "h"}
	for _, h := range hashes {
		u.Sessions = append(u.Sessions, model.Session{TokenHash: h})
	}
	return u
}

func TestUserRepo_CreateAndLookups(t *testing.T) {
	t.Parallel()
	r := New().Users()
	ctx := context.Background()

	u := newUser("a@test.com", "h1")
	require.NoError(t, r.Create(ctx, u))
	require.Equal(t, int64(1), u.Ver)

	require.ErrorIs(t, r.Create(ctx, newUser("a@test.com")), errs.ErrAlreadyExists)

	got, err := r.GetByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	got, err = r.GetBySessionHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = r.GetByID(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = r.GetBySessionHash(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()
	r := New().Users()
	ctx := context.Background()

	u := newUser("a@test.com", "h1")
	require.NoError(t, r.Create(ctx, u))

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.Sessions[0].TokenHash = "mutated"

	again, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "h1", again.Sessions[0].TokenHash)
}

func TestUserRepo_SaveReindexesAndChecksVersion(t *testing.T) {
	t.Parallel()
	r := New().Users()
	ctx := context.Background()

	u := newUser("a@test.com", "h1")
	require.NoError(t, r.Create(ctx, u))

	first, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	second, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)

	first.Sessions = []model.Session{{TokenHash: "h2"}}
	require.NoError(t, r.Save(ctx, first))
	require.Equal(t, int64(2), first.Ver)

	_, err = r.GetBySessionHash(ctx, "h1")
	require.ErrorIs(t, err, errs.ErrNotFound)
	got, err := r.GetBySessionHash(ctx, "h2")
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Ver)

	second.Sessions = nil
	require.ErrorIs(t, r.Save(ctx, second), errs.ErrVersionConflict)
	require.Equal(t, int64(1), second.Ver)
}

func TestUserRepo_Delete(t *testing.T) {
	t.Parallel()
	r := New().Users()
	ctx := context.Background()

	u := newUser("a@test.com", "h1")
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.Delete(ctx, u.ID))
	require.ErrorIs(t, r.Delete(ctx, u.ID), errs.ErrNotFound)

	_, err := r.GetBySessionHash(ctx, "h1")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, r.Save(ctx, u), errs.ErrVersionConflict)

	require.NoError(t, r.Create(ctx, newUser("a@test.com")))
}

func TestUserRepo_CanceledContext(t *testing.T) {
	t.Parallel()
	r := New().Users()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetByEmail(ctx, "a@test.com")
	require.ErrorIs(t, err, context.Canceled)
}

func TestEntryRepo_OwnerScoped(t *testing.T) {
	t.Parallel()
	r := New().Entries()
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	other := uuid.Must(uuid.NewV4())
	now := time.Now()

	e := &model.Entry{ID: uuid.Must(uuid.NewV4()), UserID: owner, Title: "t", Content: "c", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, r.Create(ctx, e))

	_, err := r.Get(ctx, other, e.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = r.Update(ctx, other, e.ID, func(*model.Entry) error { return nil })
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, other, e.ID), errs.ErrNotFound)

	upd, err := r.Update(ctx, owner, e.ID, func(x *model.Entry) error {
		x.Title = "t2"
		x.UserID = other
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "t2", upd.Title)
	require.Equal(t, owner, upd.UserID)

	require.NoError(t, r.Delete(ctx, owner, e.ID))
	_, err = r.Get(ctx, owner, e.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEntryRepo_ListOrderAndDeleteByUser(t *testing.T) {
	t.Parallel()
	r := New().Entries()
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	other := uuid.Must(uuid.NewV4())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, title := range []string{"old", "new", "mid"} {
		ts := base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Minute)
		require.NoError(t, r.Create(ctx, &model.Entry{ID: uuid.Must(uuid.NewV4()), UserID: owner, Title: title, UpdatedAt: ts}))
	}
	require.NoError(t, r.Create(ctx, &model.Entry{ID: uuid.Must(uuid.NewV4()), UserID: other, Title: "x"}))

	out, err := r.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, []string{"new", "mid", "old"}, []string{out[0].Title, out[1].Title, out[2].Title})

	n, err := r.DeleteByUser(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	out, err = r.List(ctx, owner)
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = r.List(ctx, other)
	require.NoError(t, err)
	require.Len(t, out, 1)
}
