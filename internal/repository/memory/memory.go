// Package memory provides in-process repository implementations.
// They back the "memory" store driver and the service tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// Store holds users and entries behind a single lock.
type Store struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
	byHash  map[string]uuid.UUID
	entries map[uuid.UUID]model.Entry
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:   map[uuid.UUID]model.User{},
		byEmail: map[string]uuid.UUID{},
		byHash:  map[string]uuid.UUID{},
		entries: map[uuid.UUID]model.Entry{},
	}
}

// Users returns the store as a UserRepository.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Entries returns the store as an EntryRepository.
func (s *Store) Entries() *EntryRepo { return &EntryRepo{s: s} }

func cloneUser(u model.User) *model.User {
	u.Sessions = slices.Clone(u.Sessions)
	return &u
}

func (s *Store) indexSessions(u model.User) {
	for _, ss := range u.Sessions {
		s.byHash[ss.TokenHash] = u.ID
	}
}

func (s *Store) unindexSessions(u model.User) {
	for _, ss := range u.Sessions {
		if s.byHash[ss.TokenHash] == u.ID {
			delete(s.byHash, ss.TokenHash)
		}
	}
}

// UserRepo implements repository.UserRepository in memory.
type UserRepo struct{ s *Store }

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.byEmail[u.Email]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := r.s.users[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	u.Ver = 1
	stored := *cloneUser(*u)
	r.s.users[u.ID] = stored
	r.s.byEmail[u.Email] = u.ID
	r.s.indexSessions(stored)
	return nil
}

func (r *UserRepo) get(id uuid.UUID) (*model.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.get(id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.get(id)
}

func (r *UserRepo) GetBySessionHash(ctx context.Context, tokenHash string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byHash[tokenHash]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.get(id)
}

func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok || cur.Ver != u.Ver {
		return errs.ErrVersionConflict
	}
	next := *cloneUser(*u)
	next.Email = cur.Email
	next.CreatedAt = cur.CreatedAt
	next.Ver = cur.Ver + 1
	r.s.unindexSessions(cur)
	r.s.users[u.ID] = next
	r.s.indexSessions(next)
	u.Ver = next.Ver
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	r.s.unindexSessions(cur)
	delete(r.s.byEmail, cur.Email)
	delete(r.s.users, id)
	return nil
}

// EntryRepo implements repository.EntryRepository in memory.
type EntryRepo struct{ s *Store }

var _ repository.EntryRepository = (*EntryRepo)(nil)

func (r *EntryRepo) Create(ctx context.Context, e *model.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entries[e.ID]; ok {
		return errs.ErrAlreadyExists
	}
	r.s.entries[e.ID] = *e
	return nil
}

func (r *EntryRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[id]
	if !ok || e.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return &e, nil
}

func (r *EntryRepo) Update(ctx context.Context, userID, id uuid.UUID, fn repository.EntryMutator) (*model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.UserID != userID {
		return nil, errs.ErrNotFound
	}
	if err := fn(&e); err != nil {
		return nil, err
	}
	e.ID, e.UserID = id, userID
	r.s.entries[id] = e
	return &e, nil
}

func (r *EntryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.UserID != userID {
		return errs.ErrNotFound
	}
	delete(r.s.entries, id)
	return nil
}

func (r *EntryRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Entry{}
	for _, e := range r.s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Entry) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (r *EntryRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, e := range r.s.entries {
		if e.UserID == userID {
			delete(r.s.entries, id)
			n++
		}
	}
	return n, nil
}
