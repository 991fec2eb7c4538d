package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
	"github.com/and161185/authcore/internal/sanitize"
)

// Entry field bounds, in characters after trimming.
const (
	TitleMinLen   = 1
	TitleMaxLen   = 100
	ContentMinLen = 1
	ContentMaxLen = 5000
)

// EntryService defines owner-scoped operations over entries.
type EntryService interface {
	// Create stores a new entry for userID.
	Create(ctx context.Context, userID uuid.UUID, title, content string) (*model.Entry, error)
	// Get returns a single entry.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error)
	// Update changes the provided fields; nil fields are left as is.
	Update(ctx context.Context, userID, id uuid.UUID, title, content *string) (*model.Entry, error)
	// Delete removes an entry.
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// List returns the user's entries, most recently updated first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Entry, error)
}

type EntryServiceImpl struct {
	repo repository.EntryRepository
	now  func() time.Time
}

// NewEntryService constructs EntryService. now defaults to time.Now.
func NewEntryService(repo repository.EntryRepository, now func() time.Time) *EntryServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &EntryServiceImpl{repo: repo, now: now}
}

var errEntryNotFound = errs.NotFound("entry not found/unauthorized")

func entryErr(err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errEntryNotFound
	}
	return err
}

func checkIDs(userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return errs.Input("user id")
	}
	if id == uuid.Nil {
		return errs.Input("entry id")
	}
	return nil
}

// Create validates fields and stores the entry.
func (s *EntryServiceImpl) Create(ctx context.Context, userID uuid.UUID, title, content string) (*model.Entry, error) {
	if userID == uuid.Nil {
		return nil, errs.Input("user id")
	}
	title, err := sanitize.StringField(title, TitleMinLen, TitleMaxLen, "title")
	if err != nil {
		return nil, err
	}
	content, err = sanitize.StringField(content, ContentMinLen, ContentMaxLen, "content")
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now()
	e := &model.Entry{ID: id, UserID: userID, Title: title, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get fetches a single entry owned by userID.
func (s *EntryServiceImpl) Get(ctx context.Context, userID, id uuid.UUID) (*model.Entry, error) {
	if err := checkIDs(userID, id); err != nil {
		return nil, err
	}
	e, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, entryErr(err)
	}
	return e, nil
}

// Update applies a partial change. At least one field must be given.
func (s *EntryServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, title, content *string) (*model.Entry, error) {
	if err := checkIDs(userID, id); err != nil {
		return nil, err
	}
	if title == nil && content == nil {
		return nil, errs.Input("nothing to update")
	}
	var newTitle, newContent string
	var err error
	if title != nil {
		if newTitle, err = sanitize.StringField(*title, TitleMinLen, TitleMaxLen, "title"); err != nil {
			return nil, err
		}
	}
	if content != nil {
		if newContent, err = sanitize.StringField(*content, ContentMinLen, ContentMaxLen, "content"); err != nil {
			return nil, err
		}
	}
	now := s.now()
	e, err := s.repo.Update(ctx, userID, id, func(e *model.Entry) error {
		if title != nil {
			e.Title = newTitle
		}
		if content != nil {
			e.Content = newContent
		}
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, entryErr(err)
	}
	return e, nil
}

// Delete removes an entry owned by userID.
func (s *EntryServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := checkIDs(userID, id); err != nil {
		return err
	}
	return entryErr(s.repo.Delete(ctx, userID, id))
}

// List returns every entry owned by userID.
func (s *EntryServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Entry, error) {
	if userID == uuid.Nil {
		return nil, errs.Input("user id")
	}
	return s.repo.List(ctx, userID)
}
