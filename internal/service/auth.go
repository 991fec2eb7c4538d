// Package service contains application services for accounts, sessions and entries.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
	"github.com/and161185/authcore/internal/sanitize"
	"github.com/and161185/authcore/internal/token"
	"github.com/gofrs/uuid/v5"
)

// Messages returned on successful mutations.
const (
	MsgRegistered = "User registered successfully"
	MsgLoggedOut  = "Logged out of session"
	MsgDeleted    = "Account deleted"
)

// DefaultMaxSessions is used when Config.MaxSessions is not positive.
const DefaultMaxSessions = 5

// AuthService defines account and session lifecycle operations.
type AuthService interface {
	// Register creates an account with an empty session list.
	Register(ctx context.Context, email, password string) error
	// Login verifies credentials and opens a new session.
	Login(ctx context.Context, email, password string, meta model.ClientMeta) (model.Tokens, error)
	// Refresh rotates the session identified by refreshToken.
	Refresh(ctx context.Context, refreshToken string, meta model.ClientMeta) (model.Tokens, error)
	// Logout removes the session identified by refreshToken.
	Logout(ctx context.Context, refreshToken string) error
	// ListSessions returns the live sessions of a user.
	ListSessions(ctx context.Context, userID uuid.UUID) ([]model.SessionInfo, error)
	// DeleteAccount removes a user with all their entries.
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// Hasher hashes passwords and refresh tokens.
type Hasher interface {
	Hash(raw string) (string, error)
	Compare(raw, hash string) bool
	KeyedHash(raw string) string
}

// TokenIssuer mints access/refresh pairs.
type TokenIssuer interface {
	Pair(userID uuid.UUID, email string, now time.Time) (model.Tokens, error)
}

// Config carries the session ceiling, refresh token length and clock.
type Config struct {
	MaxSessions     int
	RefreshTokenLen int
	Now             func() time.Time
}

type AuthServiceImpl struct {
	users   repository.UserRepository
	entries repository.EntryRepository
	hasher  Hasher
	issuer  TokenIssuer
	cfg     Config
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	users repository.UserRepository,
	entries repository.EntryRepository,
	hasher Hasher,
	issuer TokenIssuer,
	cfg Config,
) *AuthServiceImpl {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.RefreshTokenLen <= 0 {
		cfg.RefreshTokenLen = token.RefreshTokenLen
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthServiceImpl{users: users, entries: entries, hasher: hasher, issuer: issuer, cfg: cfg}
}

var (
	errWrongCredentials  = errs.Auth("wrong email or password")
	errRefreshNotAllowed = errs.Auth("refresh token not allowed")
	errSessionExpired    = errs.Auth("session expired")
	errSessionNotFound   = errs.NotFound("session not found")
	errBadRefreshToken   = errs.Input("missing or invalid refresh token")
	errConcurrentUpdate  = errs.Conflict("concurrent session update")
)

// Register validates credentials and creates the account.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) error {
	email, err := sanitize.Email(email)
	if err != nil {
		return err
	}
	password, err = sanitize.Password(password)
	if err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return errs.Conflict("email already registered")
	} else if !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.cfg.Now()
	u := &model.User{
		ID:        uid,
		Email:     email,
		PwdHash:   hash,
		Sessions:  []model.Session{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return errs.Conflict("email already registered")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Login authenticates the user and appends a new session, pruning and capping the list.
// Unknown email and wrong password fail with the same error.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string, meta model.ClientMeta) (model.Tokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.Tokens{}, errs.Input("email")
	}
	if password == "" {
		return model.Tokens{}, errs.Input("password")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, errWrongCredentials
		}
		return model.Tokens{}, fmt.Errorf("lookup email: %w", err)
	}
	if !s.hasher.Compare(password, u.PwdHash) {
		return model.Tokens{}, errWrongCredentials
	}

	now := s.cfg.Now()
	tokens, err := s.issuer.Pair(u.ID, u.Email, now)
	if err != nil {
		return model.Tokens{}, err
	}
	meta = sanitize.Meta(meta)
	u.Sessions = append(u.Sessions, model.Session{
		TokenHash:  tokens.HashedRefreshToken,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  tokens.RefreshExpiresAt,
		UserAgent:  meta.UserAgent,
		IP:         meta.IP,
	})
	u.Sessions = pruneAndCap(u.Sessions, now, s.cfg.MaxSessions)
	u.UpdatedAt = now

	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, errs.ErrVersionConflict) {
			return model.Tokens{}, errConcurrentUpdate
		}
		return model.Tokens{}, fmt.Errorf("save sessions: %w", err)
	}
	return tokens, nil
}

// ownerOf validates refreshToken and resolves the account holding its hash.
func (s *AuthServiceImpl) ownerOf(ctx context.Context, refreshToken string) (*model.User, string, error) {
	if len(refreshToken) != s.cfg.RefreshTokenLen {
		return nil, "", errBadRefreshToken
	}
	hash := s.hasher.KeyedHash(refreshToken)
	u, err := s.users.GetBySessionHash(ctx, hash)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, "", errRefreshNotAllowed
		}
		return nil, "", fmt.Errorf("lookup session: %w", err)
	}
	return u, hash, nil
}

// Refresh rotates the session in place. The session keeps its original expiry;
// the presented token stops resolving once the new hash is saved.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string, meta model.ClientMeta) (model.Tokens, error) {
	u, hash, err := s.ownerOf(ctx, refreshToken)
	if err != nil {
		return model.Tokens{}, err
	}
	i := findSession(u.Sessions, hash)
	if i < 0 {
		return model.Tokens{}, errSessionNotFound
	}

	now := s.cfg.Now()
	if !u.Sessions[i].ExpiresAt.After(now) {
		u.Sessions, _ = removeSession(u.Sessions, hash)
		u.Sessions = pruneAndCap(u.Sessions, now, s.cfg.MaxSessions)
		u.UpdatedAt = now
		if err := s.users.Save(ctx, u); err != nil && !errors.Is(err, errs.ErrVersionConflict) {
			return model.Tokens{}, fmt.Errorf("save sessions: %w", err)
		}
		return model.Tokens{}, errSessionExpired
	}

	tokens, err := s.issuer.Pair(u.ID, u.Email, now)
	if err != nil {
		return model.Tokens{}, err
	}
	meta = sanitize.Meta(meta)
	sess := &u.Sessions[i]
	sess.TokenHash = tokens.HashedRefreshToken
	sess.CreatedAt = now
	sess.LastUsedAt = now
	sess.UserAgent = meta.UserAgent
	sess.IP = meta.IP
	tokens.RefreshExpiresAt = sess.ExpiresAt

	u.Sessions = pruneAndCap(u.Sessions, now, s.cfg.MaxSessions)
	u.UpdatedAt = now
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, errs.ErrVersionConflict) {
			return model.Tokens{}, errRefreshNotAllowed
		}
		return model.Tokens{}, fmt.Errorf("save sessions: %w", err)
	}
	return tokens, nil
}

// Logout removes the session identified by refreshToken.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	u, hash, err := s.ownerOf(ctx, refreshToken)
	if err != nil {
		return err
	}
	sessions, removed := removeSession(u.Sessions, hash)
	if !removed {
		return errSessionNotFound
	}
	now := s.cfg.Now()
	u.Sessions = pruneAndCap(sessions, now, s.cfg.MaxSessions)
	u.UpdatedAt = now
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, errs.ErrVersionConflict) {
			return errConcurrentUpdate
		}
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

// ListSessions returns the user's unexpired sessions, newest first. It does not write.
func (s *AuthServiceImpl) ListSessions(ctx context.Context, userID uuid.UUID) ([]model.SessionInfo, error) {
	if userID == uuid.Nil {
		return nil, errs.Input("user id")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, err
	}
	return sessionInfos(pruneAndCap(u.Sessions, s.cfg.Now(), s.cfg.MaxSessions)), nil
}

// DeleteAccount removes the user's entries and then the account itself.
func (s *AuthServiceImpl) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return errs.Input("user id")
	}
	if _, err := s.entries.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound("user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
