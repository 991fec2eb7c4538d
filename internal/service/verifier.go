package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
	"github.com/and161185/authcore/internal/token"
	"github.com/gofrs/uuid/v5"
)

const bearerPrefix = "Bearer "

// AccessTokenParser validates access tokens.
type AccessTokenParser interface {
	ParseAccessToken(raw string, now time.Time) (*token.AccessClaims, error)
}

// Verifier resolves an Authorization header to a live account.
// It checks the token cryptographically and the account's existence; it never
// consults the session list, so logout does not revoke issued access tokens.
type Verifier struct {
	users  repository.UserRepository
	parser AccessTokenParser
	now    func() time.Time
}

// NewVerifier constructs a Verifier. now defaults to time.Now.
func NewVerifier(users repository.UserRepository, parser AccessTokenParser, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{users: users, parser: parser, now: now}
}

var errAccessToken = errs.Auth("invalid or expired access token")

// Verify checks header and returns the caller's identity.
func (v *Verifier) Verify(ctx context.Context, header string) (model.Identity, error) {
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return model.Identity{}, errs.Input("missing or invalid auth header")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return model.Identity{}, errs.Input("missing or invalid auth header")
	}

	claims, err := v.parser.ParseAccessToken(raw, v.now())
	if err != nil {
		return model.Identity{}, errAccessToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return model.Identity{}, errAccessToken
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil || uid == uuid.Nil {
		return model.Identity{}, errAccessToken
	}

	u, err := v.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Identity{}, errAccessToken
		}
		return model.Identity{}, err
	}
	return model.Identity{UserID: u.ID, Email: u.Email}, nil
}
