// Package token mints and parses the credentials handed to clients: a signed,
// short-lived access JWT and an opaque, high-entropy refresh string.
package token

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/authcore/internal/crypto"
	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
)

// RefreshTokenLen is the fixed length of an encoded refresh token.
const RefreshTokenLen = 96

// ErrInvalidToken is returned when an access token fails signature, expiry or format checks.
var ErrInvalidToken = errors.New("invalid token")

// Config holds issuer parameters. It is injected so tests can vary TTLs.
type Config struct {
	Secret     []byte        // HS256 signing key
	AccessTTL  time.Duration // access token lifetime
	RefreshTTL time.Duration // refresh session lifetime
	RefreshLen int           // encoded refresh token length; RefreshTokenLen when zero
}

// KeyedHasher computes the deterministic hash stored for refresh tokens.
type KeyedHasher interface {
	KeyedHash(raw string) string
}

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer mints token pairs. It has no state beyond its configuration.
type Issuer struct {
	cfg    Config
	hasher KeyedHasher
}

// NewIssuer constructs an Issuer.
func NewIssuer(cfg Config, hasher KeyedHasher) *Issuer {
	if cfg.RefreshLen <= 0 {
		cfg.RefreshLen = RefreshTokenLen
	}
	return &Issuer{cfg: cfg, hasher: hasher}
}

// RefreshLen returns the encoded length of refresh tokens produced by this issuer.
func (i *Issuer) RefreshLen() int { return i.cfg.RefreshLen }

// IssueAccessToken creates a signed HS256 JWT carrying the user's id and email.
func (i *Issuer) IssueAccessToken(userID uuid.UUID, email string, now time.Time) (string, error) {
	if userID == uuid.Nil {
		return "", errs.Internal("invalid user ID for token generation")
	}
	if email == "" {
		return "", errs.Internal("invalid email for token generation")
	}
	jti, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return "", err
	}
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        hex.EncodeToString(jti),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.cfg.Secret)
}

// IssueRefreshToken returns a random hex string of exactly RefreshLen characters.
// It embeds no identity; the owner is found only through the stored keyed hash.
func (i *Issuer) IssueRefreshToken() (string, error) {
	if i.cfg.RefreshLen%2 != 0 {
		return "", errs.Internal("refresh token length must be even")
	}
	b, err := pkgcrypto.RandBytes(i.cfg.RefreshLen / 2)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Pair issues an access + refresh token pair with both expiry instants and the
// refresh token's keyed hash for storage.
func (i *Issuer) Pair(userID uuid.UUID, email string, now time.Time) (model.Tokens, error) {
	access, err := i.IssueAccessToken(userID, email, now)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh, err := i.IssueRefreshToken()
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{
		AccessToken:        access,
		RefreshToken:       refresh,
		HashedRefreshToken: i.hasher.KeyedHash(refresh),
		AccessExpiresAt:    now.Add(i.cfg.AccessTTL),
		RefreshExpiresAt:   now.Add(i.cfg.RefreshTTL),
	}, nil
}

// ParseAccessToken verifies signature and expiry of raw as of now and returns its claims.
func (i *Issuer) ParseAccessToken(raw string, now time.Time) (*AccessClaims, error) {
	var claims AccessClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return i.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
