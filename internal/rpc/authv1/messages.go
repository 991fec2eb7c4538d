// Package authv1 defines the authcore.v1.Auth gRPC service. Messages are plain
// structs carried with a JSON codec selected by the "json" content-subtype.
package authv1

import "time"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Msg string `json:"msg"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokensResponse is returned by Login and Refresh.
type TokensResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"atExpiresAt"`
	RefreshExpiresAt time.Time `json:"rtExpiresAt"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutResponse struct {
	Msg string `json:"msg"`
}

type WhoamiRequest struct{}

type WhoamiResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type ListSessionsRequest struct{}

type Session struct {
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	UserAgent  string    `json:"userAgent"`
	IP         string    `json:"ip"`
}

type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
}
