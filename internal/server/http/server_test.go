package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	pkgcrypto "github.com/and161185/authcore/internal/crypto"
	"github.com/and161185/authcore/internal/metrics"
	"github.com/and161185/authcore/internal/repository/memory"
	"github.com/and161185/authcore/internal/service"
	"github.com/and161185/authcore/internal/token"
)

const (
	testEmail    = "user1@test.com"
	testPassword = "Strong@123"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

// brokenAuth fails registration the way an unreachable store would.
type brokenAuth struct{ service.AuthService }

func (brokenAuth) Register(context.Context, string, string) error {
	return errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := memory.New()
	hasher := pkgcrypto.NewHasher(bcrypt.MinCost, []byte("refresh-secret"))
	issuer := token.NewIssuer(token.Config{
		Secret:     []byte("access-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	}, hasher)
	return New(Deps{
		Auth:     service.NewAuthService(store.Users(), store.Entries(), hasher, issuer, service.Config{MaxSessions: 2}),
		Entries:  service.NewEntryService(store.Entries(), nil),
		Verifier: service.NewVerifier(store.Users(), issuer, nil),
		Metrics:  metrics.New(),
		Origins:  []string{"http://localhost:5173"},
	})
}

func do(t *testing.T, e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	req.Header.Set("User-Agent", "http-test")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func login(t *testing.T, e *echo.Echo) tokensResponse {
	t.Helper()
	creds := `{"email":"` + testEmail + `","password":"` + testPassword + `"}`
	rec := do(t, e, http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[tokensResponse](t, rec)
}

func registerAndLogin(t *testing.T, e *echo.Echo) tokensResponse {
	t.Helper()
	creds := `{"email":"` + testEmail + `","password":"` + testPassword + `"}`
	rec := do(t, e, http.MethodPost, "/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, service.MsgRegistered, decodeBody[msgResponse](t, rec).Msg)
	return login(t, e)
}

func TestRegister_Errors(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	registerAndLogin(t, e)

	rec := do(t, e, http.MethodPost, "/auth/register", `{"email":"`+testEmail+`","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/register", `{"email":"bad","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid input: email", decodeBody[map[string]string](t, rec)["err"])

	rec = do(t, e, http.MethodPost, "/auth/register", `{"email":"a@b.io","extra":1}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/register", `not json`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	wide := "Aa!" + strings.Repeat("😀", 27)
	rec = do(t, e, http.MethodPost, "/auth/register", `{"email":"wide@test.com","password":"`+wide+`"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestInternalErrorIsLoggedAndHidden(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	e := New(Deps{Auth: brokenAuth{}, Log: zap.New(core)})

	rec := do(t, e, http.MethodPost, "/auth/register", `{"email":"`+testEmail+`","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", decodeBody[map[string]string](t, rec)["err"])
	require.NotContains(t, rec.Body.String(), "10.0.0.5")

	errLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errLogs, 1)
	require.Contains(t, errLogs[0].ContextMap()["error"], "connection refused")
	require.Equal(t, "/auth/register", errLogs[0].ContextMap()["route"])
}

func TestLogin_WrongCredentials(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	registerAndLogin(t, e)

	bad := do(t, e, http.MethodPost, "/auth/login", `{"email":"`+testEmail+`","password":"Wrong@123"}`, "")
	unknown := do(t, e, http.MethodPost, "/auth/login", `{"email":"nobody@test.com","password":"Wrong@123"}`, "")
	require.Equal(t, http.StatusUnauthorized, bad.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, bad.Body.String(), unknown.Body.String())
}

func TestRefreshRotationAndLogout(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	tok := registerAndLogin(t, e)
	require.Len(t, tok.RefreshToken, token.RefreshTokenLen)
	require.True(t, tok.RefreshExpiresAt.After(tok.AccessExpiresAt))

	rec := do(t, e, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+tok.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decodeBody[tokensResponse](t, rec)
	require.NotEqual(t, tok.RefreshToken, next.RefreshToken)
	require.True(t, next.RefreshExpiresAt.Equal(tok.RefreshExpiresAt))

	rec = do(t, e, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+tok.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/refresh", `{"refreshToken":"short"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/logout", `{"refreshToken":"`+next.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, service.MsgLoggedOut, decodeBody[msgResponse](t, rec).Msg)

	rec = do(t, e, http.MethodPost, "/auth/logout", `{"refreshToken":"`+next.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionsAndMe(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	tok := registerAndLogin(t, e)
	login(t, e)
	login(t, e)

	rec := do(t, e, http.MethodGet, "/auth/sessions", "", tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decodeBody[[]sessionResponse](t, rec)
	require.Len(t, sessions, 2)
	require.Equal(t, "http-test", sessions[0].UserAgent)
	require.NotEmpty(t, sessions[0].IP)

	rec = do(t, e, http.MethodGet, "/me", "", tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, testEmail, decodeBody[identityResponse](t, rec).Email)

	rec = do(t, e, http.MethodGet, "/me", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/me", "", "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized: invalid or expired access token", decodeBody[map[string]string](t, rec)["err"])
}

func TestEntriesCRUD(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	tok := registerAndLogin(t, e)

	rec := do(t, e, http.MethodPost, "/entries", `{"title":" Note ","content":"hello"}`, tok.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[entryResponse](t, rec)
	require.Equal(t, "Note", created.Title)

	rec = do(t, e, http.MethodPatch, "/entries/"+created.ID, `{"content":"bye"}`, tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "bye", decodeBody[entryResponse](t, rec).Content)

	rec = do(t, e, http.MethodGet, "/entries", "", tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]entryResponse](t, rec), 1)

	rec = do(t, e, http.MethodGet, "/entries/not-a-uuid", "", tok.AccessToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodDelete, "/entries/"+created.ID, "", tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/entries/"+created.ID, "", tok.AccessToken)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	tok := registerAndLogin(t, e)

	rec := do(t, e, http.MethodDelete, "/account", "", tok.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/me", "", tok.AccessToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodPost, "/auth/refresh", `{"refreshToken":"`+tok.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthzMetricsAndUnknownRoute(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, decodeBody[map[string]string](t, rec), "err")

	rec = do(t, e, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "authcore_requests_total")

	down := New(Deps{Health: failingPinger{}})
	rec = do(t, down, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}
