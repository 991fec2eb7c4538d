package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/labstack/echo/v4"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/metrics"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/service"
)

type handler struct {
	auth    service.AuthService
	entries service.EntryService
	metrics *metrics.Metrics
	health  Pinger
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"max=1024"`
	Password string `json:"password" validate:"max=1024"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"max=1024"`
}

type tokensResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"atExpiresAt"`
	RefreshExpiresAt time.Time `json:"rtExpiresAt"`
}

type msgResponse struct {
	Msg string `json:"msg"`
}

type sessionResponse struct {
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	UserAgent  string    `json:"userAgent"`
	IP         string    `json:"ip"`
}

type identityResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type entryCreateRequest struct {
	Title   string `json:"title" validate:"max=10000"`
	Content string `json:"content" validate:"max=100000"`
}

type entryUpdateRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=10000"`
	Content *string `json:"content" validate:"omitempty,max=100000"`
}

type entryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// decode reads a strict JSON body into target and runs struct validation.
func decode(c echo.Context, target any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return errs.Input("malformed request body")
	}
	return c.Validate(target)
}

func clientMeta(c echo.Context) model.ClientMeta {
	return model.ClientMeta{UserAgent: c.Request().UserAgent(), IP: c.RealIP()}
}

func toTokens(t model.Tokens) tokensResponse {
	return tokensResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

func toEntry(e *model.Entry) entryResponse {
	return entryResponse{
		ID:        e.ID.String(),
		Title:     e.Title,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (h *handler) Healthz(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Ping(c.Request().Context()); err != nil {
			return writeError(c, http.StatusServiceUnavailable, "storage unavailable")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := decode(c, &req); err != nil {
		return writeServiceError(c, err)
	}
	err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	h.metrics.AuthOp("register", err)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, msgResponse{Msg: service.MsgRegistered})
}

func (h *handler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := decode(c, &req); err != nil {
		return writeServiceError(c, err)
	}
	tokens, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, clientMeta(c))
	h.metrics.AuthOp("login", err)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toTokens(tokens))
}

func (h *handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := decode(c, &req); err != nil {
		return writeServiceError(c, err)
	}
	tokens, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken, clientMeta(c))
	h.metrics.AuthOp("refresh", err)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toTokens(tokens))
}

func (h *handler) Logout(c echo.Context) error {
	var req refreshRequest
	if err := decode(c, &req); err != nil {
		return writeServiceError(c, err)
	}
	err := h.auth.Logout(c.Request().Context(), req.RefreshToken)
	h.metrics.AuthOp("logout", err)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, msgResponse{Msg: service.MsgLoggedOut})
}

func (h *handler) Sessions(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	infos, err := h.auth.ListSessions(c.Request().Context(), id.UserID)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]sessionResponse, 0, len(infos))
	for _, s := range infos {
		out = append(out, sessionResponse(s))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) Me(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	return c.JSON(http.StatusOK, identityResponse{UserID: id.UserID.String(), Email: id.Email})
}

func (h *handler) DeleteAccount(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	if err := h.auth.DeleteAccount(c.Request().Context(), id.UserID); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, msgResponse{Msg: service.MsgDeleted})
}

func entryID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		return uuid.Nil, errs.Input("entry id")
	}
	return id, nil
}

func (h *handler) CreateEntry(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	var req entryCreateRequest
	if err := decode(c, &req); err != nil {
		return writeServiceError(c, err)
	}
	e, err := h.entries.Create(c.Request().Context(), id.UserID, req.Title, req.Content)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, toEntry(e))
}

func (h *handler) ListEntries(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	list, err := h.entries.List(c.Request().Context(), id.UserID)
	if err != nil {
		return writeServiceError(c, err)
	}
	out := make([]entryResponse, 0, len(list))
	for i := range list {
		out = append(out, toEntry(&list[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) GetEntry(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	eid, err := entryID(c)
	if err != nil {
		return writeServiceError(c, err)
	}
	e, err := h.entries.Get(c.Request().Context(), id.UserID, eid)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toEntry(e))
}

func (h *handler) UpdateEntry(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	eid, err := entryID(c)
	if err != nil {
		return writeServiceError(c, err)
	}
	var req entryUpdateRequest
	if err := decode(c, &req); err != nil {
		return writeServiceError(c, err)
	}
	e, err := h.entries.Update(c.Request().Context(), id.UserID, eid, req.Title, req.Content)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toEntry(e))
}

func (h *handler) DeleteEntry(c echo.Context) error {
	id, _ := IdentityFromContext(c)
	eid, err := entryID(c)
	if err != nil {
		return writeServiceError(c, err)
	}
	if err := h.entries.Delete(c.Request().Context(), id.UserID, eid); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, msgResponse{Msg: "Entry deleted"})
}
