// Package httpserver exposes the auth and entry services over a JSON HTTP API.
package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/metrics"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/service"
)

// IdentityVerifier resolves an Authorization header to the calling account.
type IdentityVerifier interface {
	Verify(ctx context.Context, header string) (model.Identity, error)
}

// Pinger reports backend availability for /healthz. Nil means always healthy.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth     service.AuthService
	Entries  service.EntryService
	Verifier IdentityVerifier
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Health   Pinger
	Origins  []string
}

type requestValidator struct{ v *validator.Validate }

func (r requestValidator) Validate(i any) error {
	if err := r.v.Struct(i); err != nil {
		return errs.Input("malformed request")
	}
	return nil
}

// New builds the echo instance with middleware and routes registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = requestValidator{v: validator.New()}
	e.HTTPErrorHandler = errorHandler(d.Log)

	e.Use(echoMiddleware.Recover())
	e.Use(observe(d.Metrics))
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRoutePath: true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echoMiddleware.RequestLoggerValues) error {
			d.Log.Info("http",
				zap.String("method", v.Method),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("dur", v.Latency),
				zap.String("peer", v.RemoteIP),
			)
			return nil
		},
	}))
	if len(d.Origins) > 0 {
		e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
			AllowOrigins:     d.Origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}

	h := &handler{auth: d.Auth, entries: d.Entries, metrics: d.Metrics, health: d.Health}
	auth := authMiddleware{verifier: d.Verifier}

	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	g := e.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/sessions", h.Sessions, auth.RequireAuth)

	e.GET("/me", h.Me, auth.RequireAuth)
	e.DELETE("/account", h.DeleteAccount, auth.RequireAuth)

	en := e.Group("/entries", auth.RequireAuth)
	en.POST("", h.CreateEntry)
	en.GET("", h.ListEntries)
	en.GET("/:id", h.GetEntry)
	en.PATCH("/:id", h.UpdateEntry)
	en.DELETE("/:id", h.DeleteEntry)

	return e
}

// Serve runs e on srv until ctx is cancelled, then shuts it down within grace.
func Serve(ctx context.Context, e *echo.Echo, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(srv); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func observe(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest("http", route, strconv.Itoa(c.Response().Status), time.Since(start))
			return nil
		}
	}
}
