package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/authcore/internal/errs"
)

// statusOf maps an error kind to an HTTP status.
func statusOf(err error) int {
	switch errs.Kind(err) {
	case errs.ErrInvalidInput:
		return http.StatusBadRequest
	case errs.ErrUnauthorized:
		return http.StatusUnauthorized
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrAlreadyExists, errs.ErrVersionConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"err": msg})
}

// writeServiceError renders a classified failure. Unclassified ones are
// returned so errorHandler logs the cause before hiding it.
func writeServiceError(c echo.Context, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		return err
	}
	return writeError(c, status, errs.Message(err))
}

// errorHandler renders errors that escape handlers, including echo's own
// routing errors, in the same {"err": ...} shape.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := fmt.Sprint(he.Message)
			if he.Code >= http.StatusInternalServerError {
				log.Error("http handler", zap.Error(err))
				msg = errs.ErrInternal.Error()
			}
			_ = writeError(c, he.Code, msg)
			return
		}
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			log.Error("http handler", zap.Error(err), zap.String("route", c.Path()))
		}
		_ = writeError(c, status, errs.Message(err))
	}
}
