package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"bookstore-service/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func statusOf(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAuthentication:
		return http.StatusUnauthorized
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// respondError writes err as {"error": message} with the status of its kind.
func respondError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	if kind == service.KindDependency {
		logger.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Str("uri", c.Request().RequestURI).
			Msg("Request failed")
	}
	return c.JSON(statusOf(kind), errorBody(service.MessageOf(err)))
}

// HTTPErrorHandler turns errors that escape handlers and middleware into the
// same {"error": message} body the handlers use.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch code {
		case http.StatusNotFound:
			msg = "Endpoint not found"
		case http.StatusMethodNotAllowed:
			msg = "Method not allowed"
		default:
			if s, ok := he.Message.(string); ok && code < http.StatusInternalServerError {
				msg = s
			}
		}
	}
	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("Unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody(msg))
	}
	if err != nil {
		logger.Error().Err(err).Msg("Error writing error response")
	}
}
