package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/planner-usersync/internal/validation"
)

// New creates and configures an Echo app instance
func New(v *validation.Validator) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = v
	e.HTTPErrorHandler = newHTTPErrorHandler(v)

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"*"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	return e
}

// newHTTPErrorHandler renders every error as {"error": "..."}. Validation failures add
// per-field messages; anything that is not an *echo.HTTPError is logged and hidden behind a 500.
func newHTTPErrorHandler(v *validation.Validator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := echo.Map{"error": http.StatusText(http.StatusInternalServerError)}

		var httpErr *echo.HTTPError
		var validationErrs validator.ValidationErrors
		switch {
		case errors.As(err, &httpErr):
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				body["error"] = msg
			} else {
				body["error"] = http.StatusText(code)
			}
			if code >= http.StatusInternalServerError && httpErr.Internal != nil {
				log.Error().Err(httpErr.Internal).Str("path", c.Path()).Msg("Request failed")
			}
		case errors.As(err, &validationErrs):
			code = http.StatusBadRequest
			body["error"] = v.Message(validationErrs)
			body["fields"] = v.Fields(validationErrs)
		default:
			log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("Unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to write error response")
		}
	}
}
