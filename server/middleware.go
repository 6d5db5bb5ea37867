package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cohesivestack/valgo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joshjon/cryptkit/errtag"
	"github.com/joshjon/cryptkit/log"
	"github.com/joshjon/cryptkit/valgoutil"
)

func newRequestLoggerConfig(logger log.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogValuesFunc:    logValuesFunc(logger),
		LogLatency:       true,
		LogRemoteIP:      true,
		LogMethod:        true,
		LogURI:           true,
		LogStatus:        true,
		LogError:         true,
		LogRequestID:     true,
		LogContentLength: true,
		LogResponseSize:  true,
	}
}

// logValuesFunc logs one record per request. Client errors are logged at warn
// and server errors at error so failed decryptions do not page anyone.
func logValuesFunc(logger log.Logger) func(c echo.Context, v middleware.RequestLoggerValues) error {
	return func(c echo.Context, v middleware.RequestLoggerValues) error {
		if v.Method == http.MethodOptions {
			return nil
		}

		args := []any{
			"method", v.Method,
			"uri", v.URI,
			"status", v.Status,
			"latency_ms", v.Latency.Milliseconds(),
			"request_size", v.ContentLength,
			"response_size", v.ResponseSize,
			"remote_ip", v.RemoteIP,
		}
		if v.RequestID != "" {
			args = append(args, "request_id", v.RequestID)
		}

		level := slog.LevelInfo
		message := "request"
		if v.Error != nil {
			message = "request error"
			status := v.Status
			var herr HTTPError
			if errors.As(v.Error, &herr) {
				status = herr.Code
				args = append(args, "http_error", herr.Error(), "error", herr.Internal)
			} else {
				args = append(args, "error", v.Error.Error())
			}
			level = slog.LevelWarn
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
		}

		logger.Log(c.Request().Context(), level, message, args...)
		return v.Error
	}
}

// errorTransformMiddleware converts handler errors into HTTPError. Tagged
// errors keep their code and client message, validation errors become 400s
// with per field details and anything else is an opaque 500.
func errorTransformMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil {
			return nil
		}

		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			msg := http.StatusText(echoErr.Code)
			if echoErr.Message != nil {
				msg = fmt.Sprintf("%v", echoErr.Message)
			}
			return HTTPError{
				Code:     echoErr.Code,
				Internal: echoErr.Error(),
				Message:  msg,
			}
		}

		var verr *valgo.Error
		var tagged errtag.Tagger

		switch {
		case errors.As(err, &verr):
			details := valgoutil.GetDetails(verr)
			tagged = errtag.Tag[errtag.InvalidArgument](
				fmt.Errorf("validate request: %s", strings.Join(details, "; ")),
				errtag.WithMsg("invalid request"),
				errtag.WithDetails(details...),
			)
		case errors.As(err, &tagged):
		case errors.Is(err, context.DeadlineExceeded):
			tagged = errtag.Tag[errtag.Unavailable](err, errtag.WithMsg("request timed out"))
		default:
			tagged = errtag.Tag[errtag.Internal](err)
		}

		return HTTPError{
			Code:     tagged.Code(),
			Internal: tagged.Error(),
			Message:  tagged.Msg(),
			Details:  tagged.Details(),
		}
	}
}

func httpErrorHandlerFunc(logger log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var herr HTTPError
		if !errors.As(err, &herr) {
			herr.Code = http.StatusInternalServerError
			herr.Message = http.StatusText(http.StatusInternalServerError)
			if err != nil {
				herr.Internal = err.Error()
			}
		}
		if err = SetResponseError(c, herr.Code, herr); err != nil {
			logger.Error("failed to set response error", "error", err, "http_error", herr)
		}
	}
}
