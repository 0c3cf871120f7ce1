package middleware

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

type ErrorResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		logger.WithContext(ctx).WithError(err).Error("api is returning an error")
		if c.Response().Committed {
			return
		}

		code, message, meta := resolveError(err)

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			RequestID: context.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}

func resolveError(err error) (int, string, map[string]any) {
	meta := map[string]any{}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
		return he.Code, message, meta
	}

	var transitionErr *models.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		meta["id"] = transitionErr.ID
		meta["status"] = transitionErr.From
		return http.StatusConflict, transitionErr.Error(), meta
	}

	var mentionErr *models.InvalidMentionError
	if errors.As(err, &mentionErr) {
		return http.StatusBadRequest, mentionErr.Error(), meta
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			meta[fe.Namespace()] = fe.Tag()
		}
		return http.StatusBadRequest, "request validation failed", meta
	}

	if httperror.IsHTTPError(err) {
		httperr := httperror.ToHTTPError(err)
		if httperr.Meta != nil {
			meta = httperr.Meta
		}
		return httperror.GetStatusCode(err), httperr.Error(), meta
	}

	return http.StatusInternalServerError, "Internal Server Error", meta
}
