package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/sage/pkg/models"
)

func TestResolveError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed},
		{"invalid transition", &models.InvalidTransitionError{ID: "a", From: models.PendingLinkStatusApproved, To: models.PendingLinkStatusRejected}, http.StatusConflict},
		{"wrapped invalid transition", fmt.Errorf("review: %w", &models.InvalidTransitionError{ID: "a"}), http.StatusConflict},
		{"invalid mention", &models.InvalidMentionError{Reason: "empty name"}, http.StatusBadRequest},
		{"http error", httperror.NewHTTPError(http.StatusNotFound, "player not found"), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message, meta := resolveError(tt.err)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, message)
			assert.NotNil(t, meta)
		})
	}
}

func TestResolveError_TransitionMeta(t *testing.T) {
	_, _, meta := resolveError(&models.InvalidTransitionError{ID: "link-1", From: models.PendingLinkStatusApproved, To: models.PendingLinkStatusApproved})
	assert.Equal(t, "link-1", meta["id"])
	assert.Equal(t, models.PendingLinkStatusApproved, meta["status"])
}
