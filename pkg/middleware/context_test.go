package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/context"
)

func TestContext(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		reviewer  string
		wantRev   string
	}{
		{"generates request id", "", "", ""},
		{"keeps caller request id", "req-42", "", ""},
		{"trims reviewer", "", "  scout@example.com ", "scout@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.requestID != "" {
				req.Header.Set(echo.HeaderXRequestID, tt.requestID)
			}
			if tt.reviewer != "" {
				req.Header.Set(HeaderReviewer, tt.reviewer)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var gotID, gotReviewer string
			err := Context()(func(c echo.Context) error {
				gotID = context.GetRequestID(c.Request().Context())
				gotReviewer = context.GetReviewer(c.Request().Context())
				return nil
			})(c)
			require.NoError(t, err)

			assert.NotEmpty(t, gotID)
			if tt.requestID != "" {
				assert.Equal(t, tt.requestID, gotID)
			}
			assert.Equal(t, gotID, rec.Header().Get(echo.HeaderXRequestID))
			assert.Equal(t, tt.wantRev, gotReviewer)
		})
	}
}

func TestIsQuiet(t *testing.T) {
	assert.True(t, isQuiet("/api/v1/health/ready"))
	assert.True(t, isQuiet("/metrics"))
	assert.False(t, isQuiet("/api/v1/match"))
}
