package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/context"
)

// HeaderReviewer names the reviewer acting on pending links
const HeaderReviewer = "X-Reviewer"

// Context assigns a request id, echoing a caller-supplied one, and copies the reviewer header onto the request context
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := context.SetRequestID(req.Context(), requestID)
			if reviewer := strings.TrimSpace(req.Header.Get(HeaderReviewer)); reviewer != "" {
				ctx = context.SetReviewer(ctx, reviewer)
			}
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
