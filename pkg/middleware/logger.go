package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/context"
)

// quietPaths are probed constantly and only logged when they fail
var quietPaths = []string{"/api/v1/health", "/metrics"}

// Logger writes one line per request. Server errors log at Error, client errors at Warn.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			if status < http.StatusBadRequest && isQuiet(req.URL.Path) {
				return nil
			}

			log := logger.WithContext(req.Context()).WithFields(map[string]any{
				"request_id":    context.GetRequestID(req.Context()),
				"method":        req.Method,
				"route":         c.Path(),
				"status":        status,
				"remote_ip":     c.RealIP(),
				"duration_ms":   time.Since(start).Milliseconds(),
				"response_size": c.Response().Size,
			})
			if reviewer := context.GetReviewer(req.Context()); reviewer != "" {
				log = log.WithField("reviewer", reviewer)
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.Error("Request failed")
			case status >= http.StatusBadRequest:
				log.Warn("Request rejected")
			default:
				log.Info("Request")
			}
			return nil
		}
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
