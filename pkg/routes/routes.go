// Package routes assembles the HTTP API
package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/review"
	"github.com/Ramsey-B/sage/pkg/routes/health"
	"github.com/Ramsey-B/sage/pkg/routes/match"
	"github.com/Ramsey-B/sage/pkg/routes/pendinglink"
	"github.com/Ramsey-B/sage/pkg/routes/player"
	"github.com/Ramsey-B/sage/pkg/routes/report"
)

// Options configures the API server
type Options struct {
	ServiceName    string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	AllowOrigins   []string
	AllowMethods   []string
}

// Dependencies are the services the handlers call
type Dependencies struct {
	Logger  ectologger.Logger
	Health  *health.Checker
	Matcher match.Matcher
	Players player.Getter
	Review  *review.Service
	Linker  report.Linker
	Reports report.Attachments
}

// NewEcho builds the router with middleware and every route registered
func NewEcho(opts Options, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(deps.Logger)

	if opts.ServiceName != "" {
		e.Use(otelecho.Middleware(opts.ServiceName))
	}
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: opts.AllowOrigins,
		AllowMethods: opts.AllowMethods,
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(deps.Logger))

	if deps.Health != nil {
		deps.Health.RegisterRoutes(e)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	match.NewHandler(deps.Matcher).Register(api.Group("/match"))
	player.NewHandler(deps.Players).Register(api.Group("/players"))
	pendinglink.NewHandler(deps.Review, deps.Logger).Register(api.Group("/pending-links"))
	report.NewHandler(deps.Linker, deps.Reports).Register(api.Group("/reports"))

	return e
}

// NewServer wraps the router in an http.Server with the configured limits
func NewServer(opts Options, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           fmt.Sprintf(":%d", opts.Port),
		Handler:        handler,
		ReadTimeout:    opts.ReadTimeout,
		WriteTimeout:   opts.WriteTimeout,
		IdleTimeout:    opts.IdleTimeout,
		MaxHeaderBytes: opts.MaxHeaderBytes,
	}
}
