// Package health serves liveness, readiness and dependency status.
//
// A failing required dependency makes the service unhealthy. A failing optional
// one, such as the embedding cache or the graph mirror, only degrades it: matching
// and linking keep working without them, so readiness stays green.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

const checkTimeout = 2 * time.Second

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Dependency is one backing service probed on every health request
type Dependency struct {
	Name     string
	Ping     func(ctx context.Context) error
	Optional bool
}

type Checker struct {
	deps    []Dependency
	version string
	started time.Time
	ready   atomic.Bool
}

func NewChecker(version string, deps ...Dependency) *Checker {
	return &Checker{deps: deps, version: version, started: time.Now()}
}

// SetReady flips readiness once startup has finished
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

func (c *Checker) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/health")
	g.GET("", c.Health)
	g.GET("/live", c.Live)
	g.GET("/ready", c.Ready)
}

// Report is the body of GET /api/v1/health
type Report struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Checks     map[string]*Check `json:"checks"`
	ReportedAt time.Time         `json:"reported_at"`
}

type Check struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

func (c *Checker) Health(ctx echo.Context) error {
	report := c.probe(ctx.Request().Context())
	return ctx.JSON(statusCode(report.Status), report)
}

func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

func (c *Checker) Ready(ctx echo.Context) error {
	if !c.ready.Load() {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "starting"})
	}

	report := c.probe(ctx.Request().Context())
	if report.Status == StatusUnhealthy {
		return ctx.JSON(http.StatusServiceUnavailable, report)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// probe pings every dependency in parallel, each under its own timeout
func (c *Checker) probe(ctx context.Context) *Report {
	results := make([]*Check, len(c.deps))

	var wg sync.WaitGroup
	for i, dep := range c.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = ping(ctx, dep)
		}()
	}
	wg.Wait()

	report := &Report{
		Status:     StatusHealthy,
		Version:    c.version,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Checks:     make(map[string]*Check, len(c.deps)),
		ReportedAt: time.Now().UTC(),
	}
	for i, dep := range c.deps {
		check := results[i]
		report.Checks[dep.Name] = check
		if check.Status == StatusHealthy {
			continue
		}
		if !dep.Optional {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}

func ping(ctx context.Context, dep Dependency) *Check {
	check := &Check{Status: StatusHealthy, Optional: dep.Optional}
	if dep.Ping == nil {
		check.Status = StatusUnhealthy
		check.Error = "not configured"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	if err := dep.Ping(ctx); err != nil {
		check.Status = StatusUnhealthy
		check.Error = err.Error()
		return check
	}
	check.Latency = time.Since(start).String()
	return check
}

func statusCode(status string) int {
	if status == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
