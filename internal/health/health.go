// Package health provides liveness and readiness probe endpoints.
// Liveness only reports that the process is serving; readiness runs the
// registered dependency checks so traffic is withheld while the data
// store or identity provider is unreachable.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultProbeTimeout bounds one readiness probe run.
const DefaultProbeTimeout = 5 * time.Second

// Status represents a probe verdict.
type Status string

const (
	// StatusHealthy indicates the check passed.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the check failed.
	StatusUnhealthy Status = "unhealthy"
)

// Check is the interface for one dependency check.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to the Check interface.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc creates a named check from a function.
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name implements Check.
func (c *CheckFunc) Name() string {
	return c.name
}

// Check implements Check.
func (c *CheckFunc) Check(ctx context.Context) error {
	return c.fn(ctx)
}

// CheckResult is one check's verdict in the readiness response.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// LivenessResponse is the liveness probe body.
type LivenessResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the readiness probe body.
type ReadinessResponse struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Handler serves the health probe endpoints.
type Handler struct {
	version      string
	startTime    time.Time
	probeTimeout time.Duration
	logger       *zap.Logger

	mu     sync.RWMutex
	checks []Check
}

// NewHandler creates a health handler.
func NewHandler(version string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		version:      version,
		startTime:    time.Now(),
		probeTimeout: DefaultProbeTimeout,
		logger:       logger,
	}
}

// Register adds a dependency check to the readiness probe.
func (h *Handler) Register(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// Live handles the liveness probe. It succeeds whenever the process can
// serve the request at all.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    StatusHealthy,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	})
}

// Ready handles the readiness probe. Any failing check makes the
// response 503.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.probeTimeout)
	defer cancel()

	h.mu.RLock()
	checks := make([]Check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now(),
	}

	for _, check := range checks {
		if err := check.Check(ctx); err != nil {
			h.logger.Warn("readiness check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
			)
			response.Status = StatusUnhealthy
			response.Checks[check.Name()] = CheckResult{
				Status:  StatusUnhealthy,
				Message: err.Error(),
			}
			continue
		}
		response.Checks[check.Name()] = CheckResult{Status: StatusHealthy}
	}

	status := http.StatusOK
	if response.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}
