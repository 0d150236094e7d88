// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/laocai-wudi/chunmpre.cn/pkg/httputil"
)

// Checker probes a single dependency.
type Checker func(ctx context.Context) error

// Status of a component.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// DefaultTimeout bounds the whole readiness probe.
const DefaultTimeout = 5 * time.Second

// Response is the probe payload.
type Response struct {
	Status    Status                 `json:"status"`
	Service   string                 `json:"service,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Status   Status `json:"status"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// Handler provides the /healthz and /readyz endpoints.
type Handler struct {
	mu       sync.RWMutex
	service  string
	timeout  time.Duration
	checkers map[string]Checker
	logger   *slog.Logger
}

// NewHandler creates a health handler for the named service.
func NewHandler(service string, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		timeout:  DefaultTimeout,
		checkers: make(map[string]Checker),
		logger:   logger,
	}
}

// SetTimeout overrides the readiness deadline.
func (h *Handler) SetTimeout(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeout = d
}

// Register adds a named dependency checker, replacing any with the same name.
func (h *Handler) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Names returns the registered checker names, sorted.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LivenessHandler answers 200 as long as the process serves requests.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Response{
			Status:    StatusUp,
			Service:   h.service,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs every checker concurrently and answers 503 if any
// of them fails.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}

// Check runs all registered checkers and aggregates their results.
func (h *Handler) Check(ctx context.Context) Response {
	h.mu.RLock()
	timeout := h.timeout
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(checkers))
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			start := time.Now()
			err := checker(ctx)
			result := CheckResult{Status: StatusUp, Duration: time.Since(start).String()}
			if err != nil {
				result.Status = StatusDown
				result.Error = err.Error()
				if h.logger != nil {
					h.logger.WarnContext(ctx, "readiness check failed",
						slog.String("check", name),
						slog.String("error", err.Error()),
					)
				}
			}
			mu.Lock()
			checks[name] = result
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	overall := StatusUp
	for _, c := range checks {
		if c.Status == StatusDown {
			overall = StatusDown
			break
		}
	}

	return Response{
		Status:    overall,
		Service:   h.service,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}
