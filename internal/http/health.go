package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

// HealthCheck 单个依赖的探活函数
type HealthCheck func(ctx context.Context) error

// HealthHandler GET /api/health
type HealthHandler struct {
	checks map[string]HealthCheck
	logger *zap.Logger
}

func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checks: map[string]HealthCheck{}, logger: logger}
}

// AddCheck 注册依赖检查（postgres、redis、mqtt）
func (h *HealthHandler) AddCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := healthReport{Status: "ok", Checks: map[string]string{}}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			report.Checks[name] = err.Error()
			report.Status = "degraded"
			continue
		}
		report.Checks[name] = "ok"
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, Ok(report))
}
