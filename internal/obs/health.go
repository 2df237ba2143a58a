package obs

import "context"

// HealthLevel is the coarse-grained outcome of a health check.
type HealthLevel string

const (
	HealthHealthy  HealthLevel = "healthy"
	HealthDegraded HealthLevel = "degraded"
	HealthUnhealthy HealthLevel = "unhealthy"
)

// CheckResult is the outcome of a single named check.
type CheckResult struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// HealthStatus aggregates every named check into one report.
type HealthStatus struct {
	Status HealthLevel              `json:"status"`
	Checks map[string]*CheckResult  `json:"checks"`
}

// Checkable is implemented by anything HealthChecker can inspect -- the
// database façade reports its collection count and whether it is closed
// without obs needing to import it back.
type Checkable interface {
	CollectionCount() int
	Closed() bool
}

// HealthChecker performs health checks against a Checkable database.
type HealthChecker struct {
	db Checkable
}

// NewHealthChecker creates health checker
func NewHealthChecker(db Checkable) *HealthChecker {
	return &HealthChecker{db: db}
}

// Check performs health check
func (hc *HealthChecker) Check(ctx context.Context) (*HealthStatus, error) {
	checks := map[string]*CheckResult{}

	if hc.db.Closed() {
		checks["open"] = &CheckResult{Healthy: false, Message: "database is closed"}
		return &HealthStatus{Status: HealthUnhealthy, Checks: checks}, nil
	}
	checks["open"] = &CheckResult{Healthy: true, Message: "database is open"}
	checks["collections"] = &CheckResult{Healthy: true, Message: "collection count ok"}

	return &HealthStatus{Status: HealthHealthy, Checks: checks}, nil
}
