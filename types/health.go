package types

// HealthStatus is the state of the service or one of its dependencies.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "UP"
	HealthStatusDown     HealthStatus = "DOWN"
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// Health component names reported by the ledger service.
const (
	HealthComponentDatabase = "database"
	HealthComponentRedis    = "redis"
)

var healthSeverity = map[HealthStatus]int{
	HealthStatusUp:       0,
	HealthStatusDegraded: 1,
	HealthStatusDown:     2,
}

// Worse returns whichever of s and other is more severe. Unknown statuses
// rank with UP.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if healthSeverity[other] > healthSeverity[s] {
		return other
	}
	return s
}

// HealthComponent reports one dependency, keyed by component name in
// HealthCheck.Components.
type HealthComponent struct {
	Status  HealthStatus `json:"status"`
	Details string       `json:"details,omitempty"`
}

// HealthCheck is the body of GET /health. Status is the worst component status.
type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]HealthComponent `json:"components"`
	Version    string                     `json:"version"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
}
