package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the auth pipeline and audited writes.
type Metrics struct {
	AuthFailures      *prometheus.CounterVec
	AuditedOperations *prometheus.CounterVec
	OperationLatency  *prometheus.HistogramVec
	ContextClearFails prometheus.Counter
	UsersCreated      prometheus.Counter
	LoginAttempts     *prometheus.CounterVec
	RevocationChecks  prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biblioteca_auth_failures_total",
			Help: "Requests rejected by identity resolution or authorization, by error code",
		}, []string{"code"}),
		AuditedOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biblioteca_audited_operations_total",
			Help: "Audited write operations by operation label and outcome",
		}, []string{"operation", "outcome"}), // outcome: "committed", "rolled_back"
		OperationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biblioteca_audited_operation_duration_seconds",
			Help:    "Duration of audited write operations including commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		ContextClearFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "biblioteca_audit_context_clear_failures_total",
			Help: "Failures while resetting the audit context on a pooled connection",
		}),
		UsersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "biblioteca_users_created_total",
			Help: "Total number of users created in the system",
		}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biblioteca_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}), // outcome: "success", "invalid_credentials", "inactive"
		RevocationChecks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "biblioteca_token_revocation_check_duration_ms",
			Help:    "Latency of token revocation checks in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
	reg.MustRegister(m.AuthFailures, m.AuditedOperations, m.OperationLatency, m.ContextClearFails,
		m.UsersCreated, m.LoginAttempts, m.RevocationChecks)
	return m
}

// IncrementAuthFailure records a rejected request.
func (m *Metrics) IncrementAuthFailure(code string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(code).Inc()
	}
}

// ObserveOperation records the outcome and latency of an audited write.
func (m *Metrics) ObserveOperation(operation string, committed bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "rolled_back"
	if committed {
		outcome = "committed"
	}
	m.AuditedOperations.WithLabelValues(operation, outcome).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrementContextClearFailure records a failed audit context reset.
func (m *Metrics) IncrementContextClearFailure() {
	if m != nil {
		m.ContextClearFails.Inc()
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	if m != nil {
		m.UsersCreated.Inc()
	}
}

// IncrementLogin records a login attempt.
func (m *Metrics) IncrementLogin(outcome string) {
	if m != nil {
		m.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

// ObserveRevocationCheck records the latency of one revocation lookup.
func (m *Metrics) ObserveRevocationCheck(d time.Duration) {
	if m != nil {
		m.RevocationChecks.Observe(float64(d.Microseconds()) / 1000.0)
	}
}
