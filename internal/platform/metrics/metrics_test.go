package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("crear_usuario", true, 10*time.Millisecond)
	m.ObserveOperation("crear_usuario", false, 10*time.Millisecond)
	m.ObserveOperation("crear_usuario", true, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditedOperations.WithLabelValues("crear_usuario", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditedOperations.WithLabelValues("crear_usuario", "rolled_back")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementAuthFailure("invalid_token")
		m.ObserveOperation("eliminar_usuario", true, time.Millisecond)
		m.IncrementContextClearFailure()
		m.IncrementUsersCreated()
		m.IncrementLogin("success")
		m.ObserveRevocationCheck(time.Millisecond)
	})
}

func TestIncrementLogin(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementLogin("invalid_credentials")
	m.IncrementLogin("invalid_credentials")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("invalid_credentials")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("success")))
}
