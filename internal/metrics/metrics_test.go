package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMetrics_Counters(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)

	m.Operation("login", OutcomeSuccess)
	m.Operation("login", OutcomeSuccess)
	m.Operation("login", "invalid_credentials")
	m.Notification("verification", true)
	m.Notification("verification", false)
	m.RateLimited("register")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("login", "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("verification", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("verification", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("register")))
}

func TestAuthMetrics_NilIsNoop(t *testing.T) {
	var m *AuthMetrics

	assert.NotPanics(t, func() {
		m.Operation("login", OutcomeSuccess)
		m.Notification("welcome", true)
		m.RateLimited("login")
	})
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.Operation("register", OutcomeSuccess)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `assistant_auth_operations_total{operation="register",outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
