package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"toolgate/internal/oauthproxy"
	"toolgate/internal/router"
	"toolgate/internal/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopHandle struct{ id string }

func (h nopHandle) SessionID() string { return h.id }
func (h nopHandle) Close() error      { return nil }

func TestSessionMetricsFollowStore(t *testing.T) {
	m := New()
	store := session.NewStore(session.WithObserver(m))

	require.NoError(t, store.Register(session.BindingSSE, "a", nopHandle{"a"}))
	require.NoError(t, store.Register(session.BindingSSE, "b", nopHandle{"b"}))
	require.NoError(t, store.Register(session.BindingStreamable, "c", nopHandle{"c"}))
	store.Remove(session.BindingSSE, "a")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions.WithLabelValues("sse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions.WithLabelValues("streamable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsOpened.WithLabelValues("sse")))
}

func TestCounters(t *testing.T) {
	m := New()

	m.RoutingRejected(session.BindingStreamable, router.ReasonNoValidSession)
	m.RoutingRejected(session.BindingStreamable, router.ReasonNoValidSession)
	m.UpstreamCall(oauthproxy.OpRegister, oauthproxy.OutcomeUpstreamError)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.routingRejected.WithLabelValues("streamable", router.ReasonNoValidSession)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues(oauthproxy.OpRegister, oauthproxy.OutcomeUpstreamError)))
}

func TestInstrumentAndHandler(t *testing.T) {
	m := New()
	h := m.Instrument("mcp", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("mcp", "POST", "202")))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `toolgate_http_requests_total{code="202",handler="mcp",method="POST"} 1`))
	assert.Contains(t, string(body), "toolgate_active_sessions")
}
