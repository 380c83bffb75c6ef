package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nhle/smsexpert/internal/model"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "ok")
	m.ObservePoll("unread-count", nil)
	m.SetCounts(model.UnreadCounts{UnreadCount: 1})
}

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "ok")
	m.ObserveRequest("GET", "ok")
	m.ObserveRequest("POST", "timeout")
	m.ObservePoll("unread-count", errors.New("boom"))
	m.SetCounts(model.UnreadCounts{UnreadCount: 5, AdminUnread: 2, PushUnread: 3, AcknowledgementRequired: 1})

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "timeout")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.pollRuns.WithLabelValues("unread-count", "error")))
	require.Equal(t, 5.0, testutil.ToFloat64(m.counters.WithLabelValues("unread")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.counters.WithLabelValues("acknowledgement_required")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "smsexpert_api_requests_total")
}
