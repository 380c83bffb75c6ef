package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	gosync "sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/metrics"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

type recordingReporter struct {
	mu       gosync.Mutex
	messages []string
}

func (r *recordingReporter) ReportError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingReporter) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func newTestClient(t *testing.T, url string, timeout time.Duration, opts ...Option) *Client {
	t.Helper()
	c := New(Config{BaseURL: url, Timeout: timeout}, staticToken("test-token"), zap.NewNop(), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestRequestSuccessWithAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/notifications/unread-count", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": "ok",
			"data":    map[string]int{"unread_count": 3},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/api", time.Second)
	env := c.Request(context.Background(), "notifications/unread-count", DefaultOptions())

	require.True(t, env.Status)
	require.Equal(t, "ok", env.Message)
	require.Equal(t, http.StatusOK, env.HTTPStatus)

	data, err := Decode[map[string]int](env)
	require.NoError(t, err)
	require.Equal(t, 3, data["unread_count"])
}

func TestRequestWithoutAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "ok"})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Second)
	env := c.Request(context.Background(), "maintenance-status", Options{Method: http.MethodGet})
	require.True(t, env.Status)
}

func TestRequestSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, "abc", body["fcm_token"])
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "registered"})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Second)
	env := c.Request(context.Background(), "/notifications/fcm-token", Options{
		Method:       http.MethodPost,
		Body:         map[string]string{"fcm_token": "abc"},
		RequiresAuth: true,
	})
	require.True(t, env.Status)
	require.Equal(t, "registered", env.Message)
}

func TestRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	reporter := &recordingReporter{}
	m := metrics.New()
	c := newTestClient(t, server.URL, 50*time.Millisecond, WithReporter(reporter), WithMetrics(m))

	env := c.Request(context.Background(), "notifications", DefaultOptions())

	require.False(t, env.Status)
	require.Equal(t, "Request timeout. Please check your connection.", env.Message)
	require.Equal(t, []string{MsgTimeout}, reporter.all())

	count, err := testutil.GatherAndCount(m.Registry(), "smsexpert_api_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRequestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := newTestClient(t, url, time.Second)
	env := c.Request(context.Background(), "notifications", DefaultOptions())

	require.False(t, env.Status)
	require.Equal(t, MsgNetwork, env.Message)
	require.Zero(t, env.HTTPStatus)
}

func TestRequestHTTPError(t *testing.T) {
	t.Run("message from body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"status": false, "message": "Unauthenticated."})
		}))
		defer server.Close()

		reporter := &recordingReporter{}
		c := newTestClient(t, server.URL, time.Second, WithReporter(reporter))
		env := c.Request(context.Background(), "notifications", DefaultOptions())

		require.False(t, env.Status)
		require.True(t, env.Unauthorized())
		require.Equal(t, "Unauthenticated.", env.Message)
		require.Equal(t, []string{"Unauthenticated."}, reporter.all())
	})

	t.Run("non json body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, time.Second)
		env := c.Request(context.Background(), "notifications", DefaultOptions())

		require.False(t, env.Status)
		require.Equal(t, "Request failed with status 502", env.Message)
	})
}

func TestRequestApplicationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  false,
			"message": "Notification not found",
			"errors":  map[string][]string{"id": {"invalid"}},
		})
	}))
	defer server.Close()

	reporter := &recordingReporter{}
	c := newTestClient(t, server.URL, time.Second, WithReporter(reporter))

	opts := DefaultOptions()
	opts.ShowErrorToast = false
	env := c.Request(context.Background(), "notifications/9", opts)

	require.False(t, env.Status)
	require.Equal(t, "Notification not found", env.Message)
	require.JSONEq(t, `{"id":["invalid"]}`, string(env.Errors))
	require.Empty(t, reporter.all())
}

func TestRequestInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Second)
	env := c.Request(context.Background(), "notifications", DefaultOptions())

	require.False(t, env.Status)
	require.Equal(t, MsgInvalidResponse, env.Message)
}

func TestRequestNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Second)
	env := c.Request(context.Background(), "notifications/1", Options{Method: http.MethodDelete, RequiresAuth: true})

	require.True(t, env.Status)
	require.Equal(t, http.StatusNoContent, env.HTTPStatus)
}

func TestDecode(t *testing.T) {
	_, err := Decode[map[string]any](Envelope{Status: true})
	require.ErrorIs(t, err, ErrNoData)

	_, err = Decode[map[string]any](Envelope{Status: true, Data: json.RawMessage(`null`)})
	require.ErrorIs(t, err, ErrNoData)

	_, err = Decode[[]int](Envelope{Status: true, Data: json.RawMessage(`{"a":1}`)})
	require.Error(t, err)
}
