package coach_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/workouts/coach"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"), goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

type receivedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCoachServer(t *testing.T, calls *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req receivedRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Equal(t, "test-model", req.Model)
			if assert.Len(t, req.Messages, 2) {
				assert.Equal(t, "system", req.Messages[0].Role)
				assert.Equal(t, "user", req.Messages[1].Role)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server, m *metrics.Manager) *coach.Client {
	return coach.NewClient(coach.Params{
		BaseURL:    srv.URL + "/v1/",
		APIKey:     "test-key",
		Model:      "test-model",
		HTTPClient: srv.Client(),
		Metrics:    m,
	})
}

func TestClient_Advise(t *testing.T) {
	var calls atomic.Int32
	srv := newCoachServer(t, &calls, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"  Push the bench today.  "}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`)
	m := metrics.NewTestManager()
	c := newClient(srv, m)

	advice, err := c.Advise(context.Background(), "prompt one")
	require.NoError(t, err)
	assert.Equal(t, "Push the bench today.", advice)
	assert.Equal(t, int32(1), calls.Load())

	// same prompt is served from the cache
	advice, err = c.Advise(context.Background(), "prompt one")
	require.NoError(t, err)
	assert.Equal(t, "Push the bench today.", advice)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Advise(context.Background(), "prompt two")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterCoachCalls.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterCoachCalls.WithLabelValues("cached")))
}

func TestClient_Advise_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "api error message",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"rate limit reached"}}`,
			wantMsg: "status 429: rate limit reached",
		},
		{
			name:    "server error without body",
			status:  http.StatusInternalServerError,
			body:    ``,
			wantMsg: "status 500: 500 Internal Server Error",
		},
		{
			name:    "no choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantMsg: "no choices in response",
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			body:    `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
			wantMsg: "empty advice",
		},
		{
			name:    "broken json",
			status:  http.StatusOK,
			body:    `{"choices":`,
			wantMsg: "unmarshal response",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newCoachServer(t, &calls, tc.status, tc.body)
			m := metrics.NewTestManager()
			c := newClient(srv, m)

			advice, err := c.Advise(context.Background(), "prompt")
			require.Error(t, err)
			assert.ErrorIs(t, err, coach.ErrCoachUnavailable)
			assert.Contains(t, err.Error(), tc.wantMsg)
			assert.Empty(t, advice)

			// failures are not cached
			_, err = c.Advise(context.Background(), "prompt")
			assert.Error(t, err)
			assert.Equal(t, int32(2), calls.Load())
			assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterCoachCalls.WithLabelValues("error")))
		})
	}
}

func TestClient_Advise_NoAPIKey(t *testing.T) {
	var calls atomic.Int32
	srv := newCoachServer(t, &calls, http.StatusOK, `{}`)
	c := coach.NewClient(coach.Params{BaseURL: srv.URL, HTTPClient: srv.Client()})

	_, err := c.Advise(context.Background(), "prompt")
	assert.ErrorIs(t, err, coach.ErrCoachUnavailable)
	assert.Zero(t, calls.Load())
}

func TestClient_Advise_CanceledContext(t *testing.T) {
	var calls atomic.Int32
	srv := newCoachServer(t, &calls, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)
	c := newClient(srv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Advise(ctx, "prompt")
	assert.ErrorIs(t, err, coach.ErrCoachUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
