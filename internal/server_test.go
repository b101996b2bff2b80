package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/auth"
	"github.com/2beens/liftlog/internal/config"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/workouts/coach"
	"github.com/2beens/liftlog/internal/workouts/logs"
	"github.com/2beens/liftlog/internal/workouts/pipeline"
	"github.com/2beens/liftlog/internal/workouts/program"
	"github.com/2beens/liftlog/internal/workouts/session"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestLoadProgram(t *testing.T) {
	p, err := LoadProgram("")
	require.NoError(t, err)
	assert.Equal(t, program.Default().Rotation(), p.Rotation())

	_, err = LoadProgram(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "not found")
	_, err = LoadProgram(t.TempDir())
	assert.ErrorContains(t, err, "not found")

	path := filepath.Join(t.TempDir(), "program.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
rotation = [1, 3]

[[workouts]]
slot = 1
name = "Full Body A"

[[workouts.exercises]]
id = 1
name = "Squat"
sets = 3
rep_range = "5-8"

[[workouts]]
slot = 3
name = "Full Body B"

[[workouts.exercises]]
id = 2
name = "Deadlift"
sets = 2
rep_range = "3-5"
`), 0o600))

	p, err = LoadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, []program.Slot{1, 3}, p.Rotation())
}

func newTestServer(t *testing.T) (*Server, redismock.ClientMock) {
	t.Helper()

	rdb, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	p := program.Default()
	store := logs.NewMemStore()
	metricsManager := metrics.NewTestManager()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config: &config.Config{
			LoginRateLimitAllowedPerMin: 10,
			CoachRateLimitPerMin:        5,
		},
		program:      p,
		versionInfo:  "test-version",
		redisClient:  rdb,
		authService:  auth.NewAuthService(nil, auth.DefaultTTL, rdb),
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),
		sessions:     session.NewRegistry(p, store, store, metricsManager),
		viewsHub:     pipeline.NewHub(ctx, p, store, metricsManager),
		coachClient:  coach.NewClient(coach.Params{Metrics: metricsManager}),

		metricsManager: metricsManager,
	}
	t.Cleanup(func() {
		s.sessions.Wait()
		cancel()
		s.viewsHub.Close()
	})

	return s, mock
}

func TestServer_RouterSetup(t *testing.T) {
	s, mock := newTestServer(t)
	r, err := s.routerSetup()
	require.NoError(t, err)

	for _, name := range []string{
		"root", "version", "login", "logout",
		"workouts-today", "workouts-next", "workouts-update-set",
		"kpis", "program", "recovery-upsert", "coach-advice",
		"mcp", "unknown",
	} {
		assert.NotNil(t, r.Get(name), name)
	}

	req := httptest.NewRequest("GET", "/version", nil)
	req.Header.Set("Origin", "test")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "test-version", rr.Body.String())

	// no token
	for _, path := range []string{"/kpis", "/mcp"} {
		req = httptest.NewRequest("GET", path, nil)
		req.Header.Set("Origin", "test")
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServer_AuthenticatedRequests(t *testing.T) {
	s, mock := newTestServer(t)
	r, err := s.routerSetup()
	require.NoError(t, err)

	const token = "test-token"
	sessionVal := fmt.Sprintf("%d|u1", time.Now().Unix())

	authedRequest := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(auth.TokenHeader, token)
		mock.ExpectGet("liftlog-session||" + token).SetVal(sessionVal)
		return req
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest("GET", "/kpis"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var kpis map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &kpis))
	assert.Contains(t, kpis, "totalVolume")
	assert.Contains(t, kpis, "version")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest("GET", "/workouts/today?date=2024-03-04"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var view session.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, session.StateLoaded, view.State)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, authedRequest("GET", "/nothing-here"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// expired session
	req := httptest.NewRequest("GET", "/kpis", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Authorization", "Bearer "+token)
	mock.ExpectGet("liftlog-session||" + token).SetVal(fmt.Sprintf("%d|u1", time.Now().Add(-2*auth.DefaultTTL).Unix()))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}
