package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wonny/stocksim/internal/api/handlers"
	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/internal/forecast"
	"github.com/wonny/stocksim/pkg/config"
	"github.com/wonny/stocksim/pkg/logger"
	"github.com/wonny/stocksim/pkg/redis"
)

type stubSimulator struct{}

func (stubSimulator) Run(_ context.Context, id uuid.UUID, _ time.Time, runs int) (*forecast.Result, error) {
	return &forecast.Result{Runs: runs, Summary: contracts.SimulationSummary{ProductID: id}}, nil
}

func (stubSimulator) LatestSummary(context.Context, uuid.UUID) (*contracts.SimulationSummary, error) {
	return nil, contracts.ErrNotFound
}

type stubSummaries struct{ contracts.SummaryRepository }

func (stubSummaries) FindAllByProduct(context.Context, uuid.UUID) ([]contracts.SimulationSummary, error) {
	return nil, nil
}

func (stubSummaries) FindDays(context.Context, int64) ([]contracts.SimulationSummaryDay, error) {
	return nil, nil
}

type panickingSummaries struct{ stubSummaries }

func (panickingSummaries) FindDays(context.Context, int64) ([]contracts.SimulationSummaryDay, error) {
	panic("unexpected")
}

type failingLimiter struct{}

func (failingLimiter) Allow(*http.Request, string) (bool, error) {
	return false, errors.New("redis down")
}

func newTestRouter(summaries contracts.SummaryRepository, limiter Limiter) http.Handler {
	log := logger.Nop()
	return NewRouter(
		handlers.NewHealthHandler(nil),
		handlers.NewSummaryHandler(stubSimulator{}, summaries, 1, log),
		limiter,
		NewClientResolver([]string{"10.0.0.254"}),
		log,
	)
}

func do(h http.Handler, method, target, remote string) *httptest.ResponseRecorder {
	return doForwarded(h, method, target, remote, "")
}

func doForwarded(h http.Handler, method, target, remote, forwarded string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(stubSummaries{}, newLocalLimiter(rate.Inf, 1))
	id := uuid.NewString()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/products/"+id+"/summaries", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/products/"+id+"/summaries/latest", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/summaries/3/days", "").Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/products/"+id+"/simulate", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(r, http.MethodGet, "/api/products/"+id+"/simulate", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/unknown", "").Code)
}

func TestRouter_RateLimitsSimulatePerClient(t *testing.T) {
	r := newTestRouter(stubSummaries{}, newLocalLimiter(rate.Every(time.Hour), 2))
	target := "/api/products/" + uuid.NewString() + "/simulate"

	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, target, "10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, target, "10.0.0.1:5001").Code)

	rec := do(r, http.MethodPost, target, "10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// another client has its own bucket
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, target, "10.0.0.2:5000").Code)

	// reads are not limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/summaries/1/days", "10.0.0.1:5000").Code)
	}
}

func TestRouter_LimiterFailureLetsRequestThrough(t *testing.T) {
	r := newTestRouter(stubSummaries{}, failingLimiter{})

	rec := do(r, http.MethodPost, "/api/products/"+uuid.NewString()+"/simulate", "")

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	r := newTestRouter(panickingSummaries{}, newLocalLimiter(rate.Inf, 1))

	rec := do(r, http.MethodGet, "/api/summaries/1/days", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestRouter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	limiter := newLocalLimiter(rate.Every(time.Hour), 1)
	r := newTestRouter(stubSummaries{}, limiter)
	target := "/api/products/" + uuid.NewString() + "/simulate"

	allowed := 0
	for i := 0; i < 50; i++ {
		rec := doForwarded(r, http.MethodPost, target, "10.0.0.1:5000", fmt.Sprintf("203.0.113.%d", i))
		if rec.Code == http.StatusCreated {
			allowed++
		}
	}

	assert.Equal(t, 1, allowed)
	assert.Equal(t, 1, limiter.size())
}

func TestRouter_LimitsForwardedClientsBehindTrustedProxy(t *testing.T) {
	r := newTestRouter(stubSummaries{}, newLocalLimiter(rate.Every(time.Hour), 1))
	target := "/api/products/" + uuid.NewString() + "/simulate"

	assert.Equal(t, http.StatusCreated, doForwarded(r, http.MethodPost, target, "10.0.0.254:443", "203.0.113.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doForwarded(r, http.MethodPost, target, "10.0.0.254:443", "203.0.113.1").Code)
	assert.Equal(t, http.StatusCreated, doForwarded(r, http.MethodPost, target, "10.0.0.254:443", "203.0.113.2").Code)
}

func TestClientResolver_Key(t *testing.T) {
	clients := NewClientResolver([]string{"10.0.0.254", "10.0.0.253"})

	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"peer only", "192.0.2.1:1234", "", "192.0.2.1"},
		{"untrusted peer ignores header", "192.0.2.1:1234", "203.0.113.9", "192.0.2.1"},
		{"trusted peer uses header", "10.0.0.254:443", "203.0.113.9", "203.0.113.9"},
		{"spoofed leftmost entry is skipped", "10.0.0.254:443", "198.51.100.7, 203.0.113.9", "203.0.113.9"},
		{"proxy chain", "10.0.0.254:443", "203.0.113.9, 10.0.0.253", "203.0.113.9"},
		{"trusted peer without header", "10.0.0.254:443", "", "10.0.0.254"},
		{"peer without port", "pipe", "203.0.113.9", "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clients.Key(req))
		})
	}

	var none *ClientResolver
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.254:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "10.0.0.254", none.Key(req))
}

func TestLocalLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	l := newLocalLimiter(rate.Every(time.Hour), 1)
	l.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		allowed, err := l.Allow(nil, fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.Equal(t, 10, l.size())

	now = now.Add(limiterIdleTTL)
	allowed, err := l.Allow(nil, "client-0")
	require.NoError(t, err)
	assert.True(t, allowed, "an evicted client starts with a full bucket")
	assert.Equal(t, 1, l.size())
}

func TestNewLimiter_FallsBackWithoutRedis(t *testing.T) {
	disabled, err := redis.New(&config.Config{})
	require.NoError(t, err)

	l := NewLimiter(redis.NewRateLimiter(disabled, "test"), config.APIConfig{SimulateRate: 1, SimulateBurst: 1})
	_, ok := l.(*localLimiter)
	assert.True(t, ok)

	l = NewLimiter(nil, config.APIConfig{SimulateRate: 1, SimulateBurst: 1})
	_, ok = l.(*localLimiter)
	assert.True(t, ok)
}
