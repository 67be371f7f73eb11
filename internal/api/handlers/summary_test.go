package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/internal/forecast"
	"github.com/wonny/stocksim/internal/simulation"
	"github.com/wonny/stocksim/pkg/logger"
)

type fakeSimulator struct {
	err       error
	reference time.Time
	runs      int
	latest    *contracts.SimulationSummary
}

func (f *fakeSimulator) Run(_ context.Context, productID uuid.UUID, reference time.Time, runs int) (*forecast.Result, error) {
	f.reference = reference
	f.runs = runs
	if f.err != nil {
		return nil, f.err
	}
	return &forecast.Result{Runs: runs, Summary: contracts.SimulationSummary{
		ID:                 42,
		ProductID:          productID,
		ProbabilityExpired: decimal.RequireFromString("0.5"),
	}}, nil
}

func (f *fakeSimulator) LatestSummary(_ context.Context, productID uuid.UUID) (*contracts.SimulationSummary, error) {
	if f.latest == nil {
		return nil, fmt.Errorf("summaries of %s: %w", productID, contracts.ErrNotFound)
	}
	return f.latest, nil
}

type fakeSummaries struct {
	byProduct map[uuid.UUID][]contracts.SimulationSummary
	days      map[int64][]contracts.SimulationSummaryDay
	err       error
}

func (f *fakeSummaries) Save(context.Context, *contracts.SimulationSummary) (int64, error) {
	return 0, errors.New("not used")
}

func (f *fakeSummaries) FindAll(context.Context) ([]contracts.SimulationSummary, error) {
	return nil, f.err
}

func (f *fakeSummaries) FindAllByProduct(_ context.Context, id uuid.UUID) ([]contracts.SimulationSummary, error) {
	return f.byProduct[id], f.err
}

func (f *fakeSummaries) FindDays(_ context.Context, id int64) ([]contracts.SimulationSummaryDay, error) {
	return f.days[id], f.err
}

func newHandler(sim *fakeSimulator, sums *fakeSummaries) *SummaryHandler {
	h := NewSummaryHandler(sim, sums, 3, logger.Nop())
	h.now = func() time.Time { return time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func serve(handler http.HandlerFunc, method, target, body string, vars map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = mux.SetURLVars(req, vars)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSimulate(t *testing.T) {
	id := uuid.New()
	sim := &fakeSimulator{}
	h := newHandler(sim, &fakeSummaries{})

	rec := serve(h.Simulate, http.MethodPost, "/", `{"date":"2024-03-01","runs":5}`, map[string]string{"id": id.String()})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), sim.reference)
	assert.Equal(t, 5, sim.runs)

	body := decode(t, rec)
	assert.Equal(t, float64(42), body["id"])
	assert.Equal(t, id.String(), body["product_id"])
	assert.Equal(t, "0.5", body["probability_losses_by_expirat"])
}

func TestSimulate_Defaults(t *testing.T) {
	sim := &fakeSimulator{}
	h := newHandler(sim, &fakeSummaries{})

	rec := serve(h.Simulate, http.MethodPost, "/", "", map[string]string{"id": uuid.NewString()})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, sim.runs)
	assert.Equal(t, time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC), sim.reference)
}

func TestSimulate_Errors(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name   string
		id     string
		body   string
		err    error
		status int
	}{
		{"bad product id", "42", `{}`, nil, http.StatusBadRequest},
		{"bad body", id, `{"runs":`, nil, http.StatusBadRequest},
		{"bad date", id, `{"date":"01/03/2024"}`, nil, http.StatusBadRequest},
		{"negative runs", id, `{"runs":-1}`, nil, http.StatusBadRequest},
		{"too many runs", id, fmt.Sprintf(`{"runs":%d}`, MaxRuns+1), nil, http.StatusBadRequest},
		{"unknown product", id, `{}`, fmt.Errorf("load product: %w", contracts.ErrNotFound), http.StatusNotFound},
		{"inactive product", id, `{}`, fmt.Errorf("product: %w", forecast.ErrInactiveProduct), http.StatusConflict},
		{"invalid parameters", id, `{}`, fmt.Errorf("%w: capacity", simulation.ErrParameter), http.StatusUnprocessableEntity},
		{"storage failure", id, `{}`, errors.New("save summary: conn closed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(&fakeSimulator{err: tt.err}, &fakeSummaries{})

			rec := serve(h.Simulate, http.MethodPost, "/", tt.body, map[string]string{"id": tt.id})

			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestListByProduct(t *testing.T) {
	id := uuid.New()
	sums := &fakeSummaries{byProduct: map[uuid.UUID][]contracts.SimulationSummary{
		id: {{ID: 2, ProductID: id}, {ID: 1, ProductID: id}},
	}}
	h := newHandler(&fakeSimulator{}, sums)

	rec := serve(h.ListByProduct, http.MethodGet, "/", "", map[string]string{"id": id.String()})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])
	list := body["summaries"].([]interface{})
	assert.Equal(t, float64(2), list[0].(map[string]interface{})["id"])

	rec = serve(h.ListByProduct, http.MethodGet, "/", "", map[string]string{"id": uuid.NewString()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["summaries"])

	sums.err = errors.New("boom")
	rec = serve(h.ListByProduct, http.MethodGet, "/", "", map[string]string{"id": id.String()})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDays(t *testing.T) {
	sums := &fakeSummaries{days: map[int64][]contracts.SimulationSummaryDay{
		7: {{SummaryID: 7, Date: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}},
	}}
	h := newHandler(&fakeSimulator{}, sums)

	rec := serve(h.Days, http.MethodGet, "/", "", map[string]string{"id": "7"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["days"], 1)

	rec = serve(h.Days, http.MethodGet, "/", "", map[string]string{"id": "8"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, decode(t, rec)["days"])

	for _, bad := range []string{"x", "0", "-3"} {
		rec = serve(h.Days, http.MethodGet, "/", "", map[string]string{"id": bad})
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestLatest(t *testing.T) {
	id := uuid.New()
	sim := &fakeSimulator{}
	h := newHandler(sim, &fakeSummaries{})

	rec := serve(h.Latest, http.MethodGet, "/", "", map[string]string{"id": id.String()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sim.latest = &contracts.SimulationSummary{ID: 9, ProductID: id}
	rec = serve(h.Latest, http.MethodGet, "/", "", map[string]string{"id": id.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(9), decode(t, rec)["id"])
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := serve(NewHealthHandler(map[string]Pinger{"database": ok}).Health, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = serve(NewHealthHandler(map[string]Pinger{"database": ok, "redis": down}).Health, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]interface{})["redis"])
}
