package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/internal/forecast"
	"github.com/wonny/stocksim/internal/simulation"
	"github.com/wonny/stocksim/pkg/logger"
)

// MaxRuns bounds the runs of one on-demand simulation
const MaxRuns = 1000

// Simulator runs and reads product forecasts
type Simulator interface {
	Run(ctx context.Context, productID uuid.UUID, reference time.Time, runs int) (*forecast.Result, error)
	LatestSummary(ctx context.Context, productID uuid.UUID) (*contracts.SimulationSummary, error)
}

// SummaryHandler handles simulation summary endpoints
// ⭐ SSOT: simulation endpoints are handled by this struct only
type SummaryHandler struct {
	simulator   Simulator
	summaries   contracts.SummaryRepository
	defaultRuns int
	now         func() time.Time
	logger      *logger.Logger
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(simulator Simulator, summaries contracts.SummaryRepository, defaultRuns int, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{
		simulator:   simulator,
		summaries:   summaries,
		defaultRuns: defaultRuns,
		now:         time.Now,
		logger:      log,
	}
}

// ListByProduct returns the summaries of a product, newest first
// GET /api/products/{id}/summaries
func (h *SummaryHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	summaries, err := h.summaries.FindAllByProduct(r.Context(), productID)
	if err != nil {
		h.logger.WithError(err).WithField("product_id", productID.String()).Error("Failed to list summaries")
		respondError(w, http.StatusInternalServerError, "failed to list summaries")
		return
	}
	if summaries == nil {
		summaries = []contracts.SimulationSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"count":      len(summaries),
		"summaries":  summaries,
	})
}

// Latest returns the newest summary of a product with its days
// GET /api/products/{id}/summaries/latest
func (h *SummaryHandler) Latest(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	summary, err := h.simulator.LatestSummary(r.Context(), productID)
	if err != nil {
		h.respondServiceError(w, productID, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Days returns the daily breakdown of a summary
// GET /api/summaries/{id}/days
func (h *SummaryHandler) Days(w http.ResponseWriter, r *http.Request) {
	summaryID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || summaryID <= 0 {
		respondError(w, http.StatusBadRequest, "summary id must be a positive integer")
		return
	}

	days, err := h.summaries.FindDays(r.Context(), summaryID)
	if err != nil {
		h.logger.WithError(err).WithField("summary_id", summaryID).Error("Failed to get summary days")
		respondError(w, http.StatusInternalServerError, "failed to get summary days")
		return
	}
	if days == nil {
		days = []contracts.SimulationSummaryDay{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary_id": summaryID,
		"days":       days,
	})
}

// SimulateRequest is the body of a simulate call. Both fields are optional.
type SimulateRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, today when empty
	Runs int    `json:"runs"` // configured default when zero
}

// Simulate runs and stores a forecast for a product
// POST /api/products/{id}/simulate
func (h *SummaryHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reference := h.now()
	if req.Date != "" {
		d, err := forecast.ParseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		reference = d
	}

	runs := req.Runs
	if runs == 0 {
		runs = h.defaultRuns
	}
	if runs < 1 || runs > MaxRuns {
		respondError(w, http.StatusBadRequest, "runs must be between 1 and "+strconv.Itoa(MaxRuns))
		return
	}

	result, err := h.simulator.Run(r.Context(), productID, reference, runs)
	if err != nil {
		h.respondServiceError(w, productID, err)
		return
	}

	respondJSON(w, http.StatusCreated, result.Summary)
}

func (h *SummaryHandler) respondServiceError(w http.ResponseWriter, productID uuid.UUID, err error) {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, forecast.ErrInactiveProduct):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, simulation.ErrParameter):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.WithError(err).WithField("product_id", productID.String()).Error("Simulation request failed")
		respondError(w, http.StatusInternalServerError, "simulation failed")
	}
}

func productIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "product id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
