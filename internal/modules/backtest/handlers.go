package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foliolab/folio/internal/marketdata"
)

// Handler handles HTTP requests for the backtest module.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new backtest handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("component", "backtest_handler").Logger(),
	}
}

type runRequestBody struct {
	Weights            map[string]float64 `json:"weights"`
	StartDate          string             `json:"start_date"` // YYYY-MM-DD
	EndDate            string             `json:"end_date"`   // YYYY-MM-DD
	InitialValue       float64            `json:"initial_value"`
	Benchmark          string             `json:"benchmark"`
	RebalanceFrequency string             `json:"rebalance_frequency"`
}

func (b runRequestBody) toRequest() (Request, error) {
	req := Request{
		Weights:      b.Weights,
		InitialValue: b.InitialValue,
		Benchmark:    b.Benchmark,
		Frequency:    ParseFrequency(b.RebalanceFrequency),
	}

	var err error
	if b.StartDate != "" {
		if req.StartDate, err = time.Parse("2006-01-02", b.StartDate); err != nil {
			return Request{}, errors.New("start_date must be YYYY-MM-DD")
		}
	}
	if b.EndDate != "" {
		if req.EndDate, err = time.Parse("2006-01-02", b.EndDate); err != nil {
			return Request{}, errors.New("end_date must be YYYY-MM-DD")
		}
	}
	return req, nil
}

// HandleRun handles POST /api/backtest/run.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Weights) == 0 {
		h.writeError(w, http.StatusBadRequest, "weights is required")
		return
	}

	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Run(req)
	if err != nil {
		if errors.Is(err, marketdata.ErrInsufficientData) {
			h.writeError(w, http.StatusUnprocessableEntity, "Insufficient price history for the requested window")
			return
		}
		h.log.Error().Err(err).Msg("Backtest failed")
		h.writeError(w, http.StatusInternalServerError, "Backtest failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": uuid.NewString(),
		"result": result,
	})
}

type compareRequestBody struct {
	Strategies   map[string]map[string]float64 `json:"strategies"`
	StartDate    string                        `json:"start_date"`
	EndDate      string                        `json:"end_date"`
	InitialValue float64                       `json:"initial_value"`
	Benchmark    string                        `json:"benchmark"`
}

// HandleCompare handles POST /api/backtest/compare.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var body compareRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Strategies) == 0 {
		h.writeError(w, http.StatusBadRequest, "strategies is required")
		return
	}

	base, err := runRequestBody{
		StartDate:    body.StartDate,
		EndDate:      body.EndDate,
		InitialValue: body.InitialValue,
		Benchmark:    body.Benchmark,
	}.toRequest()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcomes := h.service.CompareStrategies(body.Strategies, base)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":     uuid.NewString(),
		"strategies": outcomes,
	})
}

// HandleQuick handles GET /api/backtest/quick - backtest over a lookback
// period, equal-weight unless explicit weights are given. Query params:
// symbols (comma-separated), weights (SYM:0.6,SYM:0.4), period, benchmark,
// rebalance_frequency.
func (h *Handler) HandleQuick(w http.ResponseWriter, r *http.Request) {
	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1y"
	}
	start, end, err := marketdata.PeriodRange(period)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unknown period")
		return
	}

	weights := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		weights[symbol] = 1.0 / float64(len(symbols))
	}
	if raw := r.URL.Query().Get("weights"); raw != "" {
		weights, err = parseWeights(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := h.service.Run(Request{
		Weights:   weights,
		StartDate: start,
		EndDate:   end,
		Benchmark: r.URL.Query().Get("benchmark"),
		Frequency: ParseFrequency(r.URL.Query().Get("rebalance_frequency")),
	})
	if err != nil {
		if errors.Is(err, marketdata.ErrInsufficientData) {
			h.writeError(w, http.StatusUnprocessableEntity, "Insufficient price history for the requested window")
			return
		}
		h.log.Error().Err(err).Msg("Quick backtest failed")
		h.writeError(w, http.StatusInternalServerError, "Backtest failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": uuid.NewString(),
		"result": result,
	})
}

// parseWeights parses "SYM:0.6,SYM:0.4" weight descriptors.
func parseWeights(raw string) (map[string]float64, error) {
	weights := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		symbol, value, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("weights entry %q must be SYMBOL:WEIGHT", part)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || weight < 0 {
			return nil, fmt.Errorf("weights entry %q has an invalid weight", part)
		}
		weights[strings.ToUpper(strings.TrimSpace(symbol))] = weight
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("weights parameter is empty")
	}
	return weights, nil
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}
	return symbols
}

// HTTP helpers

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
