package optimization

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/foliolab/folio/internal/marketdata"
)

// Handler handles HTTP requests for the optimization module.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("component", "optimizer_handler").Logger(),
	}
}

type optimizeRequestBody struct {
	Symbols          []string `json:"symbols"`
	InvestmentAmount float64  `json:"investment_amount"`
	RiskProfile      string   `json:"risk_profile"`
	MinWeight        float64  `json:"min_weight"`
	Period           string   `json:"period"`
}

// HandleOptimize handles POST /api/optimizer/optimize.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "At least one symbol is required")
		return
	}
	if body.InvestmentAmount < 0 {
		h.writeError(w, http.StatusBadRequest, "Investment amount cannot be negative")
		return
	}

	result, err := h.service.Optimize(OptimizeRequest{
		Symbols:          body.Symbols,
		InvestmentAmount: body.InvestmentAmount,
		Profile:          ParseRiskProfile(body.RiskProfile),
		MinWeight:        body.MinWeight,
		Period:           body.Period,
	})
	if err != nil {
		if errors.Is(err, marketdata.ErrInsufficientData) {
			h.writeError(w, http.StatusUnprocessableEntity, "Insufficient price history for the requested symbols")
			return
		}
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, http.StatusInternalServerError, "Optimization failed")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleEfficientFrontier handles GET /api/optimizer/efficient-frontier.
// Query params: symbols (comma-separated), n_portfolios, period.
func (h *Handler) HandleEfficientFrontier(w http.ResponseWriter, r *http.Request) {
	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	nPortfolios := 50
	if raw := r.URL.Query().Get("n_portfolios"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "n_portfolios must be a positive integer")
			return
		}
		nPortfolios = n
	}

	frontier, err := h.service.EfficientFrontier(symbols, nPortfolios, r.URL.Query().Get("period"))
	if err != nil {
		h.log.Error().Err(err).Msg("Frontier computation failed")
		h.writeError(w, http.StatusInternalServerError, "Frontier computation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"frontier": frontier,
		"count":    len(frontier),
	})
}

type rebalanceRequestBody struct {
	CurrentHoldings  map[string]float64 `json:"current_holdings"`
	TargetWeights    map[string]float64 `json:"target_weights"`
	InvestmentAmount float64            `json:"investment_amount"`
}

// HandleRebalance handles POST /api/optimizer/rebalance.
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	var body rebalanceRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.TargetWeights) == 0 {
		h.writeError(w, http.StatusBadRequest, "target_weights is required")
		return
	}

	trades := h.service.Rebalance(body.CurrentHoldings, body.TargetWeights, body.InvestmentAmount)
	if trades == nil {
		trades = []Trade{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

// HandleRiskProfiles handles GET /api/optimizer/risk-profiles.
func (h *Handler) HandleRiskProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := make(map[string]map[string]float64, len(h.service.limits))
	for profile, limits := range h.service.limits {
		profiles[string(profile)] = map[string]float64{
			"max_volatility": limits.MaxVolatility,
			"max_single":     limits.MaxSingle,
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles":       profiles,
		"risk_free_rate": RiskFreeRate,
	})
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
