// Package optimization implements mean-variance portfolio optimization:
// max-Sharpe weight selection under risk-profile constraints, efficient
// frontier sampling, and rebalance trade planning.
package optimization

// RiskFreeRate is the fixed annual risk-free rate used for Sharpe
// calculations. Not fetched live.
const RiskFreeRate = 0.05

// MinTradeAmount is the dollar threshold below which rebalance trades are
// suppressed as noise.
const MinTradeAmount = 50.0

// RiskProfile identifies a risk tolerance level.
type RiskProfile string

// Risk profile levels.
const (
	ProfileConservative    RiskProfile = "conservative"
	ProfileModerate        RiskProfile = "moderate"
	ProfileAggressive      RiskProfile = "aggressive"
	ProfileUltraAggressive RiskProfile = "ultra_aggressive"
)

// ParseRiskProfile maps a string to a risk profile, falling back to moderate
// for unknown values.
func ParseRiskProfile(s string) RiskProfile {
	switch RiskProfile(s) {
	case ProfileConservative, ProfileModerate, ProfileAggressive, ProfileUltraAggressive:
		return RiskProfile(s)
	default:
		return ProfileModerate
	}
}

// RiskLimits holds the constraint bounds associated with a risk profile.
type RiskLimits struct {
	MaxVolatility float64 `yaml:"max_volatility"` // annualized portfolio volatility ceiling
	MaxSingle     float64 `yaml:"max_single"`     // per-asset weight ceiling
}

// DefaultRiskLimits returns the built-in constraint table.
func DefaultRiskLimits() map[RiskProfile]RiskLimits {
	return map[RiskProfile]RiskLimits{
		ProfileConservative:    {MaxVolatility: 0.10, MaxSingle: 0.15},
		ProfileModerate:        {MaxVolatility: 0.20, MaxSingle: 0.25},
		ProfileAggressive:      {MaxVolatility: 0.35, MaxSingle: 0.35},
		ProfileUltraAggressive: {MaxVolatility: 0.50, MaxSingle: 0.50},
	}
}

// OptimizeRequest carries the inputs for a portfolio optimization run.
type OptimizeRequest struct {
	Symbols          []string
	InvestmentAmount float64     // defaults to 10000
	Profile          RiskProfile // defaults to moderate
	MinWeight        float64     // defaults to 0.02
	Period           string      // lookback descriptor, defaults to "2y"
}

// Allocation is one row of the sized allocation list.
type Allocation struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"` // percent
	Amount float64 `json:"amount"` // dollars
	Shares int     `json:"shares"` // floor division; residual cash is not reinvested
	Price  float64 `json:"price"`
}

// OptimizationResult holds the optimal weights and their realized metrics.
type OptimizationResult struct {
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"` // annualized percent
	Volatility     float64            `json:"volatility"`      // annualized percent
	SharpeRatio    float64            `json:"sharpe_ratio"`
	Converged      bool               `json:"converged"`
	Allocations    []Allocation       `json:"allocations"`
}

// FrontierPoint is one sampled portfolio on the approximate efficient
// frontier.
type FrontierPoint struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
}

// Trade is a single rebalancing instruction.
type Trade struct {
	Symbol string  `json:"symbol"`
	Action string  `json:"action"` // BUY or SELL
	Shares int     `json:"shares"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
}
