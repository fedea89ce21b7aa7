package optimization

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// solverMaxIterations is the hard ceiling on solver iterations, guaranteeing
// termination.
const solverMaxIterations = 1000

// penaltyWeight scales the quadratic penalties that enforce the sum-to-one
// and portfolio-volatility constraints.
const penaltyWeight = 1000.0

// solveMaxSharpe finds weights maximizing (w·mu - riskFree) / sqrt(w'Σw)
// subject to Σw = 1, portfolio volatility <= maxVol, and per-asset bounds
// [minW, maxW].
//
// Equality and volatility constraints are enforced by quadratic penalties;
// box bounds by projection. BFGS runs first with an analytic gradient,
// Nelder-Mead retries on failure. Non-convergence returns the equal-weight
// vector with converged=false rather than an error.
func solveMaxSharpe(
	mu []float64,
	sigma *mat.Dense,
	riskFree float64,
	maxVol float64,
	minW float64,
	maxW float64,
	log zerolog.Logger,
) (weights []float64, converged bool) {
	n := len(mu)
	equal := equalWeights(n)

	if degenerate(mu, sigma) {
		log.Warn().Msg("Degenerate inputs, falling back to equal weights")
		return equal, false
	}

	maxVariance := maxVol * maxVol

	project := func(x []float64) []float64 {
		proj := make([]float64, len(x))
		for i := range x {
			proj[i] = math.Max(minW, math.Min(maxW, x[i]))
		}
		return proj
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := project(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += mu[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}

			obj := -(ret - riskFree) / stdDev
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			if excess := variance - maxVariance; excess > 0 {
				obj += penaltyWeight * excess * excess
			}

			return obj
		},
		Grad: func(grad, x []float64) {
			xProj := project(x)

			var ret, variance float64
			for i := 0; i < n; i++ {
				ret += mu[i] * xProj[i]
				for j := 0; j < n; j++ {
					variance += xProj[i] * xProj[j] * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, 1e-10))
			excess := variance - maxVariance

			sum := 0.0
			for i := 0; i < n; i++ {
				sum += xProj[i]
			}

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * sigma.At(i, j) * xProj[j]
				}

				grad[i] = -mu[i]/stdDev + (ret-riskFree)*dVariance/(2*stdDev*stdDev*stdDev)
				grad[i] += 2 * penaltyWeight * (sum - 1.0)
				if excess > 0 {
					grad[i] += 2 * penaltyWeight * excess * dVariance
				}
			}
		},
	}

	settings := &optimize.Settings{MajorIterations: solverMaxIterations}

	result, err := optimize.Minimize(problem, equal, settings, &optimize.BFGS{})
	if err != nil || !solverSucceeded(result.Status) {
		result, err = optimize.Minimize(problem, equal, settings, &optimize.NelderMead{})
	}
	if err != nil {
		log.Warn().Err(err).Msg("Solver failed, falling back to equal weights")
		return equal, false
	}
	if !solverSucceeded(result.Status) {
		log.Warn().Stringer("status", result.Status).Msg("Solver did not converge, falling back to equal weights")
		return equal, false
	}

	final := project(result.X)
	for _, w := range final {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			log.Warn().Msg("Solver produced non-finite weights, falling back to equal weights")
			return equal, false
		}
	}

	return final, true
}

func solverSucceeded(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	default:
		return false
	}
}

// degenerate reports whether the inputs cannot support a meaningful
// mean-variance solve: a covariance matrix with no signal or non-finite
// expected returns.
func degenerate(mu []float64, sigma *mat.Dense) bool {
	for _, m := range mu {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return true
		}
	}

	n, _ := sigma.Dims()
	maxAbs := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := sigma.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
	}
	return maxAbs < 1e-12
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}
