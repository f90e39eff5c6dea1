package quant

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Strategy selects the subset-search algorithm used by Optimize. Both
// strategies share the same scoring objective and the same weight solver, so
// their outputs are directly comparable.
type Strategy string

const (
	// StrategyHeuristic is the quantum-inspired variant: a seeded simulated
	// annealing search over k-subsets of the universe.
	StrategyHeuristic Strategy = "quantum"

	// StrategyClassical ranks assets by an individual risk-adjusted score
	// and takes the top k.
	StrategyClassical Strategy = "classical"
)

const (
	// Risk-aversion penalty bounds. Tolerance 1 maps to lambdaMin
	// (risk-seeking), tolerance 0 to lambdaMax.
	lambdaMin = 0.1
	lambdaMax = 10.0

	// DefaultMinWeight keeps every selected asset at a meaningful
	// allocation to preserve diversification.
	DefaultMinWeight = 0.01

	annealIterations = 4000
	annealCooling    = 0.995

	// Short-horizon simulation behind the optimizer's VaR figure.
	varHorizonDays = 30
	varSimCount    = 5000
	varAlpha       = 0.05
)

// OptimizeParams are the caller-supplied optimization inputs.
type OptimizeParams struct {
	RiskTolerance    float64
	NumAssets        int
	InvestmentAmount float64
	HorizonYears     int
	RiskFree         float64
	Seed             int64
	MinWeight        float64 // defaults to DefaultMinWeight
}

// PortfolioConfig is the selected allocation. Weights are non-negative and
// sum to 1 within numeric tolerance.
type PortfolioConfig struct {
	SelectedAssets   []string           `json:"selected_assets"`
	Weights          map[string]float64 `json:"weights"`
	InvestmentAmount float64            `json:"investment_amount"`
	HorizonYears     int                `json:"horizon_years"`
}

// OptimizedPortfolio is the full optimizer output: the allocation plus
// portfolio-level annualized statistics and a simulated VaR.
type OptimizedPortfolio struct {
	Config         PortfolioConfig
	OrderedWeights []float64 // aligned with Config.SelectedAssets
	ExpectedReturn float64
	Volatility     float64
	SharpeRatio    float64
	Beta           float64
	Risk           RiskMetrics

	subsetIdx []int
}

// SubsetIndices returns the universe indices of the selected assets.
func (p *OptimizedPortfolio) SubsetIndices() []int { return p.subsetIdx }

// Optimize selects NumAssets assets from the universe and solves for weights
// maximizing a tolerance-adjusted Sharpe objective. Deterministic for
// identical statistics, parameters and seed.
func Optimize(stats *UniverseStats, params OptimizeParams, strategy Strategy) (*OptimizedPortfolio, error) {
	if params.RiskTolerance < 0 || params.RiskTolerance > 1 {
		return nil, fmt.Errorf("tolerance %.3f: %w", params.RiskTolerance, ErrInvalidTolerance)
	}
	if params.HorizonYears <= 0 {
		return nil, fmt.Errorf("horizon %d years: %w", params.HorizonYears, ErrInvalidHorizon)
	}
	if params.NumAssets < 2 {
		return nil, fmt.Errorf("need at least 2 assets, got %d: %w", params.NumAssets, ErrInfeasibleUniverse)
	}

	candidates := usableCandidates(stats)
	if params.NumAssets > len(candidates) {
		return nil, fmt.Errorf("requested %d assets from %d usable candidates: %w",
			params.NumAssets, len(candidates), ErrInfeasibleUniverse)
	}

	var idx []int
	switch strategy {
	case StrategyHeuristic:
		idx = selectSubsetAnnealing(stats, candidates, params)
	case StrategyClassical:
		idx = selectSubsetRanked(stats, candidates, params)
	default:
		return nil, fmt.Errorf("unknown optimization strategy %q", strategy)
	}

	tickers, muSub, covSub := stats.Subset(idx)

	minWeight := params.MinWeight
	if minWeight <= 0 {
		minWeight = DefaultMinWeight
	}
	weights := solveWeights(muSub, covSub, params.RiskTolerance, minWeight)

	retRisky := PortfolioReturn(weights, muSub)
	volRisky := PortfolioVolatility(weights, covSub)
	expReturn, vol, sharpe := blendWithCash(retRisky, volRisky, params.RiskTolerance, params.RiskFree)

	risk, err := SimulateHorizonReturns(muSub, covSub, weights, varHorizonDays, varSimCount, varAlpha, params.Seed)
	if err != nil {
		return nil, err
	}
	// Scale the loss forms to the invested amount; the simulation reports
	// them per dollar.
	risk.VaRLoss *= params.InvestmentAmount
	risk.CVaRLoss *= params.InvestmentAmount

	weightMap := make(map[string]float64, len(tickers))
	var beta float64
	for i, t := range tickers {
		weightMap[t] = weights[i]
		beta += weights[i] * stats.Beta[t]
	}

	return &OptimizedPortfolio{
		Config: PortfolioConfig{
			SelectedAssets:   tickers,
			Weights:          weightMap,
			InvestmentAmount: params.InvestmentAmount,
			HorizonYears:     params.HorizonYears,
		},
		OrderedWeights: weights,
		ExpectedReturn: scrub(expReturn),
		Volatility:     scrub(vol),
		SharpeRatio:    scrub(sharpe),
		Beta:           scrub(beta),
		Risk:           risk,
		subsetIdx:      idx,
	}, nil
}

// usableCandidates filters out degenerate (zero-variance) tickers.
func usableCandidates(stats *UniverseStats) []int {
	degenerate := make(map[string]bool, len(stats.Degenerate))
	for _, t := range stats.Degenerate {
		degenerate[t] = true
	}
	var idx []int
	for i, t := range stats.Tickers {
		if !degenerate[t] {
			idx = append(idx, i)
		}
	}
	return idx
}

// riskLambda maps tolerance to the variance penalty. The square keeps the
// penalty growing steeply as tolerance approaches zero.
func riskLambda(tolerance float64) float64 {
	return lambdaMin + (1-tolerance)*(1-tolerance)*(lambdaMax-lambdaMin)
}

// selectSubsetAnnealing searches k-subsets with simulated annealing over a
// QUBO-style energy: lambda^2-scaled covariance penalties against
// lambda/avgVol-scaled return rewards. Seeded from the greedy ranking so the
// search is reproducible for a fixed seed.
func selectSubsetAnnealing(stats *UniverseStats, candidates []int, params OptimizeParams) []int {
	k := params.NumAssets
	lam := riskLambda(params.RiskTolerance)

	var diagSum float64
	for _, i := range candidates {
		diagSum += math.Abs(stats.Cov.At(i, i))
	}
	avgVol := math.Sqrt(diagSum / float64(len(candidates)))
	if avgVol == 0 {
		avgVol = 1
	}

	linear := func(i int) float64 { return -stats.Mean[i] * lam / avgVol }
	quad := func(i, j int) float64 { return lam * lam * stats.Cov.At(i, j) }

	// Greedy seed: individual energy contribution, ties broken by ticker.
	seed := append([]int(nil), candidates...)
	sort.Slice(seed, func(a, b int) bool {
		ea := linear(seed[a]) + quad(seed[a], seed[a])
		eb := linear(seed[b]) + quad(seed[b], seed[b])
		if ea != eb {
			return ea < eb
		}
		return stats.Tickers[seed[a]] < stats.Tickers[seed[b]]
	})
	current := append([]int(nil), seed[:k]...)
	rest := append([]int(nil), seed[k:]...)
	if len(rest) == 0 {
		sort.Ints(current)
		return current
	}

	energy := func(subset []int) float64 {
		var e float64
		for _, i := range subset {
			e += linear(i)
			for _, j := range subset {
				e += quad(i, j)
			}
		}
		return e
	}

	cur := energy(current)
	best := append([]int(nil), current...)
	bestE := cur

	rng := rand.New(rand.NewSource(params.Seed))
	temp := math.Max(math.Abs(cur), 1e-6)
	for it := 0; it < annealIterations; it++ {
		oi := rng.Intn(len(current))
		ni := rng.Intn(len(rest))
		out, in := current[oi], rest[ni]

		delta := linear(in) - linear(out) + quad(in, in) - quad(out, out)
		for _, j := range current {
			if j == out {
				continue
			}
			delta += 2 * (quad(in, j) - quad(out, j))
		}

		if delta < 0 || rng.Float64() < math.Exp(-delta/temp) {
			current[oi], rest[ni] = in, out
			cur += delta
			if cur < bestE {
				bestE = cur
				copy(best, current)
			}
		}
		temp *= annealCooling
	}

	sort.Ints(best)
	return best
}

// selectSubsetRanked is the closed-form comparison variant: rank candidates
// by their individual tolerance-adjusted score and take the top k.
func selectSubsetRanked(stats *UniverseStats, candidates []int, params OptimizeParams) []int {
	lam := riskLambda(params.RiskTolerance)
	ranked := append([]int(nil), candidates...)
	sort.Slice(ranked, func(a, b int) bool {
		sa := stats.Mean[ranked[a]] - lam*stats.Cov.At(ranked[a], ranked[a])
		sb := stats.Mean[ranked[b]] - lam*stats.Cov.At(ranked[b], ranked[b])
		if sa != sb {
			return sa > sb
		}
		return stats.Tickers[ranked[a]] < stats.Tickers[ranked[b]]
	})
	idx := append([]int(nil), ranked[:params.NumAssets]...)
	sort.Ints(idx)
	return idx
}

// solveWeights maximizes the Sharpe ratio of the subset with a soft penalty
// pulling portfolio volatility toward a tolerance-scaled target between the
// global-minimum-variance point and the riskiest single asset. Falls back to
// equal weights when the numerical search fails.
func solveWeights(mu []float64, cov *mat.SymDense, tolerance, minWeight float64) []float64 {
	n := len(mu)
	if n == 1 {
		return []float64{1}
	}
	equal := make([]float64, n)
	for i := range equal {
		equal[i] = 1 / float64(n)
	}

	gmv := gmvWeights(cov)
	minVol := PortfolioVolatility(gmv, cov)
	var maxVol float64
	for i := 0; i < n; i++ {
		if v := math.Sqrt(math.Max(0, cov.At(i, i))); v > maxVol {
			maxVol = v
		}
	}
	targetVol := minVol + tolerance*(maxVol-minVol)
	if targetVol <= 0 {
		return equal
	}

	objective := func(x []float64) float64 {
		w := projectToSimplex(x, minWeight)
		ret := PortfolioReturn(w, mu)
		vol := PortfolioVolatility(w, cov)
		if vol <= 0 {
			return math.Inf(1)
		}
		sharpe := ret / vol
		dev := (vol - targetVol) / targetVol
		return -sharpe + 0.1*dev*dev
	}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, equal, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return equal
	}
	w := projectToSimplex(result.X, minWeight)
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return equal
		}
	}
	return w
}

// gmvWeights computes the global-minimum-variance weights by solving
// Sigma * x = 1, with an escalating ridge when the matrix is near-singular.
func gmvWeights(cov *mat.SymDense) []float64 {
	n := cov.SymmetricDim()
	equal := make([]float64, n)
	for i := range equal {
		equal[i] = 1 / float64(n)
	}

	ridge := 1e-8
	for attempt := 0; attempt < 5; attempt++ {
		reg := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := cov.At(i, j)
				if i == j {
					v += ridge
				}
				reg.SetSym(i, j, v)
			}
		}
		var chol mat.Cholesky
		if !chol.Factorize(reg) {
			ridge *= 100
			continue
		}
		ones := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			ones.SetVec(i, 1)
		}
		var x mat.VecDense
		if err := chol.SolveVecTo(&x, ones); err != nil {
			ridge *= 100
			continue
		}
		var sum float64
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			w[i] = x.AtVec(i)
			sum += w[i]
		}
		if sum == 0 {
			return equal
		}
		for i := range w {
			w[i] /= sum
		}
		return w
	}
	return equal
}

// projectToSimplex clamps weights to [minWeight, 1] and renormalizes to sum
// to one.
func projectToSimplex(x []float64, minWeight float64) []float64 {
	n := len(x)
	w := make([]float64, n)
	var sum float64
	for i, v := range x {
		if math.IsNaN(v) {
			v = minWeight
		}
		if v < minWeight {
			v = minWeight
		}
		if v > 1 {
			v = 1
		}
		w[i] = v
		sum += v
	}
	if sum == 0 {
		for i := range w {
			w[i] = 1 / float64(n)
		}
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// blendWithCash applies two-fund separation: the risky portfolio is mixed
// with cash at the risk-free rate in proportion to the tolerance.
func blendWithCash(retRisky, volRisky, tolerance, riskFree float64) (ret, vol, sharpe float64) {
	ret = (1-tolerance)*riskFree + tolerance*retRisky
	vol = tolerance * volRisky
	if vol > 0 {
		sharpe = (ret - riskFree) / vol
	}
	return ret, vol, sharpe
}
