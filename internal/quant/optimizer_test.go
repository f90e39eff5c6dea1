package quant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// sixAssetStats is a hand-built universe with distinct risk/return levels
// and mild positive correlation, so subset selection has real choices to
// make.
func sixAssetStats() *UniverseStats {
	tickers := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF"}
	mean := []float64{0.12, 0.08, 0.15, 0.05, 0.10, 0.03}
	vol := []float64{0.25, 0.15, 0.35, 0.08, 0.20, 0.05}

	n := len(tickers)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				cov.SetSym(i, j, vol[i]*vol[i])
			} else {
				cov.SetSym(i, j, 0.3*vol[i]*vol[j])
			}
		}
	}

	beta := make(map[string]float64, n)
	for _, t := range tickers {
		beta[t] = 1
	}
	return &UniverseStats{Tickers: tickers, Mean: mean, Vol: vol, Cov: cov, Beta: beta}
}

func baseParams() OptimizeParams {
	return OptimizeParams{
		RiskTolerance:    0.5,
		NumAssets:        4,
		InvestmentAmount: 10000,
		HorizonYears:     5,
		RiskFree:         0.02,
		Seed:             42,
	}
}

func TestOptimize_WeightsFormValidAllocation(t *testing.T) {
	stats := sixAssetStats()

	for _, strategy := range []Strategy{StrategyHeuristic, StrategyClassical} {
		p, err := Optimize(stats, baseParams(), strategy)
		require.NoError(t, err, "strategy %s", strategy)

		require.Len(t, p.Config.SelectedAssets, 4)
		require.Len(t, p.OrderedWeights, 4)

		var sum float64
		for _, w := range p.OrderedWeights {
			assert.Greater(t, w, 0.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6)

		for i, ticker := range p.Config.SelectedAssets {
			assert.Equal(t, p.OrderedWeights[i], p.Config.Weights[ticker])
		}
		assert.Equal(t, 10000.0, p.Config.InvestmentAmount)
		assert.Equal(t, 5, p.Config.HorizonYears)
	}
}

func TestOptimize_DeterministicForSeed(t *testing.T) {
	stats := sixAssetStats()

	a, err := Optimize(stats, baseParams(), StrategyHeuristic)
	require.NoError(t, err)
	b, err := Optimize(stats, baseParams(), StrategyHeuristic)
	require.NoError(t, err)

	assert.Equal(t, a.Config.SelectedAssets, b.Config.SelectedAssets)
	assert.Equal(t, a.Config.Weights, b.Config.Weights)
	assert.Equal(t, a.Risk, b.Risk)
}

func TestOptimize_RiskMetricsConsistent(t *testing.T) {
	stats := sixAssetStats()

	p, err := Optimize(stats, baseParams(), StrategyHeuristic)
	require.NoError(t, err)

	// Loss forms are dollar magnitudes scaled by the investment; the
	// conditional tail loss can never be smaller than the threshold loss.
	assert.GreaterOrEqual(t, p.Risk.VaRLoss, 0.0)
	assert.GreaterOrEqual(t, p.Risk.CVaRLoss, p.Risk.VaRLoss)
	assert.LessOrEqual(t, p.Risk.CVaRReturn, p.Risk.VaRReturn)
}

func TestOptimize_ToleranceScalesRisk(t *testing.T) {
	stats := sixAssetStats()

	cautious := baseParams()
	cautious.RiskTolerance = 0.1
	bold := baseParams()
	bold.RiskTolerance = 0.9

	lo, err := Optimize(stats, cautious, StrategyHeuristic)
	require.NoError(t, err)
	hi, err := Optimize(stats, bold, StrategyHeuristic)
	require.NoError(t, err)

	// Cash blending means lower tolerance always lands at lower volatility.
	assert.Less(t, lo.Volatility, hi.Volatility)
}

func TestOptimize_ValidationErrors(t *testing.T) {
	stats := sixAssetStats()

	p := baseParams()
	p.RiskTolerance = 1.5
	_, err := Optimize(stats, p, StrategyHeuristic)
	assert.ErrorIs(t, err, ErrInvalidTolerance)

	p = baseParams()
	p.RiskTolerance = -0.1
	_, err = Optimize(stats, p, StrategyHeuristic)
	assert.ErrorIs(t, err, ErrInvalidTolerance)

	p = baseParams()
	p.HorizonYears = 0
	_, err = Optimize(stats, p, StrategyHeuristic)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	p = baseParams()
	p.NumAssets = 7
	_, err = Optimize(stats, p, StrategyHeuristic)
	assert.ErrorIs(t, err, ErrInfeasibleUniverse)

	p = baseParams()
	p.NumAssets = 1
	_, err = Optimize(stats, p, StrategyHeuristic)
	assert.ErrorIs(t, err, ErrInfeasibleUniverse)

	_, err = Optimize(stats, baseParams(), Strategy("annealed-maybe"))
	assert.Error(t, err)
}

func TestOptimize_SkipsDegenerateTickers(t *testing.T) {
	stats := sixAssetStats()
	stats.Degenerate = []string{"CCC"}

	params := baseParams()
	params.NumAssets = 5

	p, err := Optimize(stats, params, StrategyHeuristic)
	require.NoError(t, err)
	assert.NotContains(t, p.Config.SelectedAssets, "CCC")

	// With one ticker degenerate only five candidates remain.
	params.NumAssets = 6
	_, err = Optimize(stats, params, StrategyHeuristic)
	assert.ErrorIs(t, err, ErrInfeasibleUniverse)
}

func TestRiskLambda_Bounds(t *testing.T) {
	assert.InDelta(t, lambdaMax, riskLambda(0), 1e-12)
	assert.InDelta(t, lambdaMin, riskLambda(1), 1e-12)
	assert.Greater(t, riskLambda(0.3), riskLambda(0.7))
}

func TestBlendWithCash(t *testing.T) {
	ret, vol, sharpe := blendWithCash(0.10, 0.20, 0, 0.02)
	assert.InDelta(t, 0.02, ret, 1e-12)
	assert.Equal(t, 0.0, vol)
	assert.Equal(t, 0.0, sharpe)

	ret, vol, sharpe = blendWithCash(0.10, 0.20, 1, 0.02)
	assert.InDelta(t, 0.10, ret, 1e-12)
	assert.InDelta(t, 0.20, vol, 1e-12)
	assert.InDelta(t, (0.10-0.02)/0.20, sharpe, 1e-12)
}

func TestProjectToSimplex(t *testing.T) {
	w := projectToSimplex([]float64{0.5, -0.2, math.NaN(), 0.7}, 0.01)

	var sum float64
	for _, v := range w {
		assert.Greater(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestSolveWeights_SingleAsset(t *testing.T) {
	cov := mat.NewSymDense(1, []float64{0.04})
	w := solveWeights([]float64{0.08}, cov, 0.5, 0.01)
	require.Equal(t, []float64{1.0}, w)
}
