package quant

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticPrices builds a daily close series with the given drift and
// noise, reproducible from the seed.
func syntheticPrices(seed int64, n int, drift, noise float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	prices := make([]float64, n)
	prices[0] = 100
	for i := 1; i < n; i++ {
		prices[i] = prices[i-1] * (1 + drift + noise*rng.NormFloat64())
	}
	return prices
}

func TestComputeUniverseStats_AnnualizesConstantGrowth(t *testing.T) {
	// 0.1% every day: the annualized mean is exactly 0.252 and the
	// volatility zero, which flags the series as degenerate.
	steady := make([]float64, 120)
	steady[0] = 100
	for i := 1; i < len(steady); i++ {
		steady[i] = steady[i-1] * 1.001
	}

	stats, err := ComputeUniverseStats(map[string][]float64{
		"STEADY": steady,
		"NOISY":  syntheticPrices(1, 120, 0.0005, 0.01),
	}, StatsOptions{})
	require.NoError(t, err)

	require.Equal(t, []string{"NOISY", "STEADY"}, stats.Tickers)

	i := stats.Index("STEADY")
	assert.InDelta(t, 0.001*TradingDaysPerYear, stats.Mean[i], 1e-9)
	assert.InDelta(t, 0, stats.Vol[i], 1e-9)
	assert.Contains(t, stats.Degenerate, "STEADY")
	assert.NotContains(t, stats.Degenerate, "NOISY")

	j := stats.Index("NOISY")
	assert.Greater(t, stats.Vol[j], 0.0)
	assert.InDelta(t, stats.Vol[j]*stats.Vol[j], stats.Cov.At(j, j), 1e-9)
}

func TestComputeUniverseStats_ExcludesShortSeries(t *testing.T) {
	stats, err := ComputeUniverseStats(map[string][]float64{
		"LONG":  syntheticPrices(2, 200, 0.0004, 0.01),
		"SHORT": syntheticPrices(3, 10, 0.0004, 0.01),
	}, StatsOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"LONG"}, stats.Tickers)
	assert.Equal(t, []string{"SHORT"}, stats.Excluded)
}

func TestComputeUniverseStats_AllSeriesTooShort(t *testing.T) {
	_, err := ComputeUniverseStats(map[string][]float64{
		"A": syntheticPrices(4, 5, 0, 0.01),
	}, StatsOptions{})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeUniverseStats_SentimentTilt(t *testing.T) {
	prices := map[string][]float64{
		"A": syntheticPrices(5, 150, 0.0005, 0.01),
		"B": syntheticPrices(6, 150, 0.0005, 0.01),
	}

	plain, err := ComputeUniverseStats(prices, StatsOptions{})
	require.NoError(t, err)

	tilted, err := ComputeUniverseStats(prices, StatsOptions{
		SentimentScores: map[string]float64{"A": 0.8},
	})
	require.NoError(t, err)

	ia := plain.Index("A")
	assert.InDelta(t, plain.Mean[ia]+DefaultSentimentAlpha*0.8, tilted.Mean[ia], 1e-12)

	ib := plain.Index("B")
	assert.InDelta(t, plain.Mean[ib], tilted.Mean[ib], 1e-12)
}

func TestComputeUniverseStats_BetaDefaultsToOne(t *testing.T) {
	stats, err := ComputeUniverseStats(map[string][]float64{
		"A": syntheticPrices(7, 150, 0.0005, 0.01),
		"B": syntheticPrices(8, 150, 0.0005, 0.01),
	}, StatsOptions{Betas: map[string]float64{"A": 1.3}})
	require.NoError(t, err)

	assert.Equal(t, 1.3, stats.Beta["A"])
	assert.Equal(t, 1.0, stats.Beta["B"])
}

func TestSubset_PreservesOrderAndCovariance(t *testing.T) {
	stats, err := ComputeUniverseStats(map[string][]float64{
		"A": syntheticPrices(9, 150, 0.0005, 0.01),
		"B": syntheticPrices(10, 150, 0.0003, 0.02),
		"C": syntheticPrices(11, 150, 0.0007, 0.015),
	}, StatsOptions{})
	require.NoError(t, err)

	tickers, mu, cov := stats.Subset([]int{0, 2})
	require.Equal(t, []string{"A", "C"}, tickers)
	assert.Equal(t, stats.Mean[0], mu[0])
	assert.Equal(t, stats.Mean[2], mu[1])
	assert.Equal(t, stats.Cov.At(0, 2), cov.At(0, 1))
	assert.Equal(t, stats.Cov.At(2, 2), cov.At(1, 1))
}

func TestPortfolioVolatility_NeverNegative(t *testing.T) {
	stats, err := ComputeUniverseStats(map[string][]float64{
		"A": syntheticPrices(12, 150, 0.0005, 0.01),
		"B": syntheticPrices(13, 150, 0.0005, 0.01),
	}, StatsOptions{})
	require.NoError(t, err)

	vol := PortfolioVolatility([]float64{0.5, 0.5}, stats.Cov)
	assert.False(t, math.IsNaN(vol))
	assert.GreaterOrEqual(t, vol, 0.0)
}
