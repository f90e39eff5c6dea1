package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBacktest_BuyAndHoldArithmetic(t *testing.T) {
	// GROW doubles over the window, FLAT goes nowhere. An 80/20 tilt toward
	// GROW should return 80% while the equal-weight baseline returns 50%.
	in := BacktestInput{
		Weights: map[string]float64{"GROW": 0.8, "FLAT": 0.2},
		Dates:   []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08"},
		Prices: map[string][]float64{
			"GROW": {100, 125, 150, 175, 200},
			"FLAT": {50, 50, 50, 50, 50},
		},
		InitialInvestment: 10000,
		RiskFree:          0.02,
	}

	res, err := RunBacktest(in)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, res.Optimized.CumulativeReturn, 1e-9)
	assert.InDelta(t, 18000, res.Optimized.FinalValue, 1e-6)
	assert.InDelta(t, 0.5, res.Baseline.CumulativeReturn, 1e-9)
	assert.InDelta(t, 15000, res.Baseline.FinalValue, 1e-6)
	assert.InDelta(t, 0.3, res.Comparison.ReturnDifference, 1e-9)

	// Monotone rising portfolio never draws down.
	assert.Equal(t, 0.0, res.Optimized.MaxDrawdown)
	assert.Equal(t, 0, res.Optimized.RecoveryTime)

	require.Len(t, res.Optimized.Values, len(in.Dates))
	assert.InDelta(t, 10000, res.Optimized.Values[0], 1e-9)
	assert.Equal(t, in.Dates, res.Dates)
}

func TestRunBacktest_DrawdownAndRecovery(t *testing.T) {
	in := BacktestInput{
		Weights: map[string]float64{"DIP": 1},
		Dates:   []string{"d0", "d1", "d2", "d3"},
		Prices: map[string][]float64{
			"DIP": {100, 80, 100, 110},
		},
		InitialInvestment: 1000,
	}

	res, err := RunBacktest(in)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, res.Optimized.MaxDrawdown, 1e-9)
	assert.Equal(t, 1, res.Optimized.RecoveryTime)
}

func TestRunBacktest_RecoveryNotReached(t *testing.T) {
	in := BacktestInput{
		Weights: map[string]float64{"SLIDE": 1},
		Dates:   []string{"d0", "d1", "d2"},
		Prices: map[string][]float64{
			"SLIDE": {100, 60, 70},
		},
		InitialInvestment: 1000,
	}

	res, err := RunBacktest(in)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, res.Optimized.MaxDrawdown, 1e-9)
	assert.Equal(t, RecoveryNotReached, res.Optimized.RecoveryTime)
}

func TestRunBacktest_Validation(t *testing.T) {
	base := BacktestInput{
		Weights:           map[string]float64{"A": 1},
		Dates:             []string{"d0", "d1"},
		Prices:            map[string][]float64{"A": {10, 11}},
		InitialInvestment: 1000,
	}

	short := base
	short.Dates = []string{"d0"}
	short.Prices = map[string][]float64{"A": {10}}
	_, err := RunBacktest(short)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	missing := base
	missing.Prices = map[string][]float64{}
	_, err = RunBacktest(missing)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	misaligned := base
	misaligned.Prices = map[string][]float64{"A": {10, 11, 12}}
	_, err = RunBacktest(misaligned)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	zeroStart := base
	zeroStart.Prices = map[string][]float64{"A": {0, 11}}
	_, err = RunBacktest(zeroStart)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	noMoney := base
	noMoney.InitialInvestment = 0
	_, err = RunBacktest(noMoney)
	assert.ErrorIs(t, err, ErrDegenerateInput)
}
