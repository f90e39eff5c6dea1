package services

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/quant"
)

func testGoalService() *GoalService {
	cfg := &config.Config{
		RiskFreeRate:   0.02,
		InflationRate:  0.031,
		NumSimulations: 200,
		Seed:           42,
	}
	return NewGoalService(cfg, zerolog.Nop())
}

func TestGoalService_Simulate(t *testing.T) {
	svc := testGoalService()

	resp, err := svc.Simulate(models.GoalRequest{
		Name:                "Retirement",
		TargetAmount:        500000,
		TargetDate:          "2045-06-01",
		CurrentSavings:      50000,
		MonthlyContribution: 1000,
		RiskProfile:         "Aggressive",
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, resp.SuccessProbability, 0.0)
	assert.LessOrEqual(t, resp.SuccessProbability, 1.0)
	assert.NotEmpty(t, resp.RecommendedAllocation)
	assert.NotEmpty(t, resp.ETFSuggestions)

	// Long-horizon equity sleeves go global.
	equity, ok := resp.ETFSuggestions[quant.ClassEquity]
	require.True(t, ok)
	assert.Equal(t, "VT", equity.Ticker)
	assert.Equal(t, resp.RecommendedAllocation[quant.ClassEquity], equity.Percent)
}

func TestGoalService_DefaultsToModerate(t *testing.T) {
	svc := testGoalService()

	resp, err := svc.Simulate(models.GoalRequest{
		TargetAmount:        20000,
		TargetDate:          "2031-01-01",
		MonthlyContribution: 300,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.60, resp.RecommendedAllocation[quant.ClassEquity], 1e-12)
}

func TestGoalService_Validation(t *testing.T) {
	svc := testGoalService()

	_, err := svc.Simulate(models.GoalRequest{
		TargetAmount: 0,
		TargetDate:   "2031-01-01",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Simulate(models.GoalRequest{
		TargetAmount: 1000,
		TargetDate:   "not-a-date",
	})
	assert.ErrorIs(t, err, quant.ErrInvalidDateRange)

	_, err = svc.Simulate(models.GoalRequest{
		TargetAmount:   1000,
		TargetDate:     "2031-01-01",
		CurrentSavings: -5,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Simulate(models.GoalRequest{
		TargetAmount: 1000,
		TargetDate:   "2031-01-01",
		RiskProfile:  "Reckless",
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestETFSleeve_HorizonShifts(t *testing.T) {
	long := etfSleeve(map[string]float64{
		quant.ClassEquity: 0.9,
		quant.ClassBonds:  0.1,
	}, 15*12)
	assert.Equal(t, "VT", long[quant.ClassEquity].Ticker)
	assert.Equal(t, "BND", long[quant.ClassBonds].Ticker)

	short := etfSleeve(map[string]float64{
		quant.ClassEquity: 0.2,
		quant.ClassBonds:  0.6,
		quant.ClassCash:   0.2,
	}, 24)
	assert.Equal(t, "VTV", short[quant.ClassEquity].Ticker)
	assert.Equal(t, "SHY", short[quant.ClassBonds].Ticker)
	assert.Equal(t, "BIL", short[quant.ClassCash].Ticker)

	// Zero-weight classes are omitted from the sleeve.
	sleeve := etfSleeve(map[string]float64{
		quant.ClassEquity: 1,
		quant.ClassCash:   0,
	}, 60)
	_, hasCash := sleeve[quant.ClassCash]
	assert.False(t, hasCash)
}
