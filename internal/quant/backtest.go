package quant

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RecoveryNotReached is the recovery-time sentinel reported when the window
// ends before the portfolio climbs back to its pre-drawdown peak.
const RecoveryNotReached = -1

// BacktestInput is an aligned historical window plus the allocation to
// replay. Price series must share the Dates axis.
type BacktestInput struct {
	Weights           map[string]float64
	Dates             []string
	Prices            map[string][]float64
	InitialInvestment float64
	RiskFree          float64
}

// StrategyPerformance holds realized metrics for one replayed strategy.
type StrategyPerformance struct {
	Values           []float64 `json:"values"`
	CumulativeReturn float64   `json:"cumulative_return"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	Volatility       float64   `json:"volatility"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	FinalValue       float64   `json:"final_value"`
	RecoveryTime     int       `json:"recovery_time"`
}

// BacktestComparison summarizes the optimized strategy's edge over the
// baseline.
type BacktestComparison struct {
	ReturnDifference    float64 `json:"return_difference"`
	DrawdownImprovement float64 `json:"drawdown_improvement"`
	VolatilityReduction float64 `json:"volatility_reduction"`
	SharpeImprovement   float64 `json:"sharpe_improvement"`
}

// BacktestResult compares the fixed-weight portfolio against an equal-weight
// baseline over the same window. Immutable after computation.
type BacktestResult struct {
	Dates      []string            `json:"dates"`
	Optimized  StrategyPerformance `json:"optimized_portfolio"`
	Baseline   StrategyPerformance `json:"baseline_portfolio"`
	Comparison BacktestComparison  `json:"comparison"`
}

// RunBacktest replays a buy-and-hold allocation: the initial investment is
// split into shares at the first close and values drift with prices, without
// rebalancing. The baseline holds every ticker at equal initial weight.
func RunBacktest(in BacktestInput) (*BacktestResult, error) {
	if len(in.Dates) < 2 {
		return nil, fmt.Errorf("window has %d observations: %w", len(in.Dates), ErrInsufficientHistory)
	}
	if in.InitialInvestment <= 0 {
		return nil, fmt.Errorf("initial investment must be positive: %w", ErrDegenerateInput)
	}
	for ticker := range in.Weights {
		series, ok := in.Prices[ticker]
		if !ok || len(series) != len(in.Dates) {
			return nil, fmt.Errorf("ticker %s missing data in range: %w", ticker, ErrInsufficientHistory)
		}
		if series[0] <= 0 {
			return nil, fmt.Errorf("ticker %s has non-positive starting price: %w", ticker, ErrInsufficientHistory)
		}
	}

	optimized := replayBuyAndHold(in.Weights, in.Prices, in.Dates, in.InitialInvestment)

	equal := make(map[string]float64, len(in.Weights))
	for ticker := range in.Weights {
		equal[ticker] = 1 / float64(len(in.Weights))
	}
	baseline := replayBuyAndHold(equal, in.Prices, in.Dates, in.InitialInvestment)

	opt := performanceMetrics(optimized, in.RiskFree)
	base := performanceMetrics(baseline, in.RiskFree)

	return &BacktestResult{
		Dates:     in.Dates,
		Optimized: opt,
		Baseline:  base,
		Comparison: BacktestComparison{
			ReturnDifference:    opt.CumulativeReturn - base.CumulativeReturn,
			DrawdownImprovement: base.MaxDrawdown - opt.MaxDrawdown,
			VolatilityReduction: base.Volatility - opt.Volatility,
			SharpeImprovement:   opt.SharpeRatio - base.SharpeRatio,
		},
	}, nil
}

func replayBuyAndHold(weights map[string]float64, prices map[string][]float64, dates []string, initial float64) []float64 {
	shares := make(map[string]float64, len(weights))
	for ticker, w := range weights {
		shares[ticker] = w * initial / prices[ticker][0]
	}
	values := make([]float64, len(dates))
	for t := range dates {
		var v float64
		for ticker, s := range shares {
			v += s * prices[ticker][t]
		}
		values[t] = v
	}
	return values
}

func performanceMetrics(values []float64, riskFree float64) StrategyPerformance {
	cumulative := values[len(values)-1]/values[0] - 1

	// Max drawdown and the recovery scan from its trough.
	peak := values[0]
	var maxDD float64
	troughAt := -1
	ddPeak := 0.0
	for t, v := range values {
		if v > peak {
			peak = v
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
			troughAt = t
			ddPeak = peak
		}
	}
	recovery := 0
	if troughAt >= 0 && maxDD > 0 {
		recovery = RecoveryNotReached
		for t := troughAt + 1; t < len(values); t++ {
			if values[t] >= ddPeak {
				recovery = t - troughAt
				break
			}
		}
	}

	rets := dailyReturns(values)
	_, std := stat.MeanStdDev(rets, nil)
	volatility := std * math.Sqrt(TradingDaysPerYear)

	years := float64(len(values)) / TradingDaysPerYear
	annualized := cumulative
	if years > 0 {
		annualized = math.Pow(1+cumulative, 1/years) - 1
	}
	sharpe := 0.0
	if volatility > 0 {
		sharpe = (annualized - riskFree) / volatility
	}

	return StrategyPerformance{
		Values:           values,
		CumulativeReturn: scrub(cumulative),
		MaxDrawdown:      scrub(maxDD),
		Volatility:       scrub(volatility),
		SharpeRatio:      scrub(sharpe),
		FinalValue:       scrub(values[len(values)-1]),
		RecoveryTime:     recovery,
	}
}
