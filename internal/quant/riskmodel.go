package quant

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// TradingDaysPerYear is the annualization factor for daily observations.
	TradingDaysPerYear = 252

	// MinObservations is the minimum number of daily closes a ticker needs
	// before its statistics are trusted.
	MinObservations = 60

	// DefaultSentimentAlpha is the weight applied to sentiment scores when
	// tilting expected returns.
	DefaultSentimentAlpha = 0.05

	// degenerateVolEps treats sub-numerical volatility as zero.
	degenerateVolEps = 1e-10
)

// UniverseStats holds annualized return/risk statistics for a candidate asset
// universe, derived from an aligned window of historical prices. Immutable
// once computed for a request.
type UniverseStats struct {
	Tickers []string
	Mean    []float64 // annualized expected returns, index-aligned with Tickers
	Vol     []float64 // annualized volatilities
	Cov     *mat.SymDense
	Beta    map[string]float64

	// Excluded lists tickers dropped for having fewer than the minimum
	// number of observations. Degenerate lists tickers whose return series
	// has zero variance; they stay in the universe but are flagged so
	// downstream consumers can refuse to simulate them.
	Excluded   []string
	Degenerate []string
}

// StatsOptions controls universe statistics computation.
type StatsOptions struct {
	MinObservations int // defaults to MinObservations when zero

	// SentimentScores, when present, tilt expected returns by
	// mu[i] += SentimentAlpha * score[i]. Missing tickers are left untilted.
	SentimentScores map[string]float64
	SentimentAlpha  float64

	// Betas carries provider-supplied betas (e.g. fundamentals). When a
	// ticker is absent its beta defaults to 1.
	Betas map[string]float64
}

// ComputeUniverseStats converts aligned historical price series into
// annualized expected returns, volatilities and a covariance matrix.
// Pure function of its inputs; ticker order in the result is lexical so
// identical inputs always yield identical statistics.
func ComputeUniverseStats(prices map[string][]float64, opts StatsOptions) (*UniverseStats, error) {
	minObs := opts.MinObservations
	if minObs <= 0 {
		minObs = MinObservations
	}

	tickers := make([]string, 0, len(prices))
	for t := range prices {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var usable, excluded []string
	obsLen := 0
	for _, t := range tickers {
		if len(prices[t]) < minObs {
			excluded = append(excluded, t)
			continue
		}
		usable = append(usable, t)
		if obsLen == 0 || len(prices[t]) < obsLen {
			obsLen = len(prices[t])
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no ticker has %d or more observations: %w", minObs, ErrInsufficientData)
	}

	// Trim every series to the shared tail so the return matrix is aligned.
	nObs := obsLen - 1 // returns per series
	returns := mat.NewDense(nObs, len(usable), nil)
	stats := &UniverseStats{
		Tickers:  usable,
		Mean:     make([]float64, len(usable)),
		Vol:      make([]float64, len(usable)),
		Beta:     make(map[string]float64, len(usable)),
		Excluded: excluded,
	}

	for j, t := range usable {
		series := prices[t]
		series = series[len(series)-obsLen:]
		rets := dailyReturns(series)
		mean, std := stat.MeanStdDev(rets, nil)
		stats.Mean[j] = scrub(mean * TradingDaysPerYear)
		stats.Vol[j] = scrub(std * math.Sqrt(TradingDaysPerYear))
		if stats.Vol[j] < degenerateVolEps {
			stats.Degenerate = append(stats.Degenerate, t)
		}
		for i, r := range rets {
			returns.Set(i, j, r)
		}
	}

	cov := mat.NewSymDense(len(usable), nil)
	stat.CovarianceMatrix(cov, returns, nil)
	for i := 0; i < len(usable); i++ {
		for j := i; j < len(usable); j++ {
			cov.SetSym(i, j, scrub(cov.At(i, j)*TradingDaysPerYear))
		}
	}
	stats.Cov = cov

	if opts.SentimentScores != nil {
		alpha := opts.SentimentAlpha
		if alpha == 0 {
			alpha = DefaultSentimentAlpha
		}
		for j, t := range usable {
			if s, ok := opts.SentimentScores[t]; ok {
				stats.Mean[j] = scrub(stats.Mean[j] + alpha*s)
			}
		}
	}

	for _, t := range usable {
		if b, ok := opts.Betas[t]; ok && !math.IsNaN(b) {
			stats.Beta[t] = b
		} else {
			stats.Beta[t] = 1.0
		}
	}

	return stats, nil
}

// Subset extracts the mean vector and covariance matrix for the given
// universe indices, preserving their order.
func (u *UniverseStats) Subset(idx []int) ([]string, []float64, *mat.SymDense) {
	tickers := make([]string, len(idx))
	mu := make([]float64, len(idx))
	cov := mat.NewSymDense(len(idx), nil)
	for a, i := range idx {
		tickers[a] = u.Tickers[i]
		mu[a] = u.Mean[i]
		for b := a; b < len(idx); b++ {
			cov.SetSym(a, b, u.Cov.At(i, idx[b]))
		}
	}
	return tickers, mu, cov
}

// Index returns the universe position of a ticker, or -1.
func (u *UniverseStats) Index(ticker string) int {
	for i, t := range u.Tickers {
		if t == ticker {
			return i
		}
	}
	return -1
}

// PortfolioReturn computes mu'w for an index-aligned weight vector.
func PortfolioReturn(weights, mu []float64) float64 {
	var r float64
	for i, w := range weights {
		r += w * mu[i]
	}
	return r
}

// PortfolioVolatility computes sqrt(w'Σw).
func PortfolioVolatility(weights []float64, cov *mat.SymDense) float64 {
	n := len(weights)
	var v float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v += weights[i] * weights[j] * cov.At(i, j)
		}
	}
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// dailyReturns computes simple period-over-period returns. A zero price
// yields a zero return rather than a division blowup; such series surface as
// degenerate through the volatility check.
func dailyReturns(prices []float64) []float64 {
	rets := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			rets[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return rets
}

// scrub replaces NaN/Inf with zero so no malformed float leaves the model.
func scrub(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
