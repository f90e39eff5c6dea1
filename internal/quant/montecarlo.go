package quant

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultNumPaths is the simulation count used when a request does not
	// override it.
	DefaultNumPaths = 1000

	// covRidge is added to the daily covariance diagonal before
	// factorization to keep it positive definite.
	covRidge = 1e-6

	pathBatchSize   = 100
	samplePathCount = 10
)

// BandPercentiles are the percentiles reported for the simulated value
// distribution at every step.
var BandPercentiles = []float64{5, 25, 50, 75, 95}

// RiskMetrics summarizes the simulated return distribution. Return forms are
// signed; loss forms are non-negative dollar magnitudes.
type RiskMetrics struct {
	VaRReturn     float64 `json:"VaR_return"`
	CVaRReturn    float64 `json:"CVaR_return"`
	VaRLoss       float64 `json:"VaR_loss"`
	CVaRLoss      float64 `json:"CVaR_loss"`
	SimMeanReturn float64 `json:"sim_mean_return"`
	SimStdReturn  float64 `json:"std_sim_return"`
}

// EnsembleConfig parameterizes a full-path Monte Carlo run.
type EnsembleConfig struct {
	InitialInvestment float64
	HorizonYears      int
	NumPaths          int // defaults to DefaultNumPaths
	Seed              int64
	RiskFree          float64
	Workers           int // defaults to GOMAXPROCS

	// OnProgress, when set, is invoked with the completed fraction after
	// each path batch. Called from worker goroutines, serialized.
	OnProgress func(done float64)
}

// EnsembleResult holds the simulated trajectory ensemble and derived
// statistics. Paths are ephemeral per request, never persisted.
type EnsembleResult struct {
	TimePoints      []int
	SamplePaths     [][]float64
	PercentileBands map[string][]float64
	Risk            RiskMetrics

	FinalValueMean   float64
	FinalValueMedian float64
	FinalValueStd    float64
	MaxDrawdownMean  float64
	MaxDrawdownWorst float64
	// RecoveryTimeMean is the average trading periods from a >5% drawdown
	// trough back to the prior peak, across paths that recovered. -1 when
	// no path recovered.
	RecoveryTimeMean float64
	ProbProfit       float64
	ProbDoubling     float64
	SharpeMean       float64
}

// SimulateEnsemble generates NumPaths correlated multi-asset value
// trajectories for the weighted portfolio and derives percentile bands and
// risk metrics from the ensemble.
//
// Paths are generated in fixed-size batches, each with an RNG derived from
// the request seed and the batch index, so results are identical for a given
// seed regardless of worker count. Cancellation is observed between batches.
func SimulateEnsemble(ctx context.Context, mu []float64, cov *mat.SymDense, weights []float64, cfg EnsembleConfig) (*EnsembleResult, error) {
	n := len(weights)
	if n == 0 || len(mu) != n || cov.SymmetricDim() != n {
		return nil, fmt.Errorf("weights/statistics dimension mismatch: %w", ErrDegenerateInput)
	}
	if cfg.InitialInvestment <= 0 {
		return nil, fmt.Errorf("initial investment must be positive: %w", ErrDegenerateInput)
	}
	if cfg.HorizonYears <= 0 {
		return nil, fmt.Errorf("horizon years must be positive: %w", ErrInvalidHorizon)
	}
	if vol := PortfolioVolatility(weights, cov); vol <= 0 {
		return nil, fmt.Errorf("portfolio volatility %.6f: %w", vol, ErrDegenerateInput)
	}

	numPaths := cfg.NumPaths
	if numPaths <= 0 {
		numPaths = DefaultNumPaths
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	steps := cfg.HorizonYears * TradingDaysPerYear

	muDaily := make([]float64, n)
	for i := range mu {
		muDaily[i] = mu[i] / TradingDaysPerYear
	}
	chol, err := dailyCholesky(cov, n)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, numPaths)
	numBatches := (numPaths + pathBatchSize - 1) / pathBatchSize

	var progressMu sync.Mutex
	batchesDone := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b := 0; b < numBatches; b++ {
		b := b
		g.Go(func() error {
			// Cancellation is checked per batch, never mid-batch.
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			rng := rand.New(rand.NewSource(cfg.Seed + int64(b)*7919))
			z := make([]float64, n)
			shock := make([]float64, n)
			start := b * pathBatchSize
			end := start + pathBatchSize
			if end > numPaths {
				end = numPaths
			}
			for p := start; p < end; p++ {
				path := make([]float64, steps)
				path[0] = cfg.InitialInvestment
				v := cfg.InitialInvestment
				for t := 1; t < steps; t++ {
					for i := range z {
						z[i] = rng.NormFloat64()
					}
					correlate(chol, z, shock)
					var ret float64
					for i, w := range weights {
						ret += w * (muDaily[i] + shock[i])
					}
					v *= 1 + ret
					path[t] = v
				}
				values[p] = path
			}

			progressMu.Lock()
			batchesDone++
			if cfg.OnProgress != nil {
				cfg.OnProgress(float64(batchesDone) / float64(numBatches))
			}
			progressMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarizeEnsemble(values, steps, cfg), nil
}

func summarizeEnsemble(values [][]float64, steps int, cfg EnsembleConfig) *EnsembleResult {
	numPaths := len(values)
	res := &EnsembleResult{
		TimePoints:      make([]int, steps),
		PercentileBands: make(map[string][]float64, len(BandPercentiles)),
	}
	for t := range res.TimePoints {
		res.TimePoints[t] = t
	}

	for _, p := range BandPercentiles {
		res.PercentileBands[fmt.Sprintf("%.0f", p)] = make([]float64, steps)
	}
	column := make([]float64, numPaths)
	for t := 0; t < steps; t++ {
		for i, path := range values {
			column[i] = path[t]
		}
		sort.Float64s(column)
		for _, p := range BandPercentiles {
			res.PercentileBands[fmt.Sprintf("%.0f", p)][t] = percentile(column, p)
		}
	}

	sample := samplePathCount
	if sample > numPaths {
		sample = numPaths
	}
	res.SamplePaths = make([][]float64, sample)
	for i := 0; i < sample; i++ {
		res.SamplePaths[i] = values[i]
	}

	// Terminal return distribution drives the headline risk metrics.
	finals := make([]float64, numPaths)
	rets := make([]float64, numPaths)
	var profitable, doubled int
	for i, path := range values {
		finals[i] = path[steps-1]
		rets[i] = finals[i]/cfg.InitialInvestment - 1
		if finals[i] > cfg.InitialInvestment {
			profitable++
		}
		if finals[i] >= 2*cfg.InitialInvestment {
			doubled++
		}
	}
	res.Risk = riskMetricsFromReturns(rets, cfg.InitialInvestment)
	res.ProbProfit = float64(profitable) / float64(numPaths)
	res.ProbDoubling = float64(doubled) / float64(numPaths)

	sortedFinals := append([]float64(nil), finals...)
	sort.Float64s(sortedFinals)
	mean, std := stat.MeanStdDev(finals, nil)
	res.FinalValueMean = mean
	res.FinalValueStd = std
	res.FinalValueMedian = percentile(sortedFinals, 50)

	var ddSum, ddWorst, recSum, sharpeSum float64
	recCount := 0
	dailyRF := cfg.RiskFree / TradingDaysPerYear
	for _, path := range values {
		dd, rec := maxDrawdownAndRecovery(path)
		ddSum += dd
		if dd > ddWorst {
			ddWorst = dd
		}
		if rec >= 0 {
			recSum += float64(rec)
			recCount++
		}
		sharpeSum += pathSharpe(path, dailyRF)
	}
	res.MaxDrawdownMean = ddSum / float64(numPaths)
	res.MaxDrawdownWorst = ddWorst
	if recCount > 0 {
		res.RecoveryTimeMean = recSum / float64(recCount)
	} else {
		res.RecoveryTimeMean = -1
	}
	res.SharpeMean = sharpeSum / float64(numPaths)
	return res
}

// SimulateHorizonReturns runs an aggregate Monte Carlo over a short horizon
// and reports the portfolio return distribution. Used by the optimizer for
// its 95% VaR figure; alpha is the tail probability (0.05 for 95%).
func SimulateHorizonReturns(mu []float64, cov *mat.SymDense, weights []float64, horizonDays, numSims int, alpha float64, seed int64) (RiskMetrics, error) {
	if horizonDays < 1 {
		horizonDays = 1
	}
	portRet := PortfolioReturn(weights, mu)
	portVol := PortfolioVolatility(weights, cov)
	if portVol <= 0 {
		return RiskMetrics{}, fmt.Errorf("portfolio volatility %.6f: %w", portVol, ErrDegenerateInput)
	}

	scale := float64(horizonDays) / TradingDaysPerYear
	muH := portRet * scale
	volH := portVol * math.Sqrt(scale)

	rng := rand.New(rand.NewSource(seed))
	rets := make([]float64, numSims)
	for i := range rets {
		rets[i] = muH + volH*rng.NormFloat64()
	}
	return riskMetricsFromReturns(rets, 1.0), nil
}

// riskMetricsFromReturns derives VaR/CVaR at the 5th percentile of the given
// return sample. Loss forms are clamped at zero so a profitable tail reports
// a zero loss instead of a negative one.
func riskMetricsFromReturns(rets []float64, investment float64) RiskMetrics {
	sorted := append([]float64(nil), rets...)
	sort.Float64s(sorted)
	varRet := percentile(sorted, 5)

	var tailSum float64
	tailN := 0
	for _, r := range rets {
		if r <= varRet {
			tailSum += r
			tailN++
		}
	}
	cvarRet := varRet
	if tailN > 0 {
		cvarRet = tailSum / float64(tailN)
	}

	mean, std := stat.MeanStdDev(rets, nil)
	return RiskMetrics{
		VaRReturn:     scrub(varRet),
		CVaRReturn:    scrub(cvarRet),
		VaRLoss:       scrub(math.Max(0, -varRet) * investment),
		CVaRLoss:      scrub(math.Max(0, -cvarRet) * investment),
		SimMeanReturn: scrub(mean),
		SimStdReturn:  scrub(std),
	}
}

// dailyCholesky factors the annualized covariance scaled to daily frequency,
// with a ridge term on the diagonal.
func dailyCholesky(cov *mat.SymDense, n int) (*mat.TriDense, error) {
	daily := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := cov.At(i, j) / TradingDaysPerYear
			if i == j {
				v += covRidge
			}
			daily.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(daily); !ok {
		return nil, fmt.Errorf("covariance matrix is not positive definite: %w", ErrDegenerateInput)
	}
	var lower mat.TriDense
	chol.LTo(&lower)
	return &lower, nil
}

// correlate computes dst = L*z for the lower-triangular Cholesky factor.
func correlate(lower *mat.TriDense, z, dst []float64) {
	n := len(z)
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j <= i; j++ {
			s += lower.At(i, j) * z[j]
		}
		dst[i] = s
	}
}

// maxDrawdownAndRecovery returns the largest peak-to-trough decline (as a
// positive fraction) and the trading periods from that trough back to the
// prior peak, or -1 if the path never recovers.
func maxDrawdownAndRecovery(path []float64) (float64, int) {
	peak := path[0]
	var maxDD float64
	troughAt := -1
	ddPeak := 0.0
	for t, v := range path {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
				troughAt = t
				ddPeak = peak
			}
		}
	}
	if troughAt < 0 {
		return 0, 0
	}
	for t := troughAt + 1; t < len(path); t++ {
		if path[t] >= ddPeak {
			return maxDD, t - troughAt
		}
	}
	return maxDD, -1
}

func pathSharpe(path []float64, dailyRF float64) float64 {
	rets := dailyReturns(path)
	mean, std := stat.MeanStdDev(rets, nil)
	if std <= 0 {
		return 0
	}
	return (mean - dailyRF) / std * math.Sqrt(TradingDaysPerYear)
}

// percentile computes the p-th percentile of a sorted sample with linear
// interpolation between order statistics.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
