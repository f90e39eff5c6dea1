package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/quant"
)

// ErrInvalidRequest marks client-supplied inputs that fail validation
// before any market data is touched.
var ErrInvalidRequest = errors.New("invalid request")

const weightSumTolerance = 1e-3

// PortfolioService orchestrates one optimization or simulation run:
// market data in, quant engine through, response payload out.
type PortfolioService struct {
	config    *config.Config
	market    *MarketDataService
	sentiment SentimentProvider
	cache     *CacheService
	log       zerolog.Logger
}

func NewPortfolioService(cfg *config.Config, market *MarketDataService, sentiment SentimentProvider, cache *CacheService, log zerolog.Logger) *PortfolioService {
	return &PortfolioService{
		config:    cfg,
		market:    market,
		sentiment: sentiment,
		cache:     cache,
		log:       log.With().Str("component", "portfolio").Logger(),
	}
}

// Optimize runs the full pipeline for one optimization request. A nil
// reporter runs silently; otherwise stage events are emitted as work
// proceeds.
func (s *PortfolioService) Optimize(ctx context.Context, req models.OptimizeRequest, strategy quant.Strategy, rep *ProgressReporter) (*models.OptimizeResponse, error) {
	if err := validateOptimizeRequest(req); err != nil {
		return nil, err
	}

	stage(rep, "fetching market data", 0.05)
	stats, scores, err := s.universeStats(ctx)
	if err != nil {
		return nil, err
	}
	if rep != nil {
		rep.Log(fmt.Sprintf("universe ready: %d tickers, %d excluded", len(stats.Tickers), len(stats.Excluded)))
	}

	stage(rep, "optimizing allocation", 0.40)
	portfolio, err := quant.Optimize(stats, quant.OptimizeParams{
		RiskTolerance:    req.RiskTolerance,
		NumAssets:        req.NumAssets,
		InvestmentAmount: req.InvestmentAmount,
		HorizonYears:     req.InvestmentHorizon,
		RiskFree:         s.config.RiskFreeRate,
		Seed:             s.config.Seed,
	}, strategy)
	if err != nil {
		return nil, err
	}

	stage(rep, "building projections", 0.75)
	fundamentals := s.market.FetchFundamentalsBatch(ctx, portfolio.Config.SelectedAssets)

	resp := &models.OptimizeResponse{
		PortfolioConfig: portfolio.Config,
		AnnualizedStats: models.AnnualizedStats{
			ExpectedReturn: portfolio.ExpectedReturn,
			Volatility:     portfolio.Volatility,
			SharpeRatio:    portfolio.SharpeRatio,
		},
		Projections: buildProjections(portfolio, req),
		RiskMetrics: portfolio.Risk,
		Beta:        portfolio.Beta,
		Sentiment:   selectedScores(scores, portfolio.Config.SelectedAssets),
		TableData:   s.buildTable(portfolio, stats, fundamentals, req),
	}

	stage(rep, "done", 1.0)
	return resp, nil
}

// MonteCarlo simulates value paths for a caller-supplied allocation.
func (s *PortfolioService) MonteCarlo(ctx context.Context, req models.MonteCarloRequest, rep *ProgressReporter) (*models.MonteCarloResponse, error) {
	tickers, weights, err := normalizeAllocation(req.Weights, req.Tickers)
	if err != nil {
		return nil, err
	}
	if req.InvestmentAmount <= 0 {
		return nil, fmt.Errorf("investment_amount must be positive: %w", ErrInvalidRequest)
	}
	if req.InvestmentHorizon < 1 {
		return nil, quant.ErrInvalidHorizon
	}

	stage(rep, "fetching market data", 0.05)
	stats, err := s.statsFor(ctx, tickers)
	if err != nil {
		return nil, err
	}

	// Reorder the weight vector into the stats' ticker order, dropping
	// any ticker the risk model had to exclude.
	vec := make([]float64, len(stats.Tickers))
	var kept float64
	for i, t := range stats.Tickers {
		vec[i] = weights[t]
		kept += vec[i]
	}
	if kept < 1-weightSumTolerance {
		return nil, fmt.Errorf("tickers excluded for insufficient data carry %.1f%% of the allocation: %w",
			(1-kept)*100, quant.ErrInsufficientData)
	}

	stage(rep, "simulating paths", 0.20)
	result, err := quant.SimulateEnsemble(ctx, stats.Mean, stats.Cov, vec, quant.EnsembleConfig{
		InitialInvestment: req.InvestmentAmount,
		HorizonYears:      req.InvestmentHorizon,
		NumPaths:          s.config.NumSimulations,
		Seed:              s.config.Seed,
		RiskFree:          s.config.RiskFreeRate,
		OnProgress: func(done float64) {
			stage(rep, "simulating paths", 0.20+0.75*done)
		},
	})
	if err != nil {
		return nil, err
	}

	stage(rep, "done", 1.0)
	return &models.MonteCarloResponse{
		TimePoints:      result.TimePoints,
		Paths:           result.SamplePaths,
		PercentilePaths: result.PercentileBands,
	}, nil
}

// Backtest replays an allocation over a historical window against an
// equal-weight baseline.
func (s *PortfolioService) Backtest(ctx context.Context, req models.BacktestRequest) (*quant.BacktestResult, error) {
	tickers, weights, err := normalizeAllocation(req.Weights, req.Tickers)
	if err != nil {
		return nil, err
	}
	if req.InitialInvestment <= 0 {
		return nil, fmt.Errorf("initial_investment must be positive: %w", ErrInvalidRequest)
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date %q: %w", req.StartDate, quant.ErrInvalidDateRange)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date %q: %w", req.EndDate, quant.ErrInvalidDateRange)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end_date must follow start_date: %w", quant.ErrInvalidDateRange)
	}
	if end.After(time.Now()) {
		return nil, fmt.Errorf("end_date %s has no observations yet: %w", req.EndDate, quant.ErrInvalidDateRange)
	}

	dates, prices, err := s.market.AlignedHistory(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	return quant.RunBacktest(quant.BacktestInput{
		Weights:           weights,
		Dates:             dates,
		Prices:            prices,
		InitialInvestment: req.InitialInvestment,
		RiskFree:          s.config.RiskFreeRate,
	})
}

// Compare runs both optimizer strategies over the same universe snapshot.
func (s *PortfolioService) Compare(ctx context.Context, req models.CompareRequest) (*models.CompareResponse, error) {
	if err := validateOptimizeRequest(req); err != nil {
		return nil, err
	}

	stats, _, err := s.universeStats(ctx)
	if err != nil {
		return nil, err
	}

	params := quant.OptimizeParams{
		RiskTolerance:    req.RiskTolerance,
		NumAssets:        req.NumAssets,
		InvestmentAmount: req.InvestmentAmount,
		HorizonYears:     req.InvestmentHorizon,
		RiskFree:         s.config.RiskFreeRate,
		Seed:             s.config.Seed,
	}

	heuristic, err := quant.Optimize(stats, params, quant.StrategyHeuristic)
	if err != nil {
		return nil, err
	}
	classical, err := quant.Optimize(stats, params, quant.StrategyClassical)
	if err != nil {
		return nil, err
	}

	return &models.CompareResponse{
		Quantum:   comparisonLeg(heuristic),
		Classical: comparisonLeg(classical),
	}, nil
}

// ClearBacktestCache drops all cached price series so the next backtest
// refetches. Returns how many entries were evicted.
func (s *PortfolioService) ClearBacktestCache(ctx context.Context) (int, error) {
	return s.cache.ClearSeries(ctx)
}

// universeStats snapshots the configured universe: aligned history,
// sentiment scores, and fundamentals betas folded into one risk model.
func (s *PortfolioService) universeStats(ctx context.Context) (*quant.UniverseStats, map[string]float64, error) {
	end := time.Now()
	start := end.AddDate(-s.config.HistoryYears, 0, 0)

	_, prices, err := s.market.AlignedHistory(ctx, s.config.Universe, start, end)
	if err != nil {
		return nil, nil, err
	}

	scores := s.sentiment.Scores(ctx, s.config.Universe)

	betas := make(map[string]float64)
	for symbol, f := range s.market.FetchFundamentalsBatch(ctx, s.config.Universe) {
		if f.Beta > 0 {
			betas[symbol] = f.Beta
		}
	}

	stats, err := quant.ComputeUniverseStats(prices, quant.StatsOptions{
		SentimentScores: scores,
		Betas:           betas,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(stats.Excluded) > 0 {
		s.log.Warn().Strs("excluded", stats.Excluded).Msg("tickers dropped from universe")
	}
	return stats, scores, nil
}

// statsFor builds a risk model for an explicit ticker list, without
// sentiment tilt: simulations and backtests replay the allocation as
// given.
func (s *PortfolioService) statsFor(ctx context.Context, tickers []string) (*quant.UniverseStats, error) {
	end := time.Now()
	start := end.AddDate(-s.config.HistoryYears, 0, 0)

	_, prices, err := s.market.AlignedHistory(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}
	return quant.ComputeUniverseStats(prices, quant.StatsOptions{})
}

func validateOptimizeRequest(req models.OptimizeRequest) error {
	if req.RiskTolerance < 0 || req.RiskTolerance > 1 {
		return quant.ErrInvalidTolerance
	}
	if req.InvestmentHorizon < 1 {
		return quant.ErrInvalidHorizon
	}
	if req.InvestmentAmount <= 0 {
		return fmt.Errorf("investment_amount must be positive: %w", ErrInvalidRequest)
	}
	return nil
}

// normalizeAllocation reconciles the weights map with an optional ticker
// list and checks the weights form a valid allocation.
func normalizeAllocation(weights map[string]float64, tickers []string) ([]string, map[string]float64, error) {
	if len(weights) == 0 {
		return nil, nil, fmt.Errorf("weights are required: %w", ErrInvalidRequest)
	}

	if len(tickers) == 0 {
		for t := range weights {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
	} else {
		for _, t := range tickers {
			if _, ok := weights[t]; !ok {
				return nil, nil, fmt.Errorf("ticker %s has no weight: %w", t, ErrInvalidRequest)
			}
		}
	}

	var sum float64
	for t, w := range weights {
		if w < 0 {
			return nil, nil, fmt.Errorf("weight for %s is negative: %w", t, ErrInvalidRequest)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return nil, nil, fmt.Errorf("weights sum to %.4f, want 1: %w", sum, ErrInvalidRequest)
	}
	return tickers, weights, nil
}

func buildProjections(p *quant.OptimizedPortfolio, req models.OptimizeRequest) models.Projections {
	amount := req.InvestmentAmount
	years := float64(req.InvestmentHorizon)
	r := p.ExpectedReturn

	fv := amount * math.Pow(1+r, years)
	dist := make(map[string]float64, len(p.Config.SelectedAssets))
	for t, w := range p.Config.Weights {
		dist[t] = money(amount * w)
	}

	return models.Projections{
		ProjectedFinalValue:  money(fv),
		ROI:                  round2((fv/amount - 1) * 100),
		CAGR:                 round2(r * 100),
		RangeLower:           money(amount * math.Pow(1+r-p.Volatility, years)),
		RangeUpper:           money(amount * math.Pow(1+r+p.Volatility, years)),
		AssetDistributionUSD: dist,
	}
}

func (s *PortfolioService) buildTable(p *quant.OptimizedPortfolio, stats *quant.UniverseStats, fundamentals map[string]*models.TickerData, req models.OptimizeRequest) []models.TableRow {
	years := float64(req.InvestmentHorizon)
	rows := make([]models.TableRow, 0, len(p.Config.SelectedAssets))

	for i, ticker := range p.Config.SelectedAssets {
		idx := stats.Index(ticker)
		if idx < 0 {
			continue
		}
		mu := stats.Mean[idx]
		vol := stats.Vol[idx]

		sharpe := 0.0
		if vol > 0 {
			sharpe = (mu - s.config.RiskFreeRate) / vol
		}

		invested := decimal.NewFromFloat(req.InvestmentAmount).
			Mul(decimal.NewFromFloat(p.OrderedWeights[i])).Round(2)
		returned := invested.
			Mul(decimal.NewFromFloat(math.Pow(1+mu, years))).Round(2)

		row := models.TableRow{
			Ticker:           ticker,
			Company:          ticker,
			Beta:             stats.Beta[ticker],
			Weight:           round4(p.OrderedWeights[i]),
			AnnualReturnPct:  round2(mu * 100),
			VolatilityPct:    round2(vol * 100),
			SharpeRatio:      round2(sharpe),
			InvestmentAmount: invested.InexactFloat64(),
			ReturnedAmount:   returned.InexactFloat64(),
		}
		if f, ok := fundamentals[ticker]; ok {
			if f.Company != "" {
				row.Company = f.Company
			}
			row.MarketCap = formatMarketCap(f.MarketCap)
			row.ROE = round4(f.ROE)
		}
		rows = append(rows, row)
	}
	return rows
}

func comparisonLeg(p *quant.OptimizedPortfolio) models.ComparisonLeg {
	return models.ComparisonLeg{
		SelectedAssets: p.Config.SelectedAssets,
		Weights:        p.Config.Weights,
		ExpectedReturn: p.ExpectedReturn,
		Volatility:     p.Volatility,
		SharpeRatio:    p.SharpeRatio,
		PortfolioBeta:  p.Beta,
		VaR:            p.Risk.VaRReturn,
	}
}

func selectedScores(scores map[string]float64, selected []string) map[string]float64 {
	out := make(map[string]float64, len(selected))
	for _, t := range selected {
		if s, ok := scores[t]; ok {
			out[t] = round4(s)
		}
	}
	return out
}

func formatMarketCap(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v > 0:
		return fmt.Sprintf("%.0f", v)
	default:
		return "N/A"
	}
}

func stage(rep *ProgressReporter, msg string, fraction float64) {
	if rep != nil {
		rep.Progress(msg, fraction)
	}
}

func money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
