package models

import (
	"time"

	"github.com/Adhiksha007/AuraFinance/internal/quant"
)

// OptimizeRequest asks for a risk-adjusted portfolio selection.
type OptimizeRequest struct {
	RiskTolerance     float64 `json:"risk_tolerance"`
	InvestmentAmount  float64 `json:"investment_amount"`
	InvestmentHorizon int     `json:"investment_horizon"`
	NumAssets         int     `json:"num_assets"`
}

// AnnualizedStats are the blended portfolio-level statistics.
type AnnualizedStats struct {
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// Projections are deterministic future-value figures for the horizon.
type Projections struct {
	ProjectedFinalValue  float64            `json:"projected_final_value"`
	ROI                  float64            `json:"ROI"`
	CAGR                 float64            `json:"CAGR"`
	RangeLower           float64            `json:"range_lower"`
	RangeUpper           float64            `json:"range_upper"`
	AssetDistributionUSD map[string]float64 `json:"asset_distribution_usd"`
}

// TableRow is one per-asset line of the optimize breakdown table.
type TableRow struct {
	Ticker           string  `json:"ticker"`
	Company          string  `json:"company"`
	MarketCap        string  `json:"market_cap"`
	Beta             float64 `json:"beta"`
	ROE              float64 `json:"roe"`
	Weight           float64 `json:"weight"`
	AnnualReturnPct  float64 `json:"annual_return_pct"`
	VolatilityPct    float64 `json:"volatility_pct"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	InvestmentAmount float64 `json:"investment_amount"`
	ReturnedAmount   float64 `json:"returned_amount"`
}

// OptimizeResponse is the full optimization payload.
type OptimizeResponse struct {
	PortfolioConfig quant.PortfolioConfig `json:"portfolio_config"`
	AnnualizedStats AnnualizedStats       `json:"annualized_stats"`
	Projections     Projections           `json:"projections"`
	RiskMetrics     quant.RiskMetrics     `json:"risk_metrics"`
	Beta            float64               `json:"beta"`
	Sentiment       map[string]float64    `json:"sentiment"`
	TableData       []TableRow            `json:"table_data"`
}

// MonteCarloRequest runs a path simulation for a fixed allocation.
type MonteCarloRequest struct {
	Weights           map[string]float64 `json:"weights"`
	InvestmentAmount  float64            `json:"investment_amount"`
	InvestmentHorizon int                `json:"investment_horizon"`
	Tickers           []string           `json:"tickers"`
}

// MonteCarloResponse is the visualization payload: a down-sampled set of
// paths plus percentile bands over the shared time axis.
type MonteCarloResponse struct {
	TimePoints      []int                `json:"time_points"`
	Paths           [][]float64          `json:"paths"`
	PercentilePaths map[string][]float64 `json:"percentile_paths"`
}

// BacktestRequest replays an allocation over a historical window.
type BacktestRequest struct {
	Weights           map[string]float64 `json:"weights"`
	Tickers           []string           `json:"tickers"`
	StartDate         string             `json:"start_date"`
	EndDate           string             `json:"end_date"`
	InitialInvestment float64            `json:"initial_investment"`
}

// CompareRequest runs both optimizer strategies on identical inputs.
type CompareRequest = OptimizeRequest

// ComparisonLeg is one strategy's result in a side-by-side comparison.
type ComparisonLeg struct {
	SelectedAssets []string           `json:"selected_assets"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
	PortfolioBeta  float64            `json:"portfolio_beta"`
	VaR            float64            `json:"var"`
}

// CompareResponse pairs the heuristic and closed-form results.
type CompareResponse struct {
	Quantum   ComparisonLeg `json:"quantum"`
	Classical ComparisonLeg `json:"classical"`
}

// GoalRequest asks for a goal-progress simulation.
type GoalRequest struct {
	Name                string  `json:"name"`
	TargetAmount        float64 `json:"target_amount"`
	TargetDate          string  `json:"target_date"` // YYYY-MM-DD
	CurrentSavings      float64 `json:"current_savings"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	RiskProfile         string  `json:"risk_profile,omitempty"`
}

// ETFSuggestion maps an asset class to a concrete instrument.
type ETFSuggestion struct {
	Ticker  string  `json:"ticker"`
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
	Desc    string  `json:"desc"`
}

// GoalResponse is the goal simulation payload.
type GoalResponse struct {
	quant.GoalResult
	ETFSuggestions map[string]ETFSuggestion `json:"etf_suggestions"`
}

// StreamEventType tags a server-sent progress event.
type StreamEventType string

const (
	EventInfo     StreamEventType = "info"
	EventLog      StreamEventType = "log"
	EventProgress StreamEventType = "progress"
	EventComplete StreamEventType = "complete"
	EventError    StreamEventType = "error"
)

// StreamEvent is one incremental event on a streaming operation. A stream
// terminates with exactly one complete (carrying Data) or one error event.
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	RunID    string          `json:"run_id,omitempty"`
	Message  string          `json:"message,omitempty"`
	Progress float64         `json:"progress,omitempty"`
	Data     interface{}     `json:"data,omitempty"`
}

// TickerData is a point-in-time quote with basic fundamentals.
type TickerData struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        int64     `json:"volume"`
	Company       string    `json:"company,omitempty"`
	MarketCap     float64   `json:"marketCap,omitempty"`
	Beta          float64   `json:"beta,omitempty"`
	ROE           float64   `json:"roe,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
	Source        string    `json:"source"` // "alphavantage" or "yahoo"
}

// PriceSeries is a historical closing-price window for one ticker.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Dates     []string  `json:"dates"`
	Closes    []float64 `json:"closes"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
