package quant

import "errors"

// Typed failures surfaced by the analytics core. Callers match with errors.Is
// and translate into transport-level responses; the core never substitutes
// placeholder statistics for a failed computation.
var (
	// ErrInsufficientData means a ticker does not have enough historical
	// observations to produce stable statistics.
	ErrInsufficientData = errors.New("insufficient historical data")

	// ErrInsufficientHistory means the requested date range is missing data
	// for one or more constituent tickers.
	ErrInsufficientHistory = errors.New("insufficient history for date range")

	// ErrInvalidTolerance means the risk tolerance is outside [0, 1].
	ErrInvalidTolerance = errors.New("risk tolerance must be between 0 and 1")

	// ErrInvalidHorizon means the investment or goal horizon is not positive.
	ErrInvalidHorizon = errors.New("horizon must be at least one period")

	// ErrInvalidDateRange means start >= end, or the range extends past the
	// available data.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInfeasibleUniverse means fewer usable candidates exist than the
	// requested selection count.
	ErrInfeasibleUniverse = errors.New("not enough candidate assets in universe")

	// ErrDegenerateInput means a statistic (typically volatility) is zero or
	// negative, making a stochastic simulation meaningless.
	ErrDegenerateInput = errors.New("degenerate input statistics")

	// ErrExternalDataUnavailable means the market data collaborator failed
	// after bounded retries.
	ErrExternalDataUnavailable = errors.New("market data unavailable")
)
