package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/quant"
	"github.com/Adhiksha007/AuraFinance/internal/services"
)

const (
	optimizeTimeout = 60 * time.Second
	simulateTimeout = 120 * time.Second
)

type PortfolioHandler struct {
	portfolios *services.PortfolioService
	market     *services.MarketDataService
}

func NewPortfolioHandler(portfolios *services.PortfolioService, market *services.MarketDataService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		market:     market,
	}
}

// Optimize handles POST /v1/portfolio/optimize
func (h *PortfolioHandler) Optimize(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), optimizeTimeout)
	defer cancel()

	var req models.OptimizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    400,
		})
	}

	strategy := quant.Strategy(c.Query("strategy", string(quant.StrategyHeuristic)))

	resp, err := h.portfolios.Optimize(ctx, req, strategy, nil)
	if err != nil {
		return fail(c, "Failed to optimize portfolio", err)
	}
	return c.JSON(resp)
}

// OptimizeStream handles GET /v1/portfolio/optimize/stream
func (h *PortfolioHandler) OptimizeStream(c *fiber.Ctx) error {
	req := models.OptimizeRequest{
		RiskTolerance:     c.QueryFloat("risk_tolerance", 0.5),
		InvestmentAmount:  c.QueryFloat("investment_amount"),
		InvestmentHorizon: c.QueryInt("investment_horizon", 1),
		NumAssets:         c.QueryInt("num_assets", 5),
	}
	strategy := quant.Strategy(c.Query("strategy", string(quant.StrategyHeuristic)))

	return streamRun(c, optimizeTimeout, func(ctx context.Context, rep *services.ProgressReporter) (any, error) {
		return h.portfolios.Optimize(ctx, req, strategy, rep)
	})
}

// MonteCarlo handles POST /v1/portfolio/monte-carlo
func (h *PortfolioHandler) MonteCarlo(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), simulateTimeout)
	defer cancel()

	var req models.MonteCarloRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    400,
		})
	}

	resp, err := h.portfolios.MonteCarlo(ctx, req, nil)
	if err != nil {
		return fail(c, "Failed to simulate portfolio", err)
	}
	return c.JSON(resp)
}

// MonteCarloStream handles GET /v1/portfolio/monte-carlo/stream. Tickers
// and weights arrive as aligned comma-separated lists.
func (h *PortfolioHandler) MonteCarloStream(c *fiber.Ctx) error {
	tickers, weights, err := parseAllocationQuery(c.Query("tickers"), c.Query("weights"))
	if err != nil {
		return fail(c, "Invalid allocation", err)
	}

	req := models.MonteCarloRequest{
		Tickers:           tickers,
		Weights:           weights,
		InvestmentAmount:  c.QueryFloat("investment_amount"),
		InvestmentHorizon: c.QueryInt("investment_horizon", 1),
	}

	return streamRun(c, simulateTimeout, func(ctx context.Context, rep *services.ProgressReporter) (any, error) {
		return h.portfolios.MonteCarlo(ctx, req, rep)
	})
}

// Compare handles POST /v1/portfolio/compare
func (h *PortfolioHandler) Compare(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), optimizeTimeout)
	defer cancel()

	var req models.CompareRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    400,
		})
	}

	resp, err := h.portfolios.Compare(ctx, req)
	if err != nil {
		return fail(c, "Failed to compare strategies", err)
	}
	return c.JSON(resp)
}

// Backtest handles POST /v1/portfolio/backtest
func (h *PortfolioHandler) Backtest(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), optimizeTimeout)
	defer cancel()

	var req models.BacktestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
			Code:    400,
		})
	}

	resp, err := h.portfolios.Backtest(ctx, req)
	if err != nil {
		return fail(c, "Failed to run backtest", err)
	}
	return c.JSON(resp)
}

// ClearBacktestCache handles POST /v1/portfolio/backtest/clear-cache
func (h *PortfolioHandler) ClearBacktestCache(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	cleared, err := h.portfolios.ClearBacktestCache(ctx)
	if err != nil {
		return fail(c, "Failed to clear cache", err)
	}
	return c.JSON(fiber.Map{
		"message": "Backtest cache cleared",
		"cleared": cleared,
		"time":    time.Now(),
	})
}

// GetTickerData handles GET /v1/tickers/:symbol
func (h *PortfolioHandler) GetTickerData(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	symbol := c.Params("symbol")
	if symbol == "" {
		return c.Status(400).JSON(models.ErrorResponse{
			Error: "Symbol is required",
			Code:  400,
		})
	}

	data, err := h.market.FetchQuote(ctx, symbol)
	if err != nil {
		return c.Status(404).JSON(models.ErrorResponse{
			Error:   "Ticker not found",
			Message: err.Error(),
			Code:    404,
		})
	}
	return c.JSON(data)
}
