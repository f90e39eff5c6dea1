package services

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/models"
	"github.com/Adhiksha007/AuraFinance/internal/quant"
)

// GoalService turns a savings goal into a funded/underfunded verdict with
// projections and a concrete ETF sleeve per recommended asset class.
type GoalService struct {
	config *config.Config
	log    zerolog.Logger
}

func NewGoalService(cfg *config.Config, log zerolog.Logger) *GoalService {
	return &GoalService{
		config: cfg,
		log:    log.With().Str("component", "goals").Logger(),
	}
}

func (s *GoalService) Simulate(req models.GoalRequest) (*models.GoalResponse, error) {
	if req.TargetAmount <= 0 {
		return nil, fmt.Errorf("target_amount must be positive: %w", ErrInvalidRequest)
	}
	if req.CurrentSavings < 0 || req.MonthlyContribution < 0 {
		return nil, fmt.Errorf("savings and contributions cannot be negative: %w", ErrInvalidRequest)
	}

	targetDate, err := time.Parse("2006-01-02", req.TargetDate)
	if err != nil {
		return nil, fmt.Errorf("target_date %q: %w", req.TargetDate, quant.ErrInvalidDateRange)
	}

	profile := quant.RiskProfile(req.RiskProfile)
	switch profile {
	case quant.ProfileConservative, quant.ProfileModerate, quant.ProfileAggressive:
	case "":
		profile = quant.ProfileModerate
	default:
		return nil, fmt.Errorf("unknown risk_profile %q: %w", req.RiskProfile, ErrInvalidRequest)
	}

	goal := quant.Goal{
		Name:                req.Name,
		TargetAmount:        req.TargetAmount,
		TargetDate:          targetDate,
		CurrentSavings:      req.CurrentSavings,
		MonthlyContribution: req.MonthlyContribution,
		Profile:             profile,
	}

	result, err := quant.SimulateGoal(goal, quant.GoalConfig{
		NumPaths:      s.config.NumSimulations,
		Seed:          s.config.Seed,
		StepUpAnnual:  0.03,
		FeeDragAnnual: 0.0005,
		InflationRate: s.config.InflationRate,
		RiskFreeRate:  s.config.RiskFreeRate,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("goal", goal.Name).
		Float64("success_probability", result.SuccessProbability).
		Bool("on_track", result.OnTrack).
		Msg("goal simulated")

	return &models.GoalResponse{
		GoalResult:     *result,
		ETFSuggestions: etfSleeve(result.RecommendedAllocation, result.MonthsRemaining),
	}, nil
}

// etfSleeve maps each recommended asset class to one liquid ETF. Equity
// picks shift defensive as the deadline nears.
func etfSleeve(allocation map[string]float64, monthsRemaining int) map[string]models.ETFSuggestion {
	out := make(map[string]models.ETFSuggestion, len(allocation))
	years := float64(monthsRemaining) / 12

	for class, pct := range allocation {
		if pct <= 0 {
			continue
		}
		var pick models.ETFSuggestion
		switch class {
		case quant.ClassEquity:
			switch {
			case years > 10:
				pick = models.ETFSuggestion{Ticker: "VT", Name: "Vanguard Total World Stock ETF", Desc: "global equity for long horizons"}
			case years > 3:
				pick = models.ETFSuggestion{Ticker: "VTI", Name: "Vanguard Total Stock Market ETF", Desc: "broad US equity"}
			default:
				pick = models.ETFSuggestion{Ticker: "VTV", Name: "Vanguard Value ETF", Desc: "lower-beta equity near the deadline"}
			}
		case quant.ClassBonds:
			if years > 3 {
				pick = models.ETFSuggestion{Ticker: "BND", Name: "Vanguard Total Bond Market ETF", Desc: "core fixed income"}
			} else {
				pick = models.ETFSuggestion{Ticker: "SHY", Name: "iShares 1-3 Year Treasury Bond ETF", Desc: "short duration to limit rate risk"}
			}
		case quant.ClassCash:
			pick = models.ETFSuggestion{Ticker: "BIL", Name: "SPDR Bloomberg 1-3 Month T-Bill ETF", Desc: "cash-like stability"}
		default:
			continue
		}
		pick.Percent = pct
		out[class] = pick
	}
	return out
}
