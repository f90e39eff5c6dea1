package quant

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RiskProfile is the goal owner's stated appetite.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "Conservative"
	ProfileModerate     RiskProfile = "Moderate"
	ProfileAggressive   RiskProfile = "Aggressive"
)

// Asset-class names used throughout goal planning.
const (
	ClassEquity = "Equity"
	ClassBonds  = "Bonds"
	ClassCash   = "Cash"
)

// GlidePoint maps a remaining-horizon band to an asset-class split. Points
// are evaluated top-down: the first point whose MinYears is below the
// remaining horizon wins.
type GlidePoint struct {
	MinYears float64
	Equity   float64
	Bonds    float64
	Cash     float64
}

// GlidePath is an ordered policy table, longest horizon first.
type GlidePath []GlidePoint

// Allocation resolves the split for a remaining horizon.
func (g GlidePath) Allocation(remainingYears float64) map[string]float64 {
	for _, p := range g {
		if remainingYears > p.MinYears {
			return map[string]float64{ClassEquity: p.Equity, ClassBonds: p.Bonds, ClassCash: p.Cash}
		}
	}
	last := g[len(g)-1]
	return map[string]float64{ClassEquity: last.Equity, ClassBonds: last.Bonds, ClassCash: last.Cash}
}

// DefaultGlidePaths is the per-profile policy table: longer horizons carry
// more equity, aggressive profiles hold it longer.
var DefaultGlidePaths = map[RiskProfile]GlidePath{
	ProfileAggressive: {
		{MinYears: 7, Equity: 0.95, Bonds: 0.05, Cash: 0},
		{MinYears: 2, Equity: 0.75, Bonds: 0.25, Cash: 0},
		{MinYears: 0, Equity: 0.40, Bonds: 0.45, Cash: 0.15},
	},
	ProfileModerate: {
		{MinYears: 10, Equity: 0.90, Bonds: 0.10, Cash: 0},
		{MinYears: 3, Equity: 0.60, Bonds: 0.40, Cash: 0},
		{MinYears: 0, Equity: 0.20, Bonds: 0.60, Cash: 0.20},
	},
	ProfileConservative: {
		{MinYears: 10, Equity: 0.60, Bonds: 0.35, Cash: 0.05},
		{MinYears: 3, Equity: 0.40, Bonds: 0.50, Cash: 0.10},
		{MinYears: 0, Equity: 0.10, Bonds: 0.60, Cash: 0.30},
	},
}

// ClassAssumption is an annualized capital-market assumption for one asset
// class.
type ClassAssumption struct {
	Return float64
	Vol    float64
}

// DefaultAssumptions are long-run class-level return/volatility estimates.
var DefaultAssumptions = map[string]ClassAssumption{
	ClassEquity: {Return: 0.085, Vol: 0.16},
	ClassBonds:  {Return: 0.040, Vol: 0.055},
	ClassCash:   {Return: 0.030, Vol: 0.005},
}

// Goal is the user-supplied planning target.
type Goal struct {
	Name                string
	TargetAmount        float64
	TargetDate          time.Time
	CurrentSavings      float64
	MonthlyContribution float64
	Profile             RiskProfile
}

// GoalConfig parameterizes the goal simulation.
type GoalConfig struct {
	NumPaths      int // defaults to DefaultNumPaths
	Seed          int64
	StepUpAnnual  float64 // annual contribution raise, e.g. 0.03
	FeeDragAnnual float64 // annual fee drag, e.g. 0.0005
	InflationRate float64
	RiskFreeRate  float64
	Now           time.Time // defaults to time.Now()

	GlidePaths  map[RiskProfile]GlidePath // defaults to DefaultGlidePaths
	Assumptions map[string]ClassAssumption
}

// YearlyProjection is one simulated year of goal progress.
type YearlyProjection struct {
	Year         int     `json:"year"`
	Amount       float64 `json:"amount"`
	Contribution float64 `json:"contribution"`
	Growth       float64 `json:"growth"`
}

// ScenarioProjections are the median/best/worst yearly trajectories, where
// best and worst are the 90th and 10th percentile paths.
type ScenarioProjections struct {
	Median []YearlyProjection `json:"median"`
	Best   []YearlyProjection `json:"best"`
	Worst  []YearlyProjection `json:"worst"`
}

// GoalResult quantifies the chance of reaching the target and what closing a
// shortfall would take.
type GoalResult struct {
	SuccessProbability        float64             `json:"success_probability"`
	GapAmount                 float64             `json:"gap_amount"`
	ProjectedAmountAtDeadline float64             `json:"projected_amount_at_deadline"`
	RecommendedAllocation     map[string]float64  `json:"recommended_allocation"`
	YearlyProjections         []YearlyProjection  `json:"yearly_projections"`
	Scenarios                 ScenarioProjections `json:"scenarios"`
	OnTrack                   bool                `json:"on_track"`
	Suggestions               map[string]float64  `json:"suggestions"`
	MonthsRemaining           int                 `json:"-"`
}

// onTrackThreshold is the success probability above which a goal is
// considered on track.
const onTrackThreshold = 0.80

// MonthsUntil counts whole calendar months from now to the target date.
func MonthsUntil(now, target time.Time) int {
	return (target.Year()-now.Year())*12 + int(target.Month()) - int(now.Month())
}

// SimulateGoal projects progress toward a dollar target with monthly
// contributions under a glide-path allocation, via a monthly Monte Carlo
// ensemble. Deterministic for a fixed seed.
func SimulateGoal(goal Goal, cfg GoalConfig) (*GoalResult, error) {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	months := MonthsUntil(now, goal.TargetDate)
	if months <= 0 {
		return nil, fmt.Errorf("target date %s leaves no horizon: %w",
			goal.TargetDate.Format("2006-01-02"), ErrInvalidHorizon)
	}
	if goal.TargetAmount <= 0 {
		return nil, fmt.Errorf("target amount must be positive: %w", ErrDegenerateInput)
	}

	numPaths := cfg.NumPaths
	if numPaths <= 0 {
		numPaths = DefaultNumPaths
	}
	glide := cfg.GlidePaths
	if glide == nil {
		glide = DefaultGlidePaths
	}
	assumptions := cfg.Assumptions
	if assumptions == nil {
		assumptions = DefaultAssumptions
	}
	path, ok := glide[goal.Profile]
	if !ok {
		path = glide[ProfileModerate]
	}

	// Per-month blended monthly mean/vol from the glide-path schedule.
	monthlyMu := make([]float64, months)
	monthlyVol := make([]float64, months)
	for t := 0; t < months; t++ {
		alloc := path.Allocation(float64(months-t) / 12)
		var mu, variance float64
		for class, w := range alloc {
			a := assumptions[class]
			mu += w * a.Return / 12
			variance += w * w * a.Vol * a.Vol / 12
		}
		monthlyMu[t] = mu
		monthlyVol[t] = math.Sqrt(variance)
	}

	// Contribution schedule with an annual step-up.
	contribs := make([]float64, months)
	contrib := goal.MonthlyContribution
	for t := 0; t < months; t++ {
		if t > 0 && t%12 == 0 {
			contrib *= 1 + cfg.StepUpAnnual
		}
		contribs[t] = contrib
	}
	feeMonthly := cfg.FeeDragAnnual / 12

	paths := make([][]float64, numPaths)
	for p := 0; p < numPaths; p++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(p)*104729))
		series := make([]float64, months+1)
		v := goal.CurrentSavings
		series[0] = v
		for t := 0; t < months; t++ {
			ret := monthlyMu[t] + monthlyVol[t]*rng.NormFloat64()
			v = v*(1+ret-feeMonthly) + contribs[t]
			series[t+1] = v
		}
		paths[p] = series
	}

	yearsFloat := float64(months) / 12
	nominalTarget := goal.TargetAmount * math.Pow(1+cfg.InflationRate, yearsFloat)

	finals := make([]float64, numPaths)
	success := 0
	for i, s := range paths {
		finals[i] = s[months]
		if finals[i] >= nominalTarget {
			success++
		}
	}
	sortedFinals := append([]float64(nil), finals...)
	sort.Float64s(sortedFinals)

	successProb := float64(success) / float64(numPaths)
	p10 := percentile(sortedFinals, 10)
	gap := math.Max(0, nominalTarget-p10)

	median := percentilePath(paths, 50)
	best := percentilePath(paths, 90)
	worst := percentilePath(paths, 10)

	result := &GoalResult{
		SuccessProbability:        successProb,
		GapAmount:                 round2(gap),
		ProjectedAmountAtDeadline: round2(stat.Quantile(0.5, stat.Empirical, sortedFinals, nil)),
		RecommendedAllocation:     path.Allocation(yearsFloat),
		YearlyProjections:         yearlyProjections(median, goal, cfg, months, now),
		Scenarios: ScenarioProjections{
			Median: yearlyProjections(median, goal, cfg, months, now),
			Best:   yearlyProjections(best, goal, cfg, months, now),
			Worst:  yearlyProjections(worst, goal, cfg, months, now),
		},
		OnTrack:         successProb >= onTrackThreshold,
		Suggestions:     map[string]float64{},
		MonthsRemaining: months,
	}

	// Shortfall-closing suggestions: the extra level payment that funds the
	// gap over a shorter horizon, via future-value-of-annuity inversion.
	if gap > 0 {
		r := cfg.RiskFreeRate / 12
		if extra := annuityPayment(gap, r, months-1); extra > 0 {
			result.Suggestions["one_month_earlier"] = round2(extra)
		}
		if months > 12 {
			if extra := annuityPayment(gap, r, months-12); extra > 0 {
				result.Suggestions["one_year_earlier"] = round2(extra)
			}
		}
	}

	return result, nil
}

// annuityPayment solves PMT = G*r / ((1+r)^n - 1); degenerate rates fall
// back to straight division.
func annuityPayment(gap, monthlyRate float64, periods int) float64 {
	if periods <= 0 {
		return 0
	}
	if monthlyRate <= 0 {
		return gap / float64(periods)
	}
	denom := math.Pow(1+monthlyRate, float64(periods)) - 1
	if denom <= 0 {
		return gap / float64(periods)
	}
	return gap * monthlyRate / denom
}

// percentilePath builds the per-step percentile trajectory across the
// ensemble.
func percentilePath(paths [][]float64, p float64) []float64 {
	steps := len(paths[0])
	out := make([]float64, steps)
	column := make([]float64, len(paths))
	for t := 0; t < steps; t++ {
		for i, s := range paths {
			column[i] = s[t]
		}
		sort.Float64s(column)
		out[t] = percentile(column, p)
	}
	return out
}

// yearlyProjections collapses a monthly trajectory into year-end rows with
// the contribution/growth split. The step-up is applied at each year start.
func yearlyProjections(path []float64, goal Goal, cfg GoalConfig, months int, now time.Time) []YearlyProjection {
	years := int(math.Ceil(float64(months) / 12))
	out := make([]YearlyProjection, 0, years)
	prev := goal.CurrentSavings
	for y := 1; y <= years; y++ {
		idx := y * 12
		if idx > months {
			idx = months
		}
		monthlyContrib := goal.MonthlyContribution * math.Pow(1+cfg.StepUpAnnual, float64(y-1))
		monthsThisYear := idx - (y-1)*12
		yearContrib := monthlyContrib * float64(monthsThisYear)
		amount := path[idx]
		out = append(out, YearlyProjection{
			Year:         now.Year() + y,
			Amount:       round2(amount),
			Contribution: round2(yearContrib),
			Growth:       round2(amount - prev - yearContrib),
		})
		prev = amount
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
